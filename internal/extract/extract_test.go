package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploywatch/deploywatch/internal/adapter"
	"github.com/deploywatch/deploywatch/internal/types"
)

const flaskMain = `from flask import Flask, jsonify

app = Flask(__name__)

@app.route('/api/health')
def health_check():
    return jsonify({'status': 'healthy'})

@app.route('/api/test')
def test_route_1():
    return jsonify({'test': 'route 1'})

@app.route('/api/test')
def test_route_2():
    return jsonify({'test': 'route 2'})
`

const flaskUsers = `from flask import Flask

app = Flask(__name__)

@app.route('/users/<int:user_id>')
def user_detail(user_id):
    return {}
`

func memTree(files map[string]string) adapter.SourceTree {
	var tree adapter.SourceTree
	for path, data := range files {
		tree.Files = append(tree.Files, adapter.SourceFile{Path: path, Data: []byte(data)})
	}
	return tree
}

func TestExtractOrderingAndDedup(t *testing.T) {
	tree := memTree(map[string]string{
		"users.py": flaskUsers,
		"app.py":   flaskMain,
	})

	e := &Extractor{}
	result, err := e.Extract(tree)
	require.NoError(t, err)

	// Sorted by (SourceFile, SourceLine)
	require.Len(t, result.Routes, 3)
	assert.Equal(t, "app.py", result.Routes[0].SourceFile)
	assert.Equal(t, "/api/health", result.Routes[0].Path)
	assert.Equal(t, "/api/test", result.Routes[1].Path)
	assert.Equal(t, "users.py", result.Routes[2].SourceFile)

	// The duplicate /api/test registration merged into the audit trail,
	// keeping the first-encountered source location canonical
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "test_route_2", result.Duplicates[0].Handler)
	assert.Equal(t, "test_route_1", result.Routes[1].Handler)
}

func TestExtractIdempotent(t *testing.T) {
	tree := memTree(map[string]string{"app.py": flaskMain, "users.py": flaskUsers})
	e := &Extractor{}

	first, err := e.Extract(tree)
	require.NoError(t, err)
	second, err := e.Extract(tree)
	require.NoError(t, err)

	assert.Equal(t, first.Routes, second.Routes)
	assert.Equal(t, first.Duplicates, second.Duplicates)
}

func TestExtractTemplateGranularityIsDistinct(t *testing.T) {
	tree := memTree(map[string]string{
		"a.py": `from flask import Flask
app = Flask(__name__)

@app.route('/users/<id>')
def by_id(id):
    return {}

@app.route('/users/<name>')
def by_name(name):
    return {}
`,
	})

	result, err := (&Extractor{}).Extract(tree)
	require.NoError(t, err)

	// No heuristic unification of {id} vs {name}
	require.Len(t, result.Routes, 2)
	assert.Empty(t, result.Duplicates)
}

func TestExtractMixedFrameworks(t *testing.T) {
	tree := memTree(map[string]string{
		"app.py": flaskMain,
		"server.js": `const express = require('express');
const app = express();
app.get('/js/health', healthHandler);
`,
	})

	result, err := (&Extractor{}).Extract(tree)
	require.NoError(t, err)

	byFramework := make(map[string]int)
	for _, r := range result.Routes {
		byFramework[r.Framework]++
	}
	assert.Equal(t, 2, byFramework["flask"])
	assert.Equal(t, 1, byFramework["express"])
	assert.Contains(t, result.Frameworks, "flask")
	assert.Contains(t, result.Frameworks, "express")
}

func TestExtractMixedPythonFrameworksKeepOwnFiles(t *testing.T) {
	tree := memTree(map[string]string{
		"flask_app.py": flaskUsers,
		"api.py": `from fastapi import FastAPI

app = FastAPI()

@app.get("/items/{item_id}")
async def read_item(item_id: int):
    return {}
`,
	})

	result, err := (&Extractor{}).Extract(tree)
	require.NoError(t, err)

	// Each adapter extracts only from its own framework's files, so the
	// FastAPI route keeps its declared int param kind and nothing lands
	// in the duplicate list.
	require.Len(t, result.Routes, 2)
	assert.Empty(t, result.Duplicates)

	byPath := make(map[string]types.Route)
	for _, r := range result.Routes {
		byPath[r.Path] = r
	}

	item := byPath["/items/{item_id}"]
	assert.Equal(t, "fastapi", item.Framework)
	require.Len(t, item.Params, 1)
	assert.Equal(t, types.ParamInt, item.Params[0].Kind)

	user := byPath["/users/{user_id}"]
	assert.Equal(t, "flask", user.Framework)
}

func TestExtractHint(t *testing.T) {
	tree := memTree(map[string]string{
		"app.py":    flaskMain,
		"server.js": `const express = require('express'); const app = express(); app.get('/x', h);`,
	})

	result, err := (&Extractor{Hint: "express"}).Extract(tree)
	require.NoError(t, err)
	require.Len(t, result.Routes, 1)
	assert.Equal(t, "express", result.Routes[0].Framework)

	_, err = (&Extractor{Hint: "rails"}).Extract(tree)
	assert.ErrorContains(t, err, "unknown framework hint")
}

func TestExtractParseFailureIsDiagnostic(t *testing.T) {
	// tree-sitter is error tolerant, so a malformed file extracts nothing
	// rather than failing; the run always continues past bad files.
	tree := memTree(map[string]string{
		"app.py": flaskMain,
		"bad.py": "@app.route('/broken'\ndef (((",
	})

	result, err := (&Extractor{}).Extract(tree)
	require.NoError(t, err)

	var paths []string
	for _, r := range result.Routes {
		paths = append(paths, r.Path)
	}
	assert.Contains(t, paths, "/api/health")
}

func TestLoadTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(flaskMain), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "pkg", "index.js"), []byte("app.get('/x', h)"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("generated.py\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generated.py"), []byte(flaskMain), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# readme"), 0644))

	tree, err := LoadTree(dir)
	require.NoError(t, err)

	require.Len(t, tree.Files, 1)
	assert.Equal(t, "app.py", tree.Files[0].Path)
}

func TestLoadTreeSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(path, []byte(flaskMain), 0644))

	tree, err := LoadTree(path)
	require.NoError(t, err)
	require.Len(t, tree.Files, 1)
	assert.Equal(t, "app.py", tree.Files[0].Path)
}

func TestHealthRouteScenario(t *testing.T) {
	tree := memTree(map[string]string{
		"app.py": `from flask import Flask
app = Flask(__name__)

@app.route('/health')
def health():
    return 'ok'
`,
	})

	result, err := (&Extractor{}).Extract(tree)
	require.NoError(t, err)
	require.Len(t, result.Routes, 1)
	assert.Equal(t, types.MethodGet, result.Routes[0].Method)
	assert.Equal(t, "/health", result.Routes[0].Path)
}
