// Package extract discovers HTTP routes in an application source tree by
// selecting framework adapters and aggregating their output into a
// deterministic, deduplicated route list.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/deploywatch/deploywatch/internal/adapter"
	"github.com/deploywatch/deploywatch/internal/types"
)

// DefaultMinConfidence is the adapter selection threshold used when the
// config does not override it.
const DefaultMinConfidence = 0.3

// maxFileSize guards against pathological inputs; source files above this
// are skipped with a diagnostic.
const maxFileSize = 2 << 20 // 2MB

var skipDirs = map[string]struct{}{
	"__pycache__":  {},
	"node_modules": {},
	".git":         {},
	"venv":         {},
	".venv":        {},
	"build":        {},
	"dist":         {},
	"vendor":       {},
	".tox":         {},
}

var sourceExts = map[string]struct{}{
	".py": {},
	".js": {},
}

// Result is the outcome of one extraction run.
type Result struct {
	// Routes is the canonical deduplicated list, sorted by
	// (SourceFile, SourceLine).
	Routes []types.Route `json:"routes"`
	// Duplicates is the audit trail of (method, path) collisions that
	// were merged away, in encounter order.
	Duplicates []types.Route `json:"duplicates,omitempty"`
	// Frameworks lists the adapters that ran, with their confidence.
	Frameworks map[string]float64 `json:"frameworks,omitempty"`
	// Diagnostics records per-file parse failures and other non-fatal
	// problems.
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty"`
}

// Extractor selects adapters for a source tree and runs them.
type Extractor struct {
	// MinConfidence is the detection threshold below which an adapter is
	// not run. Zero means DefaultMinConfidence.
	MinConfidence float64
	// Hint, when set, forces exactly one adapter by name and skips
	// detection entirely.
	Hint string
}

// LoadTree reads the source files under root into memory, honoring
// .gitignore and skipping vendor-style directories.
func LoadTree(root string) (adapter.SourceTree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return adapter.SourceTree{}, fmt.Errorf("failed to stat source root: %w", err)
	}

	// A single file is a one-entry tree
	if !info.IsDir() {
		data, err := os.ReadFile(root)
		if err != nil {
			return adapter.SourceTree{}, fmt.Errorf("failed to read %s: %w", root, err)
		}
		return adapter.SourceTree{Files: []adapter.SourceFile{{Path: filepath.Base(root), Data: data}}}, nil
	}

	gi := loadGitignore(root)

	var tree adapter.SourceTree
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if _, ok := sourceExts[filepath.Ext(name)]; !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		fi, err := d.Info()
		if err != nil || fi.Size() > maxFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		tree.Files = append(tree.Files, adapter.SourceFile{Path: rel, Data: data})
		return nil
	})
	if err != nil {
		return adapter.SourceTree{}, fmt.Errorf("failed to walk source tree: %w", err)
	}

	sort.Slice(tree.Files, func(i, j int) bool {
		return tree.Files[i].Path < tree.Files[j].Path
	})
	return tree, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// Extract runs adapter selection and route extraction over a loaded tree.
// Output is deterministic: routes sorted by (SourceFile, SourceLine), and
// running twice on the same tree yields identical results.
func (e *Extractor) Extract(tree adapter.SourceTree) (*Result, error) {
	selected, frameworks, err := e.selectAdapters(tree)
	if err != nil {
		return nil, err
	}

	result := &Result{Frameworks: frameworks}

	var all []types.Route
	for _, a := range selected {
		for _, ext := range a.Extensions() {
			for _, f := range tree.FilesWithExt(ext) {
				routes, err := a.ExtractRoutes(f.Path, f.Data)
				if err != nil {
					// One bad file never aborts the run
					result.Diagnostics = append(result.Diagnostics, types.Diagnostic{
						File:    f.Path,
						Adapter: a.Name(),
						Message: fmt.Sprintf("parse failure: %v", err),
					})
					continue
				}
				all = append(all, routes...)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].SourceFile != all[j].SourceFile {
			return all[i].SourceFile < all[j].SourceFile
		}
		return all[i].SourceLine < all[j].SourceLine
	})

	// Exact (method, path) collisions merge; the first-encountered source
	// location wins and later ones land in the audit trail. Templates
	// differing in parameter naming stay distinct.
	seen := make(map[string]struct{}, len(all))
	for _, r := range all {
		key := r.Key()
		if _, dup := seen[key]; dup {
			result.Duplicates = append(result.Duplicates, r)
			continue
		}
		seen[key] = struct{}{}
		result.Routes = append(result.Routes, r)
	}

	return result, nil
}

// ExtractPath loads the tree at root and extracts routes from it.
func (e *Extractor) ExtractPath(root string) (*Result, error) {
	tree, err := LoadTree(root)
	if err != nil {
		return nil, err
	}
	return e.Extract(tree)
}

// selectAdapters picks which adapters run. With a hint, exactly that
// adapter runs. Otherwise every adapter whose detection confidence clears
// the threshold runs, so polyglot trees extract all frameworks at once.
func (e *Extractor) selectAdapters(tree adapter.SourceTree) ([]adapter.FrameworkAdapter, map[string]float64, error) {
	if e.Hint != "" {
		a := adapter.ByName(e.Hint)
		if a == nil {
			return nil, nil, fmt.Errorf("unknown framework hint: %q", e.Hint)
		}
		return []adapter.FrameworkAdapter{a}, map[string]float64{a.Name(): 1.0}, nil
	}

	threshold := e.MinConfidence
	if threshold == 0 {
		threshold = DefaultMinConfidence
	}

	frameworks := make(map[string]float64)
	var selected []adapter.FrameworkAdapter
	for _, a := range adapter.All() {
		score := a.Detect(tree)
		if score >= threshold {
			frameworks[a.Name()] = score
			selected = append(selected, a)
		}
	}
	return selected, frameworks, nil
}
