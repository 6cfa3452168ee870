package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/deploywatch/deploywatch/internal/types"
)

// parseSource parses src with a fresh parser for the given language.
// Parsers are not safe for concurrent use, so each call gets its own.
func parseSource(lang *sitter.Language, src []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	tree, err := p.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing source: %w", err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, fmt.Errorf("parser produced no tree")
	}
	return tree, nil
}

// walk visits node and all descendants in document order. Returning false
// from fn prunes that subtree.
func walk(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), fn)
	}
}

// nodeText returns the source text of a node.
func nodeText(node *sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}

// nodeLine returns the 1-based source line of a node.
func nodeLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// unquote strips string-literal quoting from a source-level string token,
// including Python prefix characters (r'...', f"...", b'...').
func unquote(text string) (string, bool) {
	s := strings.TrimLeft(text, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`, "`"} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)], true
		}
	}
	return text, false
}

// stringArg returns the unquoted value of the first string literal in an
// argument list, along with whether one was found.
func stringArg(args *sitter.Node, src []byte) (string, bool) {
	if args == nil {
		return "", false
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() == "string" || child.Type() == "template_string" {
			return unquote(nodeText(child, src))
		}
	}
	return "", false
}

// Flask/Django style path converters: <int:id>, <id>, <path:rest>.
var angleParamRe = regexp.MustCompile(`<(?:([a-zA-Z_]+):)?([a-zA-Z_][a-zA-Z0-9_]*)>`)

// Express style params: :id
var colonParamRe = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

// Brace templates (FastAPI native): {id}
var braceParamRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// paramKindFromConverter maps a Flask/Django converter name to a ParamKind.
func paramKindFromConverter(conv string) types.ParamKind {
	switch conv {
	case "int":
		return types.ParamInt
	case "float":
		return types.ParamFloat
	case "uuid":
		return types.ParamUUID
	case "path":
		return types.ParamPath
	case "string", "str", "slug":
		return types.ParamString
	default:
		return types.ParamUnknown
	}
}

// normalizeAnglePath converts Flask/Django "<int:id>" templates into the
// canonical "/users/{id}" form and collects the declared parameters.
func normalizeAnglePath(raw string) (string, []types.Param) {
	var params []types.Param
	path := angleParamRe.ReplaceAllStringFunc(raw, func(m string) string {
		sub := angleParamRe.FindStringSubmatch(m)
		params = append(params, types.Param{Name: sub[2], Kind: paramKindFromConverter(sub[1])})
		return "{" + sub[2] + "}"
	})
	return ensureLeadingSlash(path), params
}

// normalizeColonPath converts Express ":id" templates into "{id}" form.
func normalizeColonPath(raw string) (string, []types.Param) {
	var params []types.Param
	path := colonParamRe.ReplaceAllStringFunc(raw, func(m string) string {
		name := m[1:]
		params = append(params, types.Param{Name: name})
		return "{" + name + "}"
	})
	return ensureLeadingSlash(path), params
}

// normalizeBracePath keeps "{id}" templates as-is and collects the names.
func normalizeBracePath(raw string) (string, []types.Param) {
	var params []types.Param
	for _, sub := range braceParamRe.FindAllStringSubmatch(raw, -1) {
		params = append(params, types.Param{Name: sub[1]})
	}
	return ensureLeadingSlash(raw), params
}

func ensureLeadingSlash(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// importsAny reports whether src contains any of the given import markers.
// The Python adapters use it to leave files alone that belong to a sibling
// framework with the same decorator shape.
func importsAny(src []byte, markers ...string) bool {
	text := string(src)
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// containsAny reports whether any of the byte patterns occurs in the tree's
// files with the given extension. Used by Detect implementations.
func containsAny(tree SourceTree, ext string, patterns ...string) bool {
	for _, f := range tree.FilesWithExt(ext) {
		text := string(f.Data)
		for _, p := range patterns {
			if strings.Contains(text, p) {
				return true
			}
		}
	}
	return false
}

// clamp limits a confidence score to [0,1].
func clamp(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}
