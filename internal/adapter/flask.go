package adapter

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/deploywatch/deploywatch/internal/types"
)

// Flask recognizes decorator-based route registration:
//
//	@app.route('/users/<int:id>', methods=['GET', 'POST'])
//	def get_user(id): ...
//
// Blueprint receivers (@bp.route) and the Flask 2 method shorthands
// (@app.get, @app.post, ...) are handled the same way.
type Flask struct{}

// NewFlask creates a Flask adapter
func NewFlask() *Flask {
	return &Flask{}
}

// Name returns the framework tag for Flask routes
func (f *Flask) Name() string { return "flask" }

// Extensions returns the file extensions Flask sources use
func (f *Flask) Extensions() []string { return []string{".py"} }

// Detect scores the tree on Flask import and usage signatures.
func (f *Flask) Detect(tree SourceTree) float64 {
	score := 0.0
	if containsAny(tree, ".py", "from flask import", "import flask") {
		score += 0.6
	}
	if containsAny(tree, ".py", "Flask(__name__)", "Flask(import_name") {
		score += 0.2
	}
	if containsAny(tree, ".py", ".route(") {
		score += 0.2
	}
	return clamp(score)
}

// flaskMethodDecorators maps Flask 2 shorthand decorator names to methods.
var flaskMethodDecorators = map[string]types.Method{
	"get":    types.MethodGet,
	"post":   types.MethodPost,
	"put":    types.MethodPut,
	"delete": types.MethodDelete,
	"patch":  types.MethodPatch,
}

// ExtractRoutes parses one Python file and returns its Flask routes.
// FastAPI's method decorators have the identical shape, so files that
// import fastapi are left to the fastapi adapter.
func (f *Flask) ExtractRoutes(path string, src []byte) ([]types.Route, error) {
	if importsAny(src, "from fastapi import", "import fastapi") {
		return nil, nil
	}
	tree, err := parseSource(python.GetLanguage(), src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var routes []types.Route
	walk(tree.RootNode(), func(node *sitter.Node) bool {
		if node.Type() != "decorated_definition" {
			return true
		}
		handler := pyDefinitionName(node, src)
		for i := 0; i < int(node.ChildCount()); i++ {
			dec := node.Child(i)
			if dec.Type() != "decorator" {
				continue
			}
			routes = append(routes, f.routesFromDecorator(dec, path, handler, src)...)
		}
		// Decorated definitions can nest (class-based views); keep walking.
		return true
	})
	return routes, nil
}

// routesFromDecorator turns one @x.route(...) / @x.get(...) decorator into
// zero or more routes.
func (f *Flask) routesFromDecorator(dec *sitter.Node, path, handler string, src []byte) []types.Route {
	call := pyFindCall(dec)
	if call == nil {
		return nil
	}
	attr := call.ChildByFieldName("function")
	if attr == nil || attr.Type() != "attribute" {
		return nil
	}
	attrName := attr.ChildByFieldName("attribute")
	if attrName == nil {
		return nil
	}
	decName := nodeText(attrName, src)

	args := call.ChildByFieldName("arguments")
	rawPath, ok := stringArg(args, src)
	if !ok {
		return nil
	}
	template, params := normalizeAnglePath(rawPath)

	base := types.Route{
		Path:       template,
		SourceFile: path,
		SourceLine: nodeLine(dec),
		Framework:  f.Name(),
		Handler:    handler,
		Params:     params,
	}

	if m, ok := flaskMethodDecorators[decName]; ok {
		base.Method = m
		return []types.Route{base}
	}
	if decName != "route" {
		return nil
	}

	methods := pyMethodsKwarg(args, src)
	if len(methods) == 0 {
		// Flask registers GET by default
		methods = []types.Method{types.MethodGet}
	}
	routes := make([]types.Route, 0, len(methods))
	for _, m := range methods {
		r := base
		r.Method = m
		routes = append(routes, r)
	}
	return routes
}

// pyFindCall returns the first call node under a decorator, or nil.
func pyFindCall(dec *sitter.Node) *sitter.Node {
	for i := 0; i < int(dec.NamedChildCount()); i++ {
		if c := dec.NamedChild(i); c.Type() == "call" {
			return c
		}
	}
	return nil
}

// pyDefinitionName returns the name of the function a decorator wraps.
func pyDefinitionName(decorated *sitter.Node, src []byte) string {
	def := decorated.ChildByFieldName("definition")
	if def == nil {
		return ""
	}
	name := def.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return nodeText(name, src)
}

// pyMethodsKwarg reads a methods=['GET', 'POST'] keyword argument.
func pyMethodsKwarg(args *sitter.Node, src []byte) []types.Method {
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		kw := args.NamedChild(i)
		if kw.Type() != "keyword_argument" {
			continue
		}
		name := kw.ChildByFieldName("name")
		if name == nil || nodeText(name, src) != "methods" {
			continue
		}
		value := kw.ChildByFieldName("value")
		if value == nil {
			return nil
		}
		var methods []types.Method
		walk(value, func(n *sitter.Node) bool {
			if n.Type() == "string" {
				if text, ok := unquote(nodeText(n, src)); ok {
					m := types.Method(text)
					if m.IsValid() {
						methods = append(methods, m)
					}
				}
				return false
			}
			return true
		})
		return methods
	}
	return nil
}
