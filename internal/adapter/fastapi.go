package adapter

import (
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/deploywatch/deploywatch/internal/types"
)

// FastAPI recognizes method-named decorators on app or router objects:
//
//	@app.get("/users/{user_id}")
//	async def read_user(user_id: int): ...
//
// Path parameters already use brace templates; declared Python types on
// the handler's parameters refine the ParamKind.
type FastAPI struct{}

// NewFastAPI creates a FastAPI adapter
func NewFastAPI() *FastAPI {
	return &FastAPI{}
}

// Name returns the framework tag for FastAPI routes
func (f *FastAPI) Name() string { return "fastapi" }

// Extensions returns the file extensions FastAPI sources use
func (f *FastAPI) Extensions() []string { return []string{".py"} }

// Detect scores the tree on FastAPI import and usage signatures.
func (f *FastAPI) Detect(tree SourceTree) float64 {
	score := 0.0
	if containsAny(tree, ".py", "from fastapi import", "import fastapi") {
		score += 0.7
	}
	if containsAny(tree, ".py", "FastAPI()", "APIRouter(") {
		score += 0.3
	}
	return clamp(score)
}

var fastapiMethodDecorators = map[string]types.Method{
	"get":    types.MethodGet,
	"post":   types.MethodPost,
	"put":    types.MethodPut,
	"delete": types.MethodDelete,
	"patch":  types.MethodPatch,
}

// ExtractRoutes parses one Python file and returns its FastAPI routes.
// Flask files also use @app.get-style decorators, so files that import
// flask are left to the flask adapter.
func (f *FastAPI) ExtractRoutes(path string, src []byte) ([]types.Route, error) {
	if importsAny(src, "from flask import", "import flask") {
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
		def := node.ChildByFieldName("definition")
		handler := pyDefinitionName(node, src)
		for i := 0; i < int(node.ChildCount()); i++ {
			dec := node.Child(i)
			if dec.Type() != "decorator" {
				continue
			}
			if r, ok := f.routeFromDecorator(dec, def, path, handler, src); ok {
				routes = append(routes, r)
			}
		}
		return true
	})
	return routes, nil
}

func (f *FastAPI) routeFromDecorator(dec, def *sitter.Node, path, handler string, src []byte) (types.Route, bool) {
	call := pyFindCall(dec)
	if call == nil {
		return types.Route{}, false
	}
	attr := call.ChildByFieldName("function")
	if attr == nil || attr.Type() != "attribute" {
		return types.Route{}, false
	}
	attrName := attr.ChildByFieldName("attribute")
	if attrName == nil {
		return types.Route{}, false
	}
	method, ok := fastapiMethodDecorators[nodeText(attrName, src)]
	if !ok {
		return types.Route{}, false
	}

	rawPath, ok := stringArg(call.ChildByFieldName("arguments"), src)
	if !ok {
		return types.Route{}, false
	}
	template, params := normalizeBracePath(rawPath)
	refineParamKinds(params, def, src)

	return types.Route{
		Method:     method,
		Path:       template,
		SourceFile: path,
		SourceLine: nodeLine(dec),
		Framework:  f.Name(),
		Handler:    handler,
		Params:     params,
	}, true
}

var pyAnnotationKinds = map[string]types.ParamKind{
	"int":   types.ParamInt,
	"float": types.ParamFloat,
	"str":   types.ParamString,
	"UUID":  types.ParamUUID,
}

// refineParamKinds fills in parameter kinds from the handler signature's
// type annotations, best effort. Parameters without a recognizable
// annotation keep ParamUnknown.
func refineParamKinds(params []types.Param, def *sitter.Node, src []byte) {
	if def == nil || len(params) == 0 {
		return
	}
	sig := def.ChildByFieldName("parameters")
	if sig == nil {
		return
	}
	text := nodeText(sig, src)
	for i := range params {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(params[i].Name) + `\s*:\s*([A-Za-z_][A-Za-z0-9_.]*)`)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if kind, ok := pyAnnotationKinds[m[1]]; ok {
			params[i].Kind = kind
		}
	}
}
