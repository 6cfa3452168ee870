package adapter

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/deploywatch/deploywatch/internal/types"
)

// Express recognizes method-call route registration:
//
//	app.get('/users/:id', (req, res) => { ... })
//	router.post('/users', createUser)
//
// Any identifier receiver is accepted (app, router, server) so routers
// split across modules still extract.
type Express struct{}

// NewExpress creates an Express adapter
func NewExpress() *Express {
	return &Express{}
}

// Name returns the framework tag for Express routes
func (e *Express) Name() string { return "express" }

// Extensions returns the file extensions Express sources use
func (e *Express) Extensions() []string { return []string{".js"} }

// Detect scores the tree on Express import and usage signatures.
func (e *Express) Detect(tree SourceTree) float64 {
	score := 0.0
	if containsAny(tree, ".js", `require('express')`, `require("express")`, `from 'express'`, `from "express"`) {
		score += 0.6
	}
	if containsAny(tree, ".js", "express()", "express.Router()") {
		score += 0.2
	}
	if containsAny(tree, ".js", "app.get(", "app.post(", "router.get(", "router.post(") {
		score += 0.2
	}
	return clamp(score)
}

var expressMethods = map[string]types.Method{
	"get":    types.MethodGet,
	"post":   types.MethodPost,
	"put":    types.MethodPut,
	"delete": types.MethodDelete,
	"patch":  types.MethodPatch,
	"all":    types.MethodAny,
}

// ExtractRoutes parses one JavaScript file and returns its Express routes.
func (e *Express) ExtractRoutes(path string, src []byte) ([]types.Route, error) {
	tree, err := parseSource(javascript.GetLanguage(), src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var routes []types.Route
	walk(tree.RootNode(), func(node *sitter.Node) bool {
		if node.Type() != "call_expression" {
			return true
		}
		member := node.ChildByFieldName("function")
		if member == nil || member.Type() != "member_expression" {
			return true
		}
		object := member.ChildByFieldName("object")
		prop := member.ChildByFieldName("property")
		if object == nil || prop == nil || object.Type() != "identifier" {
			return true
		}
		method, ok := expressMethods[nodeText(prop, src)]
		if !ok {
			return true
		}

		args := node.ChildByFieldName("arguments")
		rawPath, ok := stringArg(args, src)
		if !ok {
			return true
		}
		template, params := normalizeColonPath(rawPath)

		routes = append(routes, types.Route{
			Method:     method,
			Path:       template,
			SourceFile: path,
			SourceLine: nodeLine(node),
			Framework:  e.Name(),
			Handler:    expressHandlerName(args, src),
			Params:     params,
		})
		return true
	})
	return routes, nil
}

// expressHandlerName returns the name of the last named-function or
// identifier handler argument, or "" for inline anonymous handlers.
func expressHandlerName(args *sitter.Node, src []byte) string {
	if args == nil {
		return ""
	}
	name := ""
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		switch child.Type() {
		case "identifier":
			name = nodeText(child, src)
		case "function_expression", "function_declaration":
			if n := child.ChildByFieldName("name"); n != nil {
				name = nodeText(n, src)
			}
		}
	}
	return name
}
