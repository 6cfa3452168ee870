package adapter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/deploywatch/deploywatch/internal/types"
)

// Django recognizes URLconf registration calls:
//
//	urlpatterns = [
//	    path('users/<int:pk>/', views.detail),
//	    re_path(r'^archive/(?P<year>[0-9]{4})/$', views.archive),
//	]
//
// URL patterns carry no HTTP method, so every route is MethodAny.
type Django struct{}

// NewDjango creates a Django adapter
func NewDjango() *Django {
	return &Django{}
}

// Name returns the framework tag for Django routes
func (d *Django) Name() string { return "django" }

// Extensions returns the file extensions Django sources use
func (d *Django) Extensions() []string { return []string{".py"} }

// Detect scores the tree on Django import and URLconf signatures.
func (d *Django) Detect(tree SourceTree) float64 {
	score := 0.0
	if containsAny(tree, ".py", "from django", "import django") {
		score += 0.6
	}
	if containsAny(tree, ".py", "urlpatterns") {
		score += 0.4
	}
	return clamp(score)
}

// ExtractRoutes parses one Python file and returns its URLconf routes.
func (d *Django) ExtractRoutes(path string, src []byte) ([]types.Route, error) {
	// URLconf calls only live in urls.py modules; skip everything else so
	// unrelated calls to functions named "path" don't produce noise.
	if !strings.HasSuffix(path, "urls.py") {
		return nil, nil
	}

	tree, err := parseSource(python.GetLanguage(), src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var routes []types.Route
	walk(tree.RootNode(), func(node *sitter.Node) bool {
		if node.Type() != "call" {
			return true
		}
		fn := node.ChildByFieldName("function")
		if fn == nil || fn.Type() != "identifier" {
			return true
		}
		name := nodeText(fn, src)
		if name != "path" && name != "re_path" && name != "url" {
			return true
		}

		args := node.ChildByFieldName("arguments")
		rawPath, ok := stringArg(args, src)
		if !ok {
			return true
		}

		var template string
		var params []types.Param
		if name == "path" {
			template, params = normalizeAnglePath(rawPath)
		} else {
			template, params = normalizeRegexPath(rawPath)
		}

		routes = append(routes, types.Route{
			Method:     types.MethodAny,
			Path:       template,
			SourceFile: path,
			SourceLine: nodeLine(node),
			Framework:  d.Name(),
			Handler:    djangoViewName(args, src),
			Params:     params,
		})
		return false
	})
	return routes, nil
}

// normalizeRegexPath converts a re_path/url regex pattern into a brace
// template: named groups become parameters, anchors are dropped.
func normalizeRegexPath(raw string) (string, []types.Param) {
	s := strings.TrimPrefix(raw, "^")
	s = strings.TrimSuffix(s, "$")

	var params []types.Param
	for {
		start := strings.Index(s, "(?P<")
		if start < 0 {
			break
		}
		nameEnd := strings.Index(s[start:], ">")
		if nameEnd < 0 {
			break
		}
		name := s[start+4 : start+nameEnd]
		// Find the group's closing paren, tolerating nesting
		depth := 0
		end := -1
		for i := start; i < len(s); i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					end = i
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			break
		}
		params = append(params, types.Param{Name: name})
		s = s[:start] + "{" + name + "}" + s[end+1:]
	}
	return ensureLeadingSlash(s), params
}

// djangoViewName returns the second positional argument's source text
// (e.g. "views.detail"), best effort.
func djangoViewName(args *sitter.Node, src []byte) string {
	if args == nil {
		return ""
	}
	positional := 0
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() == "keyword_argument" || child.Type() == "comment" {
			continue
		}
		positional++
		if positional == 2 {
			return nodeText(child, src)
		}
	}
	return ""
}
