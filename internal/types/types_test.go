package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethodIsValid(t *testing.T) {
	tests := []struct {
		name   string
		method Method
		valid  bool
	}{
		{"get", MethodGet, true},
		{"post", MethodPost, true},
		{"any", MethodAny, true},
		{"lowercase is invalid", Method("get"), false},
		{"empty", Method(""), false},
		{"head unsupported", Method("HEAD"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.method.IsValid())
		})
	}
}

func TestRouteKey(t *testing.T) {
	a := Route{Method: MethodGet, Path: "/users/{id}", Framework: "flask"}
	b := Route{Method: MethodGet, Path: "/users/{id}", Framework: "fastapi"}
	c := Route{Method: MethodGet, Path: "/users/{name}", Framework: "flask"}

	// Same method+path collide regardless of which adapter produced them
	assert.Equal(t, a.Key(), b.Key())

	// Different parameter names are distinct routes, no unification
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestRouteValidate(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		wantErr string
	}{
		{
			name:  "valid",
			route: Route{Method: MethodGet, Path: "/health", Framework: "flask"},
		},
		{
			name:    "bad method",
			route:   Route{Method: "FETCH", Path: "/health", Framework: "flask"},
			wantErr: "invalid method",
		},
		{
			name:    "relative path",
			route:   Route{Method: MethodGet, Path: "health", Framework: "flask"},
			wantErr: "path must start with /",
		},
		{
			name:    "missing framework",
			route:   Route{Method: MethodGet, Path: "/health"},
			wantErr: "framework tag is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.route.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestCategorySeverityOrdering(t *testing.T) {
	// The escalation gate depends on build-breaking categories outranking
	// degraded-service ones, and Unknown ranking lowest.
	assert.Greater(t, CategorySyntaxError.Severity(), CategoryRuntimeError.Severity())
	assert.Greater(t, CategoryRuntimeError.Severity(), CategoryRouteVerification.Severity())
	assert.Greater(t, CategoryRouteVerification.Severity(), CategoryUnknown.Severity())
	assert.Equal(t, 0, CategoryUnknown.Severity())
}

func TestCheckResultHealthy(t *testing.T) {
	assert.True(t, RouteCheckResult{Status: StatusOK}.Healthy())
	assert.False(t, RouteCheckResult{Status: StatusErrorStatus}.Healthy())
	assert.False(t, RouteCheckResult{Status: StatusTimeout}.Healthy())
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{File: "app.py", Adapter: "flask", Message: "parse failure"}
	assert.Equal(t, "app.py: parse failure (adapter: flask)", d.String())

	bare := Diagnostic{Message: "no base URL configured"}
	assert.Equal(t, "no base URL configured", bare.String())
}
