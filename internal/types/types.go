// Package types defines the core data model shared across deploywatch:
// extracted routes, verification results, error signatures, suggestions,
// and notification decisions.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Method is an HTTP method associated with a route.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
	// MethodAny marks routes registered without an explicit method
	// (Django url patterns, Express app.all, etc.)
	MethodAny Method = "ANY"
)

// IsValid checks if the method value is valid
func (m Method) IsValid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodAny:
		return true
	}
	return false
}

// ParamKind describes the declared type of a path parameter, when the
// source framework declares one (Flask converters, Django path converters).
type ParamKind string

const (
	ParamString  ParamKind = "string"
	ParamInt     ParamKind = "int"
	ParamFloat   ParamKind = "float"
	ParamUUID    ParamKind = "uuid"
	ParamPath    ParamKind = "path"
	ParamUnknown ParamKind = ""
)

// Param is a path parameter declared in a route template.
type Param struct {
	Name string    `json:"name"`
	Kind ParamKind `json:"kind,omitempty"`
}

// Route is the canonical representation of one HTTP route exposed by an
// application, produced by a framework adapter. Routes are immutable once
// created.
type Route struct {
	Method     Method  `json:"method"`
	Path       string  `json:"path"` // normalized template, e.g. /users/{id}
	SourceFile string  `json:"source_file"`
	SourceLine int     `json:"source_line"`
	Framework  string  `json:"framework"`
	Handler    string  `json:"handler,omitempty"` // best-effort, may be absent
	Params     []Param `json:"params,omitempty"`
}

// Key returns the deduplication key for a route. Routes with the same
// method and path are the same route regardless of where they were
// registered; templates differing only in parameter name are distinct.
func (r Route) Key() string {
	return string(r.Method) + " " + r.Path
}

// Validate checks if the route has valid field values
func (r Route) Validate() error {
	if !r.Method.IsValid() {
		return fmt.Errorf("invalid method: %s", r.Method)
	}
	if r.Path == "" || !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("path must start with /: %q", r.Path)
	}
	if r.Framework == "" {
		return fmt.Errorf("framework tag is required")
	}
	return nil
}

// CheckStatus classifies the outcome of probing one route.
type CheckStatus string

const (
	// StatusOK means the probe got a 2xx or 3xx response
	StatusOK CheckStatus = "OK"
	// StatusErrorStatus means the probe got a 4xx or 5xx response
	StatusErrorStatus CheckStatus = "ERROR_STATUS"
	// StatusTimeout means no response arrived within the probe timeout
	StatusTimeout CheckStatus = "TIMEOUT"
	// StatusUnreachable means a connection-level failure (DNS, refused)
	StatusUnreachable CheckStatus = "UNREACHABLE"
)

// IsValid checks if the status value is valid
func (s CheckStatus) IsValid() bool {
	switch s {
	case StatusOK, StatusErrorStatus, StatusTimeout, StatusUnreachable:
		return true
	}
	return false
}

// RouteCheckResult records the outcome of probing one route. Immutable
// once produced.
type RouteCheckResult struct {
	Route      Route       `json:"route"`
	Status     CheckStatus `json:"status"`
	HTTPStatus int         `json:"http_status,omitempty"`
	LatencyMs  int64       `json:"latency_ms"`
	CheckedAt  time.Time   `json:"checked_at"`
}

// Healthy reports whether the probe found the route reachable.
func (r RouteCheckResult) Healthy() bool {
	return r.Status == StatusOK
}

// Diagnostic records a non-fatal problem encountered during extraction or
// verification. Diagnostics never abort a run.
type Diagnostic struct {
	File    string `json:"file,omitempty"`
	Adapter string `json:"adapter,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.File != "" {
		b.WriteString(d.File)
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	if d.Adapter != "" {
		fmt.Fprintf(&b, " (adapter: %s)", d.Adapter)
	}
	return b.String()
}

// BuildStatus is the outcome of the application build being analyzed.
type BuildStatus string

const (
	BuildSuccess BuildStatus = "success"
	BuildFailed  BuildStatus = "failed"
)

// IsValid checks if the build status value is valid
func (s BuildStatus) IsValid() bool {
	return s == BuildSuccess || s == BuildFailed
}

// BuildOutcome is the record a CI collaborator hands to the pipeline:
// whether the build succeeded and, if not, the raw log to analyze.
type BuildOutcome struct {
	Status BuildStatus `json:"status"`
	RawLog string      `json:"raw_log,omitempty"`
	Commit string      `json:"commit,omitempty"`
	Branch string      `json:"branch,omitempty"`
}

// Report is the single structured record produced per pipeline invocation
// (one build event). Collaborators persist or forward it; the core does
// not store it.
type Report struct {
	ID           string                `json:"id"`
	Routes       []Route               `json:"routes"`
	Duplicates   []Route               `json:"duplicates,omitempty"`
	CheckResults []RouteCheckResult    `json:"check_results,omitempty"`
	Signature    *ErrorSignature       `json:"signature,omitempty"`
	Suggestion   *Suggestion           `json:"suggestion,omitempty"`
	Notify       *NotificationDecision `json:"notify,omitempty"`
	Diagnostics  []Diagnostic          `json:"diagnostics,omitempty"`
	GeneratedAt  time.Time             `json:"generated_at"`
}
