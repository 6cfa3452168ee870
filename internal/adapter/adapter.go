// Package adapter implements framework-specific route discovery. Each
// adapter recognizes one web framework's routing idiom and turns source
// text into canonical Route values without ever executing the target code.
package adapter

import (
	"path/filepath"

	"github.com/deploywatch/deploywatch/internal/types"
)

// SourceFile is one file loaded from the application source tree.
type SourceFile struct {
	Path string // repo-relative path
	Data []byte
}

// SourceTree is the in-memory view of an application source tree handed
// to adapters. Adapters only read it.
type SourceTree struct {
	Files []SourceFile
}

// FilesWithExt returns the files whose extension matches ext (e.g. ".py").
func (t SourceTree) FilesWithExt(ext string) []SourceFile {
	var out []SourceFile
	for _, f := range t.Files {
		if filepath.Ext(f.Path) == ext {
			out = append(out, f)
		}
	}
	return out
}

// FrameworkAdapter is the capability each framework integration satisfies.
// Detect is a cheap textual sniff over the whole tree; ExtractRoutes is a
// structural parse of one file. Adding a framework means adding one
// implementation, not editing existing ones.
type FrameworkAdapter interface {
	// Name returns the framework tag stamped on extracted routes.
	Name() string

	// Extensions returns the file extensions this adapter parses.
	Extensions() []string

	// Detect returns a confidence score in [0,1] that this tree uses the
	// adapter's framework, based on import/usage signatures.
	Detect(tree SourceTree) float64

	// ExtractRoutes parses one file and returns the routes it registers.
	// A parse failure affects only that file; the caller records it as a
	// diagnostic and continues.
	ExtractRoutes(path string, src []byte) ([]types.Route, error)
}

// All returns every registered framework adapter, in a stable order.
func All() []FrameworkAdapter {
	return []FrameworkAdapter{
		NewFlask(),
		NewFastAPI(),
		NewDjango(),
		NewExpress(),
	}
}

// ByName returns the adapter with the given name, or nil if unknown.
func ByName(name string) FrameworkAdapter {
	for _, a := range All() {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
