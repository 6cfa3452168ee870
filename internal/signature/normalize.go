package signature

import (
	"regexp"
	"strings"
)

// Volatile tokens are substituted with placeholders before hashing so two
// occurrences of the same failure fingerprint identically even when raw
// text differs in addresses, IDs, or timestamps.
var volatilePatterns = []struct {
	re          *regexp.Regexp
	placeholder string
}{
	{regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`), "<uuid>"},
	{regexp.MustCompile(`0x[0-9a-fA-F]+`), "<addr>"},
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?\b`), "<timestamp>"},
	{regexp.MustCompile(`\b\d{2}:\d{2}:\d{2}(?:\.\d+)?\b`), "<time>"},
	{regexp.MustCompile(`\btmp[A-Za-z0-9_]{4,}\b`), "<tmp>"},
	{regexp.MustCompile(`\b\d{6,}\b`), "<num>"},
}

// stripVolatile replaces volatile substrings with stable placeholders.
func stripVolatile(s string) string {
	for _, p := range volatilePatterns {
		s = p.re.ReplaceAllString(s, p.placeholder)
	}
	return s
}

// Patterns that collapse source positions inside the hashed skeleton, so a
// failure that merely shifts lines keeps its identity.
var (
	lineNumRe = regexp.MustCompile(`\bline \d+\b`)
	colPosRe  = regexp.MustCompile(`:\d+(?::\d+)?\b`)
	wsRunRe   = regexp.MustCompile(`\s+`)
)

// skeleton reduces a message line to its hash-stable form: volatile tokens
// and source positions become placeholders, whitespace collapses.
func skeleton(s string) string {
	s = stripVolatile(s)
	s = lineNumRe.ReplaceAllString(s, "line <n>")
	s = colPosRe.ReplaceAllString(s, ":<n>")
	s = wsRunRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// Frame matchers for the stack formats the analyzer understands.
var (
	// Python: File "app.py", line 42, in home
	pyFrameRe = regexp.MustCompile(`File "([^"]+)", line (\d+)(?:, in (\S+))?`)
	// Node: at handler (/srv/app/server.js:10:5)  /  at /srv/app/server.js:10:5
	nodeFrameRe = regexp.MustCompile(`at (?:(\S+) \()?([^()\s]+):(\d+)(?::\d+)?\)?`)
)

// frame is one parsed stack frame.
type frame struct {
	File string
	Line int
	Func string
	Raw  string
}

// dependencyPathMarkers identify frames inside installed libraries rather
// than application code.
var dependencyPathMarkers = []string{
	"site-packages",
	"dist-packages",
	"node_modules",
	"/usr/lib/python",
	"/lib/python",
	"importlib",
	"<frozen",
	"internal/modules",
	"internal/process",
}

func (f frame) isDependency() bool {
	for _, marker := range dependencyPathMarkers {
		if strings.Contains(f.File, marker) {
			return true
		}
	}
	return false
}

// parseFrames extracts stack frames from raw error text, top first.
func parseFrames(raw string) []frame {
	var frames []frame
	for _, line := range strings.Split(raw, "\n") {
		if m := pyFrameRe.FindStringSubmatch(line); m != nil {
			frames = append(frames, frame{File: m[1], Line: atoi(m[2]), Func: m[3], Raw: strings.TrimSpace(line)})
			continue
		}
		if m := nodeFrameRe.FindStringSubmatch(line); m != nil {
			frames = append(frames, frame{File: m[2], Line: atoi(m[3]), Func: m[1], Raw: strings.TrimSpace(line)})
		}
	}
	return frames
}

// anchorFrame picks the fingerprint anchor: the topmost frame referencing
// application code. Python tracebacks list the innermost frame last, so
// "topmost" is scanned from the end; Node stacks list innermost first.
// Returns the chosen frame and whether any application frame exists.
func anchorFrame(raw string) (frame, bool) {
	frames := parseFrames(raw)
	if len(frames) == 0 {
		return frame{}, false
	}

	ordered := frames
	if strings.Contains(raw, "Traceback (most recent call last)") {
		ordered = make([]frame, len(frames))
		for i, f := range frames {
			ordered[len(frames)-1-i] = f
		}
	}

	for _, f := range ordered {
		if !f.isDependency() {
			return f, true
		}
	}
	// Error originates entirely inside a dependency
	return ordered[0], false
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
