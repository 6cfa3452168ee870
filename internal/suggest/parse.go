package suggest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// suggestionPayload is the JSON shape the backend is asked to produce.
type suggestionPayload struct {
	Summary      string `json:"summary"`
	SuggestedFix string `json:"suggested_fix"`
	Confidence   string `json:"confidence"`
}

var (
	codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
	jsonObjRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// parseSuggestion extracts the structured suggestion from a backend
// response. Models sometimes wrap JSON in code fences or prose despite
// instructions, so fences are stripped and the outermost object extracted
// before unmarshaling.
func parseSuggestion(text string) (*suggestionPayload, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	candidates := []string{text}
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		candidates = append([]string{strings.TrimSpace(m[1])}, candidates...)
	}
	if m := jsonObjRe.FindString(text); m != "" {
		candidates = append(candidates, m)
	}

	var lastErr error
	for _, c := range candidates {
		var payload suggestionPayload
		if err := json.Unmarshal([]byte(c), &payload); err != nil {
			lastErr = err
			continue
		}
		if payload.Summary == "" && payload.SuggestedFix == "" {
			lastErr = fmt.Errorf("response JSON has no summary or suggested_fix")
			continue
		}
		return &payload, nil
	}
	return nil, fmt.Errorf("failed to parse suggestion response: %w", lastErr)
}
