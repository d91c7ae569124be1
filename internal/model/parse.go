package model

import (
	"encoding/json"
	"strings"

	"github.com/verity-labs/chorus/internal/core"
)

// ParseAnalysts extracts analyst personas from model output. Models
// wrap JSON in prose and code fences more often than not, so the parser
// hunts for the first well-formed JSON array and validates each entry.
// Invalid entries are dropped rather than failing the whole roster.
func ParseAnalysts(text string, max int) ([]core.Analyst, error) {
	raw := extractJSONArray(text)
	if raw == "" {
		return nil, core.ErrExecution(core.CodeParseFailed, "no JSON array found in model output")
	}

	var candidates []core.Analyst
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		// Some models emit {"analysts": [...]} instead of a bare array.
		var wrapped struct {
			Analysts []core.Analyst `json:"analysts"`
		}
		if err2 := json.Unmarshal([]byte(extractJSONObject(text)), &wrapped); err2 != nil || len(wrapped.Analysts) == 0 {
			return nil, core.ErrExecution(core.CodeParseFailed, "unparseable analyst roster").WithCause(err)
		}
		candidates = wrapped.Analysts
	}

	analysts := make([]core.Analyst, 0, len(candidates))
	seen := make(map[string]bool)
	for _, a := range candidates {
		a.Name = strings.TrimSpace(a.Name)
		a.Role = strings.TrimSpace(a.Role)
		a.Affiliation = strings.TrimSpace(a.Affiliation)
		a.Focus = strings.TrimSpace(a.Focus)
		if a.Validate() != nil || seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		analysts = append(analysts, a)
		if max > 0 && len(analysts) == max {
			break
		}
	}

	if len(analysts) == 0 {
		return nil, core.ErrExecution(core.CodeParseFailed, "model output contained no usable personas")
	}
	return analysts, nil
}

// extractJSONArray returns the first balanced top-level JSON array in
// the text, or empty string.
func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

// extractJSONObject returns the first balanced top-level JSON object in
// the text, or empty string.
func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

func extractBalanced(text string, opener, closer byte) string {
	start := strings.IndexByte(text, opener)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
