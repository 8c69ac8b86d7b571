package summarize

import (
	"encoding/json"
	"strings"
)

type summaryPayload struct {
	Summary string `json:"summary"`
}

// ParseSummaryResponse extracts the summary text from a model answer.
// Models are asked for a JSON object but do not reliably return one,
// so parsing degrades gracefully: the first balanced {...} block is
// tried as JSON with a summary field; failing that, the whole answer
// is the summary.
func ParseSummaryResponse(answer string) string {
	block := firstJSONBlock(answer)
	if block == "" {
		return answer
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return answer
	}
	if payload.Summary == "" {
		return answer
	}
	return payload.Summary
}

// firstJSONBlock returns the first balanced top-level {...} block in
// s, or "" when none exists. Braces inside JSON strings are skipped.
func firstJSONBlock(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
