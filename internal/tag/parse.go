package tag

import (
	"encoding/json"
	"strings"
)

// maxTagRunes caps individual tag length so a rambling model answer
// cannot leak prose into the tag list.
const maxTagRunes = 32

// ExtractTags pulls candidate tags out of a model answer. The model
// is asked for a JSON array, but the parse degrades: a bracketed
// array (with single quotes tolerated), then an object with a tags
// field, then comma-separated tokens. Multi-word candidates are cut
// to their first word and empties dropped. The result may hold fewer
// than the required number of tags; Normalize pads it.
func ExtractTags(answer string) []string {
	var raw []string

	if arr := firstArrayBlock(answer); arr != "" {
		fixed := strings.ReplaceAll(arr, "'", "\"")
		if err := json.Unmarshal([]byte(fixed), &raw); err != nil {
			raw = nil
		}
	}

	if raw == nil {
		var obj struct {
			Tags []string `json:"tags"`
		}
		if err := json.Unmarshal([]byte(answer), &obj); err == nil && len(obj.Tags) > 0 {
			raw = obj.Tags
		}
	}

	if raw == nil {
		raw = splitSeparated(answer)
	}

	return cleanTags(raw)
}

// firstArrayBlock returns the first [...] span in s, or "".
func firstArrayBlock(s string) string {
	start := strings.IndexByte(s, '[')
	if start == -1 {
		return ""
	}
	end := strings.IndexByte(s[start:], ']')
	if end == -1 {
		return ""
	}
	return s[start : start+end+1]
}

// splitSeparated treats the answer as comma-separated tokens. Both
// ASCII and Japanese commas separate.
func splitSeparated(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '、'
	})
}

func cleanTags(raw []string) []string {
	var tags []string
	for _, t := range raw {
		t = strings.TrimSpace(t)
		t = strings.Trim(t, `"'`)
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		// First word only, the prompt asks for single-word tags.
		if fields := strings.Fields(t); len(fields) > 0 {
			t = fields[0]
		}
		if runes := []rune(t); len(runes) > maxTagRunes {
			t = string(runes[:maxTagRunes])
		}
		tags = append(tags, t)
	}
	return tags
}

// Normalize returns exactly want tags, padding the extracted set with
// defaults derived from the lesson category and truncating any
// excess. Padding skips duplicates.
func Normalize(tags []string, category string, want int) []string {
	if len(tags) > want {
		return tags[:want]
	}

	candidates := []string{category, "lesson", "practice", "music", "technique"}
	for _, c := range candidates {
		if len(tags) >= want {
			break
		}
		if c == "" || contains(tags, c) {
			continue
		}
		tags = append(tags, c)
	}
	return tags
}

func contains(tags []string, v string) bool {
	for _, t := range tags {
		if t == v {
			return true
		}
	}
	return false
}
