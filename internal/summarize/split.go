package summarize

import "strings"

// sentenceTerminators are the characters that may end a sentence in
// mixed Japanese/English lesson transcripts.
const sentenceTerminators = "。．！？.!?"

// SplitBySentences breaks text into parts of at most maxChars
// characters, cutting only at sentence boundaries. A text already
// within the limit is returned whole. A single sentence longer than
// the limit becomes its own oversize part rather than being cut
// mid-sentence.
func SplitBySentences(text string, maxChars int) []string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return []string{text}
	}

	sentences := splitSentences(runes)

	var parts []string
	var current []rune
	for _, sentence := range sentences {
		if len(current)+len(sentence) <= maxChars {
			current = append(current, sentence...)
			continue
		}
		if len(current) > 0 {
			parts = append(parts, string(current))
		}
		current = append([]rune(nil), sentence...)
	}
	if len(current) > 0 {
		parts = append(parts, string(current))
	}
	return parts
}

// splitSentences cuts runes after each terminator, keeping the
// terminator with its sentence.
func splitSentences(runes []rune) [][]rune {
	var sentences [][]rune
	start := 0
	for i, r := range runes {
		if strings.ContainsRune(sentenceTerminators, r) {
			sentences = append(sentences, runes[start:i+1])
			start = i + 1
		}
	}
	if start < len(runes) {
		sentences = append(sentences, runes[start:])
	}
	return sentences
}
