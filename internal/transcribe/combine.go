package transcribe

// maxOverlapScan bounds the boundary comparison between neighbouring
// chunk transcripts. Chunk overlaps are short, so 200 characters is
// more than any real duplicated span.
const maxOverlapScan = 200

// CombineTranscripts joins chunk transcripts in order, removing the
// text duplicated across a chunk boundary. For each boundary the tail
// of the accumulated text is compared against the head of the next
// part and the longest matching span is dropped from the next part.
func CombineTranscripts(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}

	result := []rune(parts[0])
	for i := 1; i < len(parts); i++ {
		curr := []rune(parts[i])

		tail := result
		if len(tail) > maxOverlapScan {
			tail = tail[len(tail)-maxOverlapScan:]
		}
		head := curr
		if len(head) > maxOverlapScan {
			head = head[:maxOverlapScan]
		}

		overlap := findOverlap(tail, head)
		result = append(result, curr[overlap:]...)
	}
	return string(result)
}

// findOverlap returns the length of the longest suffix of prev that
// equals a prefix of next.
func findOverlap(prev, next []rune) int {
	maxLen := len(prev)
	if len(next) < maxLen {
		maxLen = len(next)
	}

	maxOverlap := 0
	for i := 1; i <= maxLen; i++ {
		if string(prev[len(prev)-i:]) == string(next[:i]) {
			maxOverlap = i
		}
	}
	return maxOverlap
}
