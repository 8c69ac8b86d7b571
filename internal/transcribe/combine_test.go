package transcribe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineTranscripts(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{
			name:  "empty",
			parts: nil,
			want:  "",
		},
		{
			name:  "single part unchanged",
			parts: []string{"今日のレッスンはスケール練習です。"},
			want:  "今日のレッスンはスケール練習です。",
		},
		{
			name:  "no overlap concatenates",
			parts: []string{"first part.", "second part."},
			want:  "first part.second part.",
		},
		{
			name:  "boundary overlap removed",
			parts: []string{"the quick brown fox", "brown fox jumps over"},
			want:  "the quick brown fox jumps over",
		},
		{
			name:  "japanese overlap removed",
			parts: []string{"音程に気をつけて。次はリズム", "次はリズム練習をします。"},
			want:  "音程に気をつけて。次はリズム練習をします。",
		},
		{
			name:  "three parts chained",
			parts: []string{"abc def", "def ghi", "ghi jkl"},
			want:  "abc def ghi jkl",
		},
		{
			name:  "identical parts collapse",
			parts: []string{"repeat this", "repeat this"},
			want:  "repeat this",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CombineTranscripts(tt.parts))
		})
	}
}

func TestCombineTranscriptsScanBounded(t *testing.T) {
	// Overlap detection only looks at the last/first 200 characters,
	// so a duplicated span longer than that is not fully removed but
	// the join must still keep all trailing content.
	long := strings.Repeat("x", 300)
	got := CombineTranscripts([]string{"head " + long, long + " tail"})
	assert.True(t, strings.HasPrefix(got, "head "))
	assert.True(t, strings.HasSuffix(got, " tail"))
}

func TestFindOverlapPrefersLongestMatch(t *testing.T) {
	// "aba" suffix vs "ababa" prefix: both 1 and 3 match, longest wins.
	got := findOverlap([]rune("xxaba"), []rune("ababa"))
	assert.Equal(t, 3, got)

	assert.Equal(t, 0, findOverlap([]rune("abc"), []rune("xyz")))
}
