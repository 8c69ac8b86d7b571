package summarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSummaryResponse(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{
			name:   "plain json object",
			answer: `{"summary": "今日のレッスンの要約です。"}`,
			want:   "今日のレッスンの要約です。",
		},
		{
			name:   "json wrapped in prose",
			answer: "Here is the result:\n{\"summary\": \"wrapped summary\"}\nDone.",
			want:   "wrapped summary",
		},
		{
			name:   "braces inside string values",
			answer: `{"summary": "uses {curly} braces", "extra": "}"}`,
			want:   "uses {curly} braces",
		},
		{
			name:   "no json returns whole answer",
			answer: "ただの平文の要約です。",
			want:   "ただの平文の要約です。",
		},
		{
			name:   "malformed json returns whole answer",
			answer: `{"summary": broken}`,
			want:   `{"summary": broken}`,
		},
		{
			name:   "json without summary field returns whole answer",
			answer: `{"result": "something else"}`,
			want:   `{"result": "something else"}`,
		},
		{
			name:   "unterminated block returns whole answer",
			answer: `prefix {"summary": "never closed`,
			want:   `prefix {"summary": "never closed`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSummaryResponse(tt.answer))
		})
	}
}

func TestFirstJSONBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, firstJSONBlock(`x {"a":1} y {"b":2}`))
	assert.Equal(t, `{"a":{"b":2}}`, firstJSONBlock(`{"a":{"b":2}} trailing`))
	assert.Equal(t, "", firstJSONBlock("no braces here"))
}
