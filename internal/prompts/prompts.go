package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Shared Lexicons
// ============================================================================

// KnownCategories is the set of lesson categories the mobile apps
// currently offer. Unknown categories pass through unchanged; the list
// exists for prompt hints, not validation.
var KnownCategories = []string{
	"piano", "violin", "viola", "cello", "flute", "clarinet", "oboe",
	"saxophone", "trumpet", "trombone", "horn", "tuba", "euphonium",
	"percussion", "guitar", "bass", "vocal",
}

// ============================================================================
// Summary Prompts
// ============================================================================

// SummarySystemQuery is the default query sent with each summary
// request when the user gave no custom instructions.
const SummarySystemQuery = `以下は音楽レッスンの文字起こしです。レッスンの重要なポイントを箇条書きで5-7つにまとめてください。`

// BuildSummaryQuery combines the base query with the lesson category
// and optional user instructions.
func BuildSummaryQuery(category, userInstructions string) string {
	var b strings.Builder
	b.WriteString(SummarySystemQuery)

	if category != "" && category != "unknown" {
		fmt.Fprintf(&b, " このレッスンは%sに関するものです。", category)
	}
	if strings.TrimSpace(userInstructions) != "" {
		fmt.Fprintf(&b, " 追加の指示: %s", userInstructions)
	}
	return b.String()
}

// ============================================================================
// Tag Prompts
// ============================================================================

// TagQueryTemplate asks for exactly N single-word keywords as a JSON
// array. The strict response format keeps the parser's job small.
const TagQueryTemplate = `これは音楽レッスンの内容です。以下のテキストを分析して、このレッスンの内容を表す重要なキーワードを%dつだけ抽出してください。
各キーワードは必ず1単語のみとし、レッスンの主要な概念、技術、アドバイスを表すものにしてください。
複合語や句ではなく、単一の名詞や動詞を選択してください。

返答形式は必ず以下のようなJSON配列のみとしてください：
["キーワード1", "キーワード2", "キーワード3"]`

// BuildTagQuery renders the tag extraction query for a category.
func BuildTagQuery(tagCount int, category string) string {
	q := fmt.Sprintf(TagQueryTemplate, tagCount)
	if category != "" && category != "unknown" {
		q += fmt.Sprintf("\nこのレッスンは%sに関するものです。", category)
	}
	return q
}
