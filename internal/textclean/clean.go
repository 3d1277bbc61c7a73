// Package textclean strips the backend's reasoning scaffolding from event
// narratives and reduces text to comparison keys for duplicate detection.
package textclean

import (
	"regexp"
	"strings"
)

// wsClass covers what browsers treat as whitespace, which is wider than RE2's \s
const (
	wsClass = `\s\v\p{Z}\x{FEFF}`
	ws      = `[` + wsClass + `]`
)

type substitution struct {
	pattern *regexp.Regexp
	replace string
}

// cleanPasses run in order; the step-marker pass assumes the year prefix is
// already gone and the terminator collapse assumes markers are gone.
var cleanPasses = []substitution{
	// "Năm 1225, " at the very start
	{regexp.MustCompile(`(?i)^Năm \d+,` + ws + `*`), ""},
	// B1. / B2. / B3. step markers and the labels that follow them
	{regexp.MustCompile(`(?i)B\d\.` + ws + `*(?:gắn mốc \d+ với |nêu diễn biến trọng tâm – |kết luận – )?`), ""},
	// reasoning and boilerplate sentences
	{regexp.MustCompile(`(?i)Câu hỏi nhắm tới sự kiện` + ws + `*`), ""},
	{regexp.MustCompile(`(?i)Bối cảnh\.` + ws + `*`), ""},
	{regexp.MustCompile(`(?i)Cốt lõi\.` + ws + `*`), ""},
	{regexp.MustCompile(`(?i)Trả lời sẽ nêu rõ mốc, diễn biến chính và\.` + ws + `*`), ""},
	{regexp.MustCompile(`(?i)Sẽ tóm lược rõ ràng\.` + ws + `*`), ""},
	// ". ." left behind by the removals above
	{regexp.MustCompile(`\.` + ws + `+\.`), "."},
}

// Clean removes year prefixes, step markers and meta phrases from text and
// collapses whitespace. Clean(Clean(s)) == Clean(s) for every s.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	// A single pass can expose a new match (a second "Năm N," prefix behind
	// the first, or ". . ." collapsing to ". ."), so run to a fixed point.
	current := text
	for {
		next := cleanOnce(current)
		if next == current {
			return next
		}
		current = next
	}
}

func cleanOnce(text string) string {
	for _, s := range cleanPasses {
		text = s.pattern.ReplaceAllString(text, s.replace)
	}
	return collapseSpace(text)
}

var spaceRun = regexp.MustCompile(ws + `+`)

// collapseSpace replaces whitespace runs with one space and trims the ends
func collapseSpace(text string) string {
	return strings.Trim(spaceRun.ReplaceAllString(text, " "), " ")
}
