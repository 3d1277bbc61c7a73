package format

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"history-mind-companion/internal/textclean"
)

const (
	// OtherYear groups events that carry no year. It always sorts last.
	OtherYear = "Khác"

	minEventLength = 5
)

// ProcessedEvent is a cleaned event ready for grouping.
type ProcessedEvent struct {
	Year          string
	Content       string
	NormalizedKey string
}

type yearGroup struct {
	year     string
	contents []string
}

// ExtractEvents cleans raw event records and drops empty, too short and
// near-duplicate ones. The first of several duplicates wins.
func ExtractEvents(raw []gjson.Result) []ProcessedEvent {
	var events []ProcessedEvent
	seen := make(map[string]struct{})

	for _, ev := range raw {
		if !ev.IsObject() {
			continue
		}

		text := strings.TrimSpace(eventText(ev))
		if text == "" {
			continue
		}
		content := textclean.Clean(text)
		if utf8.RuneCountInString(content) < minEventLength {
			continue
		}

		year := eventYear(ev.Get("year"))
		key := textclean.NormalizeKey(content)
		dedupe := textclean.DedupeKey(year, key)
		if _, ok := seen[dedupe]; ok {
			continue
		}
		seen[dedupe] = struct{}{}

		events = append(events, ProcessedEvent{Year: year, Content: content, NormalizedKey: key})
	}
	return events
}

// eventText prefers a non-empty "story" over "event".
func eventText(ev gjson.Result) string {
	if story := ev.Get("story"); story.Type == gjson.String && story.Str != "" {
		return story.Str
	}
	if event := ev.Get("event"); event.Type == gjson.String {
		return event.Str
	}
	return ""
}

func eventYear(year gjson.Result) string {
	switch year.Type {
	case gjson.Null:
		return OtherYear
	case gjson.Number:
		return formatNumber(year.Num)
	case gjson.String:
		return year.Str
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	default:
		return year.Raw
	}
}

// groupByYear keeps first-seen order inside each group, then orders the
// groups numerically with non-numeric years after numeric ones and
// OtherYear last.
func groupByYear(events []ProcessedEvent) []yearGroup {
	index := make(map[string]int)
	var groups []yearGroup
	for _, ev := range events {
		i, ok := index[ev.Year]
		if !ok {
			i = len(groups)
			index[ev.Year] = i
			groups = append(groups, yearGroup{year: ev.Year})
		}
		groups[i].contents = append(groups[i].contents, ev.Content)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return yearLess(groups[i].year, groups[j].year)
	})
	return groups
}

func yearLess(a, b string) bool {
	if a == OtherYear || b == OtherYear {
		return b == OtherYear && a != OtherYear
	}
	na, aErr := strconv.ParseFloat(strings.TrimSpace(a), 64)
	nb, bErr := strconv.ParseFloat(strings.TrimSpace(b), 64)
	switch {
	case aErr == nil && bErr == nil:
		return na < nb
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

func renderEvents(p Payload) string {
	events := ExtractEvents(p.Events)
	if len(events) == 0 {
		if answer := strings.TrimSpace(p.Answer); p.HasAnswer && answer != "" {
			if cleaned := textclean.Clean(p.Answer); cleaned != "" {
				return cleaned
			}
			return answer
		}
		return NoMatchMessage
	}

	var sb strings.Builder
	for _, group := range groupByYear(events) {
		if group.year == OtherYear {
			sb.WriteString("### Sự kiện khác\n\n")
		} else {
			sb.WriteString("### Năm " + group.year + "\n\n")
		}
		for _, content := range group.contents {
			sb.WriteString("- " + content + "\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
