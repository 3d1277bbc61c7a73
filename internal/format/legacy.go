package format

import (
	"strings"

	"github.com/tidwall/gjson"
)

// legacyAnnotations are the nested bullet lines rendered under a legacy
// event, in output order.
var legacyAnnotations = []struct {
	field string
	label string
}{
	{"persons", "Nhân vật"},
	{"places", "Địa danh"},
	{"keywords", "Từ khóa"},
}

// renderLegacy renders years in the order the backend sent them.
func renderLegacy(years []LegacyYear) string {
	var sb strings.Builder
	for _, year := range years {
		sb.WriteString("### Năm " + year.Key + "\n\n")
		sb.WriteString("**Tóm tắt:** " + scalarString(year.Summary) + "\n\n")

		if year.Events.IsArray() {
			sb.WriteString("**Sự kiện tiêu biểu:**\n\n")
			year.Events.ForEach(func(_, ev gjson.Result) bool {
				if ev.IsObject() {
					writeLegacyEvent(&sb, ev)
				}
				return true
			})
		}
		sb.WriteString("---\n\n")
	}
	return strings.TrimSpace(sb.String())
}

func writeLegacyEvent(sb *strings.Builder, ev gjson.Result) {
	sb.WriteString("- **" + scalarString(ev.Get("year")) + ":** " + scalarString(ev.Get("event")) + "\n")
	for _, a := range legacyAnnotations {
		values := ev.Get(a.field)
		if !values.IsArray() {
			continue
		}
		items := values.Array()
		if len(items) == 0 {
			continue
		}
		parts := make([]string, len(items))
		for i, item := range items {
			if item.Type != gjson.Null {
				parts[i] = scalarString(item)
			}
		}
		sb.WriteString("  - *" + a.label + ":* " + strings.Join(parts, ", ") + "\n")
	}
	sb.WriteString("\n")
}
