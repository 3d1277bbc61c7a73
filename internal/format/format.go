// Package format turns heterogeneous chat backend payloads into one
// canonical markdown document: events grouped by year, cleaned of reasoning
// scaffolding and with near-duplicates removed.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// NoDataMessage answers an explicit {"no_data": true}.
	NoDataMessage = "Xin lỗi, tôi không tìm thấy thông tin lịch sử phù hợp với yêu cầu của bạn."
	// NoMatchMessage answers an events payload with nothing usable in it.
	NoMatchMessage = "Xin lỗi, tôi không tìm thấy thông tin phù hợp."
)

// Format renders payload as markdown. payload may be a string (plain text or
// a JSON document), raw JSON bytes, a gjson.Result or any value encoding/json
// can marshal. Format never panics and never fails; text it cannot interpret
// is returned unchanged and values of unknown shape are dumped as indented
// JSON.
func Format(payload any) string {
	out, _ := FormatKind(payload)
	return out
}

// FormatKind is Format that also reports which shape the payload had.
func FormatKind(payload any) (out string, kind Kind) {
	defer func() {
		if r := recover(); r != nil {
			out, kind = fallback(payload), Unstructured
		}
	}()

	switch v := payload.(type) {
	case nil:
		return "", Unstructured
	case string:
		return formatText(v)
	case []byte:
		return formatBytes(v)
	case json.RawMessage:
		return formatBytes(v)
	case gjson.Result:
		return formatValue(v)
	case *gjson.Result:
		if v == nil {
			return "", Unstructured
		}
		return formatValue(*v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), PlainText
		}
		return formatValue(gjson.ParseBytes(data))
	}
}

// fallback renders a payload whose formatting panicked. Text comes back
// unchanged, parsed values are dumped and anything else is printed with %v.
func fallback(payload any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()

	switch v := payload.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case json.RawMessage:
		return string(v)
	case gjson.Result:
		return dump(v)
	case *gjson.Result:
		return dump(*v)
	default:
		return fmt.Sprint(v)
	}
}

// formatText handles a payload that arrived as text
func formatText(text string) (string, Kind) {
	if text == "" {
		return "", PlainText
	}
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return text, PlainText
	}
	if !gjson.Valid(trimmed) {
		return text, PlainText
	}
	return formatValue(gjson.Parse(trimmed))
}

// formatBytes handles a response body. A JSON string document is unwrapped
// and treated as text; anything unparseable is treated as text too.
func formatBytes(data []byte) (string, Kind) {
	if len(data) == 0 {
		return "", PlainText
	}
	if !gjson.ValidBytes(data) {
		return formatText(string(data))
	}
	return formatValue(gjson.ParseBytes(data))
}

func formatValue(value gjson.Result) (string, Kind) {
	if !truthy(value) {
		return "", Unstructured
	}
	if value.Type == gjson.String {
		return formatText(value.Str)
	}

	p := Classify(value)
	return Render(p), p.Kind
}

// Render produces the markdown for a classified payload.
func Render(p Payload) string {
	switch p.Kind {
	case NoData:
		return NoDataMessage
	case EventsOrDocuments, AnswerOnly:
		return renderEvents(p)
	case LegacyYearMap:
		return renderLegacy(p.Years)
	default:
		return dump(p.Raw)
	}
}

// dump is the rendering of last resort: indented JSON for objects and arrays,
// the plain string form of anything else.
func dump(value gjson.Result) string {
	if !value.IsObject() && !value.IsArray() {
		return scalarString(value)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(value.Raw), "", "  "); err != nil {
		return value.Raw
	}
	return buf.String()
}

// truthy mirrors how the backend's consumers test a JSON value for presence.
func truthy(value gjson.Result) bool {
	switch value.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return value.Num != 0 && !math.IsNaN(value.Num)
	case gjson.String:
		return value.Str != ""
	default:
		return true
	}
}

// scalarString renders a value for inline interpolation. Arrays join their
// elements with commas and missing values render as empty text.
func scalarString(value gjson.Result) string {
	switch value.Type {
	case gjson.Null:
		if value.Exists() {
			return "null"
		}
		return ""
	case gjson.False:
		return "false"
	case gjson.True:
		return "true"
	case gjson.Number:
		return formatNumber(value.Num)
	case gjson.String:
		return value.Str
	}

	if value.IsArray() {
		items := value.Array()
		parts := make([]string, len(items))
		for i, item := range items {
			if item.Type != gjson.Null {
				parts[i] = scalarString(item)
			}
		}
		return strings.Join(parts, ",")
	}
	return value.Raw
}

func formatNumber(n float64) string {
	if n == 0 {
		return "0"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
