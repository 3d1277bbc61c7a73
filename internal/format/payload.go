package format

import (
	"github.com/tidwall/gjson"
)

// Kind identifies which backend response shape a payload was recognised as.
type Kind int

const (
	// Unstructured is any value none of the known shapes claim. It renders as
	// a structural dump.
	Unstructured Kind = iota
	// NoData is an object carrying "no_data": true.
	NoData
	// EventsOrDocuments is an object with an "events" or "documents" array.
	EventsOrDocuments
	// AnswerOnly is an object with a string "answer" and no event arrays.
	AnswerOnly
	// LegacyYearMap is the older {"<year>": {"summary", "events"}} shape.
	LegacyYearMap
	// PlainText is text that is not a JSON document. It is returned as is.
	PlainText
)

func (k Kind) String() string {
	switch k {
	case NoData:
		return "no_data"
	case EventsOrDocuments:
		return "events"
	case AnswerOnly:
		return "answer"
	case LegacyYearMap:
		return "legacy_year_map"
	case PlainText:
		return "text"
	default:
		return "unstructured"
	}
}

// Payload is a classified backend response. Only the fields belonging to
// Kind are populated.
type Payload struct {
	Kind Kind

	// Events holds the raw event records for EventsOrDocuments.
	Events []gjson.Result
	// Answer is the top-level "answer" string; HasAnswer reports whether the
	// field was a string at all.
	Answer    string
	HasAnswer bool

	// Years holds the qualifying entries of a LegacyYearMap in document order.
	Years []LegacyYear

	// Raw is the classified value itself, used for dumps.
	Raw gjson.Result
}

// LegacyYear is one entry of the legacy per-year map.
type LegacyYear struct {
	Key     string
	Summary gjson.Result
	Events  gjson.Result
}

// Classify detects the shape of a decoded value exactly once. Precedence is
// no_data, then events, then documents, then answer, then the legacy map.
func Classify(value gjson.Result) Payload {
	p := Payload{Kind: Unstructured, Raw: value}
	if !value.IsObject() {
		return p
	}

	if value.Get("no_data").Type == gjson.True {
		p.Kind = NoData
		return p
	}

	answer := value.Get("answer")
	if answer.Type == gjson.String {
		p.Answer = answer.Str
		p.HasAnswer = true
	}

	if events := value.Get("events"); events.IsArray() {
		p.Kind = EventsOrDocuments
		p.Events = events.Array()
		return p
	}
	if documents := value.Get("documents"); documents.IsArray() {
		p.Kind = EventsOrDocuments
		p.Events = documents.Array()
		return p
	}
	if p.HasAnswer {
		p.Kind = AnswerOnly
		return p
	}

	value.ForEach(func(key, entry gjson.Result) bool {
		if !entry.IsObject() {
			return true
		}
		summary := entry.Get("summary")
		if !truthy(summary) {
			return true
		}
		p.Years = append(p.Years, LegacyYear{
			Key:     key.String(),
			Summary: summary,
			Events:  entry.Get("events"),
		})
		return true
	})
	if len(p.Years) > 0 {
		p.Kind = LegacyYearMap
	}
	return p
}
