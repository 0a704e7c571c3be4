package processors

import (
	"fmt"
	"strings"
)

// Span is a half-open [Start, End) character range into an Example's text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Example is a single relation-classification record after the token list has
// been rebuilt into a flat text. SpanA marks the subject mention and SpanB the
// object mention, both in absolute character coordinates of Text.
type Example struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	SpanA Span   `json:"span_a"`
	SpanB Span   `json:"span_b"`
	TypeA string `json:"type_a"`
	TypeB string `json:"type_b"`
	Label string `json:"label"`
}

// rawRecord mirrors one object of the input JSON array. The span boundaries
// are pointers so that missing keys can be told apart from zero values.
type rawRecord struct {
	Token     []string `json:"token"`
	SubjStart *int     `json:"subj_start"`
	SubjEnd   *int     `json:"subj_end"`
	ObjStart  *int     `json:"obj_start"`
	ObjEnd    *int     `json:"obj_end"`
	SubjType  string   `json:"subj_type"`
	ObjType   string   `json:"obj_type"`
	Relation  string   `json:"relation"`
}

// tokenSpan is a half-open token index range derived from the inclusive
// subj/obj boundaries of the input format.
type tokenSpan struct {
	start int
	end   int
}

func (r *rawRecord) validate() error {
	if len(r.Token) == 0 {
		return fmt.Errorf("record has no tokens")
	}
	for key, bound := range map[string]*int{
		"subj_start": r.SubjStart, "subj_end": r.SubjEnd,
		"obj_start": r.ObjStart, "obj_end": r.ObjEnd,
	} {
		if bound == nil {
			return fmt.Errorf("record is missing key %s", key)
		}
	}
	if r.SubjType == "" || r.ObjType == "" {
		return fmt.Errorf("record is missing an entity type")
	}
	if r.Relation == "" {
		return fmt.Errorf("record is missing the relation label")
	}
	for _, span := range []struct {
		name       string
		start, end int
	}{
		{"subj", *r.SubjStart, *r.SubjEnd},
		{"obj", *r.ObjStart, *r.ObjEnd},
	} {
		if span.start < 0 || span.end < span.start || span.end >= len(r.Token) {
			return fmt.Errorf("%s span [%d,%d] out of range for %d tokens", span.name, span.start, span.end, len(r.Token))
		}
	}
	if *r.SubjStart <= *r.ObjEnd && *r.ObjStart <= *r.SubjEnd {
		return fmt.Errorf("subj span [%d,%d] overlaps obj span [%d,%d]", *r.SubjStart, *r.SubjEnd, *r.ObjStart, *r.ObjEnd)
	}
	return nil
}

// buildExample rebuilds the flat text from the token list and records the
// character range each entity covers. The entity occurring first in the
// sentence is written first; when both start at the same token the subject
// takes precedence. Each recorded end offset points just past the trailing
// space written after the mention, which is stripped from the whole string
// only at the very end.
func buildExample(id string, r rawRecord) (Example, error) {
	if err := r.validate(); err != nil {
		return Example{}, err
	}

	tokenSpans := map[string]tokenSpan{
		"subj": {*r.SubjStart, *r.SubjEnd + 1},
		"obj":  {*r.ObjStart, *r.ObjEnd + 1},
	}

	entityOrder := []string{"subj", "obj"}
	if tokenSpans["obj"].start < tokenSpans["subj"].start {
		entityOrder = []string{"obj", "subj"}
	}

	var text strings.Builder
	cur := 0
	charSpans := map[string]Span{}
	for _, target := range entityOrder {
		span := tokenSpans[target]
		text.WriteString(strings.Join(r.Token[cur:span.start], " "))
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		start := text.Len()
		text.WriteString(strings.Join(r.Token[span.start:span.end], " "))
		text.WriteString(" ")
		charSpans[target] = Span{Start: start, End: text.Len()}
		cur = span.end
	}
	text.WriteString(strings.Join(r.Token[cur:], " "))

	return Example{
		ID:    id,
		Text:  strings.TrimRight(text.String(), " "),
		SpanA: charSpans["subj"],
		SpanB: charSpans["obj"],
		TypeA: r.SubjType,
		TypeB: r.ObjType,
		Label: r.Relation,
	}, nil
}
