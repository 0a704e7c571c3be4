package processors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int {
	return &i
}

func record(tokens []string, subjStart, subjEnd, objStart, objEnd int) rawRecord {
	return rawRecord{
		Token:     tokens,
		SubjStart: intPtr(subjStart),
		SubjEnd:   intPtr(subjEnd),
		ObjStart:  intPtr(objStart),
		ObjEnd:    intPtr(objEnd),
		SubjType:  "PERSON",
		ObjType:   "CITY",
		Relation:  "lives_in",
	}
}

func TestBuildExample(t *testing.T) {
	example, err := buildExample("train-0", record([]string{"John", "lives", "in", "Paris"}, 0, 0, 3, 3))
	require.NoError(t, err)

	assert.Equal(t, "train-0", example.ID)
	assert.Equal(t, "John lives in Paris", example.Text)
	// the recorded end offsets point just past the trailing space written
	// after each mention
	assert.Equal(t, Span{Start: 0, End: 5}, example.SpanA)
	assert.Equal(t, Span{Start: 14, End: 20}, example.SpanB)
	assert.Equal(t, "PERSON", example.TypeA)
	assert.Equal(t, "CITY", example.TypeB)
	assert.Equal(t, "lives_in", example.Label)
}

func TestBuildExampleObjectFirst(t *testing.T) {
	example, err := buildExample("train-0", record([]string{"Paris", "is", "home", "to", "John"}, 4, 4, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, "Paris is home to John", example.Text)
	assert.Equal(t, Span{Start: 17, End: 22}, example.SpanA)
	assert.Equal(t, Span{Start: 0, End: 6}, example.SpanB)
}

func TestBuildExampleAdjacentEntities(t *testing.T) {
	// mentions with no tokens between them end up separated by two spaces,
	// offsets stay consistent with the rebuilt text
	example, err := buildExample("train-0", record([]string{"John", "Paris"}, 0, 0, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, "John  Paris", example.Text)
	assert.Equal(t, Span{Start: 0, End: 5}, example.SpanA)
	assert.Equal(t, Span{Start: 6, End: 12}, example.SpanB)
}

// mentionText slices an example's text by a recorded span, the way the
// feature encoder does.
func mentionText(example Example, span Span) string {
	end := span.End
	if end > len(example.Text) {
		end = len(example.Text)
	}
	return strings.TrimRight(example.Text[span.Start:end], " ")
}

func TestBuildExampleSpansRoundTrip(t *testing.T) {
	tests := []struct {
		name               string
		tokens             []string
		subjStart, subjEnd int
		objStart, objEnd   int
		wantSubj, wantObj  string
	}{
		{"single token mentions", []string{"John", "lives", "in", "Paris"}, 0, 0, 3, 3, "John", "Paris"},
		{"multi token mentions", []string{"The", "New", "York", "Times", "praised", "Barack", "Obama", "yesterday"}, 5, 6, 1, 3, "Barack Obama", "New York Times"},
		{"object before subject", []string{"Paris", "is", "home", "to", "John"}, 4, 4, 0, 0, "John", "Paris"},
		{"mention at sentence start and end", []string{"Obama", "visited", "Paris"}, 0, 0, 2, 2, "Obama", "Paris"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			example, err := buildExample("train-0", record(tt.tokens, tt.subjStart, tt.subjEnd, tt.objStart, tt.objEnd))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubj, mentionText(example, example.SpanA))
			assert.Equal(t, tt.wantObj, mentionText(example, example.SpanB))
		})
	}
}

func TestBuildExampleErrors(t *testing.T) {
	valid := record([]string{"John", "lives", "in", "Paris"}, 0, 0, 3, 3)

	missingKey := valid
	missingKey.ObjEnd = nil
	_, err := buildExample("train-0", missingKey)
	assert.ErrorContains(t, err, "obj_end")

	outOfRange := record([]string{"John", "lives", "in", "Paris"}, 0, 0, 3, 4)
	_, err = buildExample("train-0", outOfRange)
	assert.ErrorContains(t, err, "out of range")

	negative := record([]string{"John", "lives", "in", "Paris"}, -1, 0, 3, 3)
	_, err = buildExample("train-0", negative)
	assert.ErrorContains(t, err, "out of range")

	overlapping := record([]string{"John", "lives", "in", "Paris"}, 0, 1, 1, 2)
	_, err = buildExample("train-0", overlapping)
	assert.ErrorContains(t, err, "overlaps")

	noLabel := valid
	noLabel.Relation = ""
	_, err = buildExample("train-0", noLabel)
	assert.ErrorContains(t, err, "relation")

	noType := valid
	noType.SubjType = ""
	_, err = buildExample("train-0", noType)
	assert.ErrorContains(t, err, "entity type")

	_, err = buildExample("train-0", rawRecord{})
	assert.ErrorContains(t, err, "no tokens")
}
