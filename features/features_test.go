package features

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MughilM/luke/processors"
)

// wordTokenizer splits on whitespace and assigns ids from a fixed vocabulary.
// It keeps the converter tests independent of any real subword model.
type wordTokenizer struct {
	vocab map[string]int
}

func newWordTokenizer(words ...string) *wordTokenizer {
	vocab := map[string]int{"[CLS]": 0, "[SEP]": 1, HeadToken: 2, TailToken: 3}
	for _, word := range words {
		vocab[word] = len(vocab)
	}
	return &wordTokenizer{vocab: vocab}
}

func (w *wordTokenizer) Tokenize(text string) ([]string, error) {
	return strings.Fields(text), nil
}

func (w *wordTokenizer) ConvertTokensToIDs(tokens []string) ([]int, error) {
	ids := make([]int, len(tokens))
	for i, token := range tokens {
		id, ok := w.vocab[token]
		if !ok {
			return nil, fmt.Errorf("token %q not in vocabulary", token)
		}
		ids[i] = id
	}
	return ids, nil
}

func (w *wordTokenizer) ClsToken() string { return "[CLS]" }
func (w *wordTokenizer) SepToken() string { return "[SEP]" }

// livesInExample mirrors the builder output for
// ["John", "lives", "in", "Paris"] with subj (0,0) and obj (3,3).
func livesInExample() processors.Example {
	return processors.Example{
		ID:    "train-0",
		Text:  "John lives in Paris",
		SpanA: processors.Span{Start: 0, End: 5},
		SpanB: processors.Span{Start: 14, End: 20},
		TypeA: "PERSON",
		TypeB: "CITY",
		Label: "per:cities_of_residence",
	}
}

var testLabels = []string{"no_relation", "per:cities_of_residence"}

func TestConvert(t *testing.T) {
	tk := newWordTokenizer("John", "lives", "in", "Paris")
	converter, err := NewConverter(tk, 4)
	require.NoError(t, err)

	converted, err := converter.Convert([]processors.Example{livesInExample()}, testLabels)
	require.NoError(t, err)
	require.Len(t, converted, 1)

	feature := converted[0]
	// [CLS] John lives in Paris [SEP]
	assert.Equal(t, []int{0, 4, 5, 6, 7, 1}, feature.WordIDs)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, feature.WordSegmentIDs)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, feature.WordAttentionMask)
	assert.Equal(t, [2]int{1, 1}, feature.EntityIDs)
	assert.Equal(t, [2][]int{{1, -1, -1, -1}, {4, -1, -1, -1}}, feature.EntityPositionIDs)
	assert.Equal(t, [2]int{0, 0}, feature.EntitySegmentIDs)
	assert.Equal(t, [2]int{1, 1}, feature.EntityAttentionMask)
	assert.Equal(t, 1, feature.Label)
}

func TestConvertWithMarkerTokens(t *testing.T) {
	tk := newWordTokenizer("John", "lives", "in", "Paris")
	converter, err := NewConverter(tk, 4, WithMarkerTokens())
	require.NoError(t, err)

	converted, err := converter.Convert([]processors.Example{livesInExample()}, testLabels)
	require.NoError(t, err)

	feature := converted[0]
	// [CLS] [HEAD] John [HEAD] lives in [TAIL] Paris [TAIL] [SEP]
	assert.Equal(t, []int{0, 2, 4, 2, 5, 6, 3, 7, 3, 1}, feature.WordIDs)
	// the recorded token ranges include the markers
	assert.Equal(t, [2][]int{{1, 2, 3, -1}, {6, 7, 8, -1}}, feature.EntityPositionIDs)
}

func TestConvertWithEntityTypeIDs(t *testing.T) {
	tk := newWordTokenizer("John", "lives", "in", "Paris")
	converter, err := NewConverter(tk, 4, WithEntityTypeIDs(EntityTypes))
	require.NoError(t, err)

	converted, err := converter.Convert([]processors.Example{livesInExample()}, testLabels)
	require.NoError(t, err)

	// type indices are offset by one, id 0 stays free for padding
	assert.Equal(t, [2]int{13, 2}, converted[0].EntityIDs)
}

func TestConvertObjectBeforeSubject(t *testing.T) {
	tk := newWordTokenizer("Paris", "is", "home", "to", "John")
	converter, err := NewConverter(tk, 4)
	require.NoError(t, err)

	example := processors.Example{
		ID:    "train-0",
		Text:  "Paris is home to John",
		SpanA: processors.Span{Start: 17, End: 22},
		SpanB: processors.Span{Start: 0, End: 6},
		TypeA: "PERSON",
		TypeB: "CITY",
		Label: "per:cities_of_residence",
	}
	converted, err := converter.Convert([]processors.Example{example}, testLabels)
	require.NoError(t, err)

	feature := converted[0]
	// [CLS] Paris is home to John [SEP]; slot 0 still holds span A
	assert.Equal(t, []int{0, 4, 5, 6, 7, 8, 1}, feature.WordIDs)
	assert.Equal(t, [2][]int{{5, -1, -1, -1}, {1, -1, -1, -1}}, feature.EntityPositionIDs)
}

func TestConvertTruncatesPositionIDs(t *testing.T) {
	tk := newWordTokenizer("John", "lives", "in", "Paris")
	converter, err := NewConverter(tk, 2, WithMarkerTokens())
	require.NoError(t, err)

	converted, err := converter.Convert([]processors.Example{livesInExample()}, testLabels)
	require.NoError(t, err)

	// span A covers tokens 1..3 with markers, truncated to two slots
	assert.Equal(t, [2][]int{{1, 2}, {6, 7}}, converted[0].EntityPositionIDs)
}

func TestConvertParallelSequenceLengths(t *testing.T) {
	tk := newWordTokenizer("John", "lives", "in", "Paris")
	converter, err := NewConverter(tk, 4, WithMarkerTokens())
	require.NoError(t, err)

	converted, err := converter.Convert([]processors.Example{livesInExample()}, testLabels)
	require.NoError(t, err)

	feature := converted[0]
	assert.Len(t, feature.WordSegmentIDs, len(feature.WordIDs))
	assert.Len(t, feature.WordAttentionMask, len(feature.WordIDs))
	for i := range feature.EntityPositionIDs {
		assert.Len(t, feature.EntityPositionIDs[i], 4)
	}
}

func TestConvertUnknownLabel(t *testing.T) {
	tk := newWordTokenizer("John", "lives", "in", "Paris")
	converter, err := NewConverter(tk, 4)
	require.NoError(t, err)

	_, err = converter.Convert([]processors.Example{livesInExample()}, []string{"no_relation"})
	assert.ErrorContains(t, err, "not in label vocabulary")
}

func TestConvertUnknownEntityType(t *testing.T) {
	tk := newWordTokenizer("John", "lives", "in", "Paris")
	converter, err := NewConverter(tk, 4, WithEntityTypeIDs(EntityTypes))
	require.NoError(t, err)

	example := livesInExample()
	example.TypeA = "ALIEN"
	_, err = converter.Convert([]processors.Example{example}, testLabels)
	assert.ErrorContains(t, err, "not in entity type table")
}

func TestConvertOverlappingSpans(t *testing.T) {
	tk := newWordTokenizer("John", "lives", "in", "Paris")
	converter, err := NewConverter(tk, 4)
	require.NoError(t, err)

	example := livesInExample()
	example.SpanB = processors.Span{Start: 0, End: 5}
	_, err = converter.Convert([]processors.Example{example}, testLabels)
	assert.ErrorContains(t, err, "overlap")
}

func TestNewConverterValidation(t *testing.T) {
	_, err := NewConverter(nil, 4)
	assert.ErrorContains(t, err, "tokenizer is required")

	_, err = NewConverter(newWordTokenizer(), 0)
	assert.ErrorContains(t, err, "must be positive")
}
