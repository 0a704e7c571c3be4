package features

import (
	"fmt"

	progressbar "github.com/schollz/progressbar/v2"

	"github.com/MughilM/luke/processors"
)

// EntityTypes is the default entity type table of the TACRED dataset. A
// different table can be passed to WithEntityTypeIDs for other datasets.
var EntityTypes = []string{
	"CAUSE_OF_DEATH", "CITY", "COUNTRY", "CRIMINAL_CHARGE", "DATE", "DURATION",
	"IDEOLOGY", "LOCATION", "MISC", "NATIONALITY", "NUMBER", "ORGANIZATION",
	"PERSON", "RELIGION", "STATE_OR_PROVINCE", "TITLE", "URL",
}

// Features holds the numeric arrays for one example. WordIDs,
// WordSegmentIDs and WordAttentionMask are parallel sequences over the final
// token stream. The entity arrays are index 0 for span A and index 1 for
// span B; each position-id sequence has exactly the converter's max mention
// length entries, right-padded with -1.
type Features struct {
	WordIDs             []int    `json:"word_ids"`
	WordSegmentIDs      []int    `json:"word_segment_ids"`
	WordAttentionMask   []int    `json:"word_attention_mask"`
	EntityIDs           [2]int   `json:"entity_ids"`
	EntityPositionIDs   [2][]int `json:"entity_position_ids"`
	EntitySegmentIDs    [2]int   `json:"entity_segment_ids"`
	EntityAttentionMask [2]int   `json:"entity_attention_mask"`
	Label               int      `json:"label"`
}

// Converter turns Examples into Features using a subword tokenizer.
type Converter struct {
	tokenizer        Tokenizer
	maxMentionLength int
	entityTypes      []string
	markerTokens     bool
	verbose          bool
}

type ConverterOption func(c *Converter)

// WithEntityTypeIDs makes the converter encode each entity's type as an index
// into the given table, offset by one so that id 0 stays free for a padding
// embedding. Without this option both entities get the constant id 1.
func WithEntityTypeIDs(entityTypes []string) ConverterOption {
	return func(c *Converter) {
		c.entityTypes = entityTypes
	}
}

// WithMarkerTokens wraps each entity's subword tokens with the [HEAD] or
// [TAIL] marker token on both sides.
func WithMarkerTokens() ConverterOption {
	return func(c *Converter) {
		c.markerTokens = true
	}
}

// WithVerbose displays a progress bar while converting.
func WithVerbose() ConverterOption {
	return func(c *Converter) {
		c.verbose = true
	}
}

// NewConverter creates a Converter. maxMentionLength is the fixed number of
// position-id slots per entity.
func NewConverter(tk Tokenizer, maxMentionLength int, opts ...ConverterOption) (*Converter, error) {
	if tk == nil {
		return nil, fmt.Errorf("a tokenizer is required")
	}
	if maxMentionLength <= 0 {
		return nil, fmt.Errorf("max mention length must be positive, got %d", maxMentionLength)
	}
	converter := &Converter{
		tokenizer:        tk,
		maxMentionLength: maxMentionLength,
	}
	for _, opt := range opts {
		opt(converter)
	}
	return converter, nil
}

// Convert produces one Features record per input Example, in the same order.
// labelList is the label vocabulary; an example whose label or entity type is
// absent from the respective table is an error.
func (c *Converter) Convert(examples []processors.Example, labelList []string) ([]Features, error) {
	labelMap := make(map[string]int, len(labelList))
	for i, label := range labelList {
		labelMap[label] = i
	}
	var typeMap map[string]int
	if c.entityTypes != nil {
		typeMap = make(map[string]int, len(c.entityTypes))
		for i, entityType := range c.entityTypes {
			typeMap[entityType] = i + 1 // 0 is reserved for the padding embedding
		}
	}

	var bar *progressbar.ProgressBar
	if c.verbose {
		bar = progressbar.New(len(examples))
	}

	converted := make([]Features, len(examples))
	for i, example := range examples {
		feature, err := c.convert(example, labelMap, typeMap)
		if err != nil {
			return nil, fmt.Errorf("example %s: %w", example.ID, err)
		}
		converted[i] = feature
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return converted, nil
}

// namedSpan pairs a character span with its identity, which decides the
// marker token and the slot in the entity arrays.
type namedSpan struct {
	span   processors.Span
	marker string
	isA    bool
}

func (c *Converter) convert(example processors.Example, labelMap map[string]int, typeMap map[string]int) (Features, error) {
	label, ok := labelMap[example.Label]
	if !ok {
		return Features{}, fmt.Errorf("label %q not in label vocabulary", example.Label)
	}

	entityIDs := [2]int{1, 1}
	if typeMap != nil {
		for i, entityType := range []string{example.TypeA, example.TypeB} {
			id, ok := typeMap[entityType]
			if !ok {
				return Features{}, fmt.Errorf("entity type %q not in entity type table", entityType)
			}
			entityIDs[i] = id
		}
	}

	spanA := namedSpan{span: example.SpanA, marker: HeadToken, isA: true}
	spanB := namedSpan{span: example.SpanB, marker: TailToken}
	spanOrder := []namedSpan{spanA, spanB}
	if spanB.span.Start < spanA.span.Start {
		spanOrder = []namedSpan{spanB, spanA}
	}
	if spanOrder[1].span.Start < spanOrder[0].span.End {
		return Features{}, fmt.Errorf("spans [%d,%d) and [%d,%d) overlap",
			example.SpanA.Start, example.SpanA.End, example.SpanB.Start, example.SpanB.End)
	}

	text := example.Text
	tokens := []string{c.tokenizer.ClsToken()}
	cur := 0
	var tokenSpans [2][2]int
	for _, target := range spanOrder {
		// A span recorded just before the stripped trailing space can point
		// one past the end of the text.
		start := min(target.span.Start, len(text))
		end := min(target.span.End, len(text))

		contextTokens, err := c.tokenizer.Tokenize(text[cur:start])
		if err != nil {
			return Features{}, err
		}
		tokens = append(tokens, contextTokens...)

		tokenStart := len(tokens)
		if c.markerTokens {
			tokens = append(tokens, target.marker)
		}
		mentionTokens, err := c.tokenizer.Tokenize(text[start:end])
		if err != nil {
			return Features{}, err
		}
		tokens = append(tokens, mentionTokens...)
		if c.markerTokens {
			tokens = append(tokens, target.marker)
		}

		slot := 1
		if target.isA {
			slot = 0
		}
		tokenSpans[slot] = [2]int{tokenStart, len(tokens)}
		cur = end
	}

	trailingTokens, err := c.tokenizer.Tokenize(text[cur:])
	if err != nil {
		return Features{}, err
	}
	tokens = append(tokens, trailingTokens...)
	tokens = append(tokens, c.tokenizer.SepToken())

	wordIDs, err := c.tokenizer.ConvertTokensToIDs(tokens)
	if err != nil {
		return Features{}, err
	}
	wordSegmentIDs := make([]int, len(tokens))
	wordAttentionMask := make([]int, len(tokens))
	for i := range wordAttentionMask {
		wordAttentionMask[i] = 1
	}

	var entityPositionIDs [2][]int
	for slot, tokenSpan := range tokenSpans {
		positionIDs := make([]int, 0, c.maxMentionLength)
		for position := tokenSpan[0]; position < tokenSpan[1] && len(positionIDs) < c.maxMentionLength; position++ {
			positionIDs = append(positionIDs, position)
		}
		for len(positionIDs) < c.maxMentionLength {
			positionIDs = append(positionIDs, -1)
		}
		entityPositionIDs[slot] = positionIDs
	}

	return Features{
		WordIDs:             wordIDs,
		WordSegmentIDs:      wordSegmentIDs,
		WordAttentionMask:   wordAttentionMask,
		EntityIDs:           entityIDs,
		EntityPositionIDs:   entityPositionIDs,
		EntitySegmentIDs:    [2]int{0, 0},
		EntityAttentionMask: [2]int{1, 1},
		Label:               label,
	}, nil
}
