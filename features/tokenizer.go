package features

import (
	"bytes"
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Marker pseudo-tokens wrapped around the subject (span A) and object (span B)
// mentions when marker insertion is enabled. They are registered with the
// tokenizer as added special tokens so they convert to ids.
const (
	HeadToken = "[HEAD]"
	TailToken = "[TAIL]"
)

// Tokenizer is the subword tokenizer capability the Converter depends on.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
	ConvertTokensToIDs(tokens []string) ([]int, error)
	ClsToken() string
	SepToken() string
}

// GoTokenizer wraps a huggingface tokenizer loaded from tokenizer.json bytes.
type GoTokenizer struct {
	tokenizer   *tokenizer.Tokenizer
	clsToken    string
	sepToken    string
	prefixSpace bool
}

type GoTokenizerOption func(*GoTokenizer)

// WithPrefixSpace makes Tokenize prepend a space to its input. Byte-level
// tokenizers (RoBERTa style) treat a leading space as part of the first word,
// so text fragments cut out of the middle of a sentence need one to tokenize
// the same way they would in context.
func WithPrefixSpace() GoTokenizerOption {
	return func(t *GoTokenizer) {
		t.prefixSpace = true
	}
}

// WithSpecialTokens overrides the default [CLS]/[SEP] classification and
// separator tokens, e.g. <s> and </s> for RoBERTa vocabularies.
func WithSpecialTokens(clsToken string, sepToken string) GoTokenizerOption {
	return func(t *GoTokenizer) {
		t.clsToken = clsToken
		t.sepToken = sepToken
	}
}

// NewGoTokenizer creates a GoTokenizer from the contents of a huggingface
// tokenizer.json file. The [HEAD] and [TAIL] marker tokens are registered as
// added special tokens.
func NewGoTokenizer(tokenizerBytes []byte, opts ...GoTokenizerOption) (*GoTokenizer, error) {
	tk, err := pretrained.FromReader(bytes.NewReader(tokenizerBytes))
	if err != nil {
		return nil, err
	}
	return NewGoTokenizerFromTokenizer(tk, opts...), nil
}

// NewGoTokenizerFromTokenizer wraps an already constructed tokenizer.
func NewGoTokenizerFromTokenizer(tk *tokenizer.Tokenizer, opts ...GoTokenizerOption) *GoTokenizer {
	goTokenizer := &GoTokenizer{
		tokenizer: tk,
		clsToken:  "[CLS]",
		sepToken:  "[SEP]",
	}
	for _, opt := range opts {
		opt(goTokenizer)
	}
	tk.AddSpecialTokens([]tokenizer.AddedToken{
		tokenizer.NewAddedToken(HeadToken, true),
		tokenizer.NewAddedToken(TailToken, true),
	})
	return goTokenizer
}

// Tokenize returns the subword tokens of text without any special tokens.
func (t *GoTokenizer) Tokenize(text string) ([]string, error) {
	if t.prefixSpace {
		text = " " + text
	}
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return nil, nil
	}
	encoding, err := t.tokenizer.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize %q: %w", text, err)
	}
	return encoding.Tokens, nil
}

func (t *GoTokenizer) ConvertTokensToIDs(tokens []string) ([]int, error) {
	ids := make([]int, len(tokens))
	for i, token := range tokens {
		id, ok := t.tokenizer.TokenToId(token)
		if !ok {
			return nil, fmt.Errorf("token %q not in vocabulary", token)
		}
		ids[i] = id
	}
	return ids, nil
}

func (t *GoTokenizer) ClsToken() string {
	return t.clsToken
}

func (t *GoTokenizer) SepToken() string {
	return t.sepToken
}
