package luke

import (
	"errors"
	"fmt"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/MughilM/luke/features"
	"github.com/MughilM/luke/processors"
	"github.com/MughilM/luke/util"
)

// DefaultMaxMentionLength is the number of position-id slots reserved per
// entity when no override is given.
const DefaultMaxMentionLength = 30

type convertOptions struct {
	splits           []string
	maxMentionLength int
	entityTypes      []string
	markerTokens     bool
	prefixSpace      bool
	clsToken         string
	sepToken         string
	verbose          bool
	tokenizer        features.Tokenizer
}

// ConvertOption is an option for ConvertDataset.
type ConvertOption func(o *convertOptions)

// WithSplits selects which dataset splits to convert. Default is train, dev
// and test.
func WithSplits(splits ...string) ConvertOption {
	return func(o *convertOptions) {
		o.splits = splits
	}
}

// WithMaxMentionLength sets the fixed number of position-id slots per entity.
func WithMaxMentionLength(maxMentionLength int) ConvertOption {
	return func(o *convertOptions) {
		o.maxMentionLength = maxMentionLength
	}
}

// WithEntityTypeIDs encodes entity types as ids using the default TACRED
// entity type table.
func WithEntityTypeIDs() ConvertOption {
	return func(o *convertOptions) {
		o.entityTypes = features.EntityTypes
	}
}

// WithEntityTypes encodes entity types as ids using a custom table.
func WithEntityTypes(entityTypes []string) ConvertOption {
	return func(o *convertOptions) {
		o.entityTypes = entityTypes
	}
}

// WithMarkerTokens wraps entity mentions with marker tokens.
func WithMarkerTokens() ConvertOption {
	return func(o *convertOptions) {
		o.markerTokens = true
	}
}

// WithPrefixSpace enables leading-space-aware tokenization for byte-level
// vocabularies such as RoBERTa's.
func WithPrefixSpace() ConvertOption {
	return func(o *convertOptions) {
		o.prefixSpace = true
	}
}

// WithSpecialTokens overrides the classification and separator tokens.
func WithSpecialTokens(clsToken string, sepToken string) ConvertOption {
	return func(o *convertOptions) {
		o.clsToken = clsToken
		o.sepToken = sepToken
	}
}

// WithTokenizer uses an already constructed tokenizer instead of loading one
// from the tokenizer path.
func WithTokenizer(tk features.Tokenizer) ConvertOption {
	return func(o *convertOptions) {
		o.tokenizer = tk
	}
}

// WithVerbose prints progress while converting.
func WithVerbose() ConvertOption {
	return func(o *convertOptions) {
		o.verbose = true
	}
}

// ConvertDataset reads the requested splits from dataDir, converts them to
// features with the tokenizer at tokenizerPath and writes one .jsonl file per
// split plus the label vocabulary to outputDir. The label vocabulary is
// always derived from the training split.
func ConvertDataset(dataDir string, tokenizerPath string, outputDir string, opts ...ConvertOption) error {
	options := &convertOptions{
		splits:           []string{processors.TrainSplit, processors.DevSplit, processors.TestSplit},
		maxMentionLength: DefaultMaxMentionLength,
	}
	for _, opt := range opts {
		opt(options)
	}

	tk := options.tokenizer
	if tk == nil {
		loaded, err := loadTokenizer(tokenizerPath, options)
		if err != nil {
			return err
		}
		tk = loaded
	}

	var converterOptions []features.ConverterOption
	if options.entityTypes != nil {
		converterOptions = append(converterOptions, features.WithEntityTypeIDs(options.entityTypes))
	}
	if options.markerTokens {
		converterOptions = append(converterOptions, features.WithMarkerTokens())
	}
	if options.verbose {
		converterOptions = append(converterOptions, features.WithVerbose())
	}
	converter, err := features.NewConverter(tk, options.maxMentionLength, converterOptions...)
	if err != nil {
		return err
	}

	processor := processors.NewDatasetProcessor()
	labelList, err := processor.LabelList(dataDir)
	if err != nil {
		return fmt.Errorf("failed to build label vocabulary: %w", err)
	}

	if err := util.CreateFile(outputDir, true); err != nil {
		return err
	}
	if err := writeLabels(labelList, util.PathJoinSafe(outputDir, "labels.json")); err != nil {
		return err
	}

	for _, split := range options.splits {
		examples, err := processor.Examples(dataDir, split)
		if err != nil {
			return err
		}
		if options.verbose {
			fmt.Printf("converting %d %s examples\n", len(examples), split)
		}
		converted, err := converter.Convert(examples, labelList)
		if err != nil {
			return fmt.Errorf("%s split: %w", split, err)
		}
		if err := writeFeatures(converted, util.PathJoinSafe(outputDir, split+".jsonl")); err != nil {
			return err
		}
	}
	return nil
}

func loadTokenizer(tokenizerPath string, options *convertOptions) (*features.GoTokenizer, error) {
	if filepath.Ext(tokenizerPath) != ".json" {
		tokenizerPath = util.PathJoinSafe(tokenizerPath, "tokenizer.json")
	}
	tokenizerBytes, err := util.ReadFileBytes(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer at %s: %w", tokenizerPath, err)
	}
	var tokenizerOptions []features.GoTokenizerOption
	if options.prefixSpace {
		tokenizerOptions = append(tokenizerOptions, features.WithPrefixSpace())
	}
	if options.clsToken != "" || options.sepToken != "" {
		tokenizerOptions = append(tokenizerOptions, features.WithSpecialTokens(options.clsToken, options.sepToken))
	}
	return features.NewGoTokenizer(tokenizerBytes, tokenizerOptions...)
}

func writeLabels(labelList []string, destination string) (err error) {
	writer, writerErr := util.NewFileWriter(destination)
	if writerErr != nil {
		return writerErr
	}
	defer func() {
		err = errors.Join(err, writer.Close())
	}()

	labelBytes, marshalErr := jsoniter.Marshal(labelList)
	if marshalErr != nil {
		return marshalErr
	}
	_, err = writer.Write(labelBytes)
	return err
}

func writeFeatures(converted []features.Features, destination string) (err error) {
	writer, writerErr := util.NewFileWriter(destination)
	if writerErr != nil {
		return writerErr
	}
	defer func() {
		err = errors.Join(err, writer.Close())
	}()

	for i := range converted {
		featureBytes, marshalErr := jsoniter.Marshal(&converted[i])
		if marshalErr != nil {
			return marshalErr
		}
		if _, writeErr := writer.Write(append(featureBytes, '\n')); writeErr != nil {
			return writeErr
		}
	}
	return err
}
