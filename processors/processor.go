package processors

import (
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/MughilM/luke/util"
)

// Split file names expected inside the dataset directory.
const (
	TrainSplit = "train"
	DevSplit   = "dev"
	TestSplit  = "test"
)

// NoRelationLabel is always present in the label vocabulary at index 0.
const NoRelationLabel = "no_relation"

// DatasetProcessor reads TACRED-style relation-classification splits and turns
// them into Examples.
type DatasetProcessor struct{}

func NewDatasetProcessor() *DatasetProcessor {
	return &DatasetProcessor{}
}

func (p *DatasetProcessor) TrainExamples(dataDir string) ([]Example, error) {
	return p.createExamples(dataDir, TrainSplit)
}

func (p *DatasetProcessor) DevExamples(dataDir string) ([]Example, error) {
	return p.createExamples(dataDir, DevSplit)
}

func (p *DatasetProcessor) TestExamples(dataDir string) ([]Example, error) {
	return p.createExamples(dataDir, TestSplit)
}

// Examples reads the given split ("train", "dev" or "test").
func (p *DatasetProcessor) Examples(dataDir string, split string) ([]Example, error) {
	switch split {
	case TrainSplit, DevSplit, TestSplit:
		return p.createExamples(dataDir, split)
	default:
		return nil, fmt.Errorf("split %s not recognized", split)
	}
}

// LabelList derives the label vocabulary from the training split only:
// no_relation at index 0, the remaining labels sorted lexicographically.
func (p *DatasetProcessor) LabelList(dataDir string) ([]string, error) {
	examples, err := p.TrainExamples(dataDir)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, example := range examples {
		if example.Label != NoRelationLabel {
			seen[example.Label] = true
		}
	}
	labels := make([]string, 0, len(seen)+1)
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return append([]string{NoRelationLabel}, labels...), nil
}

func (p *DatasetProcessor) createExamples(dataDir string, split string) ([]Example, error) {
	splitBytes, err := util.ReadFileBytes(util.PathJoinSafe(dataDir, split+".json"))
	if err != nil {
		return nil, err
	}

	var records []rawRecord
	if err := jsoniter.Unmarshal(splitBytes, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s split: %w", split, err)
	}

	examples := make([]Example, len(records))
	for i, record := range records {
		example, err := buildExample(fmt.Sprintf("%s-%d", split, i), record)
		if err != nil {
			return nil, fmt.Errorf("%s split record %d: %w", split, i, err)
		}
		examples[i] = example
	}
	return examples, nil
}
