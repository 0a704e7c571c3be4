package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/MughilM/luke"
	"github.com/MughilM/luke/util"
)

var dataDir string
var tokenizerPath string
var outputDir string
var splits cli.StringSlice
var maxMentionLength int
var markerTokens bool
var entityTypeIDs bool
var prefixSpace bool
var clsToken string
var sepToken string
var quiet bool

var modelName string
var downloadDir string
var authToken string
var branch string

var convertCommand = &cli.Command{
	Name:  "convert",
	Usage: "Convert a relation classification dataset into encoder features",
	Description: `Convert expects a dataset directory with train.json, dev.json and test.json files. Each file must be a JSON array
				of objects with token, subj_start, subj_end, obj_start, obj_end, subj_type, obj_type and relation keys.
				One .jsonl file per split is written to the output directory, along with the label vocabulary as labels.json.
				`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "data",
			Usage:       "Path to the dataset directory",
			Aliases:     []string{"d"},
			Destination: &dataDir,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "tokenizer",
			Usage:       "Path to a tokenizer.json file or a folder containing one",
			Aliases:     []string{"t"},
			Destination: &tokenizerPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "output",
			Usage:       "Path to the output directory",
			Aliases:     []string{"o"},
			Destination: &outputDir,
			Required:    true,
		},
		&cli.StringSliceFlag{
			Name:        "split",
			Usage:       "Dataset split to convert. Can be repeated. Defaults to train, dev and test",
			Aliases:     []string{"s"},
			Destination: &splits,
		},
		&cli.IntFlag{
			Name:        "maxMentionLength",
			Usage:       "Number of position id slots per entity",
			Aliases:     []string{"m"},
			Destination: &maxMentionLength,
			Value:       luke.DefaultMaxMentionLength,
		},
		&cli.BoolFlag{
			Name:        "markerTokens",
			Usage:       "Wrap entity mentions with [HEAD] and [TAIL] marker tokens",
			Destination: &markerTokens,
		},
		&cli.BoolFlag{
			Name:        "entityTypeIds",
			Usage:       "Encode entity types as ids instead of a constant placeholder",
			Destination: &entityTypeIDs,
		},
		&cli.BoolFlag{
			Name:        "prefixSpace",
			Usage:       "Prepend a space before tokenizing text fragments (byte-level vocabularies)",
			Destination: &prefixSpace,
		},
		&cli.StringFlag{
			Name:        "clsToken",
			Usage:       "Classification token, e.g. <s> for RoBERTa vocabularies",
			Destination: &clsToken,
		},
		&cli.StringFlag{
			Name:        "sepToken",
			Usage:       "Separator token, e.g. </s> for RoBERTa vocabularies",
			Destination: &sepToken,
		},
		&cli.BoolFlag{
			Name:        "quiet",
			Usage:       "Disable progress output",
			Aliases:     []string{"q"},
			Destination: &quiet,
		},
	},
	Action: func(ctx *cli.Context) error {
		exists, err := util.FileExists(dataDir)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("dataset directory %s does not exist", dataDir)
		}

		opts := []luke.ConvertOption{
			luke.WithMaxMentionLength(maxMentionLength),
		}
		if len(splits.Value()) > 0 {
			opts = append(opts, luke.WithSplits(splits.Value()...))
		}
		if markerTokens {
			opts = append(opts, luke.WithMarkerTokens())
		}
		if entityTypeIDs {
			opts = append(opts, luke.WithEntityTypeIDs())
		}
		if prefixSpace {
			opts = append(opts, luke.WithPrefixSpace())
		}
		if clsToken != "" || sepToken != "" {
			opts = append(opts, luke.WithSpecialTokens(clsToken, sepToken))
		}
		if !quiet && isatty.IsTerminal(os.Stdout.Fd()) {
			opts = append(opts, luke.WithVerbose())
		}
		return luke.ConvertDataset(dataDir, tokenizerPath, outputDir, opts...)
	},
}

var downloadCommand = &cli.Command{
	Name:  "download",
	Usage: "Download the tokenizer files of a model from huggingface",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Usage:       "Name of the huggingface model, e.g. roberta-large",
			Aliases:     []string{"p"},
			Destination: &modelName,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "destination",
			Usage:       "Folder where to store the downloaded tokenizer files",
			Aliases:     []string{"f"},
			Destination: &downloadDir,
			Value:       "tokenizers",
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Huggingface auth token for gated models",
			Destination: &authToken,
		},
		&cli.StringFlag{
			Name:        "branch",
			Usage:       "Repository branch to download from",
			Destination: &branch,
			Value:       "main",
		},
	},
	Action: func(ctx *cli.Context) error {
		options := luke.NewDownloadOptions()
		options.AuthToken = authToken
		options.Branch = branch
		options.Verbose = isatty.IsTerminal(os.Stdout.Fd())
		downloadedTo, err := luke.DownloadTokenizer(modelName, downloadDir, options)
		if err != nil {
			return err
		}
		fmt.Printf("tokenizer files written to %s\n", downloadedTo)
		return nil
	},
}

func main() {
	app := &cli.App{
		Name:     "luke",
		Usage:    "Relation classification dataset preprocessing from the command line",
		Commands: []*cli.Command{convertCommand, downloadCommand},
	}
	if err := app.Run(os.Args); err != nil {
		panic(err)
	}
}
