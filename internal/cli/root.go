// Package cli implements the emoclassify command line: batch classification
// of conversation JSONL files with the simple or hierarchical pipeline.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/emoclassify/internal/infrastructure"
)

type app struct {
	configPath string
	infraOpts  []infrastructure.Option
}

// NewRootCommand builds the emoclassify command tree. opts are passed to
// infrastructure.New for every classification command.
func NewRootCommand(opts ...infrastructure.Option) *cobra.Command {
	a := &app{infraOpts: opts}

	root := &cobra.Command{
		Use:   "emoclassify",
		Short: "Classify the emotional content of user/assistant conversations",
		Long: `emoclassify asks a language model yes/no/unsure questions about windows of
each conversation and aggregates the answers per classifier.

Examples:
  emoclassify classify --input_path convs.jsonl --output_path out.jsonl --classifier_set v2
  emoclassify hierarchical --input_path blob://in/convs.jsonl --output_path blob://out/results.jsonl`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config.toml", "path to the base TOML config")

	root.AddCommand(
		a.classifyCommand(),
		a.hierarchicalCommand(),
		versionCommand(),
	)

	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
