package cli

import (
	"github.com/spf13/cobra"

	"github.com/JaimeStill/emoclassify/internal/pipeline"
	"github.com/JaimeStill/emoclassify/internal/runs"
)

func (a *app) classifyCommand() *cobra.Command {
	var (
		c   common
		set string
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Apply every classifier of one set to every conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := a.open(ctx, &c)
			if err != nil {
				return err
			}
			defer s.close()

			opts := pipeline.SimpleOptions{
				ClassifierSet:   set,
				DefinitionsPath: c.definitionsPath,
				Aggregator:      s.agg,
			}

			runner, err := s.pipeline().Simple(opts)
			if err != nil {
				return err
			}

			run := runs.New(runs.ModeSimple, opts.Label(), s.agg, s.cfg.Oracle.Model)
			return execute(ctx, s, &c, run, runner.Run)
		},
	}

	c.bind(cmd)
	cmd.Flags().StringVar(&set, "classifier_set", pipeline.DefaultClassifierSet, "classifier set: v1, v1_top_level, or v2")

	return cmd
}
