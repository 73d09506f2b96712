package cli

import (
	"github.com/spf13/cobra"

	"github.com/JaimeStill/emoclassify/internal/orchestrator"
	"github.com/JaimeStill/emoclassify/internal/pipeline"
	"github.com/JaimeStill/emoclassify/internal/runs"
)

func (a *app) hierarchicalCommand() *cobra.Command {
	var (
		c              common
		topLevelSet    string
		subSet         string
		dependencyPath string
	)

	cmd := &cobra.Command{
		Use:   "hierarchical",
		Short: "Gate sub-classifiers on whole-conversation top-level classifiers",
		Long: `Run every top-level classifier on the whole conversation, then run only the
sub-classifiers whose dependencies include a top-level classifier that fired.
Top-level results are always aggregated with "any"; --aggregation_mode applies
to sub-classifiers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := a.open(ctx, &c)
			if err != nil {
				return err
			}
			defer s.close()

			opts := pipeline.HierarchicalOptions{
				TopLevelSet:     topLevelSet,
				SubSet:          subSet,
				DefinitionsPath: c.definitionsPath,
				DependencyPath:  dependencyPath,
				Aggregator:      s.agg,
			}

			observer := orchestrator.WithObserver(func(index int, state orchestrator.State) {
				s.infra.Logger.DebugContext(ctx, "conversation state", "index", index, "state", state)
			})

			runner, err := s.pipeline().Hierarchical(opts, observer)
			if err != nil {
				return err
			}

			run := runs.New(runs.ModeHierarchical, opts.Label(), s.agg, s.cfg.Oracle.Model)
			return execute(ctx, s, &c, run, runner.Run)
		},
	}

	c.bind(cmd)
	f := cmd.Flags()
	f.StringVar(&topLevelSet, "top_level_set", pipeline.DefaultTopLevelSet, "top-level classifier set")
	f.StringVar(&subSet, "sub_set", pipeline.DefaultSubSet, "sub-classifier set")
	f.StringVar(&dependencyPath, "dependency_path", "", "dependency graph file (default from config)")

	return cmd
}
