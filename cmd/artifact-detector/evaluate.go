package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"artifact-detector/internal/confusion"
	"artifact-detector/internal/ensemble"
	"artifact-detector/internal/pipeline"
)

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		algs  []string
		total bool
		halt  bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate <dataset-dir>",
		Short: "Print confusion matrices of the classifiers over a labelled dataset",
		Long: "dataset-dir holds either <ALG>/<label>/ image folders or raw <label>/ folders. " +
			"Raw folders are derived into a scratch directory first and removed on exit.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.evaluator(algs, ensemble.WithHaltOnError(halt))
			if err != nil {
				return err
			}

			p := pipeline.NewProcessor(
				pipeline.WithWorkers(a.cfg.Workers),
				pipeline.WithLogger(a.logger),
				pipeline.WithAlgorithms(e.Algorithms()...),
				pipeline.WithFactory(a.manager),
			)
			session, err := ensemble.NewSession(a.cfg.ScratchDir, e, p, a.logger)
			if err != nil {
				return err
			}
			a.shutdown.Register(session)

			ctx := cmd.Context()
			folder := args[0]

			if total {
				m, err := session.TotalMatrix(ctx, folder)
				if err != nil {
					return err
				}
				printMatrix(cmd, "Total", m)
				return nil
			}

			for _, id := range e.Algorithms() {
				m, err := session.Matrix(ctx, folder, id)
				if err != nil {
					return err
				}
				printMatrix(cmd, id.Description(), m)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&algs, "algorithms", nil, "comma separated subset of ELA,PCA,LG")
	cmd.Flags().BoolVar(&total, "total", false, "print the sum of every algorithm's matrix")
	cmd.Flags().BoolVar(&halt, "halt-on-error", false, "stop at the first unreadable sample")
	return cmd
}

func printMatrix(cmd *cobra.Command, title string, m *confusion.Matrix) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d samples)\n%s\n", title, m.Total(), m)
}
