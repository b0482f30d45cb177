package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"artifact-detector/internal/pipeline"
)

func newProcessCmd(a *app) *cobra.Command {
	var algs []string

	cmd := &cobra.Command{
		Use:   "process <source-dir> <dest-dir>",
		Short: "Build per-algorithm derived datasets from a tree of images",
		Long: "Walks source-dir and writes dest-dir/<ALG>/<relative path> for every file " +
			"and algorithm. Existing outputs are kept, so an interrupted run can be resumed.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(algs)
			if err != nil {
				return err
			}

			p := pipeline.NewProcessor(
				pipeline.WithWorkers(a.cfg.Workers),
				pipeline.WithLogger(a.logger),
				pipeline.WithAlgorithms(ids...),
				pipeline.WithFactory(a.manager),
			)
			report, err := p.ProcessImages(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "written %d, skipped %d, failed %d\n", report.Written, report.Skipped, report.Failed)
			for _, stat := range report.Durations {
				fmt.Fprintf(out, "  %-4s %d runs, avg %s\n", stat.Operation, stat.Count, stat.Average())
			}
			for _, f := range report.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", f)
			}
			return report.Err()
		},
	}

	cmd.Flags().StringSliceVar(&algs, "algorithms", nil, "comma separated subset of ELA,PCA,LG")
	return cmd
}
