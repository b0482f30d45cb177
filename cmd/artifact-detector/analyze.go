package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/imageio"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		algName string
		preview bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <image> <output>",
		Short: "Write one algorithm's artifact map of a single image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := algorithms.ParseID(algName)
			if err != nil {
				return err
			}

			alg, err := a.manager.Create(id)
			if err != nil {
				return err
			}
			defer alg.Close()

			if err := alg.Load(args[0]); err != nil {
				return err
			}

			if !preview {
				if err := alg.AnalyzeAndSave(args[1]); err != nil {
					return err
				}
			} else {
				p, err := alg.Preview(a.cfg.PreviewMaxWidth, a.cfg.PreviewMaxHeight)
				if err != nil {
					return err
				}
				defer p.Close()
				if err := imageio.Save(args[1], p); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) -> %s\n", id, id.Description(), args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&algName, "algorithm", "a", string(algorithms.ELA), "ELA, PCA or LG")
	cmd.Flags().BoolVar(&preview, "preview", false, "shrink the output to the preview bounds")
	return cmd
}
