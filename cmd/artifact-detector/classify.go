package main

import (
	"fmt"
	"strconv"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/classifier"
	"artifact-detector/internal/ensemble"
)

// remoteClassifiers builds one inference client per algorithm.
func (a *app) remoteClassifiers(ids []algorithms.ID) (map[algorithms.ID]classifier.Classifier, error) {
	out := make(map[algorithms.ID]classifier.Classifier, len(ids))
	for _, id := range ids {
		r, err := classifier.NewRemote(a.cfg.ClassifierURL, string(id),
			classifier.ShapeFor(id, a.cfg.InputWidth, a.cfg.InputHeight),
			classifier.WithTimeout(a.cfg.ClassifierTimeout),
			classifier.WithRetries(a.cfg.ClassifierRetries),
			classifier.WithRemoteLogger(a.logger),
		)
		if err != nil {
			return nil, err
		}
		out[id] = r
	}
	return out, nil
}

func (a *app) evaluator(algs []string, opts ...ensemble.Option) (*ensemble.Evaluator, error) {
	ids, err := parseIDs(algs)
	if err != nil {
		return nil, err
	}
	classifiers, err := a.remoteClassifiers(ids)
	if err != nil {
		return nil, err
	}

	opts = append([]ensemble.Option{
		ensemble.WithAlgorithms(ids...),
		ensemble.WithFactory(a.manager),
		ensemble.WithLogger(a.logger),
	}, opts...)
	return ensemble.New(classifiers, opts...)
}

func newClassifyCmd(a *app) *cobra.Command {
	var (
		algs        []string
		checkHealth bool
	)

	cmd := &cobra.Command{
		Use:   "classify <image>...",
		Short: "Decide fake, real or indeterminate for each image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.evaluator(algs)
			if err != nil {
				return err
			}

			if checkHealth {
				r, err := classifier.NewRemote(a.cfg.ClassifierURL, "health", classifier.InputShape{Width: 1, Height: 1, Channels: 1},
					classifier.WithTimeout(a.cfg.ClassifierTimeout))
				if err != nil {
					return err
				}
				if err := r.Health(cmd.Context()); err != nil {
					return err
				}
			}

			var failed error
			for _, path := range args {
				d, err := e.Decide(cmd.Context(), path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed = err
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDecision(path, d))
			}
			return failed
		},
	}

	cmd.Flags().StringSliceVar(&algs, "algorithms", nil, "comma separated subset of ELA,PCA,LG")
	cmd.Flags().BoolVar(&checkHealth, "health", false, "check the classifier service before classifying")
	return cmd
}

func renderDecision(path string, d *ensemble.Decision) string {
	rows := make([][]string, 0, len(d.Votes)+1)
	for _, v := range d.Votes {
		rows = append(rows, []string{
			v.Algorithm.Description(),
			ratio(v.Scores.Fake),
			ratio(v.Scores.Real),
			v.Label,
		})
	}
	rows = append(rows, []string{"Average", ratio(d.Fake), ratio(d.Real), d.Verdict})

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Algorithm", "Fake", "Real", "Verdict").
		Rows(rows...)
	return path + "\n" + t.String()
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
