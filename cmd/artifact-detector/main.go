package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"artifact-detector/internal/algorithms"
	"artifact-detector/internal/config"
	"artifact-detector/internal/errs"
	"artifact-detector/internal/logger"
	"artifact-detector/internal/shutdown"
)

const AppName = "artifact-detector"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg      *config.Config
	logger   logger.Logger
	shutdown *shutdown.Manager
	manager  *algorithms.Manager
}

func main() {
	os.Exit(run())
}

func run() int {
	root, a := newRootCmd()
	defer a.close()

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:          AppName,
		Short:        "Forensic artifact maps and fake-image ensemble evaluation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	flags.Int("workers", 0, "parallel workers for batch processing (overrides WORKERS)")
	flags.StringArray("param", nil, "algorithm parameter as ALG.name=value, repeatable")

	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newProcessCmd(a))
	root.AddCommand(newClassifyCmd(a))
	root.AddCommand(newEvaluateCmd(a))
	return root, a
}

// close releases everything registered with the shutdown manager, such as
// scratch sessions, whether or not the command succeeded.
func (a *app) close() {
	if a.shutdown != nil {
		a.shutdown.Shutdown()
	}
}

func (a *app) init(cmd *cobra.Command) error {
	a.cfg = config.Load()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		a.cfg.LogLevel = lvl
	}
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		a.cfg.Workers = n
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.logger = logger.NewConsoleLogger(logger.ParseLevel(a.cfg.LogLevel))
	a.shutdown = shutdown.NewManager(context.Background(), a.logger)
	a.shutdown.Listen()
	cmd.SetContext(a.shutdown.Context())

	a.manager = algorithms.NewManager(a.logger)
	params, _ := cmd.Flags().GetStringArray("param")
	for _, p := range params {
		id, name, value, err := parseParam(p)
		if err != nil {
			return err
		}
		if err := a.manager.SetParameter(id, name, value); err != nil {
			return err
		}
	}
	return nil
}

// parseParam splits ALG.name=value. Values become bool or int when they
// parse as one.
func parseParam(s string) (algorithms.ID, string, interface{}, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", nil, fmt.Errorf("parameter %q must look like ALG.name=value: %w", s, errs.ErrInvalidArgument)
	}
	alg, name, ok := strings.Cut(key, ".")
	if !ok || name == "" {
		return "", "", nil, fmt.Errorf("parameter %q must look like ALG.name=value: %w", s, errs.ErrInvalidArgument)
	}
	id, err := algorithms.ParseID(alg)
	if err != nil {
		return "", "", nil, err
	}

	if b, err := strconv.ParseBool(raw); err == nil {
		return id, name, b, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return id, name, n, nil
	}
	return id, name, raw, nil
}

// parseIDs parses a comma separated list, defaulting to every algorithm.
func parseIDs(list []string) ([]algorithms.ID, error) {
	if len(list) == 0 {
		return algorithms.All(), nil
	}
	ids := make([]algorithms.ID, 0, len(list))
	for _, s := range list {
		id, err := algorithms.ParseID(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
