package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgchart/modules/hierarchy/infrastructure/seed"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
	"github.com/iota-uz/orgchart/pkg/configuration"
	"github.com/iota-uz/orgchart/pkg/logging"
)

type globalOptions struct {
	seedPath       string
	searchMode     string
	logLevel       string
	defaultCascade bool
}

// newRootCmd takes its flag defaults from conf.Hierarchy so the CLI and the server read the same HIERARCHY_* settings.
func newRootCmd(conf *configuration.Configuration) *cobra.Command {
	opts := globalOptions{defaultCascade: conf.Hierarchy.DefaultCascade}
	cmd := &cobra.Command{
		Use:           "orgchart",
		Short:         "Inspect, validate, export and script organizational hierarchies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.seedPath, "seed", conf.Hierarchy.SeedPath, "Seed file (.yaml, .json, .toml or .csv)")
	cmd.PersistentFlags().StringVar(&opts.searchMode, "search-mode", conf.Hierarchy.SearchMode, "Search mode: substring|fuzzy")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level for mutation logs written to stderr")

	cmd.AddCommand(newShowCmd(&opts))
	cmd.AddCommand(newValidateCmd(&opts))
	cmd.AddCommand(newExportCmd(&opts))
	cmd.AddCommand(newApplyCmd(&opts))
	return cmd
}

func Execute() {
	conf := configuration.Use()
	defer conf.Unload()
	if err := newRootCmd(conf).Execute(); err != nil {
		conf.Unload()
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}

func (o *globalOptions) loadStore() (*services.HierarchyStore, error) {
	mode, ok := services.ParseSearchMode(o.searchMode)
	if !ok {
		return nil, withCode(exitUsage, errors.Errorf("invalid --search-mode %q (expected substring|fuzzy)", o.searchMode))
	}
	if strings.TrimSpace(o.seedPath) == "" {
		return nil, withCode(exitUsage, errors.New("--seed is required"))
	}
	store, err := seed.LoadStore(o.seedPath, services.WithSearchMode(mode))
	if err != nil {
		return nil, classify(err)
	}
	return store, nil
}

func (o *globalOptions) logger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return nil, withCode(exitUsage, errors.Wrap(err, "invalid --log-level"))
	}
	logger := logging.ConsoleLogger(level)
	logger.SetOutput(cmd.ErrOrStderr())
	return logger, nil
}
