// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"stroke-pipeline/internal/cases"
	"stroke-pipeline/internal/config"
	"stroke-pipeline/internal/logging"
	"stroke-pipeline/internal/notify"
	"stroke-pipeline/internal/observability"
	"stroke-pipeline/internal/pipeline"
	"stroke-pipeline/internal/store"
	"stroke-pipeline/internal/validation"
	"stroke-pipeline/internal/version"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// configFlags holds the global command line flag values
type configFlags struct {
	configFile string
	profile    string
	format     string
	noColor    bool
	verbose    bool
	debug      bool
	catalog    string
	assetsDir  string
	threshold  float64
}

// finalConfiguration holds resolved configuration values
type finalConfiguration struct {
	format    string
	noColor   bool
	verbose   bool
	debug     bool
	catalog   string
	assetsDir string
	threshold float64
	parallel  int
	logLevel  string
	logFormat string
	storeDSN  string
	slack     notify.Config
	port      int
	cors      []string
}

// app carries state shared by the subcommands of one invocation
type app struct {
	flags configFlags
	cfg   *config.Config
	final *finalConfiguration
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "stroke-pipeline",
		Short: "Validate, correct and score structured stroke case records",
		Long: "stroke-pipeline runs catalog stroke cases through rule, semantic and\n" +
			"similarity validation, applies clinician corrections to flagged records\n" +
			"and predicts poor-outcome probability from the corrected data.",
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configFile, "config", "", "Path to configuration file (default: search standard locations)")
	f.StringVar(&a.flags.profile, "profile", "", "Configuration profile to apply")
	f.StringVar(&a.flags.format, "format", "text", "Output format: csv, json, junit, text, yaml")
	f.BoolVar(&a.flags.noColor, "no-color", false, "Disable colored output")
	f.BoolVar(&a.flags.verbose, "verbose", false, "Include source documents and finding details")
	f.BoolVar(&a.flags.debug, "debug", false, "Print per-stage timing and debug logs to stderr")
	f.StringVar(&a.flags.catalog, "catalog", "", "Case catalog YAML (default: built-in three-case catalog)")
	f.StringVar(&a.flags.assetsDir, "assets-dir", "", "Directory catalog image paths are relative to")
	f.Float64Var(&a.flags.threshold, "threshold", config.DefaultSimilarityThreshold, "Cosine similarity threshold")

	root.AddCommand(
		newCasesCmd(a),
		newShowCmd(a),
		newRunCmd(a),
		newExportCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads .env and configuration, then resolves flags against them
func (a *app) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	a.cfg = loadConfiguration(cmd.ErrOrStderr(), a.flags.configFile)

	var activeProfile *config.Profile
	if a.flags.profile != "" {
		activeProfile = a.cfg.GetProfile(a.flags.profile)
		if activeProfile == nil {
			return fmt.Errorf("profile '%s' not found (available: %v)", a.flags.profile, a.cfg.ListProfiles())
		}
	}

	a.final = resolveConfiguration(a.cfg, activeProfile, &a.flags, cmd.Flags().Changed)
	if err := config.ValidateThreshold(a.final.threshold); err != nil {
		return fmt.Errorf("invalid --threshold: %w", err)
	}
	if !isTerminal(cmd.OutOrStdout()) {
		a.final.noColor = true
	}

	level, err := logging.ParseLevel(a.final.logLevel)
	if err != nil {
		return err
	}
	if a.final.debug {
		level = slog.LevelDebug
	}
	logging.Init(level, a.final.logFormat, cmd.ErrOrStderr())
	return nil
}

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(stderr io.Writer, configFile string) *config.Config {
	cfg, err := config.LoadConfigOrDefault(configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(stderr, "Using default configuration\n")
	}
	return cfg
}

// resolveConfiguration resolves final values: built-in default, config
// defaults, active profile, then explicitly set flags.
func resolveConfiguration(cfg *config.Config, activeProfile *config.Profile, flags *configFlags, isFlagSet func(string) bool) *finalConfiguration {
	final := &finalConfiguration{
		format:    "text",
		threshold: config.DefaultSimilarityThreshold,
		parallel:  1,
		logLevel:  "warn",
		logFormat: "text",
		port:      8080,
	}

	if cfg != nil {
		if cfg.Defaults.Format != "" {
			final.format = cfg.Defaults.Format
		}
		final.verbose = cfg.Defaults.Verbose
		final.debug = cfg.Defaults.Debug
		final.noColor = cfg.Defaults.NoColor
		final.catalog = cfg.Defaults.Catalog
		final.assetsDir = cfg.Defaults.AssetsDir
		if cfg.Defaults.Parallel > 0 {
			final.parallel = cfg.Defaults.Parallel
		}
		if cfg.Defaults.LogLevel != "" {
			final.logLevel = cfg.Defaults.LogLevel
		}
		if cfg.Defaults.LogFormat != "" {
			final.logFormat = cfg.Defaults.LogFormat
		}
		if cfg.Validation.SimilarityThreshold > 0 {
			final.threshold = cfg.Validation.SimilarityThreshold
		}
		final.storeDSN = cfg.Store.DSN
		final.slack = notify.Config{
			Token:   cfg.Notify.Slack.Token,
			Channel: cfg.Notify.Slack.Channel,
			APIURL:  cfg.Notify.Slack.APIURL,
		}
		if cfg.Server.Port > 0 {
			final.port = cfg.Server.Port
		}
		final.cors = cfg.Server.CORSOrigins
	}

	if activeProfile != nil {
		if activeProfile.Format != "" {
			final.format = activeProfile.Format
		}
		if activeProfile.Verbose != nil {
			final.verbose = *activeProfile.Verbose
		}
		if activeProfile.Debug != nil {
			final.debug = *activeProfile.Debug
		}
		if activeProfile.NoColor != nil {
			final.noColor = *activeProfile.NoColor
		}
		if activeProfile.Catalog != "" {
			final.catalog = activeProfile.Catalog
		}
		if activeProfile.SimilarityThreshold > 0 {
			final.threshold = activeProfile.SimilarityThreshold
		}
	}

	if isFlagSet("format") && flags.format != "" {
		final.format = flags.format
	}
	if isFlagSet("verbose") {
		final.verbose = flags.verbose
	}
	if isFlagSet("debug") {
		final.debug = flags.debug
	}
	if isFlagSet("no-color") {
		final.noColor = flags.noColor
	}
	if isFlagSet("catalog") {
		final.catalog = flags.catalog
	}
	if isFlagSet("assets-dir") {
		final.assetsDir = flags.assetsDir
	}
	if isFlagSet("threshold") {
		final.threshold = flags.threshold
	}

	// Environment overrides for secrets so they need not live in the config file
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		final.slack.Token = token
	}
	if channel := os.Getenv("SLACK_REVIEW_CHANNEL"); channel != "" {
		final.slack.Channel = channel
	}
	if dsn := os.Getenv("STROKE_PIPELINE_STORE_DSN"); dsn != "" {
		final.storeDSN = dsn
	}
	return final
}

// newRunner builds a pipeline runner from the resolved configuration. The
// returned cleanup closes the audit store.
func (a *app) newRunner(ctx context.Context, stderr io.Writer) (*pipeline.Runner, func(), error) {
	catalog, err := cases.Load(a.final.catalog)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(ctx, a.final.storeDSN)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if st != nil {
			_ = st.Close()
		}
	}

	observer := observability.New(a.final.debug, stderr)
	opts := []pipeline.Option{
		pipeline.WithValidator(validation.NewValidator(
			validation.WithThreshold(a.final.threshold),
			validation.WithObserver(observer),
		)),
		pipeline.WithObserver(observer),
		pipeline.WithAssetsDir(a.final.assetsDir),
		pipeline.WithNotifier(notify.New(a.final.slack)),
	}
	if st != nil {
		opts = append(opts, pipeline.WithStore(st))
	}
	return pipeline.NewRunner(catalog, opts...), cleanup, nil
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
