package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"ga4bq/internal/config"
	"ga4bq/internal/query"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/stockparfait/logging"
)

const (
	appVersion = "0.1.0"
	appName    = "ga4bq"
)

type globalOptions struct {
	envFile              string
	propertiesFile       string
	queriesFile          string
	projectID            string
	prompt               bool
	analyticsCredentials string
	bigqueryCredentials  string
	emulator             string
	analyticsEndpoint    string
	stagingBucket        string
	location             string
	emptyPage            string
	continueOnError      bool
	copy                 bool
	logLevel             logging.Level
}

// logLevelFlag adapts logging.Level to pflag.
type logLevelFlag struct {
	level *logging.Level
}

func (f logLevelFlag) String() string     { return f.level.String() }
func (f logLevelFlag) Set(s string) error { return f.level.Set(s) }
func (f logLevelFlag) Type() string       { return "level" }

// Execute runs the CLI.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{logLevel: logging.Info}

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Load Google Analytics 4 reports into BigQuery",
		Long:          "Runs analytics reports for the configured properties, page by page, and loads the rows into BigQuery tables.",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetContext(logging.Use(cmd.Context(), logging.DefaultGoLogger(opts.logLevel)))
			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil {
					return fmt.Errorf("failed to load env file %s: %w", opts.envFile, err)
				}
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", "", "Optional .env file with GOOGLE_CLOUD_PROJECT and similar variables")
	flags.StringVar(&opts.propertiesFile, "properties", "properties.json", "Path to the properties JSON document")
	flags.StringVar(&opts.queriesFile, "queries", "", "Optional YAML or TOML file with additional queries")
	flags.StringVar(&opts.projectID, "project", "", "BigQuery project ID (defaults to GOOGLE_CLOUD_PROJECT, GCP_PROJECT or gcloud config)")
	flags.BoolVar(&opts.prompt, "prompt", false, "Always ask for the BigQuery project")
	flags.StringVar(&opts.analyticsCredentials, "analytics-credentials", "", "Service account file for the Analytics Data API")
	flags.StringVar(&opts.bigqueryCredentials, "bigquery-credentials", "", "Service account file for BigQuery")
	flags.StringVar(&opts.emulator, "emulator", "", "BigQuery emulator endpoint (for testing)")
	flags.StringVar(&opts.analyticsEndpoint, "analytics-endpoint", "", "Analytics Data API endpoint override (for testing)")
	flags.StringVar(&opts.stagingBucket, "staging-bucket", "", "Cloud Storage bucket to stage load files in")
	flags.StringVar(&opts.location, "location", "", "Location of datasets created on demand")
	flags.StringVar(&opts.emptyPage, "empty-page", "accept", "What an empty page after a full one means: accept or fail")
	flags.BoolVar(&opts.continueOnError, "continue-on-error", false, "Keep going after a failed query and report all failures at the end")
	flags.BoolVar(&opts.copy, "copy", false, "Copy the loaded table references to the clipboard")
	flags.Var(logLevelFlag{&opts.logLevel}, "log-level", "Log level: debug, info, warning, error")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newQueriesCmd(opts))
	rootCmd.AddCommand(newHistoryCmd())
	return rootCmd
}

// loadRegistry returns the built-in queries, overridden by the query file if
// one was given.
func loadRegistry(opts *globalOptions) (*query.Registry, error) {
	reg := query.Builtin()
	if opts.queriesFile == "" {
		return reg, nil
	}
	descriptors, err := query.LoadFile(opts.queriesFile)
	if err != nil {
		return nil, err
	}
	for _, d := range descriptors {
		if err := reg.Add(d); err != nil {
			return nil, fmt.Errorf("query %s: %w", d.Name, err)
		}
	}
	return reg, nil
}

func loadProperties(opts *globalOptions) (*config.Properties, error) {
	return config.LoadProperties(opts.propertiesFile)
}
