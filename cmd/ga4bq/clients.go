package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"ga4bq/internal/analytics"
	"ga4bq/internal/bigquery"
	"ga4bq/internal/cache"
	"ga4bq/internal/tui"

	"github.com/mattn/go-isatty"
	"github.com/stockparfait/logging"
	"google.golang.org/api/option"
)

func credentialOptions(credFile, endpoint string) ([]option.ClientOption, error) {
	var opts []option.ClientOption

	if credFile != "" {
		if _, err := os.Stat(credFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("credentials file not found: %s", credFile)
		}
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
		opts = append(opts, option.WithoutAuthentication())
	}
	return opts, nil
}

func createBigQueryClient(ctx context.Context, opts *globalOptions, projectID string) (*bigquery.Client, error) {
	clientOpts, err := credentialOptions(opts.bigqueryCredentials, opts.emulator)
	if err != nil {
		return nil, err
	}

	client, err := bigquery.NewClient(ctx, projectID, clientOpts...)
	if err != nil {
		return nil, err
	}
	client.SetLocation(opts.location)
	if opts.stagingBucket != "" {
		if err := client.UseStagingBucket(ctx, opts.stagingBucket); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}

func createAnalyticsClient(ctx context.Context, opts *globalOptions) (*analytics.Client, error) {
	clientOpts, err := credentialOptions(opts.analyticsCredentials, opts.analyticsEndpoint)
	if err != nil {
		return nil, err
	}
	return analytics.NewClient(ctx, clientOpts...)
}

// projectResolver finds the warehouse project: the flag, then the
// environment, then gcloud, then the interactive prompt.
type projectResolver struct {
	flag   string
	prompt bool
	getenv func(string) string
	gcloud func() string
	ask    func(ctx context.Context) (string, error)
}

func newProjectResolver(opts *globalOptions, c *cache.Cache) *projectResolver {
	var recent []string
	if c != nil {
		recent = c.GetRecentProjects()
	}
	return &projectResolver{
		flag:   opts.projectID,
		prompt: opts.prompt,
		getenv: os.Getenv,
		gcloud: getGCloudDefaultProject,
		ask: func(ctx context.Context) (string, error) {
			if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				return "", fmt.Errorf("no project found. Please run 'gcloud config set project PROJECT_ID' or use --project flag")
			}
			return tui.PromptProject(ctx, recent, bigquery.ListProjects)
		},
	}
}

func (r *projectResolver) resolve(ctx context.Context) (string, error) {
	if r.prompt {
		return r.ask(ctx)
	}
	if r.flag != "" {
		return r.flag, nil
	}
	if projID := r.detectDefaultProject(); projID != "" {
		logging.Debugf(ctx, "using default project %s", projID)
		return projID, nil
	}
	return r.ask(ctx)
}

func (r *projectResolver) detectDefaultProject() string {
	if projID := r.getenv("GOOGLE_CLOUD_PROJECT"); projID != "" {
		return projID
	}
	if projID := r.getenv("GCP_PROJECT"); projID != "" {
		return projID
	}
	return r.gcloud()
}

func getGCloudDefaultProject() string {
	cmd := exec.Command("gcloud", "config", "get-value", "project")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	projectID := strings.TrimSpace(string(output))
	if projectID == "(unset)" || projectID == "" {
		return ""
	}

	return projectID
}
