package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"sort"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/stockparfait/logging"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type Client struct {
	bqClient      *bigquery.Client
	storageClient *storage.Client
	projectID     string
	location      string
	stagingBucket string
	opts          []option.ClientOption
}

func NewClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*Client, error) {
	bqClient, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}

	return &Client{
		bqClient:  bqClient,
		projectID: projectID,
		opts:      opts,
	}, nil
}

// SetLocation sets the location of datasets created by EnsureDataset.
func (c *Client) SetLocation(location string) {
	c.location = location
}

// UseStagingBucket makes Load stage files in the given Cloud Storage bucket
// instead of uploading them with the load request.
func (c *Client) UseStagingBucket(ctx context.Context, bucket string) error {
	storageClient, err := storage.NewClient(ctx, c.opts...)
	if err != nil {
		return fmt.Errorf("failed to create Storage client: %w", err)
	}
	if c.storageClient != nil {
		_ = c.storageClient.Close()
	}
	c.storageClient = storageClient
	c.stagingBucket = bucket
	return nil
}

func (c *Client) Close() error {
	if c.storageClient != nil {
		if err := c.storageClient.Close(); err != nil {
			return err
		}
	}
	return c.bqClient.Close()
}

func (c *Client) GetProjectID() string {
	return c.projectID
}

// EnsureDataset creates the dataset if it does not exist yet.
func (c *Client) EnsureDataset(ctx context.Context, datasetID string) error {
	dataset := c.bqClient.Dataset(datasetID)
	_, err := dataset.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return &DatasetProvisionError{ProjectID: c.projectID, DatasetID: datasetID, Err: err}
	}

	logging.Infof(ctx, "dataset %s.%s not found, creating it", c.projectID, datasetID)
	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{Location: c.location}); err != nil {
		if isAlreadyExists(err) {
			return nil
		}
		return &DatasetProvisionError{ProjectID: c.projectID, DatasetID: datasetID, Err: err}
	}
	return nil
}

func (c *Client) GetTable(ctx context.Context, datasetID, tableID string) (*Table, error) {
	metadata, err := c.bqClient.Dataset(datasetID).Table(tableID).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table metadata: %w", err)
	}

	table := &Table{
		Ref:         TableRef{ProjectID: c.projectID, DatasetID: datasetID, TableID: tableID},
		Description: metadata.Description,
		CreatedAt:   metadata.CreationTime,
		ModifiedAt:  metadata.LastModifiedTime,
		NumRows:     metadata.NumRows,
		NumBytes:    metadata.NumBytes,
		Type:        string(metadata.Type),
		Columns:     convertBigQuerySchema(metadata.Schema),
	}
	if metadata.TimePartitioning != nil {
		table.Partition = metadata.TimePartitioning.Field
	}
	return table, nil
}

// ListProjects lists the projects visible to the gcloud CLI.
func ListProjects() ([]*Project, error) {
	cmd := exec.Command("gcloud", "projects", "list", "--format=value(projectId,name)")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects using gcloud: %w", err)
	}
	return parseProjectList(string(output)), nil
}

func parseProjectList(output string) []*Project {
	var projects []*Project
	for _, line := range strings.Split(output, "\n") {
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		project := &Project{ID: parts[0], Name: parts[0]}
		if len(parts) > 1 {
			project.Name = strings.Join(parts[1:], " ")
		}
		projects = append(projects, project)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].ID < projects[j].ID
	})
	return projects
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
