package analytics

import (
	"context"
	"fmt"

	"ga4bq/internal/query"

	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"
)

// PageSize is the largest number of rows the service returns per request.
const PageSize = 100000

type Client struct {
	svc *analyticsdata.Service
}

func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := analyticsdata.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics data client: %w", err)
	}
	return &Client{svc: svc}, nil
}

// FetchPage runs one report request for the property, given by its resource
// name (properties/<id>), starting at offset. Errors are returned as
// *RemoteServiceError and are not retried.
func (c *Client) FetchPage(ctx context.Context, property string, d *query.Descriptor, offset int64) (*Page, error) {
	req := BuildRequest(d, offset)

	resp, err := c.svc.Properties.RunReport(property, req).Context(ctx).Do()
	if err != nil {
		return nil, &RemoteServiceError{Property: property, Offset: offset, Err: err}
	}
	page, err := convertResponse(resp, d)
	if err != nil {
		return nil, &RemoteServiceError{Property: property, Offset: offset, Err: err}
	}
	return page, nil
}

// BuildRequest translates a descriptor into a report request for one page.
func BuildRequest(d *query.Descriptor, offset int64) *analyticsdata.RunReportRequest {
	req := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{
			{StartDate: d.StartDate, EndDate: d.EndDate},
		},
		Limit:               PageSize,
		Offset:              offset,
		ReturnPropertyQuota: true,
	}
	for _, dim := range d.Dimensions {
		req.Dimensions = append(req.Dimensions, &analyticsdata.Dimension{Name: dim.Name})
	}
	for _, m := range d.Metrics {
		req.Metrics = append(req.Metrics, &analyticsdata.Metric{Name: m.Name})
	}
	if d.Filter != nil {
		matchType := d.Filter.MatchType
		if matchType == "" {
			matchType = query.DefaultMatchType
		}
		req.DimensionFilter = &analyticsdata.FilterExpression{
			Filter: &analyticsdata.Filter{
				FieldName: d.Filter.Field,
				StringFilter: &analyticsdata.StringFilter{
					MatchType: matchType,
					Value:     d.Filter.Value,
				},
			},
		}
	}
	return req
}

func convertResponse(resp *analyticsdata.RunReportResponse, d *query.Descriptor) (*Page, error) {
	page := &Page{
		Rows:      make([]Row, 0, len(resp.Rows)),
		TotalRows: resp.RowCount,
		Quota:     convertQuota(resp.PropertyQuota),
	}
	for i, r := range resp.Rows {
		if len(r.DimensionValues) != len(d.Dimensions) || len(r.MetricValues) != len(d.Metrics) {
			return nil, fmt.Errorf("row %d has %d dimensions and %d metrics, expected %d and %d",
				i, len(r.DimensionValues), len(r.MetricValues), len(d.Dimensions), len(d.Metrics))
		}
		row := Row{
			Dimensions: make([]string, len(r.DimensionValues)),
			Metrics:    make([]string, len(r.MetricValues)),
		}
		for j, v := range r.DimensionValues {
			row.Dimensions[j] = v.Value
		}
		for j, v := range r.MetricValues {
			row.Metrics[j] = v.Value
		}
		page.Rows = append(page.Rows, row)
	}
	return page, nil
}

func convertQuota(q *analyticsdata.PropertyQuota) *Quota {
	if q == nil {
		return nil
	}
	return &Quota{
		TokensPerDay:                  convertQuotaStatus(q.TokensPerDay),
		TokensPerHour:                 convertQuotaStatus(q.TokensPerHour),
		TokensPerProjectPerHour:       convertQuotaStatus(q.TokensPerProjectPerHour),
		ConcurrentRequests:            convertQuotaStatus(q.ConcurrentRequests),
		ServerErrorsPerProjectPerHour: convertQuotaStatus(q.ServerErrorsPerProjectPerHour),
	}
}

func convertQuotaStatus(s *analyticsdata.QuotaStatus) *QuotaStatus {
	if s == nil {
		return nil
	}
	return &QuotaStatus{Consumed: s.Consumed, Remaining: s.Remaining}
}
