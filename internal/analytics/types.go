package analytics

import "fmt"

// Row holds the raw values of one report row, in descriptor order.
type Row struct {
	Dimensions []string
	Metrics    []string
}

// QuotaStatus is the consumed and remaining amount of one quota bucket.
type QuotaStatus struct {
	Consumed  int64
	Remaining int64
}

// Quota is the property quota usage reported with a page. It is informational
// only.
type Quota struct {
	TokensPerDay                  *QuotaStatus
	TokensPerHour                 *QuotaStatus
	TokensPerProjectPerHour       *QuotaStatus
	ConcurrentRequests            *QuotaStatus
	ServerErrorsPerProjectPerHour *QuotaStatus
}

func (q *Quota) String() string {
	if q == nil {
		return "unknown"
	}
	return fmt.Sprintf("tokens/day %s, tokens/hour %s, tokens/project/hour %s, concurrent %s, server errors/hour %s",
		q.TokensPerDay, q.TokensPerHour, q.TokensPerProjectPerHour, q.ConcurrentRequests, q.ServerErrorsPerProjectPerHour)
}

func (s *QuotaStatus) String() string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%d used/%d left", s.Consumed, s.Remaining)
}

// Page is one report response.
type Page struct {
	Rows []Row
	// TotalRows is the size of the whole result set as reported by the
	// service, regardless of paging.
	TotalRows int64
	Quota     *Quota
}

type RemoteServiceError struct {
	Property string
	Offset   int64
	Err      error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("report request for %s at offset %d failed: %v", e.Property, e.Offset, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}
