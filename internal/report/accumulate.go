package report

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"ga4bq/internal/analytics"
	"ga4bq/internal/query"

	"github.com/stockparfait/logging"
)

// Fetcher retrieves one page of a report for a property resource name.
type Fetcher interface {
	FetchPage(ctx context.Context, property string, d *query.Descriptor, offset int64) (*analytics.Page, error)
}

// EmptyPagePolicy decides what a zero-row page means when it was requested
// only because the previous page was exactly full.
type EmptyPagePolicy int

const (
	// AcceptEmptyPage ends paging normally.
	AcceptEmptyPage EmptyPagePolicy = iota
	// FailOnEmptyPage reports an *EmptyPageError.
	FailOnEmptyPage
)

func (p EmptyPagePolicy) String() string {
	switch p {
	case AcceptEmptyPage:
		return "accept"
	case FailOnEmptyPage:
		return "fail"
	}
	return fmt.Sprintf("EmptyPagePolicy(%d)", int(p))
}

func ParseEmptyPagePolicy(s string) (EmptyPagePolicy, error) {
	switch strings.ToLower(s) {
	case "accept":
		return AcceptEmptyPage, nil
	case "fail":
		return FailOnEmptyPage, nil
	}
	return 0, fmt.Errorf("unknown empty page policy %q, expected accept or fail", s)
}

type EmptyPageError struct {
	Page   int
	Offset int64
	Rows   int
}

func (e *EmptyPageError) Error() string {
	return fmt.Sprintf("page %d at offset %d returned no rows after %d rows; the report stopped returning data", e.Page, e.Offset, e.Rows)
}

// Sleeper pauses between page requests.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper blocks until d elapses or ctx is done.
var TimerSleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
})

// Jitter returns a delay in [base, base+spread).
func Jitter(base, spread time.Duration) func() time.Duration {
	return func() time.Duration {
		return base + time.Duration(rand.Float64()*float64(spread))
	}
}

type Options struct {
	// PageSize is the number of rows a full page holds. Default:
	// analytics.PageSize.
	PageSize  int64
	EmptyPage EmptyPagePolicy
	// Delay picks the pause before each page after the first. Default: one to
	// two seconds.
	Delay   func() time.Duration
	Sleeper Sleeper
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = analytics.PageSize
	}
	if o.Delay == nil {
		o.Delay = Jitter(time.Second, time.Second)
	}
	if o.Sleeper == nil {
		o.Sleeper = TimerSleeper
	}
	return o
}

type Result struct {
	Table *Table
	Pages int
	// Quota is the usage reported with the last page.
	Quota *analytics.Quota
}

// Accumulate fetches the report page by page while the previous page was full
// and concatenates the rows.
func Accumulate(ctx context.Context, f Fetcher, property string, d *query.Descriptor, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res := &Result{Table: NewTable(d)}

	for {
		offset := opts.PageSize * int64(res.Pages)
		if res.Pages > 0 {
			delay := opts.Delay()
			logging.Debugf(ctx, "waiting %s before page %d", delay, res.Pages+1)
			if err := opts.Sleeper.Sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("interrupted before page %d: %w", res.Pages+1, err)
			}
		}

		page, err := f.FetchPage(ctx, property, d, offset)
		if err != nil {
			return nil, err
		}
		res.Pages++
		res.Quota = page.Quota

		n := int64(len(page.Rows))
		if n == 0 && res.Pages > 1 && opts.EmptyPage == FailOnEmptyPage {
			return nil, &EmptyPageError{Page: res.Pages, Offset: offset, Rows: res.Table.Len()}
		}
		flat, err := Flatten(page, d)
		if err != nil {
			return nil, fmt.Errorf("failed to flatten page %d: %w", res.Pages, err)
		}
		if err := res.Table.Append(flat); err != nil {
			return nil, fmt.Errorf("failed to append page %d: %w", res.Pages, err)
		}

		logging.Infof(ctx, "%s: page %d at offset %d returned %d rows; %d of %d rows fetched",
			d.Name, res.Pages, offset, n, res.Table.Len(), page.TotalRows)
		if res.Pages == 1 {
			logging.Infof(ctx, "%s: quota: %s", d.Name, page.Quota)
		} else {
			logging.Debugf(ctx, "%s: quota: %s", d.Name, page.Quota)
		}

		if n < opts.PageSize {
			return res, nil
		}
	}
}
