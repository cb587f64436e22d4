package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"ga4bq/internal/analytics"
	"ga4bq/internal/query"

	"github.com/stockparfait/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	sizes   []int
	err     error
	failAt  int
	offsets []int64
}

func (f *fakeFetcher) FetchPage(_ context.Context, _ string, _ *query.Descriptor, offset int64) (*analytics.Page, error) {
	call := len(f.offsets)
	f.offsets = append(f.offsets, offset)
	if f.err != nil && call == f.failAt {
		return nil, f.err
	}
	if call >= len(f.sizes) {
		return nil, errors.New("unexpected fetch")
	}
	return makePage(f.sizes[call]), nil
}

type staticFetcher struct {
	page *analytics.Page
}

func (f staticFetcher) FetchPage(context.Context, string, *query.Descriptor, int64) (*analytics.Page, error) {
	return f.page, nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func testContext() context.Context {
	return logging.Use(context.Background(), logging.DefaultGoLogger(logging.Error))
}

func TestAccumulateSinglePartialPage(t *testing.T) {
	for _, n := range []int{0, 1, 99999} {
		f := &fakeFetcher{sizes: []int{n}}
		s := &recordingSleeper{}
		res, err := Accumulate(testContext(), f, "1", cityViews(), Options{Sleeper: s})
		require.NoError(t, err)
		assert.Equal(t, []int64{0}, f.offsets)
		assert.Equal(t, 1, res.Pages)
		assert.Equal(t, n, res.Table.Len())
		assert.Empty(t, s.delays)
	}
}

func TestAccumulateFullPageThenEmpty(t *testing.T) {
	f := &fakeFetcher{sizes: []int{analytics.PageSize, 0}}
	s := &recordingSleeper{}

	res, err := Accumulate(testContext(), f, "1", cityViews(), Options{Sleeper: s})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, analytics.PageSize}, f.offsets)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, analytics.PageSize, res.Table.Len())
	require.Len(t, s.delays, 1)
	assert.GreaterOrEqual(t, s.delays[0], time.Second)
	assert.Less(t, s.delays[0], 2*time.Second)
}

func TestAccumulateFullPageThenEmptyFails(t *testing.T) {
	f := &fakeFetcher{sizes: []int{analytics.PageSize, 0}}

	_, err := Accumulate(testContext(), f, "1", cityViews(), Options{
		EmptyPage: FailOnEmptyPage,
		Sleeper:   &recordingSleeper{},
	})
	var empty *EmptyPageError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, 2, empty.Page)
	assert.Equal(t, int64(analytics.PageSize), empty.Offset)
	assert.Equal(t, analytics.PageSize, empty.Rows)
	assert.Len(t, f.offsets, 2)
}

func TestAccumulateEmptyFirstPageIsNotAnError(t *testing.T) {
	f := &fakeFetcher{sizes: []int{0}}
	res, err := Accumulate(testContext(), f, "1", cityViews(), Options{
		EmptyPage: FailOnEmptyPage,
		Sleeper:   &recordingSleeper{},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Table.Len())
	assert.Equal(t, 1, res.Pages)
}

func TestAccumulateSeveralPages(t *testing.T) {
	f := &fakeFetcher{sizes: []int{10, 10, 10, 3}}
	s := &recordingSleeper{}

	res, err := Accumulate(testContext(), f, "1", cityViews(), Options{
		PageSize: 10,
		Delay:    func() time.Duration { return time.Millisecond },
		Sleeper:  s,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 10, 20, 30}, f.offsets)
	assert.Equal(t, 4, res.Pages)
	assert.Equal(t, 33, res.Table.Len())
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}, s.delays)
}

func TestAccumulateRemoteError(t *testing.T) {
	remote := &analytics.RemoteServiceError{Property: "properties/1", Offset: 10, Err: errors.New("unavailable")}
	f := &fakeFetcher{sizes: []int{10, 10}, err: remote, failAt: 1}

	_, err := Accumulate(testContext(), f, "1", cityViews(), Options{PageSize: 10, Sleeper: &recordingSleeper{}})
	var got *analytics.RemoteServiceError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, int64(10), got.Offset)
	assert.Len(t, f.offsets, 2)
}

func TestAccumulateSleepInterrupted(t *testing.T) {
	f := &fakeFetcher{sizes: []int{10, 10}}
	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := Accumulate(ctx, f, "1", cityViews(), Options{PageSize: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, f.offsets, 1)
}

func TestJitter(t *testing.T) {
	delay := Jitter(time.Second, time.Second)
	for i := 0; i < 100; i++ {
		d := delay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}
}

func TestParseEmptyPagePolicy(t *testing.T) {
	p, err := ParseEmptyPagePolicy("FAIL")
	require.NoError(t, err)
	assert.Equal(t, FailOnEmptyPage, p)
	assert.Equal(t, "fail", p.String())

	p, err = ParseEmptyPagePolicy("accept")
	require.NoError(t, err)
	assert.Equal(t, AcceptEmptyPage, p)

	_, err = ParseEmptyPagePolicy("retry")
	assert.Error(t, err)
}

func TestAccumulateMalformedPage(t *testing.T) {
	page := makePage(3)
	page.Rows[2].Metrics = nil

	_, err := Accumulate(testContext(), staticFetcher{page: page}, "properties/1", cityViews(), Options{Sleeper: &recordingSleeper{}})
	assert.ErrorContains(t, err, "failed to flatten page 1")
}
