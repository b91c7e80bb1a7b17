package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"loto6-archive/internal/archive"
	"loto6-archive/internal/archive/fsstore"
	"loto6-archive/internal/draw"
	"loto6-archive/internal/draw/drawtest"
	"loto6-archive/internal/loto6/parse"
	"loto6-archive/internal/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	latest  int
	results map[int]draw.Result
	errs    map[int]error
	// latestErr is returned by FetchLatest and LatestRound when set.
	latestErr error
}

func newFakeSource(from, to int) *fakeSource {
	s := &fakeSource{latest: to, results: map[int]draw.Result{}, errs: map[int]error{}}
	for round := from; round <= to; round++ {
		s.results[round] = drawtest.Result(round)
	}
	return s
}

func (s *fakeSource) FetchRound(_ context.Context, round int) (draw.Result, error) {
	if err := s.errs[round]; err != nil {
		return draw.Result{}, err
	}
	result, ok := s.results[round]
	if !ok {
		return draw.Result{}, fmt.Errorf("round %d: status 404", round)
	}
	return result, nil
}

func (s *fakeSource) FetchLatest(ctx context.Context) (draw.Result, error) {
	if s.latestErr != nil {
		return draw.Result{}, s.latestErr
	}
	return s.FetchRound(ctx, s.latest)
}

func (s *fakeSource) LatestRound(context.Context) (int, error) {
	if s.latestErr != nil {
		return 0, s.latestErr
	}
	return s.latest, nil
}

// memStore keeps the archive in memory and counts the commits it applied.
type memStore struct {
	aggregate  []draw.Result
	commits    int
	persistErr error
}

func (m *memStore) LoadAggregate(context.Context) ([]draw.Result, error) {
	return slices.Clone(m.aggregate), nil
}

func (m *memStore) LoadLatest(context.Context) (*draw.Result, error) {
	if len(m.aggregate) == 0 {
		return nil, nil
	}
	latest := m.aggregate[0]
	return &latest, nil
}

func (m *memStore) Update(_ context.Context, fn archive.UpdateFunc) error {
	commit, err := fn(slices.Clone(m.aggregate))
	if errors.Is(err, archive.ErrUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	if m.persistErr != nil {
		return m.persistErr
	}
	m.aggregate = commit.Aggregate
	m.commits++
	return nil
}

func (m *memStore) Close() error {
	return nil
}

func newTestCollector(t *testing.T, source Source, store archive.Store, max int) (*Collector, *telemetry.Recorder) {
	t.Helper()
	rec := &telemetry.Recorder{}
	c, err := New(source, store, max, rec)
	require.NoError(t, err)
	return c, rec
}

func TestNewRejectsMax(t *testing.T) {
	_, err := New(newFakeSource(1, 1), &memStore{}, 0, &telemetry.Recorder{})
	require.Error(t, err)
}

func TestSyncLatestEmptyArchive(t *testing.T) {
	store := &memStore{}
	c, rec := newTestCollector(t, newFakeSource(2062, 2062), store, archive.DefaultMaxSize)

	report, err := c.SyncLatest(context.Background())
	require.NoError(t, err)
	require.True(t, report.Changed)
	require.True(t, report.Persisted)
	require.Equal(t, []draw.Result{drawtest.Result(2062)}, store.aggregate)
	require.Equal(t, 2062, report.Latest.Round)

	counts := rec.Find("count", "collector.archive-size")
	require.Len(t, counts, 1)
	require.EqualValues(t, 1, counts[0].Count)
}

func TestSyncLatestEvicts(t *testing.T) {
	store := &memStore{aggregate: drawtest.Aggregate(1962, 2061)}
	c, _ := newTestCollector(t, newFakeSource(2062, 2062), store, archive.DefaultMaxSize)

	report, err := c.SyncLatest(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1962}, report.Evicted)
	require.Len(t, store.aggregate, archive.DefaultMaxSize)
	require.Equal(t, 2062, store.aggregate[0].Round)
	require.Equal(t, 1963, store.aggregate[len(store.aggregate)-1].Round)
}

func TestSyncLatestIdempotent(t *testing.T) {
	store := &memStore{}
	c, _ := newTestCollector(t, newFakeSource(5, 5), store, 10)

	_, err := c.SyncLatest(context.Background())
	require.NoError(t, err)
	report, err := c.SyncLatest(context.Background())
	require.NoError(t, err)
	require.False(t, report.Changed)
	require.False(t, report.Persisted)
	require.Equal(t, 1, store.commits)
}

func TestSyncLatestFailClosed(t *testing.T) {
	invalid := drawtest.Result(7)
	invalid.Bonus = invalid.Numbers[0]

	testCases := []struct {
		name   string
		source *fakeSource
		target error
	}{
		{
			name:   "network",
			source: &fakeSource{latestErr: errors.New("connection refused")},
			target: ErrFetch,
		},
		{
			name:   "parse",
			source: &fakeSource{latestErr: &parse.Error{Source: "csv", Reason: "round number not found"}},
			target: parse.ErrParse,
		},
		{
			name:   "invalid",
			source: &fakeSource{latest: 7, results: map[int]draw.Result{7: invalid}},
			target: draw.ErrInvalidResult,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			store := &memStore{aggregate: drawtest.Aggregate(1, 3)}
			c, rec := newTestCollector(t, test.source, store, 10)

			_, err := c.SyncLatest(context.Background())
			require.ErrorIs(t, err, test.target)
			require.Equal(t, 0, store.commits)
			require.Equal(t, drawtest.Aggregate(1, 3), store.aggregate)
			require.Len(t, rec.Find("warning", "collector.sync-latest"), 1)
		})
	}

	t.Run("parse is not a fetch failure", func(t *testing.T) {
		source := &fakeSource{latestErr: &parse.Error{Source: "html", Reason: "result table not found"}}
		c, _ := newTestCollector(t, source, &memStore{}, 10)
		_, err := c.SyncLatest(context.Background())
		require.NotErrorIs(t, err, ErrFetch)
	})
}

func TestSyncLatestPersistFailure(t *testing.T) {
	boom := errors.New("disk full")
	store := &memStore{aggregate: drawtest.Aggregate(1, 3), persistErr: boom}
	c, rec := newTestCollector(t, newFakeSource(4, 4), store, 10)

	_, err := c.SyncLatest(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, drawtest.Aggregate(1, 3), store.aggregate)
	require.Len(t, rec.Find("broken", "collector.sync-latest"), 1)
}

func TestPreview(t *testing.T) {
	store := &memStore{aggregate: drawtest.Aggregate(1, 3)}
	c, _ := newTestCollector(t, newFakeSource(4, 4), store, 3)

	report, err := c.Preview(context.Background())
	require.NoError(t, err)
	require.True(t, report.Changed)
	require.False(t, report.Persisted)
	require.Equal(t, []int{4, 3, 2}, drawtest.Rounds(report.Aggregate))
	require.Equal(t, []int{1}, report.Evicted)
	require.Equal(t, 0, store.commits)
}

func TestBackfill(t *testing.T) {
	source := newFakeSource(1, 12)
	source.errs[10] = errors.New("timeout")
	store := &memStore{}
	c, rec := newTestCollector(t, source, store, 5)

	report, err := c.Backfill(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, 1, store.commits)
	require.Equal(t, []int{12, 11, 9, 8}, drawtest.Rounds(store.aggregate))
	require.Len(t, report.Failures, 1)
	require.Equal(t, 10, report.Failures[0].Round)
	require.ErrorIs(t, report.Failures[0].Err, ErrFetch)
	require.Len(t, rec.Find("warning", "collector.backfill"), 1)
}

func TestBackfillStopsAtFirstRound(t *testing.T) {
	store := &memStore{}
	c, _ := newTestCollector(t, newFakeSource(1, 3), store, 100)

	report, err := c.Backfill(context.Background(), 100)
	require.NoError(t, err)
	require.Empty(t, report.Failures)
	require.Equal(t, []int{3, 2, 1}, drawtest.Rounds(store.aggregate))
}

func TestBackfillAllFailed(t *testing.T) {
	source := &fakeSource{latest: 3, results: map[int]draw.Result{}, errs: map[int]error{}}
	store := &memStore{aggregate: drawtest.Aggregate(1, 1)}
	c, _ := newTestCollector(t, source, store, 10)

	report, err := c.Backfill(context.Background(), 3)
	require.ErrorIs(t, err, ErrFetch)
	require.Len(t, report.Failures, 3)
	require.Equal(t, 0, store.commits)

	_, err = c.Backfill(context.Background(), 0)
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	store, err := fsstore.New(t.TempDir(), &telemetry.Recorder{})
	require.NoError(t, err)
	c, _ := newTestCollector(t, newFakeSource(1, 4), store, 10)

	report, err := c.Verify(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Aggregate)
	require.Nil(t, report.Latest)

	_, err = c.Backfill(context.Background(), 4)
	require.NoError(t, err)

	report, err = c.Verify(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{4, 3, 2, 1}, drawtest.Rounds(report.Aggregate))
	require.Equal(t, 4, report.Latest.Round)
}

func TestVerifyRoundRecords(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(t *testing.T, dir string)
	}{
		{
			name: "missing record",
			modify: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, "2.json")))
			},
		},
		{
			name: "stale record",
			modify: func(t *testing.T, dir string) {
				stale := `{"type":"loto6","round":3,"date":"2000-01-01","numbers":[1,2,3,4,5,6],"bonus":7}`
				require.NoError(t, os.WriteFile(filepath.Join(dir, "3.json"), []byte(stale), 0600))
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			store, err := fsstore.New(t.TempDir(), &telemetry.Recorder{})
			require.NoError(t, err)
			c, rec := newTestCollector(t, newFakeSource(1, 4), store, 10)
			_, err = c.Backfill(context.Background(), 4)
			require.NoError(t, err)

			test.modify(t, store.Dir())

			_, err = c.Verify(context.Background())
			require.ErrorIs(t, err, archive.ErrCorruptAggregate)
			require.Len(t, rec.Find("broken", "collector.verify"), 1)
		})
	}
}

type mismatchedStore struct {
	memStore
	latest *draw.Result
}

func (m *mismatchedStore) LoadLatest(context.Context) (*draw.Result, error) {
	return m.latest, nil
}

func TestVerifyMismatch(t *testing.T) {
	stale := drawtest.Result(2)
	testCases := []struct {
		name  string
		store *mismatchedStore
	}{
		{name: "stale latest", store: &mismatchedStore{memStore: memStore{aggregate: drawtest.Aggregate(1, 3)}, latest: &stale}},
		{name: "missing latest", store: &mismatchedStore{memStore: memStore{aggregate: drawtest.Aggregate(1, 3)}}},
		{name: "orphan latest", store: &mismatchedStore{latest: &stale}},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			c, _ := newTestCollector(t, newFakeSource(1, 1), test.store, 10)
			_, err := c.Verify(context.Background())
			require.ErrorIs(t, err, archive.ErrCorruptAggregate)
		})
	}
}
