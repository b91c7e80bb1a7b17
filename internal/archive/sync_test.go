package archive

import (
	"math/rand"
	"testing"

	"loto6-archive/internal/draw"
	"loto6-archive/internal/draw/drawtest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func requireWellFormed(t *testing.T, aggregate []draw.Result, max int) {
	t.Helper()

	require.LessOrEqual(t, len(aggregate), max)
	seen := map[int]bool{}
	for i, r := range aggregate {
		require.False(t, seen[r.Round], "duplicate round %d", r.Round)
		seen[r.Round] = true
		if i > 0 {
			require.Greater(t, aggregate[i-1].Round, r.Round, "aggregate is not strictly descending")
		}
	}
}

func TestSyncEmptyAggregate(t *testing.T) {
	r := draw.Result{
		Kind:    draw.Kind,
		Round:   2061,
		Date:    "2025-12-18",
		Numbers: []int{3, 12, 17, 24, 31, 42},
		Bonus:   15,
	}

	out := Sync(r, nil, DefaultMaxSize)
	require.Equal(t, []draw.Result{r}, out.Aggregate)
	require.Empty(t, out.Evicted)
	require.NotNil(t, out.Latest)
	require.Equal(t, r, *out.Latest)
}

func TestSyncEvictsOldest(t *testing.T) {
	aggregate := drawtest.Aggregate(1962, 2061)
	require.Len(t, aggregate, 100)

	out := Sync(drawtest.Result(2062), aggregate, 100)

	require.Len(t, out.Aggregate, 100)
	require.Equal(t, 2062, out.Aggregate[0].Round)
	require.Equal(t, 1963, out.Aggregate[99].Round)
	require.Equal(t, []int{1962}, out.EvictedRounds())
	require.Equal(t, drawtest.Result(1962), out.Evicted[0])
	require.Equal(t, 2062, out.Latest.Round)
}

func TestSyncUpsertReplaces(t *testing.T) {
	stale := draw.Result{
		Kind:    draw.Kind,
		Round:   2061,
		Date:    "2025-12-18",
		Numbers: []int{1, 2, 3, 4, 5, 6},
		Bonus:   7,
	}
	aggregate := append([]draw.Result{stale}, drawtest.Aggregate(2050, 2060)...)

	fresh := draw.Result{
		Kind:    draw.Kind,
		Round:   2061,
		Date:    "2025-12-18",
		Numbers: []int{3, 12, 17, 24, 31, 42},
		Bonus:   15,
	}
	out := Sync(fresh, aggregate, DefaultMaxSize)

	var matches []draw.Result
	for _, r := range out.Aggregate {
		if r.Round == 2061 {
			matches = append(matches, r)
		}
	}
	require.Equal(t, []draw.Result{fresh}, matches)
	require.Len(t, out.Aggregate, len(aggregate))
	require.Empty(t, out.Evicted)
}

func TestSyncDoesNotMutateInput(t *testing.T) {
	aggregate := []draw.Result{drawtest.Result(3), drawtest.Result(1), drawtest.Result(2)}
	snapshot := append([]draw.Result(nil), aggregate...)

	Sync(drawtest.Result(4), aggregate, 2)

	require.Equal(t, snapshot, aggregate)
}

func TestSyncOldRoundIsEvictedImmediately(t *testing.T) {
	aggregate := drawtest.Aggregate(11, 20)

	out := Sync(drawtest.Result(5), aggregate, 10)

	require.Equal(t, aggregate, out.Aggregate)
	require.Equal(t, []int{5}, out.EvictedRounds())

	commit := out.Commit(drawtest.Result(5))
	require.Empty(t, commit.Upserted)
	require.Equal(t, []int{5}, commit.Evicted)
}

func TestSyncProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iteration := 0; iteration < 200; iteration++ {
		max := rng.Intn(12) + 1

		// start from a well formed aggregate by folding random rounds
		var aggregate []draw.Result
		for i := rng.Intn(20); i > 0; i-- {
			aggregate = Sync(drawtest.Result(rng.Intn(40)+1), aggregate, max).Aggregate
		}

		r := drawtest.Result(rng.Intn(40) + 1)
		first := Sync(r, aggregate, max)
		requireWellFormed(t, first.Aggregate, max)

		if len(first.Aggregate) == 0 {
			require.Nil(t, first.Latest)
		} else {
			require.Equal(t, first.Aggregate[0], *first.Latest)
		}

		// nothing is lost: retained + evicted covers the merged set exactly
		merged := map[int]bool{r.Round: true}
		for _, e := range aggregate {
			merged[e.Round] = true
		}
		require.Equal(t, len(merged), len(first.Aggregate)+len(first.Evicted))
		for _, e := range first.Evicted {
			require.True(t, merged[e.Round])
			if len(first.Aggregate) > 0 {
				require.Less(t, e.Round, first.Aggregate[len(first.Aggregate)-1].Round)
			}
		}

		second := Sync(r, first.Aggregate, max)
		if diff := cmp.Diff(first.Aggregate, second.Aggregate); diff != "" {
			t.Fatalf("sync is not idempotent (-first +second):\n%s", diff)
		}
		if len(second.Evicted) > 0 {
			// only r itself can be evicted again, when it never made it into the aggregate
			require.Equal(t, []int{r.Round}, second.EvictedRounds())
		}
	}
}

func TestSyncAll(t *testing.T) {
	aggregate := drawtest.Aggregate(1, 5)
	results := []draw.Result{
		drawtest.Result(6),
		drawtest.Result(7),
		drawtest.Result(8),
		drawtest.Result(6),
	}

	out := SyncAll(results, aggregate, 5)

	require.Equal(t, []int{8, 7, 6, 5, 4}, drawtest.Rounds(out.Aggregate))
	require.ElementsMatch(t, []int{1, 2, 3}, out.EvictedRounds())
	require.Equal(t, 8, out.Latest.Round)
}

func TestSyncAllNoResults(t *testing.T) {
	aggregate := drawtest.Aggregate(1, 3)
	out := SyncAll(nil, aggregate, 5)
	require.Equal(t, aggregate, out.Aggregate)
	require.False(t, out.Changed(aggregate))
	require.Equal(t, 3, out.Latest.Round)
}

func TestChanged(t *testing.T) {
	aggregate := drawtest.Aggregate(1, 3)

	require.False(t, Sync(drawtest.Result(3), aggregate, 5).Changed(aggregate))
	require.True(t, Sync(drawtest.Result(4), aggregate, 5).Changed(aggregate))

	edited := drawtest.Result(3)
	edited.Bonus = 43
	require.True(t, Sync(edited, aggregate, 5).Changed(aggregate))
}

func TestValidateAggregate(t *testing.T) {
	require.NoError(t, ValidateAggregate(nil))
	require.NoError(t, ValidateAggregate(drawtest.Aggregate(1, 10)))

	duplicated := append(drawtest.Aggregate(1, 3), drawtest.Result(2))
	require.ErrorIs(t, ValidateAggregate(duplicated), ErrCorruptAggregate)

	unordered := []draw.Result{drawtest.Result(1), drawtest.Result(2)}
	require.ErrorIs(t, ValidateAggregate(unordered), ErrCorruptAggregate)

	broken := drawtest.Aggregate(1, 3)
	broken[1].Bonus = broken[1].Numbers[0]
	err := ValidateAggregate(broken)
	require.ErrorIs(t, err, ErrCorruptAggregate)
	require.ErrorIs(t, err, draw.ErrInvalidResult)
}
