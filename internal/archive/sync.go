package archive

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"loto6-archive/internal/draw"
)

// DefaultMaxSize is the number of most recent rounds kept in the aggregate.
const DefaultMaxSize = 100

var ErrCorruptAggregate = errors.New("corrupt aggregate")

// Outcome is the result of merging one or more draw results into an aggregate.
type Outcome struct {
	// Aggregate is strictly descending by round and holds at most max entries.
	Aggregate []draw.Result
	// Evicted holds the entries that fell off the end of the aggregate.
	Evicted []draw.Result
	// Latest is the first entry of Aggregate, nil when Aggregate is empty.
	Latest *draw.Result
}

func byRoundDesc(a, b draw.Result) int {
	return cmp.Compare(b.Round, a.Round)
}

// Sync upserts result into aggregate by round, orders the entries by round
// descending and trims the collection to max entries.
//
// Sync does not modify aggregate. Results are assumed to be validated.
func Sync(result draw.Result, aggregate []draw.Result, max int) Outcome {
	if max < 0 {
		max = 0
	}

	merged := make([]draw.Result, 0, len(aggregate)+1)
	for _, existing := range aggregate {
		if existing.Round == result.Round {
			continue
		}
		merged = append(merged, existing)
	}
	merged = append(merged, result)
	slices.SortFunc(merged, byRoundDesc)

	out := Outcome{Aggregate: merged}
	if len(merged) > max {
		out.Aggregate = merged[:max:max]
		out.Evicted = merged[max:]
	}
	if len(out.Aggregate) > 0 {
		latest := out.Aggregate[0]
		out.Latest = &latest
	}
	return out
}

// SyncAll folds Sync over results. Evicted holds every round that left the
// aggregate during the fold, at most once.
func SyncAll(results []draw.Result, aggregate []draw.Result, max int) Outcome {
	out := Outcome{Aggregate: aggregate}
	if len(aggregate) > 0 {
		latest := aggregate[0]
		out.Latest = &latest
	}

	evicted := map[int]bool{}
	for _, result := range results {
		step := Sync(result, out.Aggregate, max)
		for _, e := range step.Evicted {
			if evicted[e.Round] {
				continue
			}
			evicted[e.Round] = true
			out.Evicted = append(out.Evicted, e)
		}
		out.Aggregate = step.Aggregate
		out.Latest = step.Latest
	}
	return out
}

// EvictedRounds returns the round numbers of the evicted entries.
func (o Outcome) EvictedRounds() []int {
	if len(o.Evicted) == 0 {
		return nil
	}
	rounds := make([]int, len(o.Evicted))
	for i, e := range o.Evicted {
		rounds[i] = e.Round
	}
	return rounds
}

// Changed reports whether the outcome differs from previous.
func (o Outcome) Changed(previous []draw.Result) bool {
	return !slices.EqualFunc(o.Aggregate, previous, draw.Result.Equal)
}

// ValidateAggregate checks that every entry satisfies the draw invariants
// and that rounds are unique and strictly descending.
func ValidateAggregate(aggregate []draw.Result) error {
	seen := make(map[int]bool, len(aggregate))
	for i, r := range aggregate {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrCorruptAggregate, i, err)
		}
		if seen[r.Round] {
			return fmt.Errorf("%w: entry %d: duplicate round %d", ErrCorruptAggregate, i, r.Round)
		}
		seen[r.Round] = true
		if i > 0 && aggregate[i-1].Round < r.Round {
			return fmt.Errorf("%w: entry %d: round %d after round %d", ErrCorruptAggregate, i, r.Round, aggregate[i-1].Round)
		}
	}
	return nil
}
