package archive

import (
	"context"
	"errors"

	"loto6-archive/internal/draw"
)

// ErrUnchanged may be returned by an UpdateFunc to skip persisting.
var ErrUnchanged = errors.New("archive unchanged")

// Commit is the full set of writes implied by one synchronization. Stores
// apply a Commit as a single unit.
type Commit struct {
	Aggregate []draw.Result `json:"aggregate"`
	// Upserted are written as standalone per-round records.
	Upserted []draw.Result `json:"upserted"`
	// Evicted are the rounds whose standalone records must be deleted.
	Evicted []int `json:"evicted"`
}

// Commit turns the outcome into the writes a store has to apply. A result
// that was evicted by the same outcome is not written.
func (o Outcome) Commit(upserted ...draw.Result) Commit {
	evicted := o.EvictedRounds()
	gone := make(map[int]bool, len(evicted))
	for _, round := range evicted {
		gone[round] = true
	}

	c := Commit{
		Aggregate: o.Aggregate,
		Evicted:   evicted,
	}
	for _, r := range upserted {
		if gone[r.Round] {
			continue
		}
		c.Upserted = append(c.Upserted, r)
	}
	return c
}

// Latest is the maximum-round entry of the aggregate, nil when empty.
func (c Commit) Latest() *draw.Result {
	if len(c.Aggregate) == 0 {
		return nil
	}
	latest := c.Aggregate[0]
	return &latest
}

// UpdateFunc computes the commit to apply given the aggregate currently
// held by a store.
type UpdateFunc func(current []draw.Result) (Commit, error)

// Store is implemented by the persistence backends.
type Store interface {
	// LoadAggregate returns the persisted aggregate, empty when nothing was
	// persisted yet.
	LoadAggregate(ctx context.Context) ([]draw.Result, error)
	// LoadLatest returns the persisted latest record, nil when none exists.
	LoadLatest(ctx context.Context) (*draw.Result, error)
	// Update runs fn against an exclusive snapshot of the aggregate and
	// persists the commit it returns atomically.
	Update(ctx context.Context, fn UpdateFunc) error
	Close() error
}
