// Package collector runs one archive synchronization: fetch the newest
// result, merge it into the stored aggregate and persist the outcome.
// Nothing is written unless every step before persisting succeeded.
package collector

import (
	"context"
	"errors"
	"fmt"

	"loto6-archive/internal/archive"
	"loto6-archive/internal/assert"
	"loto6-archive/internal/draw"
	"loto6-archive/internal/loto6/parse"
	"loto6-archive/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrFetch marks failures to retrieve a source document.
var ErrFetch = errors.New("fetch failure")

var tracer = otel.Tracer("loto6-archive/collector")

const (
	report_sync_latest  = "sync-latest"
	report_backfill     = "backfill"
	report_verify       = "verify"
	report_archive_size = "archive-size"
)

// RoundStore is implemented by stores that keep a standalone record of
// every round next to the aggregate. Verify checks those records too.
type RoundStore interface {
	// LoadRound returns nil when round has no record.
	LoadRound(ctx context.Context, round int) (*draw.Result, error)
}

// Source produces validated draw results.
type Source interface {
	// FetchLatest returns the most recent published result.
	FetchLatest(ctx context.Context) (draw.Result, error)
	// FetchRound returns the result of a specific round.
	FetchRound(ctx context.Context, round int) (draw.Result, error)
	// LatestRound returns the most recent published round number.
	LatestRound(ctx context.Context) (int, error)
}

type Collector struct {
	source Source
	store  archive.Store
	max    int
	tel    telemetry.API
}

// New creates a collector keeping at most max results.
func New(source Source, store archive.Store, max int, tel telemetry.API) (*Collector, error) {
	assert.NotNil(source, "source")
	assert.NotNil(store, "store")
	assert.NotNil(tel, "tel")

	if max < 1 {
		return nil, fmt.Errorf("max size must be at least 1, got %d", max)
	}
	return &Collector{
		source: source,
		store:  store,
		max:    max,
		tel:    telemetry.NewScopedAPI("collector", tel),
	}, nil
}

// RoundFailure is a round that could not be fetched during a backfill.
type RoundFailure struct {
	Round int
	Err   error
}

// Report describes what a run did.
type Report struct {
	// Fetched are the results retrieved from the source.
	Fetched []draw.Result
	// Aggregate is the archive after the run.
	Aggregate []draw.Result
	// Evicted are the rounds dropped from the archive.
	Evicted []int
	// Latest is the newest archived result, nil when the archive is empty.
	Latest *draw.Result
	// Changed is false when the archive already held the fetched results.
	Changed bool
	// Persisted is false for dry runs and unchanged archives.
	Persisted bool
	Failures  []RoundFailure
}

// classify wraps err with ErrFetch unless it is already a parse,
// validation or cancellation failure.
func classify(err error) error {
	switch {
	case errors.Is(err, parse.ErrParse),
		errors.Is(err, draw.ErrInvalidResult),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetch, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SyncLatest fetches the latest result and persists it into the archive.
func (c *Collector) SyncLatest(ctx context.Context) (report Report, err error) {
	ctx, span := tracer.Start(ctx, "collector.SyncLatest")
	defer func() { endSpan(span, err) }()

	result, err := c.fetchLatest(ctx)
	if err != nil {
		c.tel.ReportWarning(report_sync_latest, err)
		return Report{}, err
	}
	span.SetAttributes(attribute.Int("loto6.round", result.Round))

	report, err = c.commit(ctx, []draw.Result{result})
	if err != nil {
		c.tel.ReportBroken(report_sync_latest, err, telemetry.KV{Key: "round", Value: result.Round})
		return Report{}, err
	}
	return report, nil
}

// Preview fetches the latest result and computes the synchronization
// against the stored archive without persisting anything.
func (c *Collector) Preview(ctx context.Context) (report Report, err error) {
	ctx, span := tracer.Start(ctx, "collector.Preview")
	defer func() { endSpan(span, err) }()

	result, err := c.fetchLatest(ctx)
	if err != nil {
		return Report{}, err
	}
	current, err := c.store.LoadAggregate(ctx)
	if err != nil {
		return Report{}, err
	}
	outcome := archive.Sync(result, current, c.max)
	return Report{
		Fetched:   []draw.Result{result},
		Aggregate: outcome.Aggregate,
		Evicted:   outcome.EvictedRounds(),
		Latest:    outcome.Latest,
		Changed:   outcome.Changed(current),
	}, nil
}

func (c *Collector) fetchLatest(ctx context.Context) (draw.Result, error) {
	result, err := c.source.FetchLatest(ctx)
	if err != nil {
		return draw.Result{}, classify(err)
	}
	err = result.Validate()
	if err != nil {
		return draw.Result{}, err
	}
	return result, nil
}

// Backfill fetches the latest count rounds and persists them in a single
// commit. Rounds that fail are reported and skipped, the run fails only when
// no round could be fetched.
func (c *Collector) Backfill(ctx context.Context, count int) (report Report, err error) {
	ctx, span := tracer.Start(ctx, "collector.Backfill")
	defer func() { endSpan(span, err) }()

	if count < 1 {
		return Report{}, fmt.Errorf("backfill count must be at least 1, got %d", count)
	}
	if count > c.max {
		count = c.max
	}

	latest, err := c.source.LatestRound(ctx)
	if err != nil {
		return Report{}, classify(err)
	}
	span.SetAttributes(attribute.Int("loto6.latest_round", latest))

	var (
		results  []draw.Result
		failures []RoundFailure
	)
	for round := latest; round > latest-count && round >= 1; round-- {
		result, err := c.source.FetchRound(ctx, round)
		if err == nil {
			err = result.Validate()
		}
		if ctx.Err() != nil {
			return Report{}, ctx.Err()
		}
		if err != nil {
			err = classify(err)
			c.tel.ReportWarning(report_backfill, err, telemetry.KV{Key: "round", Value: round})
			failures = append(failures, RoundFailure{Round: round, Err: err})
			continue
		}
		results = append(results, result)
	}

	if len(results) == 0 {
		errs := make([]error, len(failures))
		for i, f := range failures {
			errs[i] = f.Err
		}
		return Report{Failures: failures}, fmt.Errorf(
			"%w: none of %d rounds could be fetched: %w",
			ErrFetch, len(failures), errors.Join(errs...),
		)
	}

	report, err = c.commit(ctx, results)
	if err != nil {
		c.tel.ReportBroken(report_backfill, err)
		return Report{Failures: failures}, err
	}
	report.Failures = failures
	return report, nil
}

func (c *Collector) commit(ctx context.Context, results []draw.Result) (Report, error) {
	report := Report{Fetched: results}
	err := c.store.Update(ctx, func(current []draw.Result) (archive.Commit, error) {
		outcome := archive.SyncAll(results, current, c.max)
		report.Aggregate = outcome.Aggregate
		report.Evicted = outcome.EvictedRounds()
		report.Latest = outcome.Latest
		report.Changed = outcome.Changed(current)
		if !report.Changed {
			return archive.Commit{}, archive.ErrUnchanged
		}
		return outcome.Commit(results...), nil
	})
	if err != nil {
		return Report{}, err
	}
	report.Persisted = report.Changed

	c.tel.ReportCount(report_archive_size, int64(len(report.Aggregate)))
	c.tel.ReportDebug(
		"synchronized",
		telemetry.KV{Key: "fetched", Value: len(results)},
		telemetry.KV{Key: "evicted", Value: report.Evicted},
		telemetry.KV{Key: "changed", Value: report.Changed},
	)
	return report, nil
}

// Verify loads the archive and checks that it is consistent.
func (c *Collector) Verify(ctx context.Context) (report Report, err error) {
	ctx, span := tracer.Start(ctx, "collector.Verify")
	defer func() { endSpan(span, err) }()

	aggregate, err := c.store.LoadAggregate(ctx)
	if err != nil {
		return Report{}, err
	}
	latest, err := c.store.LoadLatest(ctx)
	if err != nil {
		return Report{}, err
	}

	switch {
	case len(aggregate) == 0 && latest != nil:
		err = fmt.Errorf("%w: latest round %d is set but the aggregate is empty", archive.ErrCorruptAggregate, latest.Round)
	case len(aggregate) > 0 && latest == nil:
		err = fmt.Errorf("%w: latest record is missing", archive.ErrCorruptAggregate)
	case len(aggregate) > 0 && !latest.Equal(aggregate[0]):
		err = fmt.Errorf(
			"%w: latest round %d does not match newest aggregate round %d",
			archive.ErrCorruptAggregate, latest.Round, aggregate[0].Round,
		)
	}
	if err == nil {
		if rounds, ok := c.store.(RoundStore); ok {
			err = verifyRounds(ctx, rounds, aggregate)
		}
	}
	if err != nil {
		c.tel.ReportBroken(report_verify, err)
		return Report{}, err
	}

	if len(aggregate) > c.max {
		c.tel.ReportWarning(
			report_verify,
			"archive holds more results than the configured max size",
			telemetry.KV{Key: "size", Value: len(aggregate)},
			telemetry.KV{Key: "max", Value: c.max},
		)
	}
	return Report{Aggregate: aggregate, Latest: latest}, nil
}

func verifyRounds(ctx context.Context, rounds RoundStore, aggregate []draw.Result) error {
	for _, result := range aggregate {
		record, err := rounds.LoadRound(ctx, result.Round)
		if err != nil {
			return fmt.Errorf("load round %d: %w", result.Round, err)
		}
		if record == nil {
			return fmt.Errorf("%w: record of round %d is missing", archive.ErrCorruptAggregate, result.Round)
		}
		if !record.Equal(result) {
			return fmt.Errorf("%w: record of round %d differs from the aggregate", archive.ErrCorruptAggregate, result.Round)
		}
	}
	return nil
}
