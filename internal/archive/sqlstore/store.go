// Package sqlstore persists the archive in a sqlite or libsql database, one
// row per round of the aggregate.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"loto6-archive/internal/archive"
	"loto6-archive/internal/assert"
	"loto6-archive/internal/draw"
	"loto6-archive/internal/telemetry"
)

//go:embed schema.sql
var Schema string

const (
	report_persist = "persist"
	report_load    = "load"
)

type Store struct {
	db  *sql.DB
	tel telemetry.API
}

var _ archive.Store = (*Store)(nil)

// New applies the schema to db and returns a store using it. The store owns
// db and closes it in Close.
func New(ctx context.Context, db *sql.DB, tel telemetry.API) (*Store, error) {
	assert.NotNil(db, "db")
	assert.NotNil(tel, "tel")

	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: apply schema: %w", err)
	}
	return &Store{
		db:  db,
		tel: telemetry.NewScopedAPI("sqlstore", tel),
	}, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanResult(rows *sql.Rows) (draw.Result, error) {
	var (
		result  draw.Result
		numbers string
	)
	err := rows.Scan(&result.Round, &result.Kind, &result.Date, &numbers, &result.Bonus)
	if err != nil {
		return draw.Result{}, err
	}
	err = json.Unmarshal([]byte(numbers), &result.Numbers)
	if err != nil {
		return draw.Result{}, fmt.Errorf("%w: round %d: numbers: %w", archive.ErrCorruptAggregate, result.Round, err)
	}
	return result, nil
}

func loadAggregate(ctx context.Context, q queryer) ([]draw.Result, error) {
	rows, err := q.QueryContext(
		ctx,
		"select round, kind, date, numbers, bonus from draw_result order by round desc",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggregate []draw.Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		aggregate = append(aggregate, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = archive.ValidateAggregate(aggregate)
	if err != nil {
		return nil, err
	}
	return aggregate, nil
}

func (s *Store) LoadAggregate(ctx context.Context) ([]draw.Result, error) {
	aggregate, err := loadAggregate(ctx, s.db)
	if err != nil {
		s.tel.ReportWarning(report_load, err)
		return nil, fmt.Errorf("sqlstore: load: %w", err)
	}
	return aggregate, nil
}

func (s *Store) LoadLatest(ctx context.Context) (*draw.Result, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select round, kind, date, numbers, bonus from draw_result order by round desc limit 1",
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load latest: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	result, err := scanResult(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load latest: %w", err)
	}
	return &result, nil
}

func (s *Store) Update(ctx context.Context, fn archive.UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer tx.Rollback()

	current, err := loadAggregate(ctx, tx)
	if err != nil {
		return fmt.Errorf("sqlstore: load: %w", err)
	}
	commit, err := fn(current)
	if errors.Is(err, archive.ErrUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}

	err = persist(ctx, tx, current, commit)
	if err != nil {
		s.tel.ReportBroken(report_persist, err)
		return fmt.Errorf("sqlstore: persist: %w", err)
	}
	err = tx.Commit()
	if err != nil {
		s.tel.ReportBroken(report_persist, err)
		return fmt.Errorf("sqlstore: commit: %w", err)
	}

	s.tel.ReportDebug(
		"persisted commit",
		telemetry.KV{Key: "size", Value: len(commit.Aggregate)},
		telemetry.KV{Key: "evicted", Value: commit.Evicted},
	)
	return nil
}

// persist makes the table hold exactly commit.Aggregate.
func persist(ctx context.Context, tx *sql.Tx, current []draw.Result, commit archive.Commit) error {
	keep := make(map[int]bool, len(commit.Aggregate))
	for _, result := range commit.Aggregate {
		keep[result.Round] = true
	}

	deleted := append([]int(nil), commit.Evicted...)
	for _, result := range current {
		if !keep[result.Round] {
			deleted = append(deleted, result.Round)
		}
	}
	for _, round := range deleted {
		_, err := tx.ExecContext(ctx, "delete from draw_result where round = ?", round)
		if err != nil {
			return err
		}
	}

	for _, result := range commit.Aggregate {
		numbers, err := json.Marshal(result.Numbers)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(
			ctx,
			`insert into draw_result (round, kind, date, numbers, bonus) values (?, ?, ?, ?, ?)
			on conflict (round) do update set
				kind = excluded.kind,
				date = excluded.date,
				numbers = excluded.numbers,
				bonus = excluded.bonus`,
			result.Round, result.Kind, result.Date, string(numbers), result.Bonus,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
