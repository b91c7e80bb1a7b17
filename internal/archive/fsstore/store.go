// Package fsstore persists the archive as JSON files:
//
//	<dir>/loto6/<round>.json  one record per round
//	<dir>/loto6/all.json      the aggregate, descending by round
//	<dir>/loto6/latest.json   the maximum-round record
//
// Every update is journaled first so a crash leaves either the old or the
// new archive once the journal is replayed.
package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"loto6-archive/internal/archive"
	"loto6-archive/internal/assert"
	"loto6-archive/internal/draw"
	"loto6-archive/internal/telemetry"
)

const (
	gameDir     = draw.Kind
	allFile     = "all.json"
	latestFile  = "latest.json"
	journalFile = ".journal.json"
	lockFile    = ".lock"
)

const (
	report_replay  = "replay"
	report_persist = "persist"
)

type Store struct {
	dir string
	tel telemetry.API
}

var _ archive.Store = (*Store)(nil)

// New creates a store rooted at dir, the game directory is created if needed.
func New(dir string, tel telemetry.API) (*Store, error) {
	assert.NotNil(tel, "tel")
	if dir == "" {
		return nil, fmt.Errorf("fsstore: data directory is empty")
	}
	s := &Store{
		dir: filepath.Join(dir, gameDir),
		tel: telemetry.NewScopedAPI("fsstore", tel),
	}
	err := os.MkdirAll(s.dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("fsstore: %w", err)
	}
	return s, nil
}

// Dir is the directory holding the json files.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func roundFile(round int) string {
	return strconv.Itoa(round) + ".json"
}

// withLock runs fn holding the directory lock with any pending journal
// already applied.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	unlock, err := acquireLock(ctx, s.path(lockFile))
	if err != nil {
		return fmt.Errorf("fsstore: lock: %w", err)
	}
	defer unlock()

	err = s.replayJournal()
	if err != nil {
		s.tel.ReportBroken(report_replay, err)
		return fmt.Errorf("fsstore: replay journal: %w", err)
	}
	return fn()
}

func (s *Store) LoadAggregate(ctx context.Context) ([]draw.Result, error) {
	var aggregate []draw.Result
	err := s.withLock(ctx, func() error {
		var err error
		aggregate, err = s.readAggregate()
		return err
	})
	return aggregate, err
}

func (s *Store) LoadLatest(ctx context.Context) (*draw.Result, error) {
	var latest *draw.Result
	err := s.withLock(ctx, func() error {
		var result draw.Result
		found, err := readJSON(s.path(latestFile), &result)
		if err != nil || !found {
			return err
		}
		if err := result.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", archive.ErrCorruptAggregate, latestFile, err)
		}
		latest = &result
		return nil
	})
	return latest, err
}

// LoadRound reads the standalone record of round, nil when it does not exist.
func (s *Store) LoadRound(ctx context.Context, round int) (*draw.Result, error) {
	var record *draw.Result
	err := s.withLock(ctx, func() error {
		var result draw.Result
		found, err := readJSON(s.path(roundFile(round)), &result)
		if err != nil || !found {
			return err
		}
		record = &result
		return nil
	})
	return record, err
}

func (s *Store) Update(ctx context.Context, fn archive.UpdateFunc) error {
	return s.withLock(ctx, func() error {
		current, err := s.readAggregate()
		if err != nil {
			return err
		}
		commit, err := fn(current)
		if errors.Is(err, archive.ErrUnchanged) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err = s.persist(commit)
		if err != nil {
			s.tel.ReportBroken(report_persist, err)
			return fmt.Errorf("fsstore: persist: %w", err)
		}
		s.tel.ReportDebug(
			"persisted commit",
			telemetry.KV{Key: "size", Value: len(commit.Aggregate)},
			telemetry.KV{Key: "upserted", Value: len(commit.Upserted)},
			telemetry.KV{Key: "evicted", Value: commit.Evicted},
		)
		return nil
	})
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) readAggregate() ([]draw.Result, error) {
	path := s.path(allFile)
	var aggregate []draw.Result
	_, err := readJSON(path, &aggregate)
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %s: %w", archive.ErrCorruptAggregate, allFile, err)
		}
		return nil, err
	}
	err = archive.ValidateAggregate(aggregate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", allFile, err)
	}
	return aggregate, nil
}

// persist journals commit and then applies it.
func (s *Store) persist(commit archive.Commit) error {
	err := s.writeJournal(commit)
	if err != nil {
		return err
	}
	err = s.apply(commit)
	if err != nil {
		return err
	}
	return s.clearJournal()
}

// apply performs the writes of commit, every step is idempotent so that
// a journal can be applied again after a crash.
func (s *Store) apply(commit archive.Commit) error {
	for _, result := range commit.Upserted {
		err := writeJSON(s.path(roundFile(result.Round)), result)
		if err != nil {
			return err
		}
	}
	for _, round := range commit.Evicted {
		err := os.Remove(s.path(roundFile(round)))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	aggregate := commit.Aggregate
	if aggregate == nil {
		aggregate = []draw.Result{}
	}
	err := writeJSON(s.path(allFile), aggregate)
	if err != nil {
		return err
	}

	latest := commit.Latest()
	if latest == nil {
		err = os.Remove(s.path(latestFile))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	} else {
		err = writeJSON(s.path(latestFile), latest)
		if err != nil {
			return err
		}
	}
	return syncDir(s.dir)
}
