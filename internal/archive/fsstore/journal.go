package fsstore

import (
	"errors"
	"os"

	"loto6-archive/internal/archive"
	"loto6-archive/internal/telemetry"
)

func (s *Store) writeJournal(commit archive.Commit) error {
	return writeJSON(s.path(journalFile), commit)
}

func (s *Store) clearJournal() error {
	err := os.Remove(s.path(journalFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return syncDir(s.dir)
}

// replayJournal applies a commit left behind by an interrupted persist.
// A journal is only ever renamed into place whole, so it is either absent
// or complete.
func (s *Store) replayJournal() error {
	var commit archive.Commit
	found, err := readJSON(s.path(journalFile), &commit)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	err = archive.ValidateAggregate(commit.Aggregate)
	if err != nil {
		return err
	}

	s.tel.ReportWarning(
		report_replay,
		"applying journal left by an interrupted update",
		telemetry.KV{Key: "size", Value: len(commit.Aggregate)},
	)
	err = s.apply(commit)
	if err != nil {
		return err
	}
	return s.clearJournal()
}
