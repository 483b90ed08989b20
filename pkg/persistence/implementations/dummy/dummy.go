package dummy

import (
	"time"

	"github.com/ottermq/otterconf/pkg/persistence"
)

// DummyJournal implements persistence.Journal with no-ops, for runs without a journal and for tests
type DummyJournal struct{}

var _ persistence.Journal = (*DummyJournal)(nil)

func (d *DummyJournal) BeginRun(run persistence.Run) error               { return nil }
func (d *DummyJournal) RecordObject(entry persistence.ObjectEntry) error { return nil }
func (d *DummyJournal) FinishRun(runID string, finishedAt time.Time, errors int) error {
	return nil
}

// Runs returns an empty slice
func (d *DummyJournal) Runs(limit int) ([]persistence.Run, error) {
	return []persistence.Run{}, nil
}
func (d *DummyJournal) Objects(runID string) ([]persistence.ObjectEntry, error) {
	return nil, persistence.ErrRunNotFound
}
func (d *DummyJournal) Initialize() error { return nil }
func (d *DummyJournal) Close() error      { return nil }
