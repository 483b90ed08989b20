package metrics

import (
	"sync"
	"time"

	"github.com/ottermq/otterconf/internal/core/models"
)

// RunRecord is a run seen by MockCollector.
type RunRecord struct {
	Mode    string
	Errors  int
	Elapsed time.Duration
}

// MockCollector is a simple in-memory Recorder for testing.
type MockCollector struct {
	mu sync.RWMutex

	outcomes    map[models.Kind]map[models.Outcome]int
	fetchErrors map[models.Kind]int
	passes      []models.Kind
	runs        []RunRecord
}

var _ Recorder = (*MockCollector)(nil)

func NewMockCollector() *MockCollector {
	return &MockCollector{
		outcomes:    make(map[models.Kind]map[models.Outcome]int),
		fetchErrors: make(map[models.Kind]int),
	}
}

func (m *MockCollector) RecordOutcome(kind models.Kind, outcome models.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes[kind] == nil {
		m.outcomes[kind] = make(map[models.Outcome]int)
	}
	m.outcomes[kind][outcome]++
}

func (m *MockCollector) RecordFetchError(kind models.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErrors[kind]++
}

func (m *MockCollector) ObservePass(kind models.Kind, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes = append(m.passes, kind)
}

func (m *MockCollector) RecordRun(mode string, errors int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, RunRecord{Mode: mode, Errors: errors, Elapsed: elapsed})
}

func (m *MockCollector) Outcome(kind models.Kind, outcome models.Outcome) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.outcomes[kind][outcome]
}

func (m *MockCollector) FetchErrors(kind models.Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetchErrors[kind]
}

// Passes returns the kinds whose pass was observed, in order.
func (m *MockCollector) Passes() []models.Kind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Kind(nil), m.passes...)
}

func (m *MockCollector) Runs() []RunRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RunRecord(nil), m.runs...)
}
