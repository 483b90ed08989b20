package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ottermq/otterconf/pkg/persistence"
)

// JsonJournal keeps one JSON document per run under dataDir/runs.
type JsonJournal struct {
	dataDir string
	mu      sync.Mutex
}

var _ persistence.Journal = (*JsonJournal)(nil)

// JsonRunData is the on-disk document of a run.
type JsonRunData struct {
	Run     persistence.Run           `json:"run"`
	Objects []persistence.ObjectEntry `json:"objects"`
}

func NewJsonJournal(config *persistence.Config) (*JsonJournal, error) {
	jj := &JsonJournal{
		dataDir: config.Path,
	}
	return jj, jj.Initialize()
}

func (jj *JsonJournal) Initialize() error {
	if jj.dataDir == "" {
		return fmt.Errorf("json journal requires a directory")
	}
	return os.MkdirAll(jj.runsDir(), 0755)
}

func (jj *JsonJournal) Close() error {
	// JSON implementation doesn't need to clean up
	return nil
}

func (jj *JsonJournal) runsDir() string {
	return filepath.Join(jj.dataDir, "runs")
}

// safeRunID encodes run ids for safe filesystem usage
func safeRunID(id string) string {
	return url.PathEscape(id)
}

func (jj *JsonJournal) runFile(id string) string {
	return filepath.Join(jj.runsDir(), safeRunID(id)+".json")
}

func (jj *JsonJournal) load(id string) (*JsonRunData, error) {
	data, err := os.ReadFile(jj.runFile(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc JsonRunData
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", id, err)
	}
	return &doc, nil
}

// save writes to a temporary file and renames it over the run document.
func (jj *JsonJournal) save(doc *JsonRunData) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	file := jj.runFile(doc.Run.ID)
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, file)
}

func (jj *JsonJournal) BeginRun(run persistence.Run) error {
	jj.mu.Lock()
	defer jj.mu.Unlock()
	return jj.save(&JsonRunData{Run: run, Objects: []persistence.ObjectEntry{}})
}

func (jj *JsonJournal) RecordObject(entry persistence.ObjectEntry) error {
	jj.mu.Lock()
	defer jj.mu.Unlock()
	doc, err := jj.load(entry.RunID)
	if err != nil {
		return err
	}
	doc.Objects = append(doc.Objects, entry)
	return jj.save(doc)
}

func (jj *JsonJournal) FinishRun(runID string, finishedAt time.Time, errors int) error {
	jj.mu.Lock()
	defer jj.mu.Unlock()
	doc, err := jj.load(runID)
	if err != nil {
		return err
	}
	doc.Run.FinishedAt = finishedAt
	doc.Run.Errors = errors
	return jj.save(doc)
}

func (jj *JsonJournal) Runs(limit int) ([]persistence.Run, error) {
	jj.mu.Lock()
	defer jj.mu.Unlock()

	entries, err := os.ReadDir(jj.runsDir())
	if err != nil {
		return nil, err
	}
	runs := []persistence.Run{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		doc, err := jj.load(id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, doc.Run)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (jj *JsonJournal) Objects(runID string) ([]persistence.ObjectEntry, error) {
	jj.mu.Lock()
	defer jj.mu.Unlock()
	doc, err := jj.load(runID)
	if err != nil {
		return nil, err
	}
	return doc.Objects, nil
}
