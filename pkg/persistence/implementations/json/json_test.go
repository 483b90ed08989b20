package json

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ottermq/otterconf/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeRunID(t *testing.T) {
	cases := map[string]string{
		"3f6c1d0e":      "3f6c1d0e",
		"run/1":         "run%2F1",
		"with space id": "with%20space%20id",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, safeRunID(input), "safeRunID(%q)", input)
	}
}

func newJournal(t *testing.T) *JsonJournal {
	t.Helper()
	jj, err := NewJsonJournal(&persistence.Config{Type: "json", Path: t.TempDir()})
	require.NoError(t, err)
	return jj
}

func TestNewJsonJournal_RequiresDirectory(t *testing.T) {
	_, err := NewJsonJournal(&persistence.Config{Type: "json"})
	require.Error(t, err)
}

func TestJsonJournal_RunLifecycle(t *testing.T) {
	jj := newJournal(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, jj.BeginRun(persistence.Run{ID: "run-1", Mode: "apply", Source: "broker.yaml", StartedAt: started}))
	require.NoError(t, jj.RecordObject(persistence.ObjectEntry{
		RunID: "run-1", Kind: "vhost", Key: "orders", Outcome: "created", RecordedAt: started,
	}))
	require.NoError(t, jj.RecordObject(persistence.ObjectEntry{
		RunID: "run-1", Kind: "exchange", Key: "events@orders", Outcome: "conflict", Detail: "durable differs", RecordedAt: started,
	}))
	require.NoError(t, jj.FinishRun("run-1", started.Add(time.Second), 1))

	runs, err := jj.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "apply", runs[0].Mode)
	assert.Equal(t, "broker.yaml", runs[0].Source)
	assert.True(t, runs[0].Finished())
	assert.True(t, runs[0].FinishedAt.Equal(started.Add(time.Second)))
	assert.Equal(t, 1, runs[0].Errors)

	objects, err := jj.Objects("run-1")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "orders", objects[0].Key)
	assert.Equal(t, "conflict", objects[1].Outcome)
	assert.Equal(t, "durable differs", objects[1].Detail)

	_, err = os.Stat(filepath.Join(jj.runsDir(), "run-1.json"))
	assert.NoError(t, err)
}

func TestJsonJournal_RunsMostRecentFirst(t *testing.T) {
	jj := newJournal(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, jj.BeginRun(persistence.Run{ID: id, Mode: "verify", StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	runs, err := jj.Runs(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.False(t, runs[0].Finished())
}

func TestJsonJournal_UnknownRun(t *testing.T) {
	jj := newJournal(t)

	err := jj.RecordObject(persistence.ObjectEntry{RunID: "missing", Kind: "queue", Key: "q@/"})
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)

	err = jj.FinishRun("missing", time.Now(), 0)
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)

	_, err = jj.Objects("missing")
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)
}
