package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ottermq/otterconf/internal/loader"
	"github.com/ottermq/otterconf/internal/reconcile"
	"github.com/ottermq/otterconf/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `
vhosts:
  orders:
queues:
  jobs@orders: {durable: true}
`

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "broker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReconcile_AppliesDocument(t *testing.T) {
	fake := testutil.NewFakeGateway()
	c := New(writeDocument(t, document), reconcile.NewEngine(fake), time.Minute)

	_, ok := c.Last()
	assert.False(t, ok)

	status, err := c.Reconcile(context.Background(), reconcile.ModeApply)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Created)
	assert.True(t, status.Succeeded())
	assert.NotEmpty(t, status.RunID)
	assert.Contains(t, fake.Queues, "jobs@orders")

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, status, last)

	status, err = c.Reconcile(context.Background(), reconcile.ModeVerify)
	require.NoError(t, err)
	assert.Equal(t, "verify", status.Mode)
	assert.Equal(t, 2, status.Unchanged)
}

func TestReconcile_RereadsDocument(t *testing.T) {
	fake := testutil.NewFakeGateway()
	path := writeDocument(t, document)
	c := New(path, reconcile.NewEngine(fake), time.Minute)

	_, err := c.Reconcile(context.Background(), reconcile.ModeApply)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(document+"  audit@orders:\n"), 0o644))
	status, err := c.Reconcile(context.Background(), reconcile.ModeApply)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Created)
	assert.Contains(t, fake.Queues, "audit@orders")
}

func TestReconcile_UnreadableDocument(t *testing.T) {
	c := New(writeDocument(t, "policies: {}\n"), reconcile.NewEngine(testutil.NewFakeGateway()), time.Minute)

	status, err := c.Reconcile(context.Background(), reconcile.ModeApply)

	var perr *loader.ParseError
	require.ErrorAs(t, err, &perr)
	assert.False(t, status.Succeeded())
	require.Len(t, status.Messages, 1)
	assert.Contains(t, status.Messages[0], "unknown section")
	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, 1, last.Errors)
}

func TestReconcile_ReportsAggregatedErrors(t *testing.T) {
	fake := testutil.NewFakeGateway()
	fake.Fail("CreateQueue", "jobs@orders", errors.New("boom"))
	c := New(writeDocument(t, document), reconcile.NewEngine(fake), time.Minute)

	status, err := c.Reconcile(context.Background(), reconcile.ModeApply)

	require.Error(t, err)
	assert.Equal(t, 1, status.Errors)
	assert.Equal(t, 1, status.Created)
	require.Len(t, status.Messages, 1)
	assert.Contains(t, status.Messages[0], "boom")
}

func TestReconcile_Busy(t *testing.T) {
	c := New(writeDocument(t, document), reconcile.NewEngine(testutil.NewFakeGateway()), time.Minute)
	c.running.Lock()
	defer c.running.Unlock()

	_, err := c.Reconcile(context.Background(), reconcile.ModeApply)

	assert.ErrorIs(t, err, ErrBusy)
	_, ok := c.Last()
	assert.False(t, ok)
}

func TestRun_StopsOnCancel(t *testing.T) {
	fake := testutil.NewFakeGateway()
	c := New(writeDocument(t, document), reconcile.NewEngine(fake), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	// the first run happens before the loop waits
	assert.Contains(t, fake.Queues, "jobs@orders")
}
