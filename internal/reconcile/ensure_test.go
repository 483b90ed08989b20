package reconcile

import (
	"errors"
	"testing"

	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsurePresent(t *testing.T) {
	declared := models.DefaultQueue()
	differing := models.Queue{Durable: false, Arguments: models.Arguments{}}

	t.Run("absent_is_created", func(t *testing.T) {
		calls := 0
		outcome, err := ensurePresent(models.KindQueue, "q@/", declared, models.Queue{}, false, func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeCreated, outcome)
		assert.Equal(t, 1, calls)
	})

	t.Run("equal_is_unchanged", func(t *testing.T) {
		outcome, err := ensurePresent(models.KindQueue, "q@/", declared, models.DefaultQueue(), true, func() error {
			t.Fatal("create called for an existing object")
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeUnchanged, outcome)
	})

	t.Run("nil_arguments_equal_empty", func(t *testing.T) {
		outcome, err := ensurePresent(models.KindQueue, "q@/", declared, models.Queue{Durable: true}, true, nil)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeUnchanged, outcome)
	})

	t.Run("different_is_conflict", func(t *testing.T) {
		outcome, err := ensurePresent(models.KindQueue, "q@/", declared, differing, true, func() error {
			t.Fatal("create called for a conflicting object")
			return nil
		})
		assert.Equal(t, models.OutcomeConflict, outcome)
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "q@/", conflict.Key)
		assert.Equal(t, differing.String(), conflict.Observed)
		assert.Equal(t, declared.String(), conflict.Expected)
	})

	t.Run("create_failure", func(t *testing.T) {
		boom := errors.New("boom")
		outcome, err := ensurePresent(models.KindQueue, "q@/", declared, models.Queue{}, false, func() error {
			return boom
		})
		assert.Equal(t, models.OutcomeFailed, outcome)
		var createErr *CreateError
		require.ErrorAs(t, err, &createErr)
		assert.ErrorIs(t, err, boom)
		assert.EqualError(t, err, "failed to create queue 'q@/': boom")
	})

	t.Run("read_only_reports_missing", func(t *testing.T) {
		outcome, err := ensurePresent(models.KindQueue, "q@/", declared, models.Queue{}, false, nil)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeMissing, outcome)
	})
}
