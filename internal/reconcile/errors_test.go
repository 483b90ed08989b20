package reconcile

import (
	"errors"
	"testing"

	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateError(t *testing.T) {
	agg := &AggregateError{}
	assert.Equal(t, 0, agg.Len())

	cause := errors.New("timeout")
	agg.add(&FetchError{Kind: models.KindUser, Err: cause})
	agg.add(&ConflictError{Kind: models.KindVHost, Key: "orders", Observed: "{tracing=true}", Expected: "{tracing=false}"})
	agg.add(&ConfigError{Kind: models.KindQueue, Key: "jobs", Err: &models.KeyError{Kind: models.KindQueue, Key: "jobs"}})

	require.Equal(t, 3, agg.Len())
	assert.ErrorIs(t, agg, cause)

	var conflict *ConflictError
	require.ErrorAs(t, agg, &conflict)
	assert.Equal(t, "orders", conflict.Key)

	var keyErr *models.KeyError
	require.ErrorAs(t, agg, &keyErr)
	assert.Equal(t, "jobs", keyErr.Key)

	assert.Equal(t,
		"reconciliation failed with 3 error(s): "+
			"failed to fetch existing user objects: timeout; "+
			"vhost 'orders' exists with conflicting configuration: observed {tracing=true}, expected {tracing=false}; "+
			"invalid queue key 'jobs', should be queue@vhost",
		agg.Error())
}

func TestFetchError_Scope(t *testing.T) {
	err := &FetchError{Kind: models.KindBinding, Scope: "events@/", Err: errors.New("401")}
	assert.EqualError(t, err, "failed to fetch existing binding 'events@/': 401")
}
