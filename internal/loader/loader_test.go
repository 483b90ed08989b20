package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBrokerFixture checks the content shared by testdata/broker.yaml and
// testdata/broker.toml.
func assertBrokerFixture(t *testing.T, state *models.DesiredState) {
	t.Helper()

	assert.Equal(t, []string{"input", "output"}, state.VHosts.Keys())
	out, _ := state.VHosts.Get("output")
	assert.True(t, out.Tracing)
	in, _ := state.VHosts.Get("input")
	assert.False(t, in.Tracing)

	assert.Equal(t, []string{"svc-input", "ops"}, state.Users.Keys())
	ops, _ := state.Users.Get("ops")
	assert.Equal(t, models.User{Password: "ops-secret", Admin: true}, ops)

	assert.Equal(t, []string{"svc-input@input", "ops@output"}, state.Permissions.Keys())
	p, _ := state.Permissions.Get("svc-input@input")
	assert.Equal(t, `exchange\..*`, p.Configure)
	p, _ = state.Permissions.Get("ops@output")
	assert.Equal(t, models.DefaultPermissions(), p)

	assert.Equal(t, []string{"exchange.in@input", "exchange.out@output"}, state.Exchanges.Keys())
	ex, _ := state.Exchanges.Get("exchange.in@input")
	assert.Equal(t, "topic", ex.Type)
	assert.False(t, ex.Durable)
	assert.True(t, ex.AutoDelete)
	assert.True(t, ex.Internal)
	assert.Equal(t, "abc", ex.Arguments["hash-header"])
	ex, _ = state.Exchanges.Get("exchange.out@output")
	assert.True(t, ex.Equal(models.DefaultExchange("fanout")))

	assert.Equal(t, []string{"queue-in@input", "queue-out@output"}, state.Queues.Keys())
	q, _ := state.Queues.Get("queue-in@input")
	assert.True(t, q.Durable)
	assert.EqualValues(t, 60000, q.Arguments["x-message-ttl"])
	assert.Equal(t, "exchange.out", q.Arguments["x-dead-letter-exchange"])
	q, _ = state.Queues.Get("queue-out@output")
	assert.Equal(t, models.Queue{AutoDelete: true, Arguments: models.Arguments{}}, q)

	bindings, ok := state.Bindings.Get("exchange.in@input")
	require.True(t, ok)
	require.Len(t, bindings, 2)
	assert.Equal(t, models.Binding{
		Destination:     "queue-in",
		DestinationType: models.DestinationQueue,
		RoutingKey:      models.RoutingKey("#"),
		Arguments:       models.Arguments{"foo": "bar"},
	}, bindings[0])
	assert.Equal(t, "exchange.audit", bindings[1].Destination)
	assert.Equal(t, models.DestinationExchange, bindings[1].DestinationType)
	assert.Equal(t, models.RoutingKey(""), bindings[1].RoutingKey)

	assert.Equal(t, 12, state.Size())
}

func TestLoad_YAML(t *testing.T) {
	state, err := Load(filepath.Join("testdata", "broker.yaml"))
	require.NoError(t, err)
	assertBrokerFixture(t, state)
}

func TestLoad_TOML(t *testing.T) {
	state, err := Load(filepath.Join("testdata", "broker.toml"))
	require.NoError(t, err)
	assertBrokerFixture(t, state)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "yaml", perr.Format)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidDestinationType(t *testing.T) {
	path := filepath.Join("testdata", "bad_destination.yaml")

	_, err := Load(path)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
	assert.ErrorContains(t, err, "invalid destination_type: stream, must be one of: queue,exchange")
}

func TestParseYAML_EmptyDocuments(t *testing.T) {
	for _, doc := range []string{"", "---\n", "~\n", "vhosts:\nqueues: {}\n"} {
		state, err := ParseYAML([]byte(doc))
		require.NoError(t, err, doc)
		assert.Zero(t, state.Size(), doc)
	}
}

func TestParseYAML_Defaults(t *testing.T) {
	doc := `
exchanges:
  events@orders: {type: direct}
queues:
  jobs@orders:
permissions:
  svc@orders: {read: "^$"}
`
	state, err := ParseYAML([]byte(doc))
	require.NoError(t, err)

	ex, _ := state.Exchanges.Get("events@orders")
	assert.True(t, ex.Durable)
	q, ok := state.Queues.Get("jobs@orders")
	require.True(t, ok)
	assert.True(t, q.Durable)
	p, _ := state.Permissions.Get("svc@orders")
	assert.Equal(t, models.Permissions{Configure: ".*", Write: ".*", Read: "^$"}, p)
}

func TestParseYAML_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "unknown_section", doc: "policies:\n  ha: {}\n", want: `line 1: unknown section "policies"`},
		{name: "root_not_mapping", doc: "- vhosts\n", want: "document root must be a mapping"},
		{name: "section_not_mapping", doc: "queues: [jobs]\n", want: `section "queues" must be a mapping`},
		{name: "unknown_field", doc: "queues:\n  jobs@orders: {durable: true, exclusive: true}\n", want: `queues "jobs@orders"`},
		{name: "wrong_type", doc: "vhosts:\n  orders: {tracing: maybe}\n", want: `vhosts "orders"`},
		{name: "bindings_not_list", doc: "bindings:\n  events@orders: {destination: jobs}\n", want: `bindings "events@orders"`},
		{name: "malformed", doc: "vhosts: {orders\n", want: "failed reading yaml configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "yaml", perr.Format)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseYAML_BindingRoutingKeyPresence(t *testing.T) {
	doc := `
bindings:
  events@orders:
    - {destination: jobs, destination_type: queue}
    - {destination: audit, destination_type: queue, routing_key: ""}
`
	state, err := ParseYAML([]byte(doc))
	require.NoError(t, err)

	bindings, _ := state.Bindings.Get("events@orders")
	require.Len(t, bindings, 2)
	assert.Nil(t, bindings[0].RoutingKey)
	require.NotNil(t, bindings[1].RoutingKey)
	assert.Empty(t, *bindings[1].RoutingKey)
}

func TestParseYAML_NestedArguments(t *testing.T) {
	doc := `
queues:
  jobs@orders:
    arguments:
      x-limits: {max: 10, tags: [a, b]}
`
	state, err := ParseYAML([]byte(doc))
	require.NoError(t, err)

	q, _ := state.Queues.Get("jobs@orders")
	limits, ok := q.Arguments["x-limits"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 10, limits["max"])
	assert.Equal(t, []any{"a", "b"}, limits["tags"])
}

func TestParseTOML_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "unknown_section", doc: "[policies.ha]\npattern = \".*\"\n", want: "unknown keys: policies"},
		{name: "unknown_field", doc: "[queues.\"jobs@orders\"]\nexclusive = true\n", want: "unknown keys"},
		{name: "invalid_destination", doc: "[[bindings.\"events@orders\"]]\ndestination = \"jobs\"\ndestination_type = \"stream\"\n", want: "invalid destination_type: stream"},
		{name: "malformed", doc: "[vhosts\n", want: "failed reading toml configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTOML([]byte(tt.doc))

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "toml", perr.Format)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseTOML_KeepsDeclarationOrder(t *testing.T) {
	doc := `
[queues.zeta]
[queues.alpha]
[queues.mid]
`
	state, err := ParseTOML([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, state.Queues.Keys())
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, "toml", formatFor("/etc/otterconf/broker.TOML"))
	assert.Equal(t, "yaml", formatFor("broker.yml"))
	assert.Equal(t, "yaml", formatFor("broker"))
}
