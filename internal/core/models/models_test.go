package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceKey(t *testing.T) {
	name, vhost, err := ParseResourceKey(KindExchange, "exchange.in@input")
	require.NoError(t, err)
	assert.Equal(t, "exchange.in", name)
	assert.Equal(t, "input", vhost)

	invalid := []string{"exchange-no-vhost", "a@b@c", "@vhost", "name@", "@", ""}
	for _, key := range invalid {
		t.Run(key, func(t *testing.T) {
			_, _, err := ParseResourceKey(KindExchange, key)
			var keyErr *KeyError
			require.ErrorAs(t, err, &keyErr)
			assert.Equal(t, key, keyErr.Key)
		})
	}
}

func TestKeyErrorMessage(t *testing.T) {
	err := &KeyError{Kind: KindPermissions, Key: "dan"}
	assert.Equal(t, "invalid permissions key 'dan', should be user@vhost", err.Error())

	err = &KeyError{Kind: KindBinding, Key: "ex"}
	assert.Equal(t, "invalid binding key 'ex', should be exchange@vhost", err.Error())
}

func TestArgumentsEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Arguments
		equal bool
	}{
		{"nil and empty", nil, Arguments{}, true},
		{"int and float", Arguments{"x-message-ttl": 123}, Arguments{"x-message-ttl": float64(123)}, true},
		{"insertion order", Arguments{"a": "1", "b": "2"}, Arguments{"b": "2", "a": "1"}, true},
		{"different value", Arguments{"a": "1"}, Arguments{"a": "2"}, false},
		{"extra key", Arguments{"a": "1"}, Arguments{"a": "1", "b": "2"}, false},
		{"nested", Arguments{"h": map[string]any{"k": 1}}, Arguments{"h": map[string]any{"k": float64(1)}}, true},
		{"int beyond float precision", Arguments{"x-max-length-bytes": int64(1<<53 + 1)}, Arguments{"x-max-length-bytes": float64(1 << 53)}, true},
		{"int64 and uint64", Arguments{"x-max-length": int64(10)}, Arguments{"x-max-length": uint64(10)}, true},
		{"large ints that differ", Arguments{"x-max-length-bytes": int64(1 << 60)}, Arguments{"x-max-length-bytes": float64(1 << 61)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.b.Equal(tt.a))
		})
	}
}

func TestNormalizeArguments(t *testing.T) {
	args := NormalizeArguments(map[string]any{
		"nested": map[any]any{1: "one"},
		"list":   []any{map[any]any{"k": "v"}},
	})
	_, err := json.Marshal(args)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": "one"}, args["nested"])
}

func TestResourceEquality(t *testing.T) {
	ex := DefaultExchange("topic")
	other := DefaultExchange("topic")
	other.Arguments = nil
	assert.True(t, ex.Equal(other))

	other.Durable = false
	assert.False(t, ex.Equal(other))

	q := DefaultQueue()
	assert.True(t, q.Equal(Queue{Durable: true}))
	assert.False(t, q.Equal(Queue{Durable: true, Arguments: Arguments{"x-max-length": 10}}))

	assert.True(t, User{Password: "secret", Admin: true}.Equal(User{Password: "secret", Admin: true}))
	assert.False(t, User{Password: "secret"}.Equal(User{}))
	assert.Equal(t, Permissions{".*", ".*", ".*"}, DefaultPermissions())
}

func TestUserStringHidesPassword(t *testing.T) {
	assert.NotContains(t, User{Password: "hunter2", Admin: true}.String(), "hunter2")
}

func TestContainsBinding(t *testing.T) {
	set := []Binding{
		{Destination: "q1", DestinationType: DestinationQueue, RoutingKey: RoutingKey("#")},
		{Destination: "ex2", DestinationType: DestinationExchange, RoutingKey: RoutingKey(""), Arguments: Arguments{"x": 1}},
	}
	assert.True(t, ContainsBinding(set, Binding{Destination: "q1", DestinationType: DestinationQueue, RoutingKey: RoutingKey("#"), Arguments: Arguments{}}))
	assert.True(t, ContainsBinding(set, Binding{Destination: "ex2", DestinationType: DestinationExchange, RoutingKey: RoutingKey(""), Arguments: Arguments{"x": float64(1)}}))
	// an unset routing key never matches the empty one
	assert.False(t, ContainsBinding(set, Binding{Destination: "ex2", DestinationType: DestinationExchange, Arguments: Arguments{"x": 1}}))
	assert.False(t, ContainsBinding(set, Binding{Destination: "q1", DestinationType: DestinationQueue, RoutingKey: RoutingKey("a.b")}))
	assert.False(t, ContainsBinding(nil, set[0]))
}

func TestParseDestinationType(t *testing.T) {
	typ, err := ParseDestinationType("queue")
	require.NoError(t, err)
	assert.Equal(t, DestinationQueue, typ)

	typ, err = ParseDestinationType("")
	require.NoError(t, err)
	assert.Equal(t, DestinationType(""), typ)

	_, err = ParseDestinationType("topic")
	assert.Error(t, err)
}

func TestDeclaredKeepsOrder(t *testing.T) {
	var d Declared[int]
	d.Set("c", 1)
	d.Set("a", 2)
	d.Set("b", 3)
	d.Set("c", 4)

	assert.Equal(t, []string{"c", "a", "b"}, d.Keys())
	v, ok := d.Get("c")
	require.True(t, ok)
	assert.Equal(t, 4, v)

	var seen []string
	d.Each(func(k string, _ int) { seen = append(seen, k) })
	assert.Equal(t, d.Keys(), seen)
}

func TestDesiredStateBuilders(t *testing.T) {
	s := NewDesiredState().
		AddVHost("input", VirtualHost{Tracing: true}).
		AddUser("dan", User{Password: "torrance", Admin: true}).
		AddPermissions("dan", "input", DefaultPermissions()).
		AddExchange("exchange.in", "input", DefaultExchange("topic")).
		AddQueue("queue-in", "input", DefaultQueue()).
		AddBinding("exchange.in", "input", Binding{Destination: "queue-in", DestinationType: DestinationQueue, RoutingKey: RoutingKey("#")}).
		AddBinding("exchange.in", "input", Binding{Destination: "other", DestinationType: DestinationQueue})

	assert.Equal(t, 7, s.Size())
	_, ok := s.Permissions.Get("dan@input")
	assert.True(t, ok)
	bindings, _ := s.Bindings.Get("exchange.in@input")
	assert.Len(t, bindings, 2)
}

func TestUserTagsDecoding(t *testing.T) {
	var fromString UserDTO
	require.NoError(t, json.Unmarshal([]byte(`{"name":"dan","tags":"administrator,monitoring"}`), &fromString))
	assert.True(t, fromString.ToModel().Admin)

	var fromList UserDTO
	require.NoError(t, json.Unmarshal([]byte(`{"name":"jack","tags":["monitoring"]}`), &fromList))
	assert.False(t, fromList.ToModel().Admin)
	assert.Equal(t, UserTags{"monitoring"}, fromList.Tags)

	var empty UserDTO
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","tags":""}`), &empty))
	assert.Empty(t, empty.Tags)
}

func TestCreateUserRequest(t *testing.T) {
	req := NewCreateUserRequest(User{Password: "p", Admin: true})
	assert.Equal(t, "administrator", req.Tags)
	assert.True(t, req.TagList().Has(AdministratorTag))
	assert.Empty(t, NewCreateUserRequest(User{Password: "p"}).Tags)
}
