package testutil

import (
	"context"
	"strings"

	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/ottermq/otterconf/internal/gateway"
)

// Call records one gateway invocation.
type Call struct {
	Op         string
	Key        string
	Credential gateway.Credential
}

// FakeGateway is an in-memory gateway.Gateway that records every call.
// Created objects become visible to later list/get calls.
type FakeGateway struct {
	Admin gateway.Credential
	Live  bool

	VHosts      map[string]models.VirtualHost
	Users       map[string]models.User
	Permissions map[string]models.Permissions
	Exchanges   map[string]models.Exchange // name@vhost
	Queues      map[string]models.Queue    // name@vhost
	Bindings    map[string]map[string][]models.Binding

	Calls []Call

	failures map[string]error
}

var _ gateway.Gateway = (*FakeGateway)(nil)

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Admin:       gateway.Credential{Username: "guest", Password: "guest"},
		Live:        true,
		VHosts:      make(map[string]models.VirtualHost),
		Users:       make(map[string]models.User),
		Permissions: make(map[string]models.Permissions),
		Exchanges:   make(map[string]models.Exchange),
		Queues:      make(map[string]models.Queue),
		Bindings:    make(map[string]map[string][]models.Binding),
		failures:    make(map[string]error),
	}
}

// Fail makes op return err. An empty key fails every call of op.
func (f *FakeGateway) Fail(op, key string, err error) {
	f.failures[op+" "+key] = err
}

// ResetCalls forgets recorded calls, keeping state.
func (f *FakeGateway) ResetCalls() {
	f.Calls = nil
}

// CallsFor returns the recorded calls of op.
func (f *FakeGateway) CallsFor(op string) []Call {
	var out []Call
	for _, c := range f.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// CreateCalls returns every recorded Create* call.
func (f *FakeGateway) CreateCalls() []Call {
	var out []Call
	for _, c := range f.Calls {
		if strings.HasPrefix(c.Op, "Create") {
			out = append(out, c)
		}
	}
	return out
}

// CallsWithKey returns every call made for key, whatever the operation.
func (f *FakeGateway) CallsWithKey(key string) []Call {
	var out []Call
	for _, c := range f.Calls {
		if c.Key == key {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeGateway) record(op, key string, cred gateway.Credential) error {
	f.Calls = append(f.Calls, Call{Op: op, Key: key, Credential: cred})
	if err, ok := f.failures[op+" "+key]; ok {
		return err
	}
	if err, ok := f.failures[op+" "]; ok {
		return err
	}
	return nil
}

func (f *FakeGateway) Ping(ctx context.Context) bool {
	_ = f.record("Ping", "", f.Admin)
	return f.Live
}

func (f *FakeGateway) DefaultCredential() gateway.Credential {
	return f.Admin
}

func (f *FakeGateway) ListVirtualHosts(ctx context.Context) (map[string]models.VirtualHost, error) {
	if err := f.record("ListVirtualHosts", "", f.Admin); err != nil {
		return nil, err
	}
	out := make(map[string]models.VirtualHost, len(f.VHosts))
	for k, v := range f.VHosts {
		out[k] = v
	}
	return out, nil
}

func (f *FakeGateway) CreateVirtualHost(ctx context.Context, name string, vh models.VirtualHost) error {
	if err := f.record("CreateVirtualHost", name, f.Admin); err != nil {
		return err
	}
	f.VHosts[name] = vh
	return nil
}

// ListUsers strips passwords like a real broker does.
func (f *FakeGateway) ListUsers(ctx context.Context) (map[string]models.User, error) {
	if err := f.record("ListUsers", "", f.Admin); err != nil {
		return nil, err
	}
	out := make(map[string]models.User, len(f.Users))
	for k, v := range f.Users {
		out[k] = models.User{Admin: v.Admin}
	}
	return out, nil
}

func (f *FakeGateway) CreateUser(ctx context.Context, name string, u models.User) error {
	if err := f.record("CreateUser", name, f.Admin); err != nil {
		return err
	}
	if u.Password == "" {
		return &gateway.MissingFieldError{Type: "User", Name: name, Field: "password"}
	}
	f.Users[name] = u
	return nil
}

func (f *FakeGateway) ListPermissions(ctx context.Context) (map[string]models.Permissions, error) {
	if err := f.record("ListPermissions", "", f.Admin); err != nil {
		return nil, err
	}
	out := make(map[string]models.Permissions, len(f.Permissions))
	for k, v := range f.Permissions {
		out[k] = v
	}
	return out, nil
}

func (f *FakeGateway) CreatePermissions(ctx context.Context, user, vhost string, p models.Permissions) error {
	key := models.ResourceKey(user, vhost)
	if err := f.record("CreatePermissions", key, f.Admin); err != nil {
		return err
	}
	f.Permissions[key] = p
	return nil
}

func (f *FakeGateway) GetExchange(ctx context.Context, cred gateway.Credential, vhost, name string) (models.Exchange, bool, error) {
	key := models.ResourceKey(name, vhost)
	if err := f.record("GetExchange", key, cred); err != nil {
		return models.Exchange{}, false, err
	}
	e, ok := f.Exchanges[key]
	return e, ok, nil
}

func (f *FakeGateway) CreateExchange(ctx context.Context, cred gateway.Credential, vhost, name string, e models.Exchange) error {
	key := models.ResourceKey(name, vhost)
	if err := f.record("CreateExchange", key, cred); err != nil {
		return err
	}
	if e.Type == "" {
		return &gateway.MissingFieldError{Type: "Exchange", Name: key, Field: "type"}
	}
	f.Exchanges[key] = e
	return nil
}

func (f *FakeGateway) GetQueue(ctx context.Context, cred gateway.Credential, vhost, name string) (models.Queue, bool, error) {
	key := models.ResourceKey(name, vhost)
	if err := f.record("GetQueue", key, cred); err != nil {
		return models.Queue{}, false, err
	}
	q, ok := f.Queues[key]
	return q, ok, nil
}

func (f *FakeGateway) CreateQueue(ctx context.Context, cred gateway.Credential, vhost, name string, q models.Queue) error {
	key := models.ResourceKey(name, vhost)
	if err := f.record("CreateQueue", key, cred); err != nil {
		return err
	}
	f.Queues[key] = q
	return nil
}

func (f *FakeGateway) ListBindings(ctx context.Context, cred gateway.Credential, vhost string) (map[string][]models.Binding, error) {
	if err := f.record("ListBindings", vhost, cred); err != nil {
		return nil, err
	}
	out := make(map[string][]models.Binding)
	for source, set := range f.Bindings[vhost] {
		out[source] = append([]models.Binding(nil), set...)
	}
	return out, nil
}

func (f *FakeGateway) CreateBinding(ctx context.Context, cred gateway.Credential, vhost, exchange string, b models.Binding) error {
	key := models.ResourceKey(exchange, vhost)
	if err := f.record("CreateBinding", key, cred); err != nil {
		return err
	}
	if b.Destination == "" {
		return &gateway.MissingFieldError{Type: "Binding", Name: key, Field: "destination"}
	}
	if b.DestinationType == "" {
		return &gateway.MissingFieldError{Type: "Binding", Name: key, Field: "destination_type"}
	}
	if b.DestinationType != models.DestinationQueue && b.DestinationType != models.DestinationExchange {
		return &gateway.DestinationTypeError{Exchange: exchange, VHost: vhost, Type: string(b.DestinationType)}
	}
	if b.RoutingKey == nil {
		return &gateway.MissingFieldError{Type: "Binding", Name: key, Field: "routing_key"}
	}
	if f.Bindings[vhost] == nil {
		f.Bindings[vhost] = make(map[string][]models.Binding)
	}
	f.Bindings[vhost][exchange] = append(f.Bindings[vhost][exchange], b)
	return nil
}
