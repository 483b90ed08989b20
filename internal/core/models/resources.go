package models

import "fmt"

// VirtualHost is the declared or observed state of a vhost.
type VirtualHost struct {
	Tracing bool
}

func (v VirtualHost) Equal(o VirtualHost) bool {
	return v == o
}

func (v VirtualHost) String() string {
	return fmt.Sprintf("{tracing=%t}", v.Tracing)
}

// User is the declared or observed state of a broker user. The broker only
// exposes password hashes, so observed users carry an empty Password.
type User struct {
	Password string
	Admin    bool
}

func (u User) Equal(o User) bool {
	return u == o
}

// String never includes the password.
func (u User) String() string {
	return fmt.Sprintf("{admin=%t}", u.Admin)
}

const DefaultPermissionPattern = ".*"

// Permissions are the configure/write/read patterns of a user in a vhost.
type Permissions struct {
	Configure string
	Write     string
	Read      string
}

// DefaultPermissions grants everything.
func DefaultPermissions() Permissions {
	return Permissions{
		Configure: DefaultPermissionPattern,
		Write:     DefaultPermissionPattern,
		Read:      DefaultPermissionPattern,
	}
}

func (p Permissions) Equal(o Permissions) bool {
	return p == o
}

func (p Permissions) String() string {
	return fmt.Sprintf("{configure=%q write=%q read=%q}", p.Configure, p.Write, p.Read)
}

// Exchange is the declared or observed state of an exchange.
type Exchange struct {
	Type       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	Arguments  Arguments
}

// DefaultExchange returns an exchange of the given type with broker defaults.
func DefaultExchange(typ string) Exchange {
	return Exchange{Type: typ, Durable: true, Arguments: Arguments{}}
}

func (e Exchange) Equal(o Exchange) bool {
	return e.Type == o.Type &&
		e.Durable == o.Durable &&
		e.AutoDelete == o.AutoDelete &&
		e.Internal == o.Internal &&
		e.Arguments.Equal(o.Arguments)
}

func (e Exchange) String() string {
	return fmt.Sprintf("{type=%s durable=%t auto_delete=%t internal=%t arguments=%s}",
		e.Type, e.Durable, e.AutoDelete, e.Internal, e.Arguments)
}

// Queue is the declared or observed state of a queue.
type Queue struct {
	Durable    bool
	AutoDelete bool
	Arguments  Arguments
}

// DefaultQueue returns a durable, non auto-delete queue.
func DefaultQueue() Queue {
	return Queue{Durable: true, Arguments: Arguments{}}
}

func (q Queue) Equal(o Queue) bool {
	return q.Durable == o.Durable &&
		q.AutoDelete == o.AutoDelete &&
		q.Arguments.Equal(o.Arguments)
}

func (q Queue) String() string {
	return fmt.Sprintf("{durable=%t auto_delete=%t arguments=%s}", q.Durable, q.AutoDelete, q.Arguments)
}

// DestinationType tells whether a binding routes to a queue or to another exchange.
type DestinationType string

const (
	DestinationQueue    DestinationType = "queue"
	DestinationExchange DestinationType = "exchange"
)

// ParseDestinationType accepts "queue" and "exchange". The empty string is
// returned unchanged so that a missing type surfaces when the binding is created.
func ParseDestinationType(s string) (DestinationType, error) {
	switch DestinationType(s) {
	case DestinationQueue, DestinationExchange, "":
		return DestinationType(s), nil
	default:
		return "", fmt.Errorf("invalid destination_type: %s, must be one of: %s,%s", s, DestinationQueue, DestinationExchange)
	}
}

// Binding routes messages from its owning exchange to a destination.
// A nil RoutingKey means the declaration left it out; the empty key is a
// valid, distinct value.
type Binding struct {
	Destination     string
	DestinationType DestinationType
	RoutingKey      *string
	Arguments       Arguments
}

// RoutingKey returns a routing key for a Binding literal.
func RoutingKey(key string) *string {
	return &key
}

func (b Binding) Equal(o Binding) bool {
	return b.Destination == o.Destination &&
		b.DestinationType == o.DestinationType &&
		sameRoutingKey(b.RoutingKey, o.RoutingKey) &&
		b.Arguments.Equal(o.Arguments)
}

func sameRoutingKey(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (b Binding) String() string {
	routingKey := "<unset>"
	if b.RoutingKey != nil {
		routingKey = fmt.Sprintf("%q", *b.RoutingKey)
	}
	return fmt.Sprintf("{destination=%s destination_type=%s routing_key=%s arguments=%s}",
		b.Destination, b.DestinationType, routingKey, b.Arguments)
}

// ContainsBinding reports whether set holds a binding equal to b.
func ContainsBinding(set []Binding, b Binding) bool {
	for _, candidate := range set {
		if candidate.Equal(b) {
			return true
		}
	}
	return false
}
