// Package gateway gives the reconciler access to a broker's object inventory.
package gateway

import (
	"context"

	"github.com/ottermq/otterconf/internal/core/models"
)

// Credential authenticates a single broker operation.
type Credential struct {
	Username string
	Password string
}

// Pinger reports whether a broker endpoint is reachable.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// Gateway lists and creates broker objects. Vhost, user and permission
// operations run with the default credential; exchange, queue and binding
// operations take the credential to authenticate with, since the broker
// scopes their visibility by vhost permissions.
type Gateway interface {
	Pinger

	// DefaultCredential is the administrative credential the gateway was built with.
	DefaultCredential() Credential

	ListVirtualHosts(ctx context.Context) (map[string]models.VirtualHost, error)
	CreateVirtualHost(ctx context.Context, name string, vh models.VirtualHost) error

	// ListUsers returns users without passwords.
	ListUsers(ctx context.Context) (map[string]models.User, error)
	CreateUser(ctx context.Context, name string, u models.User) error

	// ListPermissions returns permissions keyed user@vhost.
	ListPermissions(ctx context.Context) (map[string]models.Permissions, error)
	CreatePermissions(ctx context.Context, user, vhost string, p models.Permissions) error

	GetExchange(ctx context.Context, cred Credential, vhost, name string) (models.Exchange, bool, error)
	CreateExchange(ctx context.Context, cred Credential, vhost, name string, e models.Exchange) error

	GetQueue(ctx context.Context, cred Credential, vhost, name string) (models.Queue, bool, error)
	CreateQueue(ctx context.Context, cred Credential, vhost, name string, q models.Queue) error

	// ListBindings returns the bindings of vhost grouped by source exchange.
	ListBindings(ctx context.Context, cred Credential, vhost string) (map[string][]models.Binding, error)
	CreateBinding(ctx context.Context, cred Credential, vhost, exchange string, b models.Binding) error
}
