package gateway

import (
	"context"
	"net/http"

	"github.com/ottermq/otterconf/internal/core/models"
)

func (c *Client) ListVirtualHosts(ctx context.Context) (map[string]models.VirtualHost, error) {
	var dtos []models.VHostDTO
	if err := c.getJSON(ctx, c.credential, apiPath("vhosts"), &dtos); err != nil {
		return nil, err
	}
	vhosts := make(map[string]models.VirtualHost, len(dtos))
	for _, dto := range dtos {
		vhosts[dto.Name] = dto.ToModel()
	}
	return vhosts, nil
}

func (c *Client) CreateVirtualHost(ctx context.Context, name string, vh models.VirtualHost) error {
	return c.send(ctx, c.credential, http.MethodPut, apiPath("vhosts", name),
		models.CreateVHostRequest{Tracing: vh.Tracing})
}

func (c *Client) ListUsers(ctx context.Context) (map[string]models.User, error) {
	var dtos []models.UserDTO
	if err := c.getJSON(ctx, c.credential, apiPath("users"), &dtos); err != nil {
		return nil, err
	}
	users := make(map[string]models.User, len(dtos))
	for _, dto := range dtos {
		users[dto.Name] = dto.ToModel()
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, name string, u models.User) error {
	if u.Password == "" {
		return &MissingFieldError{Type: "User", Name: name, Field: "password"}
	}
	return c.send(ctx, c.credential, http.MethodPut, apiPath("users", name), models.NewCreateUserRequest(u))
}

func (c *Client) ListPermissions(ctx context.Context) (map[string]models.Permissions, error) {
	var dtos []models.PermissionDTO
	if err := c.getJSON(ctx, c.credential, apiPath("permissions"), &dtos); err != nil {
		return nil, err
	}
	perms := make(map[string]models.Permissions, len(dtos))
	for _, dto := range dtos {
		perms[models.ResourceKey(dto.User, dto.VHost)] = dto.ToModel()
	}
	return perms, nil
}

func (c *Client) CreatePermissions(ctx context.Context, user, vhost string, p models.Permissions) error {
	return c.send(ctx, c.credential, http.MethodPut, apiPath("permissions", vhost, user),
		models.SetPermissionsRequest{Configure: p.Configure, Write: p.Write, Read: p.Read})
}

func (c *Client) GetExchange(ctx context.Context, cred Credential, vhost, name string) (models.Exchange, bool, error) {
	var dto models.ExchangeDTO
	found, err := c.getOptionalJSON(ctx, cred, apiPath("exchanges", vhost, name), &dto)
	if err != nil || !found {
		return models.Exchange{}, false, err
	}
	return dto.ToModel(), true, nil
}

func (c *Client) CreateExchange(ctx context.Context, cred Credential, vhost, name string, e models.Exchange) error {
	if e.Type == "" {
		return &MissingFieldError{Type: "Exchange", Name: models.ResourceKey(name, vhost), Field: "type"}
	}
	return c.send(ctx, cred, http.MethodPut, apiPath("exchanges", vhost, name), models.CreateExchangeRequest{
		ExchangeType: e.Type,
		Durable:      e.Durable,
		AutoDelete:   e.AutoDelete,
		Internal:     e.Internal,
		Arguments:    e.Arguments.Clone(),
	})
}

func (c *Client) GetQueue(ctx context.Context, cred Credential, vhost, name string) (models.Queue, bool, error) {
	var dto models.QueueDTO
	found, err := c.getOptionalJSON(ctx, cred, apiPath("queues", vhost, name), &dto)
	if err != nil || !found {
		return models.Queue{}, false, err
	}
	return dto.ToModel(), true, nil
}

func (c *Client) CreateQueue(ctx context.Context, cred Credential, vhost, name string, q models.Queue) error {
	return c.send(ctx, cred, http.MethodPut, apiPath("queues", vhost, name), models.CreateQueueRequest{
		Durable:    q.Durable,
		AutoDelete: q.AutoDelete,
		Arguments:  q.Arguments.Clone(),
	})
}

// ListBindings reports no bindings for a vhost the broker does not know yet.
func (c *Client) ListBindings(ctx context.Context, cred Credential, vhost string) (map[string][]models.Binding, error) {
	var dtos []models.BindingDTO
	found, err := c.getOptionalJSON(ctx, cred, apiPath("bindings", vhost), &dtos)
	if err != nil {
		return nil, err
	}
	bindings := make(map[string][]models.Binding)
	if !found {
		return bindings, nil
	}
	for _, dto := range dtos {
		bindings[dto.Source] = append(bindings[dto.Source], dto.ToModel())
	}
	return bindings, nil
}

func (c *Client) CreateBinding(ctx context.Context, cred Credential, vhost, exchange string, b models.Binding) error {
	key := models.ResourceKey(exchange, vhost)
	if b.Destination == "" {
		return &MissingFieldError{Type: "Binding", Name: key, Field: "destination"}
	}
	var destSegment string
	switch b.DestinationType {
	case models.DestinationQueue:
		destSegment = "q"
	case models.DestinationExchange:
		destSegment = "e"
	case "":
		return &MissingFieldError{Type: "Binding", Name: key, Field: "destination_type"}
	default:
		return &DestinationTypeError{Exchange: exchange, VHost: vhost, Type: string(b.DestinationType)}
	}
	if b.RoutingKey == nil {
		return &MissingFieldError{Type: "Binding", Name: key, Field: "routing_key"}
	}
	return c.send(ctx, cred, http.MethodPost, apiPath("bindings", vhost, "e", exchange, destSegment, b.Destination),
		models.CreateBindingRequest{RoutingKey: *b.RoutingKey, Arguments: b.Arguments.Clone()})
}
