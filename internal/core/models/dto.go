package models

import (
	"encoding/json"
	"slices"
	"strings"
)

// The DTOs below mirror the JSON documents of the RabbitMQ management API.

const AdministratorTag = "administrator"

type VHostDTO struct {
	Name    string `json:"name"`
	Tracing bool   `json:"tracing"`
}

func (d VHostDTO) ToModel() VirtualHost {
	return VirtualHost{Tracing: d.Tracing}
}

// UserTags decodes both the legacy comma separated form ("administrator,monitoring")
// and the array form (["administrator", "monitoring"]).
type UserTags []string

func (t *UserTags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = nil
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			*t = append(*t, tag)
		}
	}
	return nil
}

func (t UserTags) Has(tag string) bool {
	return slices.Contains(t, tag)
}

type UserDTO struct {
	Name         string   `json:"name"`
	PasswordHash string   `json:"password_hash,omitempty"`
	Tags         UserTags `json:"tags"`
}

// ToModel drops the hash; observed users never carry a password.
func (d UserDTO) ToModel() User {
	return User{Admin: d.Tags.Has(AdministratorTag)}
}

type PermissionDTO struct {
	User      string `json:"user"`
	VHost     string `json:"vhost"`
	Configure string `json:"configure"`
	Write     string `json:"write"`
	Read      string `json:"read"`
}

func (d PermissionDTO) ToModel() Permissions {
	return Permissions{Configure: d.Configure, Write: d.Write, Read: d.Read}
}

type ExchangeDTO struct {
	// Identity
	VHost string `json:"vhost"`
	Name  string `json:"name"`
	Type  string `json:"type"`

	// Properties/flags
	Durable    bool           `json:"durable"`
	AutoDelete bool           `json:"auto_delete"`
	Internal   bool           `json:"internal"`
	Arguments  map[string]any `json:"arguments"`
}

func (d ExchangeDTO) ToModel() Exchange {
	return Exchange{
		Type:       d.Type,
		Durable:    d.Durable,
		AutoDelete: d.AutoDelete,
		Internal:   d.Internal,
		Arguments:  Arguments(d.Arguments).Clone(),
	}
}

type QueueDTO struct {
	// Identity
	VHost string `json:"vhost"`
	Name  string `json:"name"`

	// Properties/flags
	Durable    bool           `json:"durable"`
	AutoDelete bool           `json:"auto_delete"`
	Exclusive  bool           `json:"exclusive"`
	Arguments  map[string]any `json:"arguments"`

	// State
	State string `json:"state,omitempty"`
}

func (d QueueDTO) ToModel() Queue {
	return Queue{
		Durable:    d.Durable,
		AutoDelete: d.AutoDelete,
		Arguments:  Arguments(d.Arguments).Clone(),
	}
}

type BindingDTO struct {
	VHost           string         `json:"vhost"`
	Source          string         `json:"source"`
	Destination     string         `json:"destination"`
	DestinationType string         `json:"destination_type"`
	RoutingKey      string         `json:"routing_key"`
	Arguments       map[string]any `json:"arguments"`
	PropertiesKey   string         `json:"properties_key,omitempty"`
}

func (d BindingDTO) ToModel() Binding {
	return Binding{
		Destination:     d.Destination,
		DestinationType: DestinationType(d.DestinationType),
		RoutingKey:      RoutingKey(d.RoutingKey),
		Arguments:       Arguments(d.Arguments).Clone(),
	}
}
