package models

import "strings"

// Request bodies sent to the management API when creating objects.

type CreateVHostRequest struct {
	Tracing bool `json:"tracing"`
}

type CreateUserRequest struct {
	Password string `json:"password"`
	Tags     string `json:"tags"`
}

func NewCreateUserRequest(u User) CreateUserRequest {
	req := CreateUserRequest{Password: u.Password}
	if u.Admin {
		req.Tags = AdministratorTag
	}
	return req
}

// TagList splits Tags back into individual tags.
func (r CreateUserRequest) TagList() UserTags {
	var tags UserTags
	for _, tag := range strings.Split(r.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

type SetPermissionsRequest struct {
	Configure string `json:"configure"`
	Write     string `json:"write"`
	Read      string `json:"read"`
}

type CreateExchangeRequest struct {
	ExchangeType string         `json:"type"`
	Durable      bool           `json:"durable"`
	AutoDelete   bool           `json:"auto_delete"`
	Internal     bool           `json:"internal"`
	Arguments    map[string]any `json:"arguments"`
}

type CreateQueueRequest struct {
	Durable    bool           `json:"durable"`
	AutoDelete bool           `json:"auto_delete"`
	Arguments  map[string]any `json:"arguments"`
}

type CreateBindingRequest struct {
	RoutingKey string         `json:"routing_key"`
	Arguments  map[string]any `json:"arguments"`
}
