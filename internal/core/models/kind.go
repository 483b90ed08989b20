package models

import (
	"fmt"
	"strings"
)

// Kind identifies one of the resource kinds managed by otterconf.
type Kind string

const (
	KindVHost       Kind = "vhost"
	KindUser        Kind = "user"
	KindPermissions Kind = "permissions"
	KindExchange    Kind = "exchange"
	KindQueue       Kind = "queue"
	KindBinding     Kind = "binding"
)

// Kinds lists every kind in reconciliation order.
var Kinds = []Kind{KindVHost, KindUser, KindPermissions, KindExchange, KindQueue, KindBinding}

// KeyError reports a resource key that is not of the form name@vhost.
type KeyError struct {
	Kind Kind
	Key  string
}

func (e *KeyError) Error() string {
	owner := string(e.Kind)
	if e.Kind == KindPermissions {
		owner = "user"
	}
	if e.Kind == KindBinding {
		owner = "exchange"
	}
	return fmt.Sprintf("invalid %s key '%s', should be %s@vhost", e.Kind, e.Key, owner)
}

// ParseResourceKey splits a vhost-scoped key into its name and vhost parts.
// Exactly one '@' with a non-empty value on each side is accepted.
func ParseResourceKey(kind Kind, key string) (name, vhost string, err error) {
	if strings.Count(key, "@") != 1 {
		return "", "", &KeyError{Kind: kind, Key: key}
	}
	name, vhost, _ = strings.Cut(key, "@")
	if name == "" || vhost == "" {
		return "", "", &KeyError{Kind: kind, Key: key}
	}
	return name, vhost, nil
}

// ResourceKey joins a name and vhost into a vhost-scoped key.
func ResourceKey(name, vhost string) string {
	return name + "@" + vhost
}
