// Package loader reads desired-state documents in YAML or TOML.
//
// A document has up to six top-level sections keyed by resource name:
//
//	vhosts:
//	  orders: {tracing: false}
//	users:
//	  svc: {password: secret, admin: false}
//	permissions:
//	  svc@orders: {configure: "orders\\..*", write: ".*", read: ".*"}
//	exchanges:
//	  events@orders: {type: topic, durable: true}
//	queues:
//	  jobs@orders: {durable: true, arguments: {x-message-ttl: 60000}}
//	bindings:
//	  events@orders:
//	    - {destination: jobs, destination_type: queue, routing_key: "jobs.#"}
//
// Entries keep the order in which they are declared. Omitted entries and
// fields take the broker defaults.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/rs/zerolog/log"
)

const (
	sectionVHosts      = "vhosts"
	sectionUsers       = "users"
	sectionPermissions = "permissions"
	sectionExchanges   = "exchanges"
	sectionQueues      = "queues"
	sectionBindings    = "bindings"
)

var knownSections = map[string]bool{
	sectionVHosts:      true,
	sectionUsers:       true,
	sectionPermissions: true,
	sectionExchanges:   true,
	sectionQueues:      true,
	sectionBindings:    true,
}

// ParseError reports a document that could not be read or decoded.
type ParseError struct {
	Path   string
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed reading %s configuration: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("failed reading %s configuration from %s: %v", e.Format, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the document at path. Files ending in .toml are decoded as
// TOML, anything else as YAML.
func Load(path string) (*models.DesiredState, error) {
	format := formatFor(path)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed reading configuration file")
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}

	var state *models.DesiredState
	if format == "toml" {
		state, err = ParseTOML(data)
	} else {
		state, err = ParseYAML(data)
	}
	if err != nil {
		if perr, ok := err.(*ParseError); ok {
			perr.Path = path
		}
		log.Error().Err(err).Msg("Failed reading configuration")
		return nil, err
	}
	log.Debug().Str("path", path).Int("objects", state.Size()).Msg("Configuration loaded")
	return state, nil
}

func formatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

/* Document shapes shared by both formats. Pointer fields default to true or ".*". */

type vhostDoc struct {
	Tracing bool `yaml:"tracing" toml:"tracing"`
}

func (d vhostDoc) model() models.VirtualHost {
	return models.VirtualHost{Tracing: d.Tracing}
}

type userDoc struct {
	Password string `yaml:"password" toml:"password"`
	Admin    bool   `yaml:"admin" toml:"admin"`
}

func (d userDoc) model() models.User {
	return models.User{Password: d.Password, Admin: d.Admin}
}

type permissionsDoc struct {
	Configure *string `yaml:"configure" toml:"configure"`
	Write     *string `yaml:"write" toml:"write"`
	Read      *string `yaml:"read" toml:"read"`
}

func patternOrDefault(p *string) string {
	if p == nil {
		return models.DefaultPermissionPattern
	}
	return *p
}

func (d permissionsDoc) model() models.Permissions {
	return models.Permissions{
		Configure: patternOrDefault(d.Configure),
		Write:     patternOrDefault(d.Write),
		Read:      patternOrDefault(d.Read),
	}
}

type exchangeDoc struct {
	Type       string         `yaml:"type" toml:"type"`
	Durable    *bool          `yaml:"durable" toml:"durable"`
	AutoDelete bool           `yaml:"auto_delete" toml:"auto_delete"`
	Internal   bool           `yaml:"internal" toml:"internal"`
	Arguments  map[string]any `yaml:"arguments" toml:"arguments"`
}

func (d exchangeDoc) model() models.Exchange {
	e := models.DefaultExchange(d.Type)
	if d.Durable != nil {
		e.Durable = *d.Durable
	}
	e.AutoDelete = d.AutoDelete
	e.Internal = d.Internal
	e.Arguments = models.NormalizeArguments(d.Arguments)
	return e
}

type queueDoc struct {
	Durable    *bool          `yaml:"durable" toml:"durable"`
	AutoDelete bool           `yaml:"auto_delete" toml:"auto_delete"`
	Arguments  map[string]any `yaml:"arguments" toml:"arguments"`
}

func (d queueDoc) model() models.Queue {
	q := models.DefaultQueue()
	if d.Durable != nil {
		q.Durable = *d.Durable
	}
	q.AutoDelete = d.AutoDelete
	q.Arguments = models.NormalizeArguments(d.Arguments)
	return q
}

type bindingDoc struct {
	Destination     string         `yaml:"destination" toml:"destination"`
	DestinationType string         `yaml:"destination_type" toml:"destination_type"`
	RoutingKey      *string        `yaml:"routing_key" toml:"routing_key"`
	Arguments       map[string]any `yaml:"arguments" toml:"arguments"`
}

// model normalizes a decoded binding; an unknown destination type is rejected
// here rather than when the binding is created. A missing routing_key stays
// nil and fails at creation.
func (d bindingDoc) model(owner string) (models.Binding, error) {
	destType, err := models.ParseDestinationType(d.DestinationType)
	if err != nil {
		return models.Binding{}, fmt.Errorf("bindings of %s: %w", owner, err)
	}
	return models.Binding{
		Destination:     d.Destination,
		DestinationType: destType,
		RoutingKey:      d.RoutingKey,
		Arguments:       models.NormalizeArguments(d.Arguments),
	}, nil
}
