package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ottermq/otterconf/internal/core/models"
)

// tomlDocument mirrors the YAML layout. Keys containing dots or @ must be
// quoted, e.g. [exchanges."events@orders"].
type tomlDocument struct {
	VHosts      map[string]vhostDoc       `toml:"vhosts"`
	Users       map[string]userDoc        `toml:"users"`
	Permissions map[string]permissionsDoc `toml:"permissions"`
	Exchanges   map[string]exchangeDoc    `toml:"exchanges"`
	Queues      map[string]queueDoc       `toml:"queues"`
	Bindings    map[string][]bindingDoc   `toml:"bindings"`
}

// ParseTOML decodes a TOML document. Unknown sections or fields are rejected.
func ParseTOML(data []byte) (*models.DesiredState, error) {
	var doc tomlDocument
	meta, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, tomlError(err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, tomlError(fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")))
	}

	order := declarationOrder(meta)
	state := models.NewDesiredState()

	for _, key := range orderedKeys(order[sectionVHosts], doc.VHosts) {
		state.VHosts.Set(key, doc.VHosts[key].model())
	}
	for _, key := range orderedKeys(order[sectionUsers], doc.Users) {
		state.Users.Set(key, doc.Users[key].model())
	}
	for _, key := range orderedKeys(order[sectionPermissions], doc.Permissions) {
		state.Permissions.Set(key, doc.Permissions[key].model())
	}
	for _, key := range orderedKeys(order[sectionExchanges], doc.Exchanges) {
		state.Exchanges.Set(key, doc.Exchanges[key].model())
	}
	for _, key := range orderedKeys(order[sectionQueues], doc.Queues) {
		state.Queues.Set(key, doc.Queues[key].model())
	}
	for _, key := range orderedKeys(order[sectionBindings], doc.Bindings) {
		bindings, err := bindingModels(key, doc.Bindings[key])
		if err != nil {
			return nil, tomlError(fmt.Errorf("bindings %q: %w", key, err))
		}
		state.Bindings.Set(key, bindings)
	}
	return state, nil
}

// declarationOrder collects the entry names of each section in the order
// they first appear in the document.
func declarationOrder(meta toml.MetaData) map[string][]string {
	order := make(map[string][]string)
	seen := make(map[string]bool)
	for _, k := range meta.Keys() {
		if len(k) < 2 {
			continue
		}
		id := k[0] + "\x00" + k[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		order[k[0]] = append(order[k[0]], k[1])
	}
	return order
}

// orderedKeys returns the keys of m following order, with anything order
// missed appended in sorted order.
func orderedKeys[T any](order []string, m map[string]T) []string {
	keys := make([]string, 0, len(m))
	used := make(map[string]bool, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok && !used[k] {
			keys = append(keys, k)
			used[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func tomlError(err error) *ParseError {
	return &ParseError{Format: "toml", Err: err}
}
