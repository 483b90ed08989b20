package loader

import (
	"bytes"
	"fmt"

	"github.com/ottermq/otterconf/internal/core/models"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML document. An empty document yields an empty state.
func ParseYAML(data []byte) (*models.DesiredState, error) {
	state := models.NewDesiredState()

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, yamlError(err)
	}
	if len(root.Content) == 0 {
		return state, nil
	}
	doc := root.Content[0]
	if isNull(doc) {
		return state, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, yamlError(fmt.Errorf("line %d: document root must be a mapping", doc.Line))
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode, section := doc.Content[i], doc.Content[i+1]
		name := keyNode.Value
		if !knownSections[name] {
			return nil, yamlError(fmt.Errorf("line %d: unknown section %q", keyNode.Line, name))
		}
		if isNull(section) {
			continue
		}
		if section.Kind != yaml.MappingNode {
			return nil, yamlError(fmt.Errorf("line %d: section %q must be a mapping", section.Line, name))
		}
		if err := decodeYAMLSection(state, name, section); err != nil {
			return nil, yamlError(err)
		}
	}
	return state, nil
}

func decodeYAMLSection(state *models.DesiredState, section string, node *yaml.Node) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		var err error
		switch section {
		case sectionVHosts:
			var d vhostDoc
			if err = decodeYAMLEntry(value, &d); err == nil {
				state.VHosts.Set(key, d.model())
			}
		case sectionUsers:
			var d userDoc
			if err = decodeYAMLEntry(value, &d); err == nil {
				state.Users.Set(key, d.model())
			}
		case sectionPermissions:
			var d permissionsDoc
			if err = decodeYAMLEntry(value, &d); err == nil {
				state.Permissions.Set(key, d.model())
			}
		case sectionExchanges:
			var d exchangeDoc
			if err = decodeYAMLEntry(value, &d); err == nil {
				state.Exchanges.Set(key, d.model())
			}
		case sectionQueues:
			var d queueDoc
			if err = decodeYAMLEntry(value, &d); err == nil {
				state.Queues.Set(key, d.model())
			}
		case sectionBindings:
			var docs []bindingDoc
			if err = decodeYAMLEntry(value, &docs); err == nil {
				var bindings []models.Binding
				bindings, err = bindingModels(key, docs)
				if err == nil {
					state.Bindings.Set(key, bindings)
				}
			}
		}
		if err != nil {
			return fmt.Errorf("line %d: %s %q: %w", value.Line, section, key, err)
		}
	}
	return nil
}

// decodeYAMLEntry decodes a single entry, rejecting fields the target does not
// declare. yaml.Node.Decode has no strict mode, so the node is re-encoded and
// fed through a Decoder with KnownFields.
func decodeYAMLEntry(node *yaml.Node, out any) error {
	if isNull(node) {
		return nil
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func bindingModels(owner string, docs []bindingDoc) ([]models.Binding, error) {
	bindings := make([]models.Binding, 0, len(docs))
	for _, d := range docs {
		b, err := d.model(owner)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func yamlError(err error) *ParseError {
	return &ParseError{Format: "yaml", Err: err}
}
