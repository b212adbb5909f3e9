package codec

import (
	"fmt"

	"github.com/specialistvlad/bundlegrid/internal/model"
	"sigs.k8s.io/yaml"
)

// YAML is the codec for .yaml and .yml files. Documents go through their JSON
// form so both encodings produce identical in-memory values.
type YAML struct{}

func (YAML) Name() string         { return "yaml" }
func (YAML) Extensions() []string { return []string{".yaml", ".yml"} }

func (YAML) Decode(data []byte) (model.Document, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	return decodeJSON(js)
}

func (YAML) Encode(doc model.Document) ([]byte, error) {
	js, err := JSON{}.Encode(doc)
	if err != nil {
		return nil, err
	}
	out, err := yaml.JSONToYAML(js)
	if err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return out, nil
}
