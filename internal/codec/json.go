package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/specialistvlad/bundlegrid/internal/model"
)

// JSON is the codec for .json files.
type JSON struct{}

func (JSON) Name() string         { return "json" }
func (JSON) Extensions() []string { return []string{".json"} }

// Decode parses a JSON object, keeping numbers as json.Number.
func (JSON) Decode(data []byte) (model.Document, error) {
	return decodeJSON(data)
}

// Encode writes indented JSON. Object keys are sorted by encoding/json, so the
// output is stable for equal documents.
func (JSON) Encode(doc model.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any(doc)); err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeJSON(data []byte) (model.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document is not an object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected trailing data after document")
	}
	return model.Document(doc), nil
}
