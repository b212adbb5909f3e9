package codec

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	r := Default()

	c, ok := r.ForPath("/src/library/Common.JSON")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = r.ForPath("vs.yml")
	require.True(t, ok)
	assert.Equal(t, "yaml", c.Name())

	_, ok = r.ForPath("notes.txt")
	assert.False(t, ok)

	_, err := r.ByName("xml")
	assert.ErrorContains(t, err, "unknown encoding")
	assert.Equal(t, []string{"json", "yaml"}, r.Names())
	assert.Equal(t, []string{".json", ".yaml", ".yml"}, r.Extensions())
}

func TestJSON_DecodeKeepsNumbersVerbatim(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	input := []byte(`{"resourceType":"Library","id":"L","score":1.50}`)

	// --- Act ---
	doc, err := JSON{}.Decode(input)
	require.NoError(t, err)
	out, err := JSON{}.Encode(doc)
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, json.Number("1.50"), doc["score"])
	assert.Contains(t, string(out), `"score": 1.50`)
}

func TestJSON_DecodeErrors(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"not json":      `{"a":`,
		"array":         `[1,2]`,
		"null":          `null`,
		"trailing data": `{"a":1} {"b":2}`,
	}
	for name, input := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := JSON{}.Decode([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestJSON_EncodeIsStable(t *testing.T) {
	t.Parallel()

	doc, err := JSON{}.Decode([]byte(`{"z":1,"a":{"y":2,"b":3}}`))
	require.NoError(t, err)

	first, err := JSON{}.Encode(doc)
	require.NoError(t, err)
	second, err := JSON{}.Encode(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Less(t, strings.Index(string(first), `"a"`), strings.Index(string(first), `"z"`))
}

func TestYAML_DecodeMatchesJSON(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	yamlInput := []byte("resourceType: ValueSet\nid: vs1\ncompose:\n  include:\n    - system: http://loinc.org\n")
	jsonInput := []byte(`{"resourceType":"ValueSet","id":"vs1","compose":{"include":[{"system":"http://loinc.org"}]}}`)

	// --- Act ---
	fromYAML, err := YAML{}.Decode(yamlInput)
	require.NoError(t, err)
	fromJSON, err := JSON{}.Decode(jsonInput)
	require.NoError(t, err)
	encoded, err := YAML{}.Encode(fromJSON)
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, fromJSON, fromYAML)
	assert.Contains(t, string(encoded), "resourceType: ValueSet")
}
