package testutil

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// BaseURL prefixes every canonical built by the helpers below.
const BaseURL = "http://example.org/fhir"

// WriteFiles writes files (relative path -> content) under root, creating
// directories as needed.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// JSON marshals v, failing the test on error.
func JSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// Canonical builds BaseURL/<type>/<id>, with |version when given.
func Canonical(resourceType, id, version string) string {
	u := BaseURL + "/" + resourceType + "/" + id
	if version != "" {
		u += "|" + version
	}
	return u
}

// Library builds an R4 Library whose relatedArtifact depends on deps.
func Library(id, version string, deps ...string) map[string]any {
	doc := map[string]any{
		"resourceType": "Library",
		"id":           id,
		"name":         id,
		"url":          BaseURL + "/Library/" + id,
	}
	if version != "" {
		doc["version"] = version
	}
	if len(deps) > 0 {
		related := make([]any, 0, len(deps))
		for _, d := range deps {
			related = append(related, map[string]any{"type": "depends-on", "resource": d})
		}
		doc["relatedArtifact"] = related
	}
	return doc
}

// WithContent attaches base64 content with the given media type.
func WithContent(doc map[string]any, contentType, data string) map[string]any {
	content, _ := doc["content"].([]any)
	doc["content"] = append(content, map[string]any{
		"contentType": contentType,
		"data":        base64.StdEncoding.EncodeToString([]byte(data)),
	})
	return doc
}

// Measure builds an R4 Measure whose library list is libraries.
func Measure(id string, libraries ...string) map[string]any {
	libs := make([]any, 0, len(libraries))
	for _, l := range libraries {
		libs = append(libs, l)
	}
	return map[string]any{
		"resourceType": "Measure",
		"id":           id,
		"name":         id,
		"url":          BaseURL + "/Measure/" + id,
		"library":      libs,
	}
}

// ValueSet builds an R4 ValueSet that includes the nested value sets.
func ValueSet(id string, nested ...string) map[string]any {
	doc := map[string]any{
		"resourceType": "ValueSet",
		"id":           id,
		"url":          BaseURL + "/ValueSet/" + id,
	}
	if len(nested) > 0 {
		vs := make([]any, 0, len(nested))
		for _, n := range nested {
			vs = append(vs, n)
		}
		doc["compose"] = map[string]any{"include": []any{map[string]any{"valueSet": vs}}}
	}
	return doc
}
