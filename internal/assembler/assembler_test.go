package assembler

import (
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resource(typ, id, path string) *model.SourceResource {
	doc := model.Document{"resourceType": typ}
	if id != "" {
		doc["id"] = id
	}
	return &model.SourceResource{ResourceType: typ, ID: id, Name: id, SourcePath: path, Document: doc}
}

// closure builds a result for Measure/A with libraries, terminology and a
// fixture.
func closure() *model.ResolutionResult {
	a := resource(model.TypeMeasure, "A", "/src/measure/A.json")
	res := model.NewResolutionResult(a)
	res.Add(a)

	main := resource(model.TypeLibrary, "Main", "/src/library/Main.json")
	common := resource(model.TypeLibrary, "Common", "/src/library/Common.json")
	helpers := resource(model.TypeLibrary, "Helpers", "/src/library/Helpers.json")
	for _, r := range []*model.SourceResource{
		main, common, helpers,
		resource(model.TypeValueSet, "vs-b", "/src/valueset/b.json"),
		resource(model.TypeValueSet, "vs-a", "/src/valueset/a.json"),
		resource(model.TypeCodeSystem, "cs", "/src/codesystem/cs.json"),
	} {
		res.Add(r)
	}
	res.PrimaryLibrary = main
	res.Order = []string{"Library/Helpers", "Library/Common", "Library/Main"}

	fixture := resource("Patient", "", "/src/tests/measure/A/p1.json")
	res.Add(fixture)
	res.Fixtures = []*model.SourceResource{fixture}
	return res
}

func TestAssemble_EntryOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	res := closure()

	// --- Act ---
	b, err := New().Assemble(res, Options{})
	require.NoError(t, err)

	// --- Assert ---
	var got []string
	for _, e := range b.Entries {
		got = append(got, e.ResourceType+"/"+e.ID)
	}
	assert.Equal(t, []string{
		"Measure/A",
		"Library/Main",
		"Library/Helpers",
		"Library/Common",
		"ValueSet/vs-a",
		"ValueSet/vs-b",
		"CodeSystem/cs",
		"Patient/" + SyntheticID("A", "/src/tests/measure/A/p1.json"),
	}, got)
	assert.Equal(t, "A-bundle", b.ID)
	assert.Equal(t, "A", b.ArtifactName)
	assert.Nil(t, b.Timestamp)
}

func TestAssemble_IsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := New().Assemble(closure(), Options{})
	require.NoError(t, err)
	second, err := New().Assemble(closure(), Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Document(), second.Document())
}

func TestAssemble_SyntheticIDs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	res := closure()
	fixture := res.Fixtures[0]

	// --- Act ---
	b, err := New().Assemble(res, Options{})
	require.NoError(t, err)

	// --- Assert ---
	last := b.Entries[len(b.Entries)-1]
	assert.Regexp(t, `^A-[0-9a-f]{12}$`, last.ID)
	assert.Equal(t, last.ID, last.Resource["id"])
	_, touched := fixture.Document["id"]
	assert.False(t, touched, "the source document must not be modified")
	assert.Equal(t, "Main", b.Entries[1].ID, "existing ids are never reassigned")

	assert.Equal(t, SyntheticID("A", "/x.json"), SyntheticID("A", "/x.json"))
	assert.NotEqual(t, SyntheticID("A", "/x.json"), SyntheticID("A", "/y.json"))
}

func TestAssemble_ContainerOptions(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	opts := Options{
		AddTimestamp: true,
		Identifier:   model.ParseIdentifier("urn:ietf:rfc:3986|urn:uuid:1234"),
		Now:          func() time.Time { return fixed },
	}

	// --- Act ---
	b, err := New().Assemble(closure(), opts)
	require.NoError(t, err)
	doc := b.Document()

	// --- Assert ---
	assert.Equal(t, "2025-03-01T11:00:00Z", doc["timestamp"])
	assert.Equal(t, map[string]any{"system": "urn:ietf:rfc:3986", "value": "urn:uuid:1234"}, doc["identifier"])
	assert.Equal(t, "transaction", doc["type"])
	entries := doc["entry"].([]any)
	first := entries[0].(map[string]any)
	assert.Equal(t, map[string]any{"method": "PUT", "url": "Measure/A"}, first["request"])
}

func TestAssemble_Rejects(t *testing.T) {
	t.Parallel()

	t.Run("missing references", func(t *testing.T) {
		res := closure()
		res.AddMissing("http://example.org/fhir/Library/Nope")
		_, err := New().Assemble(res, Options{})
		assert.ErrorContains(t, err, "Library/Nope")
	})

	t.Run("resolution error", func(t *testing.T) {
		res := closure()
		sentinel := errors.New("bad primary")
		res.Err = sentinel
		_, err := New().Assemble(res, Options{})
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("no artifact", func(t *testing.T) {
		_, err := New().Assemble(model.NewResolutionResult(nil), Options{})
		assert.Error(t, err)
	})
}
