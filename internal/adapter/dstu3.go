package adapter

import (
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// dstu3 reads references from Reference objects rather than canonical
// strings, and value sets from the valueSet[x] choice on code filters.
type dstu3 struct{}

func (dstu3) FHIRVersion() string { return DSTU3 }

func (dstu3) Wrap(doc model.Document) Capability {
	c := newCollector()

	switch doc.String("resourceType") {
	case model.TypeMeasure, model.TypePlanDefinition:
		for _, lib := range list(doc["library"]) {
			c.add(str(object(lib), "reference"), model.KindLibrary, true, false)
		}
	case model.TypeQuestionnaire:
		for _, ext := range list(doc["extension"]) {
			e := object(ext)
			if u := str(e, "url"); u == cqfLibraryExtension || u == cqifLibraryExtension {
				c.add(str(object(e["valueReference"]), "reference"), model.KindLibrary, true, false)
			}
		}
	case model.TypeLibrary:
		for _, dr := range list(doc["dataRequirement"]) {
			for _, cf := range list(object(dr)["codeFilter"]) {
				f := object(cf)
				c.add(str(f, "valueSetString"), model.KindValueSet, false, false)
				c.add(str(object(f["valueSetReference"]), "reference"), model.KindValueSet, false, false)
			}
		}
	case model.TypeValueSet:
		collectCompose(c, doc)
	}

	for _, ra := range list(doc["relatedArtifact"]) {
		m := object(ra)
		if str(m, "type") != "depends-on" {
			continue
		}
		raw := str(object(m["resource"]), "reference")
		kind, optional := relatedKind(raw)
		c.add(raw, kind, false, optional)
	}

	return newCapability(doc, c.refs)
}
