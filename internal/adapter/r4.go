package adapter

import (
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// r4 reads canonical references as plain strings.
type r4 struct{}

func (r4) FHIRVersion() string { return R4 }

func (r4) Wrap(doc model.Document) Capability {
	c := newCollector()

	switch doc.String("resourceType") {
	case model.TypeMeasure, model.TypePlanDefinition:
		for _, lib := range list(doc["library"]) {
			if s, ok := lib.(string); ok {
				c.add(s, model.KindLibrary, true, false)
			}
		}
	case model.TypeQuestionnaire:
		for _, ext := range list(doc["extension"]) {
			e := object(ext)
			if u := str(e, "url"); u == cqfLibraryExtension || u == cqifLibraryExtension {
				c.add(str(e, "valueCanonical"), model.KindLibrary, true, false)
			}
		}
	case model.TypeLibrary:
		for _, dr := range list(doc["dataRequirement"]) {
			for _, cf := range list(object(dr)["codeFilter"]) {
				c.add(str(object(cf), "valueSet"), model.KindValueSet, false, false)
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
		raw := str(m, "resource")
		kind, optional := relatedKind(raw)
		c.add(raw, kind, false, optional)
	}

	return newCapability(doc, c.refs)
}
