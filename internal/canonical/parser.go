package canonical

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// idRegex matches a logical id: letters, digits, '-' and '.', up to 64 chars.
	idRegex = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`)
	// typeRegex matches a resource type name such as `Library` or `ValueSet`.
	typeRegex = regexp.MustCompile(`^[A-Z][A-Za-z]+$`)
)

// isValidID checks for ids that match the pattern but are still unusable.
func isValidID(id string) bool {
	return idRegex.MatchString(id) && id != "." && id != ".." && id != "-"
}

// Parse creates a Reference from its raw string representation.
func Parse(raw string) (*Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("reference cannot be empty")
	}

	ref := &Reference{Raw: raw, Base: raw}
	if i := strings.LastIndex(raw, "|"); i >= 0 {
		ref.Base, ref.Version = raw[:i], raw[i+1:]
		if ref.Version == "" {
			return nil, fmt.Errorf("reference %q has an empty version", raw)
		}
		if ref.Base == "" {
			return nil, fmt.Errorf("reference %q has an empty base", raw)
		}
	}

	switch {
	case strings.Contains(ref.Base, "://") || strings.HasPrefix(ref.Base, "urn:"):
		ref.Form = FormURL
		ref.ResourceType, ref.ID = tailOf(ref.Base)
		return ref, nil

	case strings.Count(ref.Base, "/") == 1:
		typ, id, _ := strings.Cut(ref.Base, "/")
		if !typeRegex.MatchString(typ) {
			return nil, fmt.Errorf("invalid resource type in reference %q", raw)
		}
		if !isValidID(id) {
			return nil, fmt.Errorf("invalid id in reference %q", raw)
		}
		ref.Form = FormRelative
		ref.ResourceType, ref.ID = typ, id
		return ref, nil

	case isValidID(ref.Base):
		ref.Form = FormID
		ref.ID = ref.Base
		return ref, nil

	default:
		return nil, fmt.Errorf("invalid reference format: %q", raw)
	}
}

// tailOf derives the type and id from a url ending in `/Type/id`. A url that
// ends in an id without a recognisable type still yields the id.
func tailOf(url string) (string, string) {
	if strings.HasPrefix(url, "urn:") {
		return "", ""
	}
	trimmed := strings.TrimRight(url, "/")
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	segments := strings.Split(trimmed, "/")
	if len(segments) < 2 {
		return "", ""
	}
	id := segments[len(segments)-1]
	if !isValidID(id) {
		return "", ""
	}
	typ := segments[len(segments)-2]
	if len(segments) >= 3 && typeRegex.MatchString(typ) {
		return typ, id
	}
	return "", id
}

// MustParse is like Parse but panics on error. Intended for tests and
// constants.
func MustParse(raw string) *Reference {
	ref, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return ref
}
