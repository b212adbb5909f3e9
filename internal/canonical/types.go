package canonical

import "strings"

// Form is the syntactic shape of a reference.
type Form int

const (
	// FormURL is an absolute canonical url or urn.
	FormURL Form = iota
	// FormRelative is a `Type/id` literal reference.
	FormRelative
	// FormID is a bare logical id.
	FormID
)

// String returns the form name.
func (f Form) String() string {
	switch f {
	case FormURL:
		return "url"
	case FormRelative:
		return "relative"
	default:
		return "id"
	}
}

// Reference is the structured representation of a raw reference string.
type Reference struct {
	// Raw is the input, trimmed.
	Raw  string
	Form Form
	// Base is the reference without its version suffix.
	Base    string
	Version string
	// ResourceType and ID are derived from relative references and from urls
	// ending in `/Type/id`. Either may be empty.
	ResourceType string
	ID           string
}

// String serializes the reference back into `base|version` form.
func (r *Reference) String() string {
	if r == nil {
		return ""
	}
	if r.Version == "" {
		return r.Base
	}
	return r.Base + "|" + r.Version
}

// IsURL reports whether the reference is an absolute canonical.
func (r *Reference) IsURL() bool {
	return r != nil && r.Form == FormURL
}

// Equal compares two references by base and version.
func (r *Reference) Equal(other *Reference) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Base == other.Base && r.Version == other.Version
}

// Join builds `url|version`, omitting the separator when version is empty.
func Join(url, version string) string {
	url = strings.TrimSpace(url)
	if version == "" {
		return url
	}
	return url + "|" + version
}
