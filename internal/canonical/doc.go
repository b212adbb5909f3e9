/*
Package canonical provides a structured representation of the references
resources use to point at each other.

Three forms are understood:

	http://example.org/fhir/Library/Common|1.0.0   canonical url, optional version
	Library/Common                                 relative literal reference
	Common                                         bare logical id

Every form may carry a `|version` suffix. For urls of the shape
`.../Type/id` the resource type and tail id are derived, so a lookup that
misses by url can fall back to the id.
*/
package canonical
