// Package predicate provides the named test predicates used by template
// `is` expressions and by the assertion tags.
//
// A predicate receives the subject under test plus zero or more static
// arguments and reports whether the subject satisfies it:
//
//	{% assert contains("x") %}xyz{% endassert %}
//	{% assert_that user.email is matches("@example\\.com$") %}
//
// Built-in predicates cover string checks (contains, startswith, endswith,
// matches), type checks (string, number, sequence, mapping), comparisons
// (eq, lt, gt, ...), and document checks backed by gjson, gojsonschema,
// yaml.v3 and google/uuid (json, json_path, json_schema, yaml, uuid).
package predicate
