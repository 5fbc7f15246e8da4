// Package openapi describes the field tree HTTP surface as an OpenAPI 3
// document built with kin-openapi. Every registered field group becomes a
// component schema whose properties are the group's value-carrying fields,
// keyed by storage name and annotated with the posted key and field kind.
package openapi
