// Package catalog holds the static permission-group and plan configuration.
//
// A Catalog is built once from a Source (a YAML file in production, an
// in-memory definition in tests), validated, and handed to every component
// that needs it. Exactly one permission group must be flagged default; any
// number may be flagged admin.
package catalog
