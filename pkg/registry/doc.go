// Package registry provides field-definition registries: Memory for groups
// built in code, LoadFS for JSON/YAML documents and Watcher for a directory
// of documents that reloads on change. All of them implement
// schema.Registry.
package registry
