// Package types defines the inventory entities (plants and lawns), their
// attribute patches, the persistence contract shared by the store and the
// gateway, configuration, and the sentinel errors grouped by concern.
package types
