// Package store defines interfaces for data persistence operations along with
// the transaction helpers and sentinel errors shared by every implementation.
// Business code depends on these interfaces, never on a concrete database.
package store
