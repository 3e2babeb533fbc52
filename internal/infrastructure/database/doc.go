// Package database provides SQLite connectivity for the run history
// store.
//
// It manages the connection (WAL mode, busy timeout, single writer),
// file permissions, and schema migrations. The schema is small and
// ships inline; migrations are additive-only and tracked in a
// schema_migrations table so upgrades are safe to re-run.
package database
