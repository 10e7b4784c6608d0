// Package jobstore persists job history and access-control users in SQLite.
//
// The database lives at config.DatabasePath and is created on first Open.
// Writes retry briefly on SQLITE_BUSY so concurrent CLI invocations sharing
// one database do not fail spuriously.
package jobstore
