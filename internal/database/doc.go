// Package database keeps the small amount of state that should outlive a
// restart: images that failed to thumbnail, so later sweeps do not decode
// them again until they change, and a history of sweep passes.
//
// It uses SQLite in WAL mode. The schema lives in migrations/ and is
// applied with goose when the database is opened.
package database
