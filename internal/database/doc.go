// Package database provides SQLite-based storage for foilreport.
//
// This package implements the HistoryDB, which stores one row per pipeline
// run: the stage it reached, its outcome, the report it published and a
// digest of that report. The publish pipeline itself never reads it; the
// history is for operators and for the metrics written after each run.
//
// SQLite is used through modernc.org/sqlite, so the binary stays CGO-free
// and the database is a single file under the XDG data directory.
package database
