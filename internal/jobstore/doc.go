// Package jobstore persists finished generation jobs in SQLite.
//
// Each job is stored as one row holding the full aggregate result as JSON,
// plus a row per stage so listings and status summaries can be answered
// without decoding payloads. The database runs in WAL mode and writes retry
// briefly on SQLITE_BUSY so the API server and CLI can share it.
package jobstore
