// Package store persists mirrored ALDB records to SQLite.
//
// The cache lets a restarted bridge pre-seed its in-memory mirrors from
// the last known table contents before a fresh synchronization confirms
// them, so the MQTT surface has records to publish immediately.
//
// One row is kept per (device, memory address) slot. The modem's table
// is stored under the reserved device id "modem"; remote devices use
// their dotted address form.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use; it holds no state beyond
// the *sql.DB handle.
package store
