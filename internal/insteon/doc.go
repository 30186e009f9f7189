// Package insteon defines the value types shared across the Insteon bridge:
// device addresses, command numbers, response statuses, and All-Link
// Database (ALDB) records.
//
// # Background
//
// Every Insteon device carries an All-Link Database: a table of 8-byte link
// records describing which other devices it controls or responds to. The
// table lives in device memory and is only reachable over the powerline/RF
// channel, which is lossy and half-duplex. The types in this package model
// that table and the confirmations exchanged while synchronizing it.
//
// Behavioural logic (retries, watchdogs, correlation) lives in the aldb,
// handshake and opflags packages; this package is deliberately value-only.
package insteon
