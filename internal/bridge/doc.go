// Package bridge is the outward MQTT surface of the Insteon sync daemon.
//
// It wires the per-device ALDB read managers, the modem table reader, and
// the operating-flag managers to the broker: sync commands arrive on
// insteon/command/{address}, acknowledgements go out on
// insteon/ack/{address}, and mirror contents are published retained on
// insteon/aldb/{address} and insteon/flags/{address}.
//
// Sync runs are serialized internally. The powerline is half-duplex and
// a single modem multiplexes all device traffic, so concurrent table
// reads would interleave their record streams.
//
// The bridge optionally persists mirrors to SQLite (so retained state
// survives restarts) and records session telemetry to InfluxDB.
package bridge
