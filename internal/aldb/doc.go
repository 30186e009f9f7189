// Package aldb synchronizes All-Link Databases into in-memory mirrors.
//
// An ALDB lives in remote device memory, reachable only over a lossy,
// half-duplex channel with no delivery guarantees. Responses get dropped,
// records arrive duplicated or out of order, and the table length is
// unknown until its high-water-mark terminator is seen. The read managers
// in this package absorb all of that with bounded retries and watchdog
// timers, leaving callers with a simple "read and then inspect the mirror"
// contract.
//
// Two protocols exist:
//
//   - ReadManager pulls a remote device's table. The device can stream the
//     whole table on request, so the manager first asks for everything,
//     then repairs gaps record by record.
//   - ModemReadManager drains the local modem's table through a strictly
//     sequential get-first / get-next cursor with no random access.
//
// Both share the handshake package's completion gate: one read sequence in
// flight per manager, ended by whichever asynchronous event (loaded
// mirror, retry exhaustion, cursor termination) happens first. A caller's
// boolean return value only says the sequence ended; completeness is the
// mirror's Loaded predicate.
package aldb
