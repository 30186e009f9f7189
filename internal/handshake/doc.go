// Package handshake pairs outbound Insteon commands with their
// asynchronous confirmations.
//
// Every synchronization operation in this bridge is built on the same
// primitive: transmit one command, then suspend the caller until the
// confirmation(s) correlated to that exact command arrive through the
// transport registry, or a deadline passes. Two shapes exist:
//
//   - Handler: modem-scoped commands confirmed by a single echo ack/nak
//     (All-Link record iteration).
//   - DirectHandler: device-directed commands confirmed in two stages,
//     the modem's echo ack then the device's direct ack or nak within a
//     bounded additional wait.
//
// The package also provides Gate, the completion gate the read managers
// use as a cross-task rendezvous: a single-consumer completion signal
// built from channels, not a lock acquired twice.
package handshake
