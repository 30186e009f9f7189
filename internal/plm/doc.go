// Package plm provides the connection to an Insteon PowerLine Modem.
//
// The PLM is the bridge's gateway onto the powerline/RF network. It is a
// serial device; this package speaks the PLM's STX-framed binary protocol
// over a network connection (typically ser2net in raw mode, or a Unix
// socket exposed by a local serial proxy).
//
// # Responsibilities
//
//   - Frame encoding/decoding for the modem commands the bridge uses
//     (All-Link record iteration, Insteon message send, inbound standard
//     and extended messages).
//   - A receive loop with automatic reconnection and bounded callback
//     dispatch, mirroring the rest of the Gray Logic bridge transports.
//   - The subscription registry: inbound messages are routed to interested
//     handlers by (device address, command) topic. Handlers receive typed
//     Message values, never raw bytes.
//
// Command/response correlation and retry policy live in the handshake and
// aldb packages; this package only moves frames and routes messages.
package plm
