package plm

import "errors"

// Domain errors for the PLM transport package.
var (
	// ErrNotConnected is returned when an operation requires a connection
	// but the client is not connected to the modem.
	ErrNotConnected = errors.New("plm: not connected to modem")

	// ErrConnectionFailed is returned when the connection to the modem fails.
	ErrConnectionFailed = errors.New("plm: connection to modem failed")

	// ErrSendFailed is returned when writing a frame to the modem fails.
	ErrSendFailed = errors.New("plm: frame send failed")

	// ErrInvalidFrame is returned when a received frame is malformed.
	ErrInvalidFrame = errors.New("plm: invalid frame")

	// ErrProtocolDesync is returned when the byte stream can no longer be
	// framed reliably. It is fatal: the connection is dropped and re-dialed.
	ErrProtocolDesync = errors.New("plm: protocol desync detected")

	// ErrInvalidRecordData is returned when the user data of an extended
	// ALDB response cannot be decoded into a record.
	ErrInvalidRecordData = errors.New("plm: invalid ALDB record data")
)
