package insteon

// Command identifies one Insteon command for correlation purposes.
//
// For modem-scoped commands this is the PLM command number (0x60 range).
// For device-directed commands it is the cmd1 byte of the Insteon message
// (for example 0x2F for an ALDB read/write).
type Command byte

// PLM (modem) command numbers.
const (
	// CmdStandardReceived is an inbound standard-length Insteon message.
	CmdStandardReceived Command = 0x50

	// CmdExtendedReceived is an inbound extended-length Insteon message.
	CmdExtendedReceived Command = 0x51

	// CmdAllLinkRecordResponse delivers one modem ALDB record following a
	// get-first or get-next request.
	CmdAllLinkRecordResponse Command = 0x57

	// CmdSendInsteonMsg asks the modem to transmit a device-directed message.
	CmdSendInsteonMsg Command = 0x62

	// CmdGetFirstAllLinkRecord primes modem ALDB iteration.
	CmdGetFirstAllLinkRecord Command = 0x69

	// CmdGetNextAllLinkRecord advances modem ALDB iteration by one record.
	CmdGetNextAllLinkRecord Command = 0x6A
)

// Device command numbers (cmd1 values of device-directed messages).
const (
	// CmdGetOperatingFlags reads one operating-flag register group.
	CmdGetOperatingFlags Command = 0x1F

	// CmdSetOperatingFlags sets or clears one operating-flag bit.
	CmdSetOperatingFlags Command = 0x20

	// CmdReadWriteALDB reads or writes device ALDB records (extended).
	CmdReadWriteALDB Command = 0x2F
)
