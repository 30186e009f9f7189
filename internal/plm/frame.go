package plm

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// PLM wire constants.
const (
	// STX starts every frame in both directions.
	STX byte = 0x02

	// WireAck terminates an accepted command echo.
	WireAck byte = 0x06

	// WireNak terminates a rejected command echo.
	WireNak byte = 0x15
)

// Insteon message flag bits (byte 7 of standard messages).
const (
	// flagTypeMask selects the message type from the flag byte.
	flagTypeMask byte = 0xE0

	flagTypeDirect    byte = 0x00
	flagTypeDirectAck byte = 0x20
	flagTypeDirectNak byte = 0xA0
	flagTypeBroadcast byte = 0x80

	// FlagExtended marks an extended-length (14 user-data bytes) message.
	FlagExtended byte = 0x10

	// FlagsDirectStd is the standard-length direct message flag byte the
	// bridge sends (3 hops remaining, 3 max).
	FlagsDirectStd byte = 0x0F

	// FlagsDirectExt is the extended-length equivalent.
	FlagsDirectExt byte = 0x1F
)

// Frame payload sizes (bytes following the command number).
const (
	stdReceivedLen    = 9  // from(3) to(3) flags cmd1 cmd2
	extReceivedLen    = 23 // standard + 14 user data
	allLinkRecordLen  = 8  // flags group addr(3) data1-3
	sendEchoStdLen    = 7  // to(3) flags cmd1 cmd2 ack
	sendEchoExtLen    = 21 // standard echo + 14 user data
	getRecordEchoLen  = 1  // ack/nak only
	userDataLen       = 14
	sendEchoAddrFlags = 4 // bytes needed before the echo length is known
)

// EncodeFrame builds an outbound PLM frame: STX, command number, payload.
func EncodeFrame(cmd insteon.Command, payload []byte) []byte {
	frame := make([]byte, 0, 2+len(payload))
	frame = append(frame, STX, byte(cmd))
	return append(frame, payload...)
}

// EncodeSendInsteon builds the payload of a Send Insteon Message (0x62)
// command: target address, flag byte, cmd1, cmd2 and, for extended
// messages, exactly 14 user-data bytes.
func EncodeSendInsteon(to insteon.Address, flags, cmd1, cmd2 byte, userData []byte) ([]byte, error) {
	payload := make([]byte, 0, 6+userDataLen)
	payload = append(payload, to.Bytes()...)
	payload = append(payload, flags, cmd1, cmd2)

	if flags&FlagExtended == 0 {
		if len(userData) != 0 {
			return nil, fmt.Errorf("%w: user data on standard-length message", ErrInvalidFrame)
		}
		return payload, nil
	}

	if len(userData) != userDataLen {
		return nil, fmt.Errorf("%w: extended message needs %d user-data bytes, got %d",
			ErrInvalidFrame, userDataLen, len(userData))
	}
	return append(payload, userData...), nil
}

// EncodeALDBReadRequest builds the 14 user-data bytes of an ALDB read
// request (cmd1 0x2F). A zero memAddr with numRecs zero asks the device to
// stream its entire table; otherwise exactly one record at memAddr is
// requested.
func EncodeALDBReadRequest(memAddr uint16, numRecs uint8) []byte {
	data := make([]byte, userDataLen)
	// d2 = 0x00: read request
	data[2] = byte(memAddr >> 8)
	data[3] = byte(memAddr)
	data[4] = numRecs
	return data
}

// fixedPayloadLength returns the payload length for inbound frames whose
// size does not depend on their content.
func fixedPayloadLength(cmd insteon.Command) (int, bool) {
	switch cmd {
	case insteon.CmdStandardReceived:
		return stdReceivedLen, true
	case insteon.CmdExtendedReceived:
		return extReceivedLen, true
	case insteon.CmdAllLinkRecordResponse:
		return allLinkRecordLen, true
	case insteon.CmdGetFirstAllLinkRecord, insteon.CmdGetNextAllLinkRecord:
		return getRecordEchoLen, true
	default:
		return 0, false
	}
}

// parseReceived decodes a 0x50 or 0x51 payload into a Message.
func parseReceived(cmd insteon.Command, payload []byte) (Message, error) {
	want := stdReceivedLen
	if cmd == insteon.CmdExtendedReceived {
		want = extReceivedLen
	}
	if len(payload) != want {
		return Message{}, fmt.Errorf("%w: cmd 0x%02X payload %d bytes, want %d",
			ErrInvalidFrame, byte(cmd), len(payload), want)
	}

	from := insteon.AddressFromBytes(payload[0], payload[1], payload[2])
	flags := payload[6]
	cmd1 := payload[7]
	cmd2 := payload[8]

	msg := Message{
		Topic:     Topic{Address: from, Command: insteon.Command(cmd1)},
		Kind:      kindFromFlags(flags),
		From:      from,
		Flags:     flags,
		Cmd1:      cmd1,
		Cmd2:      cmd2,
		Timestamp: time.Now(),
	}

	if cmd == insteon.CmdExtendedReceived {
		msg.UserData = make([]byte, userDataLen)
		copy(msg.UserData, payload[9:])

		if insteon.Command(cmd1) == insteon.CmdReadWriteALDB {
			if rec, err := ParseALDBResponse(msg.UserData); err == nil {
				msg.ALDBRecord = &rec
			}
		}
	}

	return msg, nil
}

// kindFromFlags maps the Insteon flag byte to a MessageKind.
func kindFromFlags(flags byte) MessageKind {
	switch flags & flagTypeMask {
	case flagTypeDirectAck:
		return KindDirectAck
	case flagTypeDirectNak:
		return KindDirectNak
	case flagTypeBroadcast:
		return KindBroadcast
	default:
		return KindDirect
	}
}

// parseAllLinkRecord decodes a 0x57 payload.
func parseAllLinkRecord(payload []byte) (Message, error) {
	if len(payload) != allLinkRecordLen {
		return Message{}, fmt.Errorf("%w: record response payload %d bytes, want %d",
			ErrInvalidFrame, len(payload), allLinkRecordLen)
	}

	rec := &AllLinkRecord{
		FlagsByte: payload[0],
		Group:     payload[1],
		Address:   insteon.AddressFromBytes(payload[2], payload[3], payload[4]),
		Data1:     payload[5],
		Data2:     payload[6],
		Data3:     payload[7],
	}

	return Message{
		Topic:      Topic{Command: insteon.CmdAllLinkRecordResponse},
		Kind:       KindAllLinkRecord,
		LinkRecord: rec,
		Timestamp:  time.Now(),
	}, nil
}

// parseSendEcho decodes the modem's echo of a 0x62 Send Insteon Message
// command. The echo repeats the outbound payload and appends ACK or NAK.
func parseSendEcho(payload []byte) (Message, error) {
	if len(payload) != sendEchoStdLen && len(payload) != sendEchoExtLen {
		return Message{}, fmt.Errorf("%w: send echo payload %d bytes", ErrInvalidFrame, len(payload))
	}

	to := insteon.AddressFromBytes(payload[0], payload[1], payload[2])
	cmd1 := payload[4]
	kind := KindModemAck
	if payload[len(payload)-1] != WireAck {
		kind = KindModemNak
	}

	return Message{
		Topic:     Topic{Address: to, Command: insteon.Command(cmd1)},
		Kind:      kind,
		Flags:     payload[3],
		Cmd1:      cmd1,
		Cmd2:      payload[5],
		Timestamp: time.Now(),
	}, nil
}

// parseGetRecordEcho decodes the single ack/nak byte echoed after a
// get-first (0x69) or get-next (0x6A) request.
func parseGetRecordEcho(cmd insteon.Command, payload []byte) (Message, error) {
	if len(payload) != getRecordEchoLen {
		return Message{}, fmt.Errorf("%w: get-record echo payload %d bytes", ErrInvalidFrame, len(payload))
	}

	kind := KindModemAck
	if payload[0] != WireAck {
		kind = KindModemNak
	}

	return Message{
		Topic:     Topic{Command: cmd},
		Kind:      kind,
		Timestamp: time.Now(),
	}, nil
}

// ParseALDBResponse decodes the 14 user-data bytes of an extended ALDB
// record response (cmd1 0x2F, d2 0x01) into a typed record.
//
// User-data layout:
//
//	d1:     0x00
//	d2:     0x01 (record response)
//	d3-d4:  record memory address, big-endian
//	d5:     0x00
//	d6:     control flags byte
//	d7:     group
//	d8-d10: target address
//	d11-d13: data1-3
//	d14:    checksum (ignored; the modem already validated the frame)
func ParseALDBResponse(userData []byte) (insteon.Record, error) {
	if len(userData) != userDataLen {
		return insteon.Record{}, fmt.Errorf("%w: ALDB response needs %d bytes, got %d",
			ErrInvalidRecordData, userDataLen, len(userData))
	}
	if userData[1] != 0x01 {
		return insteon.Record{}, fmt.Errorf("%w: d2=0x%02X is not a record response",
			ErrInvalidRecordData, userData[1])
	}

	return insteon.Record{
		MemAddr: binary.BigEndian.Uint16(userData[2:4]),
		Flags:   insteon.ControlFlagsFromByte(userData[5]),
		Group:   userData[6],
		Target:  insteon.AddressFromBytes(userData[7], userData[8], userData[9]),
		Data1:   userData[10],
		Data2:   userData[11],
		Data3:   userData[12],
	}, nil
}
