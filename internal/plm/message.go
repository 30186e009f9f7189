package plm

import (
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// Topic identifies the correlation key for inbound message routing.
//
// Device-directed traffic is keyed by (device address, cmd1). Modem-scoped
// traffic (All-Link record iteration, record responses) uses the zero
// address and the PLM command number. Topics are comparable values, so the
// registry can use them directly as map keys instead of concatenated
// strings.
type Topic struct {
	Address insteon.Address
	Command insteon.Command
}

// MessageKind classifies an inbound message for correlation purposes.
type MessageKind int

const (
	// KindDirect is a device-originated direct message.
	KindDirect MessageKind = iota

	// KindDirectAck is a device's positive confirmation of a direct command.
	KindDirectAck

	// KindDirectNak is a device's explicit rejection of a direct command.
	KindDirectNak

	// KindBroadcast is a device-originated broadcast (group) message.
	KindBroadcast

	// KindModemAck means the modem accepted an outbound command for
	// transmission. It says nothing about the remote device.
	KindModemAck

	// KindModemNak means the modem rejected an outbound command.
	KindModemNak

	// KindAllLinkRecord carries one modem ALDB record (0x57 response).
	KindAllLinkRecord
)

// String returns a short label for logging.
func (k MessageKind) String() string {
	switch k {
	case KindDirectAck:
		return "direct_ack"
	case KindDirectNak:
		return "direct_nak"
	case KindBroadcast:
		return "broadcast"
	case KindModemAck:
		return "modem_ack"
	case KindModemNak:
		return "modem_nak"
	case KindAllLinkRecord:
		return "all_link_record"
	default:
		return "direct"
	}
}

// AllLinkRecord is the raw payload of a modem ALDB record response. The
// modem does not report memory addresses; the modem read manager assigns
// them as it iterates.
type AllLinkRecord struct {
	FlagsByte byte
	Group     uint8
	Address   insteon.Address
	Data1     uint8
	Data2     uint8
	Data3     uint8
}

// Message is one decoded inbound PLM message, routed by Topic.
type Message struct {
	// Topic is the correlation key the registry dispatches on.
	Topic Topic

	// Kind classifies the message.
	Kind MessageKind

	// From is the originating device for device messages; zero for
	// modem-scoped messages.
	From insteon.Address

	// Flags is the raw Insteon message flag byte (device messages only).
	Flags byte

	// Cmd1, Cmd2 are the Insteon command bytes (device messages only).
	Cmd1 byte
	Cmd2 byte

	// UserData is the 14-byte extended payload, nil for standard messages.
	UserData []byte

	// LinkRecord is set for KindAllLinkRecord messages.
	LinkRecord *AllLinkRecord

	// ALDBRecord is set when an extended ALDB read response (cmd1 0x2F)
	// was decoded into a typed record.
	ALDBRecord *insteon.Record

	// Timestamp records when the message was received.
	Timestamp time.Time
}
