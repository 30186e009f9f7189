package bridge

import (
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// MQTT message types for the Insteon bridge's outward surface.

// CommandMessage is received on insteon/command/{address} to trigger a
// synchronization action against one device (or the modem).
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with
	// acknowledgements.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Action is the requested operation.
	// Values: "aldb.read", "flags.read", "flags.write", "sync"
	Action string `json:"action"`

	// Parameters contains action-specific values.
	// Examples:
	//   {"mem_addr": 4087, "num_recs": 1} for a targeted aldb.read
	//   {"flags": {"led_on": true}} for flags.write
	Parameters map[string]any `json:"parameters,omitempty"`
}

// AckStatus represents the acknowledgement status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was received and started.
	AckAccepted AckStatus = "accepted"

	// AckCompleted indicates the command finished successfully.
	AckCompleted AckStatus = "completed"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates the device did not respond within the retry
	// budget.
	AckTimeout AckStatus = "timeout"
)

// Error codes for command failures.
const (
	ErrCodeUnknownDevice  = "UNKNOWN_DEVICE"
	ErrCodeInvalidCommand = "INVALID_COMMAND"
	ErrCodeInvalidParams  = "INVALID_PARAMETERS"
	ErrCodeUnreachable    = "DEVICE_UNREACHABLE"
	ErrCodeBridgeError    = "BRIDGE_ERROR"
)

// AckMessage is published on insteon/ack/{address} in response to a command.
type AckMessage struct {
	// CommandID is the ID from the original command.
	CommandID string `json:"command_id"`

	// Timestamp is when the acknowledgement was sent (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Address is the device address the command targeted, or "modem".
	Address string `json:"address"`

	// Action is the action from the original command.
	Action string `json:"action"`

	// Status indicates the acknowledgement status.
	Status AckStatus `json:"status"`

	// Error contains details if status is "failed" or "timeout".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	// Code is the machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// NewAck creates an acknowledgement for a command.
func NewAck(cmd CommandMessage, address string, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Address:   address,
		Action:    cmd.Action,
		Status:    status,
	}
}

// NewAckError creates a failed acknowledgement with error details.
func NewAckError(cmd CommandMessage, address, code, message string) AckMessage {
	status := AckFailed
	if code == ErrCodeUnreachable {
		status = AckTimeout
	}
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Address:   address,
		Action:    cmd.Action,
		Status:    status,
		Error: &AckError{
			Code:    code,
			Message: message,
		},
	}
}

// LinkRecord is the published form of one ALDB record.
type LinkRecord struct {
	// MemAddr is the record's slot address in device memory.
	MemAddr uint16 `json:"mem_addr"`

	// InUse reports whether the slot holds an active link.
	InUse bool `json:"in_use"`

	// Controller distinguishes controller from responder links.
	Controller bool `json:"controller"`

	// HighWaterMark marks the table terminator slot.
	HighWaterMark bool `json:"high_water_mark"`

	// Group is the All-Link group number.
	Group uint8 `json:"group"`

	// Target is the linked device's address.
	Target string `json:"target"`

	// Data1, Data2, Data3 carry link-specific payload bytes.
	Data1 uint8 `json:"data1"`
	Data2 uint8 `json:"data2"`
	Data3 uint8 `json:"data3"`
}

// ALDBMessage is published retained on insteon/aldb/{address} whenever a
// device's mirrored link database changes.
type ALDBMessage struct {
	// Address is the device address, or "modem".
	Address string `json:"address"`

	// Timestamp is when the mirror was published (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Loaded reports whether the mirror is complete.
	Loaded bool `json:"loaded"`

	// SessionID identifies the synchronization run that produced this
	// state, when one did.
	SessionID string `json:"session_id,omitempty"`

	// Records is the mirror contents in descending slot order.
	Records []LinkRecord `json:"records"`
}

// NewALDBMessage builds a publishable mirror snapshot.
func NewALDBMessage(address string, loaded bool, sessionID string, records []insteon.Record) ALDBMessage {
	out := make([]LinkRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, LinkRecord{
			MemAddr:       rec.MemAddr,
			InUse:         rec.Flags.InUse,
			Controller:    rec.Flags.Controller,
			HighWaterMark: rec.Flags.HighWaterMark,
			Group:         rec.Group,
			Target:        rec.Target.String(),
			Data1:         rec.Data1,
			Data2:         rec.Data2,
			Data3:         rec.Data3,
		})
	}
	return ALDBMessage{
		Address:   address,
		Timestamp: time.Now().UTC(),
		Loaded:    loaded,
		SessionID: sessionID,
		Records:   out,
	}
}

// FlagsMessage is published retained on insteon/flags/{address} whenever a
// device's operating flags are confirmed.
type FlagsMessage struct {
	// Address is the device address.
	Address string `json:"address"`

	// Timestamp is when the flags were published (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Flags maps flag name to its confirmed value.
	Flags map[string]uint8 `json:"flags"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is running with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published retained on insteon/health.
type HealthMessage struct {
	// Timestamp is when the status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// Modem contains modem connection details.
	Modem *ModemStatus `json:"modem,omitempty"`

	// DevicesManaged is the number of configured devices.
	DevicesManaged int `json:"devices_managed"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// ModemStatus describes the PLM connection state.
type ModemStatus struct {
	// Status is "connected" or "disconnected".
	Status string `json:"status"`

	// FramesTx is the total number of frames transmitted.
	FramesTx uint64 `json:"frames_tx"`

	// FramesRx is the total number of frames received.
	FramesRx uint64 `json:"frames_rx"`

	// Errors is the total number of transport errors.
	Errors uint64 `json:"errors"`

	// Reconnects is the number of successful reconnections.
	Reconnects uint64 `json:"reconnects"`
}

// NewLWTMessage creates the Last Will and Testament payload. The broker
// publishes it if the bridge disconnects unexpectedly.
func NewLWTMessage() HealthMessage {
	return HealthMessage{
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}
