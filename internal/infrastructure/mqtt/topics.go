package mqtt

import "fmt"

// Topic prefixes for the Insteon bridge.
//
// The bridge uses a flat scheme: insteon/{category}/{address_or_scope}.
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "insteon"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceALDB("1a.2b.3c")
//	// Returns: "insteon/aldb/1a.2b.3c"
type Topics struct{}

// DeviceALDB returns the topic for a device's published link database.
//
// Example: insteon/aldb/1a.2b.3c
func (Topics) DeviceALDB(address string) string {
	return fmt.Sprintf("%s/aldb/%s", TopicPrefix, address)
}

// ModemALDB returns the topic for the modem's published link database.
//
// Example: insteon/aldb/modem
func (Topics) ModemALDB() string {
	return fmt.Sprintf("%s/aldb/modem", TopicPrefix)
}

// DeviceFlags returns the topic for a device's operating-flag state.
//
// Example: insteon/flags/1a.2b.3c
func (Topics) DeviceFlags(address string) string {
	return fmt.Sprintf("%s/flags/%s", TopicPrefix, address)
}

// Command returns the topic for commands to one device.
//
// Example: insteon/command/1a.2b.3c
func (Topics) Command(address string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, address)
}

// Ack returns the topic for command acknowledgements.
//
// Example: insteon/ack/1a.2b.3c
func (Topics) Ack(address string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, address)
}

// Health returns the topic for bridge health status.
//
// Example: insteon/health
func (Topics) Health() string {
	return fmt.Sprintf("%s/health", TopicPrefix)
}

// AllCommands returns a pattern matching commands to every device.
//
// Pattern: insteon/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllTopics returns a pattern matching every bridge topic.
// Use with caution - this receives ALL traffic.
//
// Pattern: insteon/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
