package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSyncSession records the outcome of one ALDB synchronization run.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Device address, or "modem" for the modem table
//   - sessionID: Unique identifier for this sync run
//   - records: Number of records mirrored when the run ended
//   - duration: Wall-clock time the run took
//   - loaded: Whether the mirror was complete at the end
//
// Example:
//
//	client.WriteSyncSession("1a.2b.3c", session, 14, elapsed, true)
func (c *Client) WriteSyncSession(deviceID, sessionID string, records int, duration time.Duration, loaded bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"aldb_sync",
		map[string]string{
			"device_id":  deviceID,
			"session_id": sessionID,
		},
		map[string]interface{}{
			"records":          records,
			"duration_seconds": duration.Seconds(),
			"loaded":           loaded,
		},
		time.Now(),
	)

	c.writes.WritePoint(point)
}

// WriteFlagValue records one confirmed operating-flag value.
//
// Parameters:
//   - deviceID: Device address
//   - flag: Flag name (e.g., "led_on")
//   - value: The confirmed register or bit value
func (c *Client) WriteFlagValue(deviceID, flag string, value uint8) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"operating_flags",
		map[string]string{
			"device_id": deviceID,
			"flag":      flag,
		},
		map[string]interface{}{
			"value": int64(value),
		},
		time.Now(),
	)

	c.writes.WritePoint(point)
}

// WriteTransportStats records modem transport counters.
//
// Used for tracking link quality over time: messages in and out, frame
// errors and reconnects.
//
// Parameters:
//   - stats: Counter name to value (e.g., "messages_received")
func (c *Client) WriteTransportStats(stats map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"plm_transport",
		nil,
		stats,
		time.Now(),
	)

	c.writes.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "bridge-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writes.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writes.WritePoint(point)
}
