// Package opflags synchronizes a device's operating-flag registers.
//
// Devices expose small configuration registers (LED on, beeper, resume
// dim and similar) addressed by group number. A named flag binds to one
// bit of a group register, or to the whole register value. The manager
// reads registers with bounded retry, decodes inbound register values
// against every binding for that group, and writes pending flag changes
// using each binding's set or clear command.
package opflags
