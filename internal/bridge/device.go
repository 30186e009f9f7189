package bridge

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/nerrad567/gray-logic-insteon/internal/aldb"
	"github.com/nerrad567/gray-logic-insteon/internal/handshake"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/opflags"
	"github.com/nerrad567/gray-logic-insteon/internal/plm"
)

// Device aggregates the synchronization machinery for one remote device:
// its ALDB mirror with read manager, and its operating-flag manager.
type Device struct {
	address insteon.Address
	name    string

	db     *aldb.ALDB
	reader *aldb.ReadManager
	flags  *opflags.Manager

	// Correlation handlers, closed with the device.
	aldbHandler *handshake.DirectHandler
	getHandler  *handshake.DirectHandler
	setHandler  *handshake.DirectHandler
}

// NewDevice wires up a device from its configuration.
//
// Parameters:
//   - cfg: Device address, name, and flag bindings
//   - sender: Frame transmitter (the PLM client)
//   - registry: Transport registry for inbound routing
//   - clock: Clock driving the read manager's watchdog timers
//
// Returns:
//   - *Device: Ready for sync operations
//   - error: If the configured address does not parse
func NewDevice(cfg config.DeviceConfig, sender handshake.Sender, registry *plm.Registry, clock clockwork.Clock) (*Device, error) {
	address, err := insteon.ParseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", cfg.Name, err)
	}

	d := &Device{
		address: address,
		name:    cfg.Name,
		db:      aldb.New(address),
	}

	d.aldbHandler = handshake.NewDirectHandler(
		sender, registry, address, insteon.CmdReadWriteALDB, plm.FlagsDirectExt)
	d.getHandler = handshake.NewDirectHandler(
		sender, registry, address, insteon.CmdGetOperatingFlags, plm.FlagsDirectStd)
	d.setHandler = handshake.NewDirectHandler(
		sender, registry, address, insteon.CmdSetOperatingFlags, plm.FlagsDirectStd)

	d.reader = aldb.NewReadManager(d.db, d.aldbHandler, registry, clock)

	d.flags = opflags.NewManager(address, d.getHandler, d.setHandler, registry)
	for _, fc := range cfg.Flags {
		d.flags.Subscribe(opflags.Binding{
			Name:     fc.Name,
			Group:    fc.Group,
			Bit:      fc.Bit,
			SetCmd:   fc.SetCmd,
			UnsetCmd: fc.UnsetCmd,
			ReadOnly: fc.ReadOnly,
		})
	}

	return d, nil
}

// Address returns the device's address.
func (d *Device) Address() insteon.Address {
	return d.address
}

// Name returns the device's configured label.
func (d *Device) Name() string {
	return d.name
}

// ALDB returns the device's link-database mirror.
func (d *Device) ALDB() *aldb.ALDB {
	return d.db
}

// Reader returns the device's ALDB read manager.
func (d *Device) Reader() *aldb.ReadManager {
	return d.reader
}

// Flags returns the device's operating-flag manager.
func (d *Device) Flags() *opflags.Manager {
	return d.flags
}

// SetLogger sets the logger on the device's managers.
func (d *Device) SetLogger(logger Logger) {
	d.reader.SetLogger(logger)
	d.flags.SetLogger(logger)
}

// Close cancels the device's registry subscriptions.
func (d *Device) Close() {
	d.reader.Close()
	d.flags.Close()
	d.aldbHandler.Close()
	d.getHandler.Close()
	d.setHandler.Close()
}
