// Package collab defines the registration surface everything above the
// core — the parts of BorealOS this repository treats as external
// collaborators, such as a block/filesystem layer, PCI enumeration, or a
// PS/2 input driver — uses to hook into the core once bring-up completes.
// None of those collaborators are implemented here; this package only
// documents and enforces the points at which they may attach: registering
// a Driver to be initialized once, after L9, with every core service
// (allocation, paging, IRQs, ACPI tables) already available.
package collab

import "borealos/kernel"

// Driver is implemented by any collaborator that wants its own
// initialization step run once the core has finished bringing itself up.
// This mirrors the teacher's device.Driver interface; BorealOS keeps the
// same three-method shape since it is the natural boundary between "how a
// driver identifies itself" and "how it gets the core's attention".
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major, minor, patch uint16)

	// DriverInit initializes the driver. It runs once kernel.Global has
	// reached StageFramebufferConsole (every core layer is up, StageRunning
	// is entered after InitAll returns), so it may allocate memory, map
	// pages, register IRQ handlers and read ACPI tables freely.
	DriverInit() *kernel.Error
}

var registered []Driver

// Register adds a collaborator driver to the set initialized by InitAll.
// Called from a collaborator's own init() function, before kmain ever runs,
// the same registration pattern gopher-os uses for its device probes.
func Register(d Driver) {
	registered = append(registered, d)
}

// InitAll runs DriverInit on every registered collaborator in registration
// order. kmain calls this once after the L9 framebuffer console is up; a
// failure from any one driver is reported but does not stop the others,
// since a collaborator (e.g. a missing PCI device) is not a core bring-up
// dependency.
func InitAll(onError func(Driver, *kernel.Error)) {
	kernel.Global.Require(kernel.StageFramebufferConsole)

	for _, d := range registered {
		if err := d.DriverInit(); err != nil && onError != nil {
			onError(d, err)
		}
	}
}
