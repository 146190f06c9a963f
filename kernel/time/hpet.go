package time

import (
	"unsafe"

	"borealos/kernel"
	"borealos/kernel/acpi/table"
	"borealos/kernel/irq"
)

// HPET MMIO register byte offsets from the capabilities block base address
// the ACPI HPET table reports.
const (
	hpetRegCapabilities  = 0x000
	hpetRegConfig        = 0x010
	hpetRegMainCounter   = 0x0F0
	hpetRegTimer0Config  = 0x100
	hpetRegTimer0Compare = 0x108
)

// femtosecondsPerSecond converts the capabilities register's counter clock
// period (expressed in femtoseconds) into a frequency in Hz.
const femtosecondsPerSecond = 1_000_000_000_000_000

// hpetTargetHz is the periodic rate spec.md requires for comparator 0.
const hpetTargetHz = 30

var hpet struct {
	base        uintptr
	frequencyHz uint64
	totalTicks  uint64
	lastCounter uint32
}

var errNoHPETPeriod = &kernel.Error{Module: "time", Message: "HPET reported a zero counter clock period"}

func hpetReg64(offset uintptr) *uint64 {
	return (*uint64)(unsafe.Pointer(hpet.base + offset))
}

func hpetReg32(offset uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(hpet.base + offset))
}

// InitHPET maps the HPET's MMIO block (through the kernel's direct map,
// same as every other physical access once paging is live), derives its
// tick frequency from the capabilities register, and arms comparator 0 for
// a ~30Hz periodic interrupt routed through the legacy-replacement mapping
// onto IRQ0. It supersedes the PIT as the active monotonic source; the PIT
// keeps running but is no longer consulted by Now.
func InitHPET(hpetTable *table.HPET) *kernel.Error {
	kernel.Global.Require(kernel.StageACPI)

	hpet.base = directMapFn(uintptr(hpetTable.BaseAddress.Address))

	caps := *hpetReg64(hpetRegCapabilities)
	periodFs := caps >> 32
	if periodFs == 0 {
		return errNoHPETPeriod
	}
	hpet.frequencyHz = femtosecondsPerSecond / periodFs

	disableInterruptsFn()

	*hpetReg64(hpetRegConfig) = 0
	*hpetReg64(hpetRegTimer0Config) = 0

	conf := *hpetReg64(hpetRegTimer0Config)
	conf |= 1 << 2 // Tn_INT_ENB_CNF: enable interrupts for this timer
	conf |= 1 << 3 // Tn_TYPE_CNF: periodic mode
	conf |= 1 << 6 // Tn_VAL_SET_CNF: next write to the comparator sets the period
	*hpetReg64(hpetRegTimer0Config) = conf

	*hpetReg32(hpetRegTimer0Compare) = uint32(hpet.frequencyHz / hpetTargetHz)

	// bit 1: LegacyReplacement routing sends timer 0 to IRQ0; bit 0 starts
	// the main counter.
	*hpetReg64(hpetRegConfig) = (1 << 1) | (1 << 0)

	enableInterruptsFn()

	hpet.lastCounter = uint32(*hpetReg64(hpetRegMainCounter))
	hpet.totalTicks = 0

	irq.ClearIRQ(pitIRQLine)
	irq.HandleIRQ(pitIRQLine, hpetInterruptHandler)
	activeSource = SourceHPET
	return nil
}

func hpetInterruptHandler(_ *irq.Frame, _ *irq.Regs) {
	current := uint32(*hpetReg64(hpetRegMainCounter))
	delta := current - hpet.lastCounter // wraps correctly via unsigned subtraction
	hpet.totalTicks += uint64(delta)
	hpet.lastCounter = current
}

func hpetNowNs() uint64 {
	disableInterruptsFn()
	total := hpet.totalTicks
	last := hpet.lastCounter
	enableInterruptsFn()

	current := uint32(*hpetReg64(hpetRegMainCounter))
	delta := current - last
	return (total + uint64(delta)) * 1_000_000_000 / hpet.frequencyHz
}
