package acpi

import (
	"borealos/kernel/cpu"
	"borealos/kernel/mem"
)

// The following are package variables, not direct calls, so tests can
// substitute an in-process byte buffer for physical memory and fake I/O
// ports instead of touching real hardware.
var (
	directMapFn = func(physAddr uintptr) uintptr { return mem.HigherHalfOffset + physAddr }
	outByteFn   = cpu.OutByte
	inWordFn    = cpu.InWord
	ioWaitFn    = cpu.IOWait
)
