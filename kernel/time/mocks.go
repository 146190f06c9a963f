package time

import (
	"borealos/kernel/cpu"
	"borealos/kernel/kfmt"
	"borealos/kernel/mem"
)

// The following are package variables, not direct calls, so tests can
// substitute fake I/O ports and a fake MMIO region instead of touching real
// hardware.
var (
	panicFn             = kfmt.Panic
	outByteFn           = cpu.OutByte
	inByteFn            = cpu.InByte
	ioWaitFn            = cpu.IOWait
	haltFn              = cpu.Halt
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts
	directMapFn         = func(physAddr uintptr) uintptr { return mem.HigherHalfOffset + physAddr }
)
