// Package time brings up the kernel's three clock sources: the PIT as a
// coarse always-available monotonic tick, the RTC for the wall-clock epoch,
// and the HPET as a finer-grained monotonic source once ACPI has located
// it. Init is split into three entry points rather than one because the
// HPET's ACPI table is only reachable after kernel/acpi has run, one layer
// above where the PIT and RTC are expected to already be ticking; kmain
// calls InitPIT and InitRTC at L7 and, once L8 locates the HPET table,
// upgrades to it with InitHPET.
package time

import "borealos/kernel"

// Source identifies which hardware clock currently backs Now/BusyWait.
type Source uint8

const (
	SourceNone Source = iota
	SourcePIT
	SourceHPET
)

// activeSource is the monotonic source Now and BusyWaitNanoseconds read
// from. InitHPET atomically promotes it from SourcePIT to SourceHPET; there
// is no path back down, since the HPET is strictly finer-grained than the
// PIT and both free-run once started.
var activeSource Source

// Now returns nanoseconds elapsed since the active monotonic source was
// started. It panics if no source has been initialized yet.
func Now() uint64 {
	switch activeSource {
	case SourceHPET:
		return hpetNowNs()
	case SourcePIT:
		return pitNowNs()
	default:
		panicFn(errNoMonotonicSource)
		return 0
	}
}

// BusyWaitNanoseconds blocks the calling CPU for at least the given number
// of nanoseconds, halting between polls of the active monotonic source.
func BusyWaitNanoseconds(ns uint64) {
	start := Now()
	for Now()-start < ns {
		haltFn()
	}
}

// Epoch returns the current wall-clock time as a Unix timestamp. It panics
// if InitRTC has not run.
func Epoch() uint64 {
	if !rtc.initialized {
		panicFn(errNoWallClock)
		return 0
	}
	return rtc.bootEpoch + rtc.ticks/rtcTicksPerSecond
}

var (
	errNoMonotonicSource = &kernel.Error{Module: "time", Message: "no monotonic time source has been initialized"}
	errNoWallClock       = &kernel.Error{Module: "time", Message: "RTC has not been initialized"}
)
