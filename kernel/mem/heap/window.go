package heap

import "borealos/kernel/mem"

// The heap lives in its own slice of kernel virtual address space, well
// clear of the higher-half direct map kernel/mem/vmm installs for all of
// physical memory. Virtual addresses are handed out by a simple bump
// pointer: freeing a bin or a huge allocation unmaps and returns its
// physical frames, but never reclaims the virtual range it occupied, since
// a 64-bit kernel has far more virtual address space than it will ever back
// with physical memory. Running the cursor off the top of the window is
// therefore a bug, not a resource a caller can wait out, so it is fatal.
const (
	windowBase = uintptr(0xffff_a000_0000_0000)
	windowSize = uintptr(64) * uintptr(mem.Gb)
)

// windowCursor and windowTop are package variables, not the constants
// above used directly, so tests can retarget the window at a small
// real-memory buffer instead of the kernel's actual reserved range.
var (
	windowCursor = windowBase
	windowTop    = windowBase + windowSize
)

// reserveWindow bumps the cursor forward by size (rounded up to a whole
// number of pages) and returns the address it previously pointed to.
func reserveWindow(size mem.Size) uintptr {
	span := uintptr(size.RoundUpPage())

	next := windowCursor + span
	if next < windowCursor || next > windowTop {
		panicFn(errWindowExhausted)
		return 0
	}

	addr := windowCursor
	windowCursor = next
	return addr
}
