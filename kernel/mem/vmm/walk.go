package vmm

import (
	"unsafe"

	"borealos/kernel/mem"
	"borealos/kernel/mem/pmm"
)

// entryPtrFn resolves the address of the entry at index within the table
// rooted at tableFrame through directMapFn, which tests override to point
// at fake in-memory tables instead of real physical frames.
var entryPtrFn = func(tableFrame pmm.Frame, index uintptr) unsafe.Pointer {
	return unsafe.Pointer(directMapFn(tableFrame.Address()) + index<<mem.PointerShift)
}

// pageTableWalker is invoked by walk with the current page level and page
// table entry. Returning false aborts the walk.
type pageTableWalker func(level uint8, pte *pageTableEntry) bool

// walk performs a page table walk for virtAddr starting at root, invoking
// walkFn once per level. Each level's table is reached through the higher-
// half direct map, so walk works identically whether root is the currently
// active address space or not.
func walk(root pmm.Frame, virtAddr uintptr, walkFn pageTableWalker) {
	tableFrame := root
	for level := uint8(0); level < pageLevels; level++ {
		index := (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
		pte := (*pageTableEntry)(entryPtrFn(tableFrame, index))

		if !walkFn(level, pte) {
			return
		}

		if level < pageLevels-1 {
			tableFrame = pte.Frame()
		}
	}
}
