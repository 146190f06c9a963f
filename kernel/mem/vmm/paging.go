package vmm

import (
	"unsafe"

	"borealos/kernel"
	"borealos/kernel/kfmt"
	"borealos/kernel/mem"
	"borealos/kernel/mem/pmm"
)

var (
	// flushTLBEntryFn is mocked by tests and is automatically inlined by
	// the compiler when building the kernel.
	flushTLBEntryFn = flushTLBEntry

	errPageNotAligned        = &kernel.Error{Module: "vmm", Message: "virtual or physical address is not page-aligned"}
	errMappingOverPresent    = &kernel.Error{Module: "vmm", Message: "mapping over an already-present page"}
	errUnmapRequiresPresent  = &kernel.Error{Module: "vmm", Message: "unmap requires every level of the walk to be present"}
	errNoHugePageSupport     = &kernel.Error{Module: "vmm", Message: "huge pages are not supported by map/unmap"}
)

// FrameAllocatorFn is a function that can allocate a physical frame, used to
// grow the page-table tree on demand.
type FrameAllocatorFn func() (pmm.Frame, *kernel.Error)

// FrameFreerFn is a function that releases a physical frame, used to reclaim
// page tables emptied by Unmap's upward cascade.
type FrameFreerFn func(pmm.Frame)

// AddressSpace is a single top-level (PML4) page table tree.
type AddressSpace struct {
	root pmm.Frame
}

// Root returns the physical frame backing this address space's top-level
// table.
func (as AddressSpace) Root() pmm.Frame {
	return as.root
}

// Map establishes vaddr -> paddr in this address space. Both addresses must
// be page-aligned. Missing intermediate tables are allocated via allocFn,
// zero-filled and inserted with Present|Writable|User; the leaf entry
// composes flags with Present. Mapping over an already-present leaf is
// fatal, as is encountering a huge page along the walk.
func (as AddressSpace) Map(vaddr, paddr uintptr, flags PageTableEntryFlag, allocFn FrameAllocatorFn) *kernel.Error {
	if vaddr&uintptr(mem.PageSize-1) != 0 || paddr&uintptr(mem.PageSize-1) != 0 {
		kfmt.Panic(errPageNotAligned)
		return nil
	}

	var err *kernel.Error
	walk(as.root, vaddr, func(level uint8, pte *pageTableEntry) bool {
		if level == pageLevels-1 {
			if pte.HasFlags(FlagPresent) {
				kfmt.Panic(errMappingOverPresent)
				return false
			}

			*pte = 0
			pte.SetFrame(pmm.FrameFromAddress(paddr))
			pte.SetFlags(FlagPresent | flags)
			flushTLBEntryFn(vaddr)
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		if !pte.HasFlags(FlagPresent) {
			newTable, allocErr := allocFn()
			if allocErr != nil {
				err = allocErr
				return false
			}

			mem.Memset(directMapFn(newTable.Address()), 0, mem.PageSize)
			*pte = 0
			pte.SetFrame(newTable)
			pte.SetFlags(FlagPresent | FlagRW | FlagUserAccessible)
		}

		return true
	})

	return err
}

// Unmap removes a mapping previously installed by Map. Every level of the
// walk must be present; otherwise it is fatal. The leaf is cleared and its
// TLB entry invalidated, and the cascade then walks back upward: whenever a
// table at a level is left entirely non-present, its frame is freed and the
// parent's entry pointing at it is cleared, continuing up through PD and
// PDPT.
func (as AddressSpace) Unmap(vaddr uintptr, freeFn FrameFreerFn) *kernel.Error {
	if vaddr&uintptr(mem.PageSize-1) != 0 {
		kfmt.Panic(errPageNotAligned)
		return nil
	}

	var (
		ptes [pageLevels]*pageTableEntry
		err  *kernel.Error
	)
	walk(as.root, vaddr, func(level uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			kfmt.Panic(errUnmapRequiresPresent)
			return false
		}
		if level < pageLevels-1 && pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}
		ptes[level] = pte
		return true
	})
	if err != nil {
		return err
	}

	leaf := ptes[pageLevels-1]
	leaf.ClearFlags(FlagPresent)
	flushTLBEntryFn(vaddr)

	for level := pageLevels - 2; level >= 0; level-- {
		childTable := ptes[level].Frame()
		if !tableIsEmpty(childTable) {
			break
		}
		freeFn(childTable)
		ptes[level].ClearFlags(FlagPresent)
	}

	return nil
}

// tableIsEmpty reports whether every entry in the table rooted at
// tableFrame is non-present.
func tableIsEmpty(tableFrame pmm.Frame) bool {
	base := directMapFn(tableFrame.Address())
	for i := uintptr(0); i < entriesPerTable; i++ {
		pte := (*pageTableEntry)(unsafe.Pointer(base + i<<mem.PointerShift))
		if pte.HasFlags(FlagPresent) {
			return false
		}
	}
	return true
}

// Translate returns the physical address that vaddr currently maps to, or 0
// if any level of the walk is absent.
func (as AddressSpace) Translate(vaddr uintptr) uintptr {
	var result uintptr
	walk(as.root, vaddr, func(level uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			result = 0
			return false
		}
		if level == pageLevels-1 {
			offset := vaddr & ((uintptr(1) << pageLevelShifts[pageLevels-1]) - 1)
			result = pte.Frame().Address() + offset
		}
		return true
	})
	return result
}
