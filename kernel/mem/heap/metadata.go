package heap

import (
	"unsafe"

	"borealos/kernel/mem"
	"borealos/kernel/mem/pmm"
	"borealos/kernel/mem/vmm"
)

// metadataRecordSize is the fixed slot size bin and huge-allocation records
// are carved from. Both binRecord and hugeRecord fit comfortably within it.
const metadataRecordSize = 64

// recordsPerPage is the number of metadata slots a single backing page holds.
const recordsPerPage = int(mem.PageSize) / metadataRecordSize

// metadataBin hosts the fixed-size records the bin and huge-allocation
// lists are built from. It is itself just a degenerate one-page, one-bin
// allocator: its backing page is obtained from the PMM the first time a
// record is needed and returned once every record is freed again.
type metadataBin struct {
	frame    pmm.Frame
	base     uintptr
	freeHead uintptr
	freeCount int
}

var meta metadataBin

func metadataSlotFreeLink(addr uintptr) *uintptr {
	return (*uintptr)(unsafe.Pointer(addr))
}

// metadataAlloc returns the address of a free metadata slot, mapping in a
// fresh backing page on first use.
func metadataAlloc() uintptr {
	if meta.base == 0 {
		frame, err := pmmAllocFrameFn()
		if err != nil {
			return 0
		}
		vaddr := reserveWindow(mem.PageSize)
		if vaddr == 0 {
			pmmFreeFrameFn(frame)
			return 0
		}
		if err := mapFn(vaddr, frame.Address(), vmm.FlagRW); err != nil {
			pmmFreeFrameFn(frame)
			return 0
		}

		meta.frame = frame
		meta.base = vaddr
		meta.freeHead = 0
		meta.freeCount = 0
		for i := recordsPerPage - 1; i >= 0; i-- {
			slot := vaddr + uintptr(i*metadataRecordSize)
			*metadataSlotFreeLink(slot) = meta.freeHead
			meta.freeHead = slot
			meta.freeCount++
		}
	}

	if meta.freeHead == 0 {
		return 0
	}

	slot := meta.freeHead
	meta.freeHead = *metadataSlotFreeLink(slot)
	meta.freeCount--
	return slot
}

// metadataFree returns a record slot to the free list, unmapping and
// releasing the metadata bin's backing page once every slot is free again.
func metadataFree(addr uintptr) {
	*metadataSlotFreeLink(addr) = meta.freeHead
	meta.freeHead = addr
	meta.freeCount++

	if meta.freeCount == recordsPerPage {
		unmapFn(meta.base)
		pmmFreeFrameFn(meta.frame)
		meta = metadataBin{}
	}
}
