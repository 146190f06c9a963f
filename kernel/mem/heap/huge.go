package heap

import (
	"unsafe"

	"borealos/kernel/mem"
	"borealos/kernel/mem/vmm"
)

// hugeRecord is a metadata-bin-hosted record describing one huge
// (larger-than-a-page) allocation: a contiguous physical run mapped as a
// contiguous run of virtual pages.
type hugeRecord struct {
	vaddr    uintptr
	physAddr uintptr
	size     mem.Size
	nFrames  uint64
	next     uintptr
}

var hugeListHead uintptr

func hugeAt(addr uintptr) *hugeRecord {
	return (*hugeRecord)(unsafe.Pointer(addr))
}

// allocateHuge rounds size up to whole frames, allocates a contiguous
// physical run, maps it into the heap window and records it for Free.
func allocateHuge(size mem.Size, flags vmm.PageTableEntryFlag, mode Mode) uintptr {
	rounded := size.RoundUpPage()
	nFrames := rounded.Pages()

	physAddr, err := pmmAllocRunFn(nFrames)
	if err != nil {
		return 0
	}

	vaddr := reserveWindow(rounded)
	if vaddr == 0 {
		pmmFreeRunFn(physAddr, nFrames)
		return 0
	}

	var mapped uint64
	for ; mapped < nFrames; mapped++ {
		pageVaddr := vaddr + uintptr(mapped)*uintptr(mem.PageSize)
		pagePaddr := physAddr + uintptr(mapped)*uintptr(mem.PageSize)
		if err := mapFn(pageVaddr, pagePaddr, flags); err != nil {
			break
		}
	}
	if mapped != nFrames {
		for i := uint64(0); i < mapped; i++ {
			unmapFn(vaddr + uintptr(i)*uintptr(mem.PageSize))
		}
		pmmFreeRunFn(physAddr, nFrames)
		return 0
	}

	recAddr := metadataAlloc()
	if recAddr == 0 {
		for i := uint64(0); i < nFrames; i++ {
			unmapFn(vaddr + uintptr(i)*uintptr(mem.PageSize))
		}
		pmmFreeRunFn(physAddr, nFrames)
		return 0
	}

	*hugeAt(recAddr) = hugeRecord{
		vaddr:    vaddr,
		physAddr: physAddr,
		size:     rounded,
		nFrames:  nFrames,
		next:     hugeListHead,
	}
	hugeListHead = recAddr

	if mode == ModeZeroed {
		mem.Memset(vaddr, 0, rounded)
	}
	return vaddr
}

// freeHuge locates the huge-allocation record for vaddr, unmaps and
// releases its frames, and unlinks the record. A size that does not match
// the recorded allocation, or an address matching no record, is fatal.
func freeHuge(vaddr uintptr, size mem.Size) {
	rounded := size.RoundUpPage()
	var prevAddr uintptr

	for addr := hugeListHead; addr != 0; addr = hugeAt(addr).next {
		h := hugeAt(addr)
		if h.vaddr != vaddr {
			prevAddr = addr
			continue
		}

		if h.size != rounded {
			panicFn(errFreeSizeMismatch)
			return
		}

		for i := uint64(0); i < h.nFrames; i++ {
			unmapFn(vaddr + uintptr(i)*uintptr(mem.PageSize))
		}
		pmmFreeRunFn(h.physAddr, h.nFrames)

		if prevAddr == 0 {
			hugeListHead = h.next
		} else {
			hugeAt(prevAddr).next = h.next
		}
		metadataFree(addr)
		return
	}

	panicFn(errFreeNotAllocated)
}
