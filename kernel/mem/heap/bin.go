package heap

import (
	"unsafe"

	"borealos/kernel/mem"
	"borealos/kernel/mem/pmm"
	"borealos/kernel/mem/vmm"
)

// classSizes lists the supported size classes, smallest first. Every class
// is a power of two no larger than a page, so any power-of-two alignment up
// to the class size divides a block's address evenly.
var classSizes = [...]mem.Size{16, 32, 64, 128, 256, 512, 1024, 2048, 4096}

// classHeads holds, per size class, the metadata address of the first bin
// record in that class's bin list (0 if the class has no bins at all yet).
var classHeads [len(classSizes)]uintptr

// classIndexForSize returns the index of the smallest class that can hold
// size, or -1 if size exceeds a page (the huge path owns those).
func classIndexForSize(size mem.Size) int {
	for i, class := range classSizes {
		if size <= class {
			return i
		}
	}
	return -1
}

// binRecord is a metadata-bin-hosted record describing one bin: a single
// page, carved into blocks of one size class, threaded into a LIFO free
// list stored in the blocks' own leading words.
type binRecord struct {
	base       uintptr
	frameAddr  uintptr
	freeHead   uintptr
	next       uintptr
	class      uint16
	flags      uint16
	freeCount  uint16
	blockCount uint16
}

func binAt(addr uintptr) *binRecord {
	return (*binRecord)(unsafe.Pointer(addr))
}

func blockFreeLink(addr uintptr) *uintptr {
	return (*uintptr)(unsafe.Pointer(addr))
}

// allocateClass serves a small allocation from the size class that fits
// size, reusing an existing bin with matching flags and spare capacity or
// creating a new one backed by a freshly mapped frame.
func allocateClass(size mem.Size, flags vmm.PageTableEntryFlag, mode Mode) uintptr {
	idx := classIndexForSize(size)
	class := classSizes[idx]

	for addr := classHeads[idx]; addr != 0; addr = binAt(addr).next {
		b := binAt(addr)
		if b.flags == uint16(flags) && b.freeHead != 0 {
			return popBlock(b, class, mode)
		}
	}

	frame, err := pmmAllocFrameFn()
	if err != nil {
		return 0
	}
	vaddr := reserveWindow(mem.PageSize)
	if vaddr == 0 {
		pmmFreeFrameFn(frame)
		return 0
	}
	if err := mapFn(vaddr, frame.Address(), flags); err != nil {
		pmmFreeFrameFn(frame)
		return 0
	}

	recAddr := metadataAlloc()
	if recAddr == 0 {
		unmapFn(vaddr)
		pmmFreeFrameFn(frame)
		return 0
	}

	blockCount := uint16(uint64(mem.PageSize) / uint64(class))

	b := binAt(recAddr)
	*b = binRecord{
		base:       vaddr,
		frameAddr:  frame.Address(),
		class:      uint16(idx),
		flags:      uint16(flags),
		blockCount: blockCount,
		freeCount:  blockCount,
		next:       classHeads[idx],
	}
	for i := int(blockCount) - 1; i >= 0; i-- {
		block := vaddr + uintptr(i)*uintptr(class)
		*blockFreeLink(block) = b.freeHead
		b.freeHead = block
	}
	classHeads[idx] = recAddr

	return popBlock(b, class, mode)
}

// popBlock pops the head of b's free list and optionally zero-fills it.
func popBlock(b *binRecord, class mem.Size, mode Mode) uintptr {
	addr := b.freeHead
	b.freeHead = *blockFreeLink(addr)
	b.freeCount--
	if mode == ModeZeroed {
		mem.Memset(addr, 0, class)
	}
	return addr
}

// freeClass locates the bin owning vaddr by range check across every
// class's bin list, pushes the block back onto that bin's free list, and
// tears the bin down once it is entirely free again. A size that resolves
// to a different class than the one actually backing vaddr is fatal, as is
// an address that belongs to no bin at all.
func freeClass(vaddr uintptr, size mem.Size) {
	expected := classIndexForSize(size)

	for idx := range classSizes {
		var prevAddr uintptr
		for addr := classHeads[idx]; addr != 0; addr = binAt(addr).next {
			b := binAt(addr)
			capacity := uintptr(b.blockCount) * uintptr(classSizes[b.class])
			if vaddr < b.base || vaddr >= b.base+capacity {
				prevAddr = addr
				continue
			}

			if int(b.class) != expected {
				panicFn(errFreeSizeMismatch)
				return
			}

			*blockFreeLink(vaddr) = b.freeHead
			b.freeHead = vaddr
			b.freeCount++

			if b.freeCount == b.blockCount {
				if prevAddr == 0 {
					classHeads[idx] = b.next
				} else {
					binAt(prevAddr).next = b.next
				}
				unmapFn(b.base)
				pmmFreeFrameFn(pmm.FrameFromAddress(b.frameAddr))
				metadataFree(addr)
			}
			return
		}
	}

	panicFn(errFreeNotAllocated)
}
