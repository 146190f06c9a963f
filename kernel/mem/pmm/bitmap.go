package pmm

import (
	"reflect"
	"unsafe"

	"borealos/kernel"
	"borealos/kernel/kfmt"
	"borealos/kernel/mem"
	"borealos/kernel/multiboot"
)

// lowMemoryReservedEnd is the address below which memory is reserved
// unconditionally, regardless of what the firmware memory map claims:
// real-mode IVT, BDA, and a long tail of BIOS/option-ROM furniture live
// there.
const lowMemoryReservedEnd = uintptr(1 * mem.Mb)

var (
	errZeroFrameRequest   = &kernel.Error{Module: "pmm", Message: "n_frames must be greater than zero"}
	errNoFreeRun          = &kernel.Error{Module: "pmm", Message: "no free contiguous run of the requested size"}
	errNoMemoryMap        = &kernel.Error{Module: "pmm", Message: "bootloader did not supply a memory map"}
	errNoBitmapPlacement  = &kernel.Error{Module: "pmm", Message: "no usable memory region is large enough to hold the frame bitmaps"}
	errMisalignedFree     = &kernel.Error{Module: "pmm", Message: "free address is not frame-aligned"}
	errFreeNotAllocated   = &kernel.Error{Module: "pmm", Message: "freeing a frame that is not currently allocated"}
	errFreeReservedRange  = &kernel.Error{Module: "pmm", Message: "freeing a range that crosses a reserved frame"}
)

// Allocator tracks physical frame reservation and allocation state using two
// independent per-bit bitmaps: reserved (never handed out, set once at
// bring-up) and allocated (mutated by Allocate/Free). Both bitmaps live in
// physical memory chosen at Init time, addressed through the higher-half
// direct map the loader already installed, so they are reachable before
// this kernel's own paging is running.
type Allocator struct {
	reserved    []uint64
	allocated   []uint64
	totalFrames uint64

	// bitmapBase and bitmapFrames record where the bitmaps themselves
	// live so Init can reserve that range like any other fixed carve-out.
	bitmapBase   Frame
	bitmapFrames uint64
}

// Default is the kernel-wide frame allocator instance.
var Default Allocator

func wordAndBit(f Frame) (int, uint64) {
	return int(uint64(f) >> 6), uint64(1) << (uint64(f) & 63)
}

// Reserve marks the n_frames frames starting at phys_start as permanently
// unavailable. It may be called before or after Allocate has been used.
func (a *Allocator) Reserve(physStart uintptr, nFrames uint64) {
	if nFrames == 0 {
		kfmt.Panic(errZeroFrameRequest)
		return
	}

	start := FrameFromAddress(physStart)
	for i := uint64(0); i < nFrames; i++ {
		f := Frame(uint64(start) + i)
		if uint64(f) >= a.totalFrames {
			return
		}
		word, bit := wordAndBit(f)
		a.reserved[word] |= bit
	}
}

// IsReserved reports whether the frame at the given frame index is marked
// reserved.
func (a *Allocator) IsReserved(frameIndex Frame) bool {
	word, bit := wordAndBit(frameIndex)
	return a.reserved[word]&bit != 0
}

// IsAllocated reports whether the frame at the given frame index is
// currently handed out.
func (a *Allocator) IsAllocated(frameIndex Frame) bool {
	word, bit := wordAndBit(frameIndex)
	return a.allocated[word]&bit != 0
}

func (a *Allocator) runIsFree(start Frame, nFrames uint64) bool {
	for i := uint64(0); i < nFrames; i++ {
		f := Frame(uint64(start) + i)
		if a.IsReserved(f) || a.IsAllocated(f) {
			return false
		}
	}
	return true
}

func (a *Allocator) markRun(start Frame, nFrames uint64, allocated bool) {
	for i := uint64(0); i < nFrames; i++ {
		f := Frame(uint64(start) + i)
		word, bit := wordAndBit(f)
		if allocated {
			a.allocated[word] |= bit
		} else {
			a.allocated[word] &^= bit
		}
	}
}

// Allocate scans from the lowest managed frame for the first contiguous run
// of exactly n_frames frames that is neither reserved nor already
// allocated, marks it allocated and returns its base physical address.
// Ties are broken by address order, so the result is deterministic. It
// returns errNoFreeRun if no such run exists; that is an ordinary
// allocation failure, not a fatal condition.
func (a *Allocator) Allocate(nFrames uint64) (uintptr, *kernel.Error) {
	if nFrames == 0 {
		kfmt.Panic(errZeroFrameRequest)
		return 0, nil
	}

	runStart := Frame(0)
	runLen := uint64(0)
	for f := Frame(0); uint64(f) < a.totalFrames; f++ {
		if a.IsReserved(f) || a.IsAllocated(f) {
			runLen = 0
			continue
		}

		if runLen == 0 {
			runStart = f
		}
		runLen++

		if runLen == nFrames {
			a.markRun(runStart, nFrames, true)
			return runStart.Address(), nil
		}
	}

	return 0, errNoFreeRun
}

// Free clears the allocated bits for the n_frames frames starting at
// phys_addr. phys_addr must be frame-aligned. It is fatal if any frame in
// the range is reserved or is not currently allocated: both indicate a
// bookkeeping bug in the caller, not a recoverable condition.
func (a *Allocator) Free(physAddr uintptr, nFrames uint64) {
	if nFrames == 0 {
		kfmt.Panic(errZeroFrameRequest)
		return
	}
	if uintptr(physAddr)&uintptr(mem.PageSize-1) != 0 {
		kfmt.Panic(errMisalignedFree)
		return
	}

	start := FrameFromAddress(physAddr)
	for i := uint64(0); i < nFrames; i++ {
		f := Frame(uint64(start) + i)
		if a.IsReserved(f) {
			kfmt.Panic(errFreeReservedRange)
			return
		}
		if !a.IsAllocated(f) {
			kfmt.Panic(errFreeNotAllocated)
			return
		}
	}

	a.markRun(start, nFrames, false)
}

// AllocateFrame is a single-frame convenience wrapper around Allocate, used
// by callers (the VMM's page-table-walk allocator function, the heap's
// page-granularity fallback) that only ever need one frame at a time.
func (a *Allocator) AllocateFrame() (Frame, *kernel.Error) {
	addr, err := a.Allocate(1)
	if err != nil {
		return InvalidFrame, err
	}
	return FrameFromAddress(addr), nil
}

// FreeFrame is the single-frame counterpart to AllocateFrame.
func (a *Allocator) FreeFrame(f Frame) {
	a.Free(f.Address(), 1)
}

// Stats reports the total, free and reserved frame counts currently known to
// the allocator.
func (a *Allocator) Stats() (total, free, reserved uint64) {
	total = a.totalFrames
	for f := Frame(0); uint64(f) < a.totalFrames; f++ {
		switch {
		case a.IsReserved(f):
			reserved++
		case !a.IsAllocated(f):
			free++
		}
	}
	return total, free, reserved
}

// overlayUint64 returns a []uint64 of the given length backed by the memory
// at addr, the same pointer-overlay idiom used throughout this kernel for
// talking to memory that predates the Go allocator.
func overlayUint64(addr uintptr, words uint64) []uint64 {
	return *(*[]uint64)(unsafe.Pointer(&reflect.SliceHeader{
		Data: addr,
		Len:  int(words),
		Cap:  int(words),
	}))
}

// placeBitmaps scans the firmware memory map for the first available region
// large enough to hold both bitmaps and returns its physical base and the
// number of frames it occupies.
func placeBitmaps(wordsPerBitmap uint64) (Frame, uint64, *kernel.Error) {
	neededBytes := mem.Size(wordsPerBitmap * 8 * 2)
	neededFrames := neededBytes.Pages()

	var (
		base  Frame
		found bool
	)
	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		if region.Type != multiboot.MemAvailable {
			return true
		}

		regionStart := uintptr(region.PhysAddress)
		regionEnd := regionStart + uintptr(region.Length)
		if regionStart < lowMemoryReservedEnd {
			regionStart = lowMemoryReservedEnd
		}
		if regionStart >= regionEnd {
			return true
		}

		availableFrames := uint64(FrameFromAddress(regionEnd)) - uint64(FrameFromAddress(regionStart))
		if availableFrames < neededFrames {
			return true
		}

		base = FrameFromAddress(regionStart)
		found = true
		return false
	})

	if !found {
		return InvalidFrame, 0, errNoBitmapPlacement
	}
	return base, neededFrames, nil
}

// Init builds the reserved bitmap from the firmware memory map, the low 1
// MiB, the kernel image bounds, any bootloader modules and the bitmaps'
// own backing storage, and leaves the allocated bitmap empty.
// kernelStart/kernelEnd are physical addresses spanning the loaded kernel
// image.
func (a *Allocator) Init(kernelStart, kernelEnd uintptr) *kernel.Error {
	*a = Allocator{}

	var (
		highestFrame Frame
		sawRegion    bool
	)
	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		sawRegion = true
		endFrame := FrameFromAddress(uintptr(region.PhysAddress + region.Length))
		if endFrame > highestFrame {
			highestFrame = endFrame
		}
		return true
	})
	if !sawRegion {
		return errNoMemoryMap
	}
	a.totalFrames = uint64(highestFrame) + 1

	wordsPerBitmap := (a.totalFrames + 63) / 64
	bitmapBase, bitmapFrames, err := placeBitmaps(wordsPerBitmap)
	if err != nil {
		return err
	}
	a.bitmapBase, a.bitmapFrames = bitmapBase, bitmapFrames

	reservedAddr := mem.HigherHalfOffset + bitmapBase.Address()
	allocatedAddr := reservedAddr + uintptr(wordsPerBitmap*8)
	a.reserved = overlayUint64(reservedAddr, wordsPerBitmap)
	a.allocated = overlayUint64(allocatedAddr, wordsPerBitmap)
	mem.Memset(reservedAddr, 0, mem.Size(wordsPerBitmap*8))
	mem.Memset(allocatedAddr, 0, mem.Size(wordsPerBitmap*8))

	a.Reserve(0, uint64(FrameFromAddress(lowMemoryReservedEnd)))
	a.Reserve(kernelStart, uint64(FrameFromAddress(kernelEnd-1))-uint64(FrameFromAddress(kernelStart))+1)
	a.Reserve(bitmapBase.Address(), bitmapFrames)

	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		if region.Type != multiboot.MemAvailable {
			start := FrameFromAddress(uintptr(region.PhysAddress))
			end := FrameFromAddress(uintptr(region.PhysAddress + region.Length))
			if end > start {
				a.Reserve(start.Address(), uint64(end)-uint64(start))
			}
		}
		return true
	})

	multiboot.VisitModules(func(m multiboot.Module) bool {
		a.Reserve(m.Start, uint64(FrameFromAddress(m.End-1))-uint64(FrameFromAddress(m.Start))+1)
		return true
	})

	return nil
}

// Init initializes the Default allocator. It is the public entry point
// kmain calls during L2 bring-up.
func Init(kernelStart, kernelEnd uintptr) *kernel.Error {
	return Default.Init(kernelStart, kernelEnd)
}
