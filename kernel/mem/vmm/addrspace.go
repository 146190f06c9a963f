package vmm

import (
	"unsafe"

	"borealos/kernel"
	"borealos/kernel/cpu"
	"borealos/kernel/mem"
	"borealos/kernel/mem/pmm"
)

var (
	// readCR3Fn and writeCR3Fn are mocked by tests so address-space
	// switches can be verified without touching the real control register.
	readCR3Fn  = cpu.ReadCR3
	writeCR3Fn = cpu.WriteCR3
)

// KernelSpace is the kernel's own address space, built once during L5
// bring-up by deep-copying the loader's upper-half mappings. Every other
// address space created afterwards starts from a copy of KernelSpace's
// upper half so kernel mappings stay identical and stable across switches.
var KernelSpace AddressSpace

// NewAddressSpace allocates and zero-fills a fresh, empty top-level table.
func NewAddressSpace(allocFn FrameAllocatorFn) (AddressSpace, *kernel.Error) {
	root, err := allocFn()
	if err != nil {
		return AddressSpace{}, err
	}

	mem.Memset(directMapFn(root.Address()), 0, mem.PageSize)
	return AddressSpace{root: root}, nil
}

// Activate loads this address space's top-level table into CR3. Reloading
// CR3 flushes every non-global TLB entry, giving the full shootdown the
// design calls for on this single-CPU core.
func (as AddressSpace) Activate() {
	writeCR3Fn(as.root.Address())
}

// InitKernelSpace builds KernelSpace by allocating a new, empty top-level
// table and deep-copying the loader's existing upper half into it: the
// kernel image mapping and the higher-half direct map of all physical
// memory the loader installed before handing control here. The loader's
// own top-level table is left untouched; once InitKernelSpace returns,
// KernelSpace is a tree the kernel owns outright and may mutate freely,
// while its upper half remains identical to what the loader set up.
func InitKernelSpace(allocFn FrameAllocatorFn) *kernel.Error {
	loaderRoot := pmm.FrameFromAddress(readCR3Fn())

	space, err := NewAddressSpace(allocFn)
	if err != nil {
		return err
	}

	// PML4 entries 0-255 map the lower half (user space); 256-511 map the
	// higher half (kernel image plus the direct map). Only the upper half
	// is copied: the lower half starts out empty for whoever uses this
	// address space next.
	if err := deepCopy(loaderRoot, space.root, 0, entriesPerTable/2, entriesPerTable, allocFn); err != nil {
		return err
	}

	KernelSpace = space
	return nil
}

// deepCopy copies every present entry in [startIndex, endIndex) of the
// table rooted at srcFrame into the corresponding entries of dstFrame.
// Huge-page leaves and entries at the final page level are copied as-is;
// every other present entry causes a fresh child table to be allocated and
// recursively deep-copied, so the destination tree never shares a mutable
// table with the source.
func deepCopy(srcFrame, dstFrame pmm.Frame, level uint8, startIndex, endIndex int, allocFn FrameAllocatorFn) *kernel.Error {
	srcBase := directMapFn(srcFrame.Address())
	dstBase := directMapFn(dstFrame.Address())

	for i := startIndex; i < endIndex; i++ {
		srcEntry := (*pageTableEntry)(unsafe.Pointer(srcBase + uintptr(i)<<mem.PointerShift))
		if !srcEntry.HasFlags(FlagPresent) {
			continue
		}

		dstEntry := (*pageTableEntry)(unsafe.Pointer(dstBase + uintptr(i)<<mem.PointerShift))

		if level == pageLevels-1 || srcEntry.HasFlags(FlagHugePage) {
			*dstEntry = *srcEntry
			continue
		}

		childFrame, err := allocFn()
		if err != nil {
			return err
		}
		mem.Memset(directMapFn(childFrame.Address()), 0, mem.PageSize)

		*dstEntry = 0
		dstEntry.SetFrame(childFrame)
		dstEntry.SetFlags(srcEntry.Flags())

		if err := deepCopy(srcEntry.Frame(), childFrame, level+1, 0, entriesPerTable, allocFn); err != nil {
			return err
		}
	}

	return nil
}
