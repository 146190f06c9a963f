// Package heap implements the kernel's own dynamic memory allocator: a
// size-classed slab allocator for small requests with a self-hosted
// metadata bin, falling back to whole-frame mappings for anything larger
// than a page. It only runs once kernel/mem/vmm has installed KernelSpace,
// so every mapping it makes lands in the kernel's own address space.
package heap

import (
	"borealos/kernel/mem"
	"borealos/kernel/mem/vmm"
)

// Mode selects whether a fresh allocation is handed back with its previous
// contents (whatever the underlying frame held) or zero-filled.
type Mode uint8

const (
	// ModeNormal leaves the returned memory uninitialized.
	ModeNormal Mode = iota

	// ModeZeroed zero-fills the returned memory before handing it back.
	ModeZeroed
)

// defaultAlign is used when a caller passes an alignment of zero.
const defaultAlign = mem.Size(16)

// minBlockSize is the smallest size class; requests below it are rounded up.
const minBlockSize = mem.Size(16)

// Allocate reserves size bytes aligned to align (a power of two, default 16)
// with the given page protection flags. Requests of page size or smaller are
// served from size-class bins; larger requests take the huge path. An
// allocation of zero bytes always returns 0 without touching any bin.
func Allocate(size mem.Size, align mem.Size, flags vmm.PageTableEntryFlag, mode Mode) uintptr {
	if size == 0 {
		return 0
	}
	if align == 0 {
		align = defaultAlign
	}
	if align&(align-1) != 0 {
		panicFn(errAlignNotPowerOfTwo)
		return 0
	}
	if size < minBlockSize {
		size = minBlockSize
	}
	if align > size {
		size = align
	}

	if size > mem.Size(mem.PageSize) {
		return allocateHuge(size, flags, mode)
	}
	return allocateClass(size, flags, mode)
}

// Free releases an allocation previously returned by Allocate. size must
// match the size passed to Allocate (after the rounding Allocate performs);
// a mismatched size, or an address that was never handed out, is fatal.
func Free(vaddr uintptr, size mem.Size) {
	if vaddr == 0 {
		return
	}
	if size < minBlockSize {
		size = minBlockSize
	}

	if size > mem.Size(mem.PageSize) {
		freeHuge(vaddr, size)
		return
	}
	freeClass(vaddr, size)
}
