package heap

import (
	"borealos/kernel"
	"borealos/kernel/kfmt"
	"borealos/kernel/mem/pmm"
	"borealos/kernel/mem/vmm"
)

var (
	// The following are mocked by tests and automatically inlined by the
	// compiler when building the kernel.
	panicFn = kfmt.Panic

	pmmAllocFrameFn = pmm.Default.AllocateFrame
	pmmFreeFrameFn  = pmm.Default.FreeFrame
	pmmAllocRunFn   = pmm.Default.Allocate
	pmmFreeRunFn    = pmm.Default.Free

	mapFn = func(vaddr, paddr uintptr, flags vmm.PageTableEntryFlag) *kernel.Error {
		return vmm.KernelSpace.Map(vaddr, paddr, flags, pmmAllocFrameFn)
	}
	unmapFn = func(vaddr uintptr) *kernel.Error {
		return vmm.KernelSpace.Unmap(vaddr, pmmFreeFrameFn)
	}
)

var (
	errAlignNotPowerOfTwo = &kernel.Error{Module: "heap", Message: "alignment must be a power of two"}
	errFreeNotAllocated   = &kernel.Error{Module: "heap", Message: "freeing an address that was never allocated"}
	errFreeSizeMismatch   = &kernel.Error{Module: "heap", Message: "free size does not match the class found at this address"}
	errWindowExhausted    = &kernel.Error{Module: "heap", Message: "virtual heap window wrapped around its top"}
)
