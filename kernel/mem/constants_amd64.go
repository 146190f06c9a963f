//go:build amd64

package mem

const (
	// PointerShift is equal to log2(unsafe.Sizeof(uintptr)).
	PointerShift = 3

	// PageShift is equal to log2(PageSize). Used to convert a physical
	// address to a frame/page index (shift right by PageShift) and back.
	PageShift = 12

	// PageSize is the system's page size in bytes.
	PageSize = Size(1 << PageShift)

	// HigherHalfOffset is the fixed virtual-minus-physical displacement
	// under which all physical memory is mapped once paging owns the
	// kernel address space (see kernel/mem/vmm).
	HigherHalfOffset = uintptr(0xffff_8000_0000_0000)
)
