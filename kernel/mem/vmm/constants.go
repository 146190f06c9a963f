package vmm

// pageLevels is the depth of the amd64 page-table tree: PML4, PDPT, PD, PT.
const pageLevels = 4

// entriesPerTable is the number of entries in each page-table level.
const entriesPerTable = 512

// ptePhysPageMask isolates bits 12-51 of a page table entry, the physical
// frame address it points to.
const ptePhysPageMask = uintptr(0x000ffffffffff000)

// pageLevelBits gives the number of virtual address bits consumed by each
// page level; every level indexes a 512-entry table with 9 bits.
var pageLevelBits = [pageLevels]uint8{9, 9, 9, 9}

// pageLevelShifts gives the bit offset of each page level's index field
// within a virtual address: pml4=[39:47], pdpt=[30:38], pd=[21:29],
// pt=[12:20].
var pageLevelShifts = [pageLevels]uint8{39, 30, 21, 12}

const (
	// FlagPresent is set when the page is available in memory and not swapped out.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode processes can access this page. If
	// not set only kernel code can access this page.
	FlagUserAccessible

	// FlagWriteThroughCaching implies write-through caching when set and write-back
	// caching if cleared.
	FlagWriteThroughCaching

	// FlagDoNotCache prevents this page from being cached if set.
	FlagDoNotCache

	// FlagAccessed is set by the CPU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the CPU when this page is modified.
	FlagDirty

	// FlagHugePage is set when using 2Mb (PD level) or 1Gb (PDPT level) pages
	// instead of 4K pages.
	FlagHugePage

	// FlagGlobal, if set, prevents the TLB from flushing the cached
	// mapping for this page when CR3 is reloaded.
	FlagGlobal
)

// FlagNoExecute marks a page as non-executable. It occupies bit 63, outside
// the iota run above.
const FlagNoExecute PageTableEntryFlag = 1 << 63
