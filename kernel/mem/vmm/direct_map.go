package vmm

import "borealos/kernel/mem"

// directMapFn translates a physical address to its virtual alias under the
// higher-half direct map the loader installs before handing control to the
// kernel. Every page table this package touches, whether it belongs to the
// active address space or not, is reached through this alias: there is no
// recursive self-mapping trick to toggle, since the direct map makes all of
// physical memory addressable at once. It is a package variable, not a
// plain function, so tests can run the page-table-walking code against
// fake in-process tables instead of real physical frames.
var directMapFn = func(physAddr uintptr) uintptr {
	return mem.HigherHalfOffset + physAddr
}
