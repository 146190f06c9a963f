package vmm

// flushTLBEntry invalidates the single TLB entry covering virtAddr (INVLPG).
// A full address-space switch instead reloads CR3, which flushes every
// non-global entry on its own; see AddressSpace.Activate.
func flushTLBEntry(virtAddr uintptr)
