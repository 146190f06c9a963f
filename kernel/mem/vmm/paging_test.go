package vmm

import (
	"testing"
	"unsafe"

	"borealos/kernel"
	"borealos/kernel/mem"
	"borealos/kernel/mem/pmm"
)

// fakeTables backs a handful of page tables with real, page-aligned Go
// memory so the package's frame-addressed code (which dereferences
// directMapFn(frame.Address()) as real memory) can run against it exactly
// as it would against physical RAM. directMapFn is overridden to the
// identity function so "physical" frame addresses are used as-is.
type fakeTables struct {
	raw  [8][2 * mem.PageSize]byte
	used int
}

func (f *fakeTables) frame(index int) pmm.Frame {
	base := uintptr(unsafe.Pointer(&f.raw[index][0]))
	aligned := (base + uintptr(mem.PageSize-1)) &^ uintptr(mem.PageSize-1)
	return pmm.FrameFromAddress(aligned)
}

func (f *fakeTables) alloc() (pmm.Frame, *kernel.Error) {
	f.used++
	return f.frame(f.used), nil
}

func installIdentityDirectMap(t *testing.T) {
	orig := directMapFn
	directMapFn = func(addr uintptr) uintptr { return addr }
	t.Cleanup(func() { directMapFn = orig })
}

func TestMapCreatesIntermediateTablesAndTranslates(t *testing.T) {
	installIdentityDirectMap(t)

	tables := &fakeTables{}
	root := tables.frame(0)
	as := AddressSpace{root: root}

	flushed := 0
	origFlush := flushTLBEntryFn
	flushTLBEntryFn = func(uintptr) { flushed++ }
	t.Cleanup(func() { flushTLBEntryFn = origFlush })

	vaddr := uintptr(0x1000)
	paddr := uintptr(0x7000)

	if err := as.Map(vaddr, paddr, FlagRW, tables.alloc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := as.Translate(vaddr); got != paddr {
		t.Fatalf("expected translate to return %#x; got %#x", paddr, got)
	}
	if flushed != 1 {
		t.Fatalf("expected exactly one TLB flush; got %d", flushed)
	}
}

func TestMapOverPresentPageIsFatal(t *testing.T) {
	installIdentityDirectMap(t)

	tables := &fakeTables{}
	as := AddressSpace{root: tables.frame(0)}

	origFlush := flushTLBEntryFn
	flushTLBEntryFn = func(uintptr) {}
	t.Cleanup(func() { flushTLBEntryFn = origFlush })

	vaddr := uintptr(0x2000)
	if err := as.Map(vaddr, uintptr(0x9000), FlagRW, tables.alloc); err != nil {
		t.Fatalf("unexpected error on first map: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected mapping over a present page to panic")
		}
	}()
	as.Map(vaddr, uintptr(0xa000), FlagRW, tables.alloc)
}

func TestTranslateUnmappedAddressReturnsZero(t *testing.T) {
	installIdentityDirectMap(t)

	tables := &fakeTables{}
	as := AddressSpace{root: tables.frame(0)}

	if got := as.Translate(uintptr(0x3000)); got != 0 {
		t.Fatalf("expected 0 for an unmapped address; got %#x", got)
	}
}

func TestUnmapClearsLeafAndCascadesFreedTables(t *testing.T) {
	installIdentityDirectMap(t)

	tables := &fakeTables{}
	as := AddressSpace{root: tables.frame(0)}

	origFlush := flushTLBEntryFn
	flushTLBEntryFn = func(uintptr) {}
	t.Cleanup(func() { flushTLBEntryFn = origFlush })

	vaddr := uintptr(0x4000)
	if err := as.Map(vaddr, uintptr(0xb000), FlagRW, tables.alloc); err != nil {
		t.Fatalf("unexpected error mapping: %v", err)
	}

	freed := make(map[pmm.Frame]bool)
	freeFn := func(f pmm.Frame) { freed[f] = true }

	if err := as.Unmap(vaddr, freeFn); err != nil {
		t.Fatalf("unexpected error unmapping: %v", err)
	}

	if got := as.Translate(vaddr); got != 0 {
		t.Fatalf("expected address to be unmapped; got %#x", got)
	}
	if len(freed) != pageLevels-1 {
		t.Fatalf("expected %d intermediate tables to be freed; got %d", pageLevels-1, len(freed))
	}
}

func TestUnmapOfUnmappedAddressIsFatal(t *testing.T) {
	installIdentityDirectMap(t)

	tables := &fakeTables{}
	as := AddressSpace{root: tables.frame(0)}

	defer func() {
		if recover() == nil {
			t.Fatal("expected unmap of an unmapped address to panic")
		}
	}()
	as.Unmap(uintptr(0x5000), func(pmm.Frame) {})
}
