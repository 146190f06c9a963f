package heap

import (
	"testing"

	"borealos/kernel"
	"borealos/kernel/mem"
	"borealos/kernel/mem/vmm"
)

func TestClassIndexForSize(t *testing.T) {
	specs := []struct {
		size mem.Size
		want int
	}{
		{1, 0},
		{16, 0},
		{17, 1},
		{4096, len(classSizes) - 1},
	}
	for _, spec := range specs {
		if got := classIndexForSize(spec.size); got != spec.want {
			t.Fatalf("classIndexForSize(%d) = %d; want %d", spec.size, got, spec.want)
		}
	}
	if got := classIndexForSize(4097); got != -1 {
		t.Fatalf("classIndexForSize(4097) = %d; want -1", got)
	}
}

func TestAllocateClassPicksBinByFlags(t *testing.T) {
	fw := newFakeWindow(t)

	rw := Allocate(32, 0, vmm.FlagRW, ModeNormal)
	ro := Allocate(32, 0, vmm.FlagGlobal, ModeNormal)

	idx := classIndexForSize(32)
	bins := 0
	for addr := classHeads[idx]; addr != 0; addr = binAt(addr).next {
		bins++
	}
	if bins != 2 {
		t.Fatalf("expected flags mismatch to force a second bin; got %d bins", bins)
	}
	if len(fw.mapped) != 3 {
		t.Fatalf("expected 2 distinct bin pages plus the metadata page; got %d", len(fw.mapped))
	}

	Free(rw, 32)
	Free(ro, 32)
}

func TestFreeClassSizeMismatchIsFatal(t *testing.T) {
	newFakeWindow(t)

	addr := Allocate(16, 0, vmm.FlagRW, ModeNormal)

	var gotErr *kernel.Error
	origPanic := panicFn
	t.Cleanup(func() { panicFn = origPanic })
	panicFn = func(e interface{}) { gotErr, _ = e.(*kernel.Error) }

	Free(addr, 64)
	if gotErr != errFreeSizeMismatch {
		t.Fatalf("expected errFreeSizeMismatch; got %v", gotErr)
	}
}

func TestFreeClassTearsDownFullyFreeBin(t *testing.T) {
	fw := newFakeWindow(t)

	addr := Allocate(128, 0, vmm.FlagRW, ModeNormal)
	if len(fw.mapped) != 2 {
		t.Fatalf("expected the bin page and the metadata page to be mapped; got %d", len(fw.mapped))
	}

	Free(addr, 128)

	if len(fw.mapped) != 0 {
		t.Fatalf("expected the bin's page to be unmapped; got %d left", len(fw.mapped))
	}
	if len(fw.framesUsed) != 0 {
		t.Fatalf("expected the bin's frame to be returned; got %d left", len(fw.framesUsed))
	}
	idx := classIndexForSize(128)
	if classHeads[idx] != 0 {
		t.Fatal("expected the bin record to be unlinked")
	}
}
