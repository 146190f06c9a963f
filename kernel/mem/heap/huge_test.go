package heap

import (
	"testing"

	"borealos/kernel"
	"borealos/kernel/mem"
	"borealos/kernel/mem/vmm"
)

func TestFreeHugeSizeMismatchIsFatal(t *testing.T) {
	newFakeWindow(t)

	size := mem.Size(2) * mem.PageSize
	addr := Allocate(size, 0, vmm.FlagRW, ModeNormal)

	var gotErr *kernel.Error
	origPanic := panicFn
	t.Cleanup(func() { panicFn = origPanic })
	panicFn = func(e interface{}) { gotErr, _ = e.(*kernel.Error) }

	Free(addr, mem.Size(3)*mem.PageSize)
	if gotErr != errFreeSizeMismatch {
		t.Fatalf("expected errFreeSizeMismatch; got %v", gotErr)
	}
}

func TestFreeHugeUnknownAddressIsFatal(t *testing.T) {
	newFakeWindow(t)

	var gotErr *kernel.Error
	origPanic := panicFn
	t.Cleanup(func() { panicFn = origPanic })
	panicFn = func(e interface{}) { gotErr, _ = e.(*kernel.Error) }

	Free(windowCursor, mem.Size(2)*mem.PageSize)
	if gotErr != errFreeNotAllocated {
		t.Fatalf("expected errFreeNotAllocated; got %v", gotErr)
	}
}
