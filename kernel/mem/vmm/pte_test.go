package vmm

import (
	"testing"

	"borealos/kernel/mem/pmm"
)

func TestPageTableEntryFlags(t *testing.T) {
	var (
		pte   pageTableEntry
		flag1 = PageTableEntryFlag(1 << 10)
		flag2 = PageTableEntryFlag(1 << 21)
	)

	if pte.HasAnyFlag(flag1 | flag2) {
		t.Fatal("expected HasAnyFlag to return false")
	}

	pte.SetFlags(flag1 | flag2)
	if !pte.HasAnyFlag(flag1 | flag2) {
		t.Fatal("expected HasAnyFlag to return true")
	}
	if !pte.HasFlags(flag1 | flag2) {
		t.Fatal("expected HasFlags to return true")
	}

	pte.ClearFlags(flag1)
	if !pte.HasAnyFlag(flag1 | flag2) {
		t.Fatal("expected HasAnyFlag to still return true")
	}
	if pte.HasFlags(flag1 | flag2) {
		t.Fatal("expected HasFlags to return false after clearing flag1")
	}

	pte.ClearFlags(flag1 | flag2)
	if pte.HasAnyFlag(flag1 | flag2) {
		t.Fatal("expected HasAnyFlag to return false")
	}
}

func TestPageTableEntryFrameEncoding(t *testing.T) {
	var (
		pte   pageTableEntry
		frame = pmm.Frame(123)
	)

	pte.SetFrame(frame)
	if got := pte.Frame(); got != frame {
		t.Fatalf("expected pte.Frame() to return %v; got %v", frame, got)
	}

	pte.SetFlags(FlagPresent | FlagRW)
	if got := pte.Frame(); got != frame {
		t.Fatalf("setting flags must not disturb the frame bits; got %v", got)
	}
}

func TestPageTableEntryFlagsAccessor(t *testing.T) {
	var pte pageTableEntry
	pte.SetFrame(pmm.Frame(42))
	pte.SetFlags(FlagPresent | FlagRW)

	if got := pte.Flags(); got != FlagPresent|FlagRW {
		t.Fatalf("expected Flags() to return %v; got %v", FlagPresent|FlagRW, got)
	}
}
