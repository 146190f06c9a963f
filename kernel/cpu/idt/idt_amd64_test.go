package idt

import (
	"testing"

	"borealos/kernel/cpu/gdt"
)

func TestUsesIST(t *testing.T) {
	specs := []struct {
		vector uint8
		exp    bool
	}{
		{0, false},
		{8, true},
		{12, true},
		{13, true},
		{14, false},
		{32, false},
	}

	for _, spec := range specs {
		if got := usesIST(spec.vector); got != spec.exp {
			t.Errorf("usesIST(%d): expected %t; got %t", spec.vector, spec.exp, got)
		}
	}
}

func TestCodeSelectorMatchesGDT(t *testing.T) {
	if got := codeSelector(); got != uint16(gdt.CodeSelector) {
		t.Fatalf("expected code selector %#x from gdt; got %#x", uint16(gdt.CodeSelector), got)
	}
}
