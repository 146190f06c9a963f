// Package idt builds and installs the 256-entry interrupt descriptor table.
// Vectors 0-31 carry per-vector exception stubs, vectors
// pic.MasterOffset..+7 and pic.SlaveOffset..+7 carry IRQ stubs, and every
// other vector lands on a generic unhandled-vector stub. Every stub saves
// the caller's registers, calls into irq.DispatchException/DispatchIRQ and
// restores them before returning with IRET.
package idt

import (
	"borealos/kernel/cpu"
	"borealos/kernel/cpu/gdt"
)

const gateCount = 256

// FaultIST selects IST1 (the dedicated fault stack set up by kernel/cpu/gdt)
// for a vector. Vectors configured this way run on a known-good stack even
// if the kernel stack itself is the reason the fault occurred.
const FaultIST = 1

// faultVectors lists exception vectors whose handler runs on the IST1 fault
// stack rather than the interrupted context's own stack: double fault and
// stack-segment/general-protection faults, the classic causes of a kernel
// stack overflow taking down the fault handler too.
var faultVectors = [...]uint8{8, 12, 13}

// Init builds all 256 gate descriptors (installGates, implemented in
// assembly) and loads the table with LIDT.
func Init() {
	installGates()
	cpu.LoadIDT(idtPointerAddr())
}

// usesIST reports whether vector should run on the IST1 fault stack.
func usesIST(vector uint8) bool {
	for _, v := range faultVectors {
		if v == vector {
			return true
		}
	}
	return false
}

// codeSelector is the flat kernel code selector every gate points at.
func codeSelector() uint16 {
	return uint16(gdt.CodeSelector)
}

// installGates populates the IDT's 256 descriptors with per-vector
// trampolines that save registers, call irq.DispatchException/DispatchIRQ and
// IRET. It is implemented in assembly since Go cannot express the raw
// interrupt-gate entrypoints or the IRET instruction.
func installGates()

// idtPointerAddr returns the address of the packed limit:base IDT descriptor
// built by installGates, ready to hand to LoadIDT.
func idtPointerAddr() uintptr
