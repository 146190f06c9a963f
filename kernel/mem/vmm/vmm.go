package vmm

import (
	"borealos/kernel"
	"borealos/kernel/cpu"
	"borealos/kernel/irq"
	"borealos/kernel/kfmt"
	"borealos/kernel/kfmt/early"
	"borealos/kernel/mem/pmm"
)

var (
	// the following are mocked by tests and automatically inlined by the
	// compiler when building the kernel.
	panicFn                   = kfmt.Panic
	handleExceptionWithCodeFn = irq.HandleExceptionWithCode
	readCR2Fn                 = cpu.ReadCR2
	pmmAllocatorFn            = pmm.Default.AllocateFrame
)

// Init builds the kernel's own address space by deep-copying the loader's
// upper half, activates it, and installs the page-fault and
// general-protection-fault handlers. There is no user mode in this kernel,
// so every page fault or GPF it observes after bring-up is a kernel bug;
// both handlers dump diagnostics and panic rather than attempt recovery.
func Init() *kernel.Error {
	allocFn := FrameAllocatorFn(pmmAllocatorFn)

	if err := InitKernelSpace(allocFn); err != nil {
		return err
	}
	KernelSpace.Activate()

	handleExceptionWithCodeFn(irq.PageFaultException, pageFaultHandler)
	handleExceptionWithCodeFn(irq.GPFException, generalProtectionFaultHandler)
	return nil
}

func pageFaultHandler(errorCode uint64, frame *irq.Frame, regs *irq.Regs) {
	faultAddress := readCR2Fn()

	early.Printf("\nPage fault while accessing address: 0x%16x\nReason: ", faultAddress)
	switch errorCode {
	case 0:
		early.Printf("read from non-present page")
	case 1:
		early.Printf("page protection violation (read)")
	case 2:
		early.Printf("write to non-present page")
	case 3:
		early.Printf("page protection violation (write)")
	case 4:
		early.Printf("page fault in user-mode")
	case 8:
		early.Printf("page table has reserved bit set")
	case 16:
		early.Printf("instruction fetch")
	default:
		early.Printf("unknown")
	}

	early.Printf("\n\nRegisters:\n")
	regs.Print()
	frame.Print()

	panicFn(nil)
}

func generalProtectionFaultHandler(_ uint64, frame *irq.Frame, regs *irq.Regs) {
	early.Printf("\nGeneral protection fault while accessing address: 0x%x\n", readCR2Fn())
	early.Printf("Registers:\n")
	regs.Print()
	frame.Print()

	panicFn(nil)
}
