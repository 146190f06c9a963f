// Package kmain drives BorealOS's bring-up: the fixed, dependency-ordered
// sequence of layer initializations described by kernel.Stage, from the
// first byte written to the serial port through the framebuffer console
// coming online and collaborators registering. Kmain is not expected to
// return; rt0 halts the CPU if it ever does.
package kmain

import (
	"borealos/kernel"
	"borealos/kernel/acpi"
	"borealos/kernel/acpi/table"
	"borealos/kernel/collab"
	"borealos/kernel/console"
	"borealos/kernel/cpu"
	"borealos/kernel/cpu/gdt"
	"borealos/kernel/cpu/idt"
	"borealos/kernel/cpu/pic"
	"borealos/kernel/kfmt"
	"borealos/kernel/kfmt/early"
	"borealos/kernel/mem"
	"borealos/kernel/mem/pmm"
	"borealos/kernel/mem/vmm"
	"borealos/kernel/multiboot"
	"borealos/kernel/time"
	"unsafe"
)

// Kmain is the only Go symbol visible (exported) to the rt0 initialization
// code. It is invoked after rt0 has set up the GDT stub, the page tables
// the loader needs to reach long mode, and a minimal g0 allowing Go code to
// run on the 4K bootstrap stack.
//
// The rt0 code passes the physical address of the multiboot info payload
// and the physical address range the loaded kernel image occupies.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	// L0: early console. Without it, nothing below can report failure.
	early.InitCOM1()
	early.Printf("BorealOS starting\n")
	kernel.Global.Enter(kernel.StageEarlyConsole)

	// L1: multiboot tag parsing.
	multiboot.SetInfoPtr(multibootInfoPtr)
	kernel.Global.Enter(kernel.StageBootInfo)

	var err *kernel.Error

	// L2: physical frame allocator.
	if err = pmm.Init(kernelStart, kernelEnd); err != nil {
		kfmt.Panic(err)
	}
	kernel.Global.Enter(kernel.StageFrameAllocator)

	// L3: GDT/TSS, including the IST1 fault stack used by the double-fault
	// and stack/general-protection-fault gates installed at L4.
	gdt.Init()
	kernel.Global.Enter(kernel.StageSegmentation)

	// L4: IDT and legacy PIC, with every external IRQ line masked until a
	// driver claims it.
	idt.Init()
	pic.Init()
	pic.MaskAll()
	kernel.Global.Enter(kernel.StageInterrupts)

	// L5: kernel address space and paging.
	if err = vmm.Init(); err != nil {
		kfmt.Panic(err)
	}
	kernel.Global.Enter(kernel.StagePaging)

	// L6: kernel heap. The heap package has no bring-up state of its own to
	// initialize; it only needs StagePaging to already hold so that
	// allocateClass can map pages through vmm.KernelSpace.
	kernel.Global.Enter(kernel.StageHeap)
	kfmt.SetOutputSink(early.ActiveWriter)

	// L7: PIT and RTC. HPET is deferred to L8 since it needs the ACPI
	// table scan below to locate its MMIO base address.
	if err = time.InitPIT(); err != nil {
		kfmt.Panic(err)
	}
	if err = time.InitRTC(); err != nil {
		kfmt.Panic(err)
	}
	cpu.EnableInterrupts()
	kernel.Global.Enter(kernel.StageTimeSources)

	// L8: ACPI table discovery, then the HPET upgrade if the firmware
	// exposes one.
	if rsdp := multiboot.RSDPAddr(); rsdp != 0 {
		if err = acpi.Init(rsdp); err != nil {
			kfmt.Printf("acpi: %s; continuing without ACPI\n", err.Error())
			kernel.Global.Enter(kernel.StageACPI)
		} else {
			if hpetPhys := acpi.FindTable("HPET", 0); hpetPhys != 0 {
				hpetTable := (*table.HPET)(vmmDirectMap(hpetPhys))
				if err = time.InitHPET(hpetTable); err != nil {
					kfmt.Printf("time: HPET upgrade failed: %s\n", err.Error())
				}
			}
			if err = acpi.EnableACPIMode(); err != nil {
				kfmt.Printf("acpi: %s\n", err.Error())
			}
		}
	} else {
		kernel.Global.Enter(kernel.StageACPI)
	}

	// L9: framebuffer console. kfmt's output sink switches from the serial
	// port to the framebuffer once it comes up, and the console replays
	// whatever Printf buffered before it existed.
	if fbInfo := multiboot.GetFramebufferInfo(); fbInfo != nil {
		if err = console.Init(fbInfo); err != nil {
			kfmt.Printf("console: %s\n", err.Error())
		} else {
			kfmt.SetOutputSink(console.Active)
		}
	} else {
		kernel.Global.Enter(kernel.StageFramebufferConsole)
	}

	kfmt.Printf("BorealOS: bring-up complete\n")

	// L-out: let collaborators (block/FS, PCI, input drivers) claim the
	// services the core now exposes.
	collab.InitAll(func(d collab.Driver, err *kernel.Error) {
		kfmt.Printf("collab: %s failed to initialize: %s\n", d.DriverName(), err.Error())
	})
	kernel.Global.Enter(kernel.StageRunning)

	for {
		cpu.Halt()
	}
}

// vmmDirectMap resolves a physical address to its kernel direct-map virtual
// address, the same mapping kernel/acpi and kernel/time rely on to read
// firmware tables and MMIO registers without a dedicated vmm.Map call.
func vmmDirectMap(physAddr uintptr) unsafe.Pointer {
	return unsafe.Pointer(mem.HigherHalfOffset + physAddr)
}
