package cpu

var (
	cpuidFn = ID
)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr

// ReadCR2 returns the value stored in the CR2 register.
func ReadCR2() uint64

// ID returns information about the CPU and its features. It
// is implemented as a CPUID instruction with EAX=leaf and
// returns the values in EAX, EBX, ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

// ReadCR3 returns the physical address of the currently loaded top-level
// page table, as stored in CR3.
func ReadCR3() uintptr

// WriteCR3 loads addr into CR3, switching the active address space.
func WriteCR3(addr uintptr)

// LoadGDT loads the global descriptor table pointed to by gdtPtr (a packed
// limit:base descriptor, see cpu/gdt) via the LGDT instruction.
func LoadGDT(gdtPtr uintptr)

// LoadIDT loads the interrupt descriptor table pointed to by idtPtr via the
// LIDT instruction.
func LoadIDT(idtPtr uintptr)

// LoadTaskRegister loads the task register with the given GDT selector via
// the LTR instruction.
func LoadTaskRegister(selector uint16)

// ReloadSegments performs the far-jump and data-segment-register reload
// sequence required after LoadGDT installs a new GDT.
func ReloadSegments(codeSelector, dataSelector uint16)

// InByte reads a single byte from the given I/O port.
func InByte(port uint16) uint8

// OutByte writes a single byte to the given I/O port.
func OutByte(port uint16, value uint8)

// InWord reads a 16-bit word from the given I/O port.
func InWord(port uint16) uint16

// OutWord writes a 16-bit word to the given I/O port.
func OutWord(port uint16, value uint16)

// IOWait performs a short, throwaway I/O write used to give the legacy PIC
// and other ISA-era devices time to process the previous command.
func IOWait()

// IsIntel returns true if the code is running on an Intel processor.
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}
