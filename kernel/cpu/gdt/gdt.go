// Package gdt builds the kernel's global descriptor table and task state
// segment: flat 64-bit kernel and user code/data pairs plus a TSS carrying
// the ring-0 stack pointer and a dedicated IST1 fault stack for
// double-fault and similar exceptions that must never run on a
// potentially-corrupt kernel stack.
package gdt

import (
	"borealos/kernel/cpu"
	"unsafe"
)

// Selector indexes an entry of the GDT, as loaded into a segment register.
type Selector uint16

// Selectors for the fixed entries this package installs. Entry 0 is the
// mandatory null descriptor. UserCodeSelector and UserDataSelector carry
// the RPL=3 bits already set, ready to load directly into a segment
// register on a ring3 transition.
const (
	NullSelector     Selector = 0x00
	CodeSelector     Selector = 0x08
	DataSelector     Selector = 0x10
	UserCodeSelector Selector = 0x18 | 3
	UserDataSelector Selector = 0x20 | 3
	TSSSelector      Selector = 0x28
)

const (
	accessPresent  = 1 << 7
	accessDPL3     = 3 << 5
	accessNotSys   = 1 << 4
	accessExec     = 1 << 3
	accessRW       = 1 << 1
	flagLongMode   = 1 << 5
	tssAvailable   = 0x9
	faultStackSize = 16 * 1024
)

// entry64 is a packed 8-byte GDT descriptor.
type entry64 struct {
	limitLow  uint16
	baseLow   uint16
	baseMid   uint8
	access    uint8
	flagLimit uint8
	baseHigh  uint8
}

// tssEntry is a packed 16-byte descriptor used for the TSS, which carries a
// full 64-bit base address and does not fit in entry64.
type tssEntry struct {
	limitLow  uint16
	baseLow   uint16
	baseMid   uint8
	access    uint8
	flagLimit uint8
	baseHigh  uint8
	baseUpper uint32
	reserved  uint32
}

// taskStateSegment is the 64-bit TSS. Only RSP0 (the stack loaded on a
// ring3->ring0 transition) and IST1 (the stack loaded for vectors configured
// to use interrupt-stack-table slot 1) are meaningful without userspace.
type taskStateSegment struct {
	reserved0 uint32
	rsp0      uint64
	rsp1      uint64
	rsp2      uint64
	reserved1 uint64
	ist1      uint64
	ist2      uint64
	ist3      uint64
	ist4      uint64
	ist5      uint64
	ist6      uint64
	ist7      uint64
	reserved2 uint64
	reserved3 uint16
	ioMapBase uint16
}

type table struct {
	null     entry64
	code     entry64
	data     entry64
	userCode entry64
	userData entry64
	tss      tssEntry
}

type gdtPointer struct {
	limit uint16
	base  uint64
}

var (
	gdtTable table
	tss      taskStateSegment
	ptr      gdtPointer

	kernelStack    [faultStackSize]byte
	doubleFaultStk [faultStackSize]byte

	loadGDTFn   = cpu.LoadGDT
	loadTRFn    = cpu.LoadTaskRegister
	reloadSegFn = cpu.ReloadSegments
)

func setEntry(e *entry64, access, flags uint8) {
	e.limitLow = 0xffff
	e.baseLow = 0
	e.baseMid = 0
	e.access = access
	e.flagLimit = flags | 0x0f
	e.baseHigh = 0
}

func setTSSEntry(e *tssEntry, base uintptr, limit uint32) {
	e.limitLow = uint16(limit)
	e.baseLow = uint16(base)
	e.baseMid = uint8(base >> 16)
	e.access = accessPresent | tssAvailable
	e.flagLimit = uint8(limit>>16) & 0x0f
	e.baseHigh = uint8(base >> 24)
	e.baseUpper = uint32(base >> 32)
}

// Init builds the GDT and TSS, loads them into the CPU and switches CS/SS
// (and the other data segment registers) to the new flat selectors. The
// caller must ensure interrupts are disabled until Init returns.
func Init() {
	setEntry(&gdtTable.null, 0, 0)
	setEntry(&gdtTable.code, accessPresent|accessNotSys|accessExec|accessRW, flagLongMode)
	setEntry(&gdtTable.data, accessPresent|accessNotSys|accessRW, 0)
	setEntry(&gdtTable.userCode, accessPresent|accessDPL3|accessNotSys|accessExec|accessRW, flagLongMode)
	setEntry(&gdtTable.userData, accessPresent|accessDPL3|accessNotSys|accessRW, 0)

	tss.rsp0 = uint64(stackTop(&kernelStack))
	tss.ist1 = uint64(stackTop(&doubleFaultStk))
	tssSize := uint32(unsafe.Sizeof(tss))
	tss.ioMapBase = uint16(tssSize)

	setTSSEntry(&gdtTable.tss, uintptr(unsafe.Pointer(&tss)), tssSize-1)

	ptr.limit = uint16(unsafe.Sizeof(gdtTable) - 1)
	ptr.base = uint64(uintptr(unsafe.Pointer(&gdtTable)))

	loadGDTFn(uintptr(unsafe.Pointer(&ptr)))
	reloadSegFn(uint16(CodeSelector), uint16(DataSelector))
	loadTRFn(uint16(TSSSelector))
}

// SetKernelStack updates RSP0, the stack the CPU switches to on any
// privilege-level change into ring 0. Called whenever the scheduler (absent
// in this core, but the hook is part of the contract) changes the running
// task's kernel stack.
func SetKernelStack(rsp0 uintptr) {
	tss.rsp0 = uint64(rsp0)
}

func stackTop(buf *[faultStackSize]byte) uintptr {
	return uintptr(unsafe.Pointer(buf)) + faultStackSize
}
