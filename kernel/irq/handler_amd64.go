package irq

import (
	"borealos/kernel"
	"borealos/kernel/cpu"
	"borealos/kernel/cpu/pic"
	"borealos/kernel/kfmt"
)

// ExceptionNum defines an exception number that can be
// passed to the HandleException and HandleExceptionWithCode
// functions.
type ExceptionNum uint8

const (
	// DoubleFault occurs when an exception is unhandled
	// or when an exception occurs while the CPU is
	// trying to call an exception handler.
	DoubleFault = ExceptionNum(8)

	// GPFException is raised when a general protection fault occurs.
	GPFException = ExceptionNum(13)

	// PageFaultException is raised when a PDT or
	// PDT-entry is not present or when a privilege
	// and/or RW protection check fails.
	PageFaultException = ExceptionNum(14)

	maxException = 32
	maxIRQLine   = 16
)

// ExceptionHandler is a function that handles an exception that does not push
// an error code to the stack. If the handler returns, any modifications to the
// supplied Frame and/or Regs pointers will be propagated back to the location
// where the exception occurred.
type ExceptionHandler func(*Frame, *Regs)

// ExceptionHandlerWithCode is a function that handles an exception that pushes
// an error code to the stack. If the handler returns, any modifications to the
// supplied Frame and/or Regs pointers will be propagated back to the location
// where the exception occurred.
type ExceptionHandlerWithCode func(uint64, *Frame, *Regs)

// Handler handles a hardware interrupt delivered on a PIC line.
type Handler func(*Frame, *Regs)

type exceptionBinding struct {
	present  bool
	withCode bool
	handler  ExceptionHandler
	coded    ExceptionHandlerWithCode
}

type irqBinding struct {
	present bool
	handler Handler
}

var (
	exceptions [maxException]exceptionBinding
	irqLines   [maxIRQLine]irqBinding

	errDuplicateException = &kernel.Error{Module: "irq", Message: "exception vector already has a handler installed"}
	errDuplicateIRQ       = &kernel.Error{Module: "irq", Message: "irq line already has a handler installed"}
	errUnhandledException = &kernel.Error{Module: "irq", Message: "unhandled exception"}

	// selfTest suppresses the panic path for HandleException/WithCode so
	// that a self-test harness can raise vector 0 or 3 and confirm the
	// handler ran without taking down the whole dispatch path. It must be
	// cleared before interrupts are unmasked for normal operation.
	selfTest bool
)

// HandleException registers an exception handler (without an error code) for
// the given interrupt number. Installing a handler on an occupied vector is
// fatal.
func HandleException(exceptionNum ExceptionNum, handler ExceptionHandler) {
	b := &exceptions[exceptionNum]
	if b.present {
		kfmt.Panic(errDuplicateException)
		return
	}
	b.present = true
	b.withCode = false
	b.handler = handler
}

// HandleExceptionWithCode registers an exception handler (with an error code)
// for the given interrupt number.
func HandleExceptionWithCode(exceptionNum ExceptionNum, handler ExceptionHandlerWithCode) {
	b := &exceptions[exceptionNum]
	if b.present {
		kfmt.Panic(errDuplicateException)
		return
	}
	b.present = true
	b.withCode = true
	b.coded = handler
}

// HandleIRQ registers a handler for a legacy PIC line (0-15) and unmasks it.
// Installing a handler on an already-bound line is fatal.
func HandleIRQ(line uint8, handler Handler) {
	b := &irqLines[line]
	if b.present {
		kfmt.Panic(errDuplicateIRQ)
		return
	}
	b.present = true
	b.handler = handler
	pic.Unmask(line)
}

// ClearIRQ removes the handler bound to line, if any, and masks the line so
// the PIC stops delivering it.
func ClearIRQ(line uint8) {
	irqLines[line] = irqBinding{}
	pic.Mask(line)
}

// EnableSelfTest suppresses the panic path taken by DispatchException for
// unhandled vectors so a bring-up self-test can raise vector 0 and 3 and
// observe that the installed handler ran.
func EnableSelfTest()  { selfTest = true }
func DisableSelfTest() { selfTest = false }

// DispatchException routes a CPU exception to its registered handler, or
// dumps the machine state and panics if none is installed. hasCode indicates
// whether the CPU pushed an error code for this vector.
func DispatchException(vector uint8, hasCode bool, code uint64, frame *Frame, regs *Regs) {
	b := &exceptions[vector]
	if !b.present {
		if selfTest {
			return
		}
		dumpException(vector, hasCode, code, frame, regs)
		kfmt.Panic(errUnhandledException)
		return
	}

	if b.withCode {
		b.coded(code, frame, regs)
	} else {
		b.handler(frame, regs)
	}
}

// DispatchIRQ routes a hardware interrupt on line to its registered handler
// (if any) and issues the matching EOI. A spurious IRQ on a master line is
// counted and dropped without EOI; a spurious IRQ on a slave line is counted
// and fatal.
func DispatchIRQ(line uint8, frame *Frame, regs *Regs) {
	if pic.IsSpurious(line) {
		if line < 8 {
			pic.SpuriousMaster++
			return
		}
		pic.SpuriousSlave++
		kfmt.Panic(&kernel.Error{Module: "irq", Message: "spurious irq reported by slave pic"})
		return
	}

	b := &irqLines[line]
	if b.present {
		b.handler(frame, regs)
	}

	pic.EOI(line)
}

func dumpException(vector uint8, hasCode bool, code uint64, frame *Frame, regs *Regs) {
	kfmt.Printf("\nunhandled exception %d", vector)
	if hasCode {
		kfmt.Printf(" (code %x)", code)
	}
	kfmt.Printf("\n")
	if ExceptionNum(vector) == PageFaultException {
		kfmt.Printf("CR2 = %16x\n", cpu.ReadCR2())
	}
	regs.Print()
	frame.Print()
}
