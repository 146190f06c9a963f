package early

import "borealos/kernel/cpu"

// UART is a 16550-compatible serial port driven by raw port I/O. It is the
// first console BorealOS brings up (L0): no memory management, no paging,
// no IDT, nothing but the CPU's I/O instructions is required to talk to it,
// which is why it exists before anything else does.
type UART struct {
	base uint16
}

const (
	comPort1 = 0x3f8

	regData        = 0
	regIntEnable   = 1
	regDivisorLow  = 0
	regDivisorHigh = 1
	regFIFOCtrl    = 2
	regLineCtrl    = 3
	regModemCtrl   = 4
	regLineStatus  = 5

	lineCtrlDivisorLatch = 0x80
	lineCtrl8N1          = 0x03
	fifoCtrlEnableClear  = 0xC7
	modemCtrlLoopback    = 0x1E
	modemCtrlNormal      = 0x0F

	lineStatusTransmitEmpty = 0x20

	loopbackTestByte = 0xAE
)

var (
	outByteFn = cpu.OutByte
	inByteFn  = cpu.InByte
)

// InitCOM1 programs the primary serial port to 38400 8N1, verifies it with
// a loopback test, then switches it to normal operation and installs it as
// early.ActiveWriter. It reports whether a real UART answered the test.
func InitCOM1() bool {
	u := &UART{base: comPort1}

	outByteFn(u.base+regIntEnable, 0x00)
	outByteFn(u.base+regLineCtrl, lineCtrlDivisorLatch)
	outByteFn(u.base+regDivisorLow, 0x03)
	outByteFn(u.base+regDivisorHigh, 0x00)
	outByteFn(u.base+regLineCtrl, lineCtrl8N1)
	outByteFn(u.base+regFIFOCtrl, fifoCtrlEnableClear)
	outByteFn(u.base+regModemCtrl, modemCtrlLoopback)

	outByteFn(u.base+regData, loopbackTestByte)
	if inByteFn(u.base+regData) != loopbackTestByte {
		return false
	}

	outByteFn(u.base+regModemCtrl, modemCtrlNormal)
	ActiveWriter = u
	return true
}

func (u *UART) transmitEmpty() bool {
	return inByteFn(u.base+regLineStatus)&lineStatusTransmitEmpty != 0
}

// WriteByte blocks until the transmit holding register is empty, then sends
// b. It never fails: a serial port with nothing on the other end of the
// wire just accepts bytes into the void.
func (u *UART) WriteByte(b byte) error {
	for !u.transmitEmpty() {
	}
	outByteFn(u.base+regData, b)
	return nil
}

// Write implements io.Writer in terms of WriteByte.
func (u *UART) Write(p []byte) (int, error) {
	for _, b := range p {
		u.WriteByte(b)
	}
	return len(p), nil
}
