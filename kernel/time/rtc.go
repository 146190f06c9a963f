package time

import (
	"borealos/kernel"
	"borealos/kernel/irq"
)

const (
	cmosAddrPort = 0x70
	cmosDataPort = 0x71

	cmosRegSeconds = 0x00
	cmosRegMinutes = 0x02
	cmosRegHours   = 0x04
	cmosRegDay     = 0x07
	cmosRegMonth   = 0x08
	cmosRegYear    = 0x09
	cmosRegStatusA = 0x0A
	cmosRegStatusB = 0x0B
	cmosRegStatusC = 0x0C

	statusAUpdateInProgress = 1 << 7
	statusBBinaryMode       = 1 << 2
	statusB24HourMode       = 1 << 1

	rtcIRQLine = 8

	// rtcTicksPerSecond matches the periodic rate programmed into status
	// register A below (rate selector 6, ~1024Hz nominal).
	rtcTicksPerSecond = 1024
)

var rtc struct {
	initialized bool
	bootEpoch   uint64
	ticks       uint64
}

func cmosRead(reg uint8) uint8 {
	outByteFn(cmosAddrPort, reg)
	return inByteFn(cmosDataPort)
}

func cmosWrite(reg, value uint8) {
	outByteFn(cmosAddrPort, reg)
	outByteFn(cmosDataPort, value)
}

func bcdToBinary(v uint8) uint8 {
	return (v>>4)*10 + (v & 0x0f)
}

// waitForUpdateComplete blocks until the RTC is not in the middle of
// updating its registers, per the OSDev wiki's documented race between
// reading CMOS registers and the RTC's once-a-second update cycle.
func waitForUpdateComplete() {
	for cmosRead(cmosRegStatusA)&statusAUpdateInProgress != 0 {
		haltFn()
	}
}

// daysFromCivil converts a (year, month, day) calendar date into the count
// of days since the Unix epoch, using the proleptic Gregorian algorithm
// (Howard Hinnant's days_from_civil), which avoids a fixed days-in-month
// table and its February special case.
func daysFromCivil(year int64, month, day uint8) int64 {
	y := year
	if month <= 2 {
		y--
	}
	era := y
	if y < 0 {
		era = y - 399
	}
	era /= 400
	yoe := y - era*400
	var mp int64
	if int64(month) > 2 {
		mp = int64(month) - 3
	} else {
		mp = int64(month) + 9
	}
	doy := (153*mp+2)/5 + int64(day) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// InitRTC reads the current CMOS time once to establish the wall-clock
// boot epoch, then arms the RTC's periodic interrupt so that Epoch can
// advance without re-reading CMOS on every call.
func InitRTC() *kernel.Error {
	kernel.Global.Require(kernel.StageHeap)

	waitForUpdateComplete()
	statusB := cmosRead(cmosRegStatusB)
	binary := statusB&statusBBinaryMode != 0
	is24Hour := statusB&statusB24HourMode != 0

	second := cmosRead(cmosRegSeconds)
	minute := cmosRead(cmosRegMinutes)
	rawHour := cmosRead(cmosRegHours)
	day := cmosRead(cmosRegDay)
	month := cmosRead(cmosRegMonth)
	year := cmosRead(cmosRegYear)

	pm := rawHour&0x80 != 0
	hour := rawHour & 0x7f

	if !binary {
		second = bcdToBinary(second)
		minute = bcdToBinary(minute)
		hour = bcdToBinary(hour)
		day = bcdToBinary(day)
		month = bcdToBinary(month)
		year = bcdToBinary(year)
	}

	if !is24Hour {
		if pm && hour != 12 {
			hour += 12
		} else if !pm && hour == 12 {
			hour = 0
		}
	}

	fullYear := int64(year) + 2000

	days := daysFromCivil(fullYear, month, day)
	rtc.bootEpoch = uint64(days)*86400 + uint64(hour)*3600 + uint64(minute)*60 + uint64(second)
	rtc.ticks = 0

	disableInterruptsFn()
	outByteFn(cmosAddrPort, 0x80|cmosRegStatusA)
	prevA := inByteFn(cmosDataPort)
	outByteFn(cmosAddrPort, 0x80|cmosRegStatusA)
	outByteFn(cmosDataPort, (prevA&0xf0)|0x06)
	outByteFn(cmosAddrPort, 0x80|cmosRegStatusB)
	prev := inByteFn(cmosDataPort)
	outByteFn(cmosAddrPort, 0x80|cmosRegStatusB)
	outByteFn(cmosDataPort, prev|0x40)
	enableInterruptsFn()

	irq.HandleIRQ(rtcIRQLine, rtcInterruptHandler)
	rtc.initialized = true

	kernel.Global.Enter(kernel.StageTimeSources)
	return nil
}

func rtcInterruptHandler(_ *irq.Frame, _ *irq.Regs) {
	cmosRead(cmosRegStatusC)
	rtc.ticks++
}
