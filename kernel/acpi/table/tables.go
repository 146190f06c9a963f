// Package table defines the on-disk layouts of the ACPI tables BorealOS
// reads during bring-up: the RSDP that bootstraps discovery, the common SDT
// header every table starts with, and the few tables the kernel actually
// consumes (FADT for power management and the DSDT pointer, MADT for the
// local APIC inventory, and HPET for the high-precision timer BorealOS
// prefers over the legacy PIT).
package table

// RSDPDescriptor is the ACPI 1.0 root system descriptor pointer, the
// entry point multiboot hands the kernel a physical address to.
type RSDPDescriptor struct {
	// Signature must read "RSD PTR " (the trailing byte is a space).
	Signature [8]byte

	// Checksum, added to every other byte in this descriptor, must sum to
	// zero mod 256.
	Checksum uint8

	OEMID [6]byte

	// Revision is 0 for ACPI 1.0 and 2 for ACPI 2.0 through 6.x.
	Revision uint8

	// RSDTAddr is the physical address of the 32-bit RSDT.
	RSDTAddr uint32
}

// ExtRSDPDescriptor extends RSDPDescriptor with the fields ACPI 2.0+ adds.
// It is only valid to read these fields when Revision > 1.
type ExtRSDPDescriptor struct {
	RSDPDescriptor

	Length uint32

	// XSDTAddr is the physical address of the 64-bit XSDT.
	XSDTAddr uint64

	// ExtendedChecksum, added to every byte of the full ExtRSDPDescriptor,
	// must also sum to zero mod 256.
	ExtendedChecksum uint8

	reserved [3]byte
}

// SDTHeader is the common header every ACPI table begins with.
type SDTHeader struct {
	Signature [4]byte
	Length    uint32

	// Revision, for DSDT/SSDT tables, selects 32-bit (< 2) or 64-bit
	// (>= 2) AML integer width. BorealOS does not run AML and ignores it
	// for every other table.
	Revision uint8

	// Checksum, added to every byte of the table (header included), must
	// sum to zero mod 256.
	Checksum uint8

	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	CreatorID       uint32
	CreatorRevision uint32
}

// AddressSpace identifies where a GenericAddress register range lives.
type AddressSpace uint8

// The address space values the FADT's GenericAddress structures use.
const (
	AddressSpaceSysMemory AddressSpace = iota
	AddressSpaceSysIO
	AddressSpacePCI
	AddressSpaceEmbController
	AddressSpaceSMBus
	AddressSpaceFuncFixedHW = 0x7f
)

// GenericAddress locates a register range within an AddressSpace.
type GenericAddress struct {
	Space      AddressSpace
	BitWidth   uint8
	BitOffset  uint8
	AccessSize uint8
	Address    uint64
}

// PowerProfile identifies the FADT's preferred power-management profile.
// Values 0-7 are defined by the ACPI spec; anything else is reported as
// PowerProfileUnspecified.
type PowerProfile uint8

// The power profile values the FADT's PreferredPowerManagementProfile
// field defines.
const (
	PowerProfileUnspecified PowerProfile = iota
	PowerProfileDesktop
	PowerProfileMobile
	PowerProfileWorkstation
	PowerProfileEnterpriseServer
	PowerProfileSOHOServer
	PowerProfileAppliancePC
	PowerProfilePerformanceServer
)

// FADT64 holds the 64-bit FADT extensions ACPI 2.0+ adds alongside the
// original 32-bit fields.
type FADT64 struct {
	FirmwareControl uint64
	Dsdt            uint64

	PM1aEventBlock   GenericAddress
	PM1bEventBlock   GenericAddress
	PM1aControlBlock GenericAddress
	PM1bControlBlock GenericAddress
	PM2ControlBlock  GenericAddress
	PMTimerBlock     GenericAddress
	GPE0Block        GenericAddress
	GPE1Block        GenericAddress
}

// FADT (Fixed ACPI Description Table) carries the fixed register blocks
// used for power management, the DSDT pointer, and the SMI command port
// BorealOS writes to request ACPI mode.
type FADT struct {
	SDTHeader

	FirmwareCtrl uint32
	Dsdt         uint32

	reserved uint8

	PreferredPowerManagementProfile PowerProfile
	SCIInterrupt                    uint16
	SMICommandPort                  uint32
	AcpiEnable                      uint8
	AcpiDisable                     uint8
	S4BIOSReq                       uint8
	PSTATEControl                   uint8
	PM1aEventBlock                  uint32
	PM1bEventBlock                  uint32
	PM1aControlBlock                uint32
	PM1bControlBlock                uint32
	PM2ControlBlock                 uint32
	PMTimerBlock                    uint32
	GPE0Block                       uint32
	GPE1Block                       uint32
	PM1EventLength                  uint8
	PM1ControlLength                uint8
	PM2ControlLength                uint8
	PMTimerLength                   uint8
	GPE0Length                      uint8
	GPE1Length                      uint8
	GPE1Base                        uint8
	CStateControl                   uint8
	WorstC2Latency                  uint16
	WorstC3Latency                  uint16
	FlushSize                       uint16
	FlushStride                     uint16
	DutyOffset                      uint8
	DutyWidth                       uint8
	DayAlarm                        uint8
	MonthAlarm                      uint8
	Century                         uint8

	// BootArchitectureFlags is reserved in ACPI 1.0; used from 2.0 on.
	BootArchitectureFlags uint16

	reserved2 uint8
	Flags     uint32

	ResetReg GenericAddress

	ResetValue uint8
	reserved3  [3]uint8

	// Ext carries the 64-bit pointers ACPI 2.0+ prefers over the 32-bit
	// fields above when non-zero.
	Ext FADT64
}

// MADT (Multiple APIC Description Table) lists the system's interrupt
// controllers. BorealOS has no SMP or I/O APIC support yet and only reads
// the header; the entry stream is defined here for forward compatibility.
type MADT struct {
	SDTHeader

	LocalControllerAddress uint32
	Flags                  uint32
}

// HPET describes the HPET ACPI table: the PCI vendor of the timer block
// and the GenericAddress its capability and comparator registers live at.
type HPET struct {
	SDTHeader

	HardwareRevID    uint8
	ComparatorCount  uint8 // bits 0-4; bits 5-6 count timers, bit 7 is COUNT_SIZE_CAP
	PCIVendorID      uint16
	BaseAddress      GenericAddress
	HPETNumber       uint8
	MinimumTick      uint16
	PageProtection   uint8
}
