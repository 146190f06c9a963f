// Package acpi discovers and validates the ACPI tables the firmware leaves
// behind, starting from the RSDP address multiboot copied out of the
// bootloader-supplied pointer. It trusts the kernel's higher-half direct
// map to read every table in place rather than establishing temporary
// mappings per table, since by the time this package runs (L8) every
// physical frame is already addressable through kernel/mem/vmm's direct
// map.
package acpi

import (
	"unsafe"

	"borealos/kernel"
	"borealos/kernel/acpi/table"
	"borealos/kernel/kfmt"
)

var (
	errBadRSDPSignature  = &kernel.Error{Module: "acpi", Message: "RSDP signature mismatch"}
	errBadRSDPChecksum   = &kernel.Error{Module: "acpi", Message: "RSDP checksum mismatch"}
	errBadTableChecksum  = &kernel.Error{Module: "acpi", Message: "ACPI table checksum mismatch"}
	errNoFADT            = &kernel.Error{Module: "acpi", Message: "FADT not present in root table"}
)

// driver holds the discovery state built by Init.
type driver struct {
	useXSDT  bool
	rootAddr uintptr
	tables   map[string]uintptr // signature -> physical address of SDTHeader
	fadt     *table.FADT
}

var active driver

// directMapFn and the port I/O seams used below are mocked by tests; see
// mocks.go.

func toPhysBytes(addr uintptr, size int) []byte {
	return *(*[]byte)(unsafe.Pointer(&sliceHeader{Data: addr, Len: size, Cap: size}))
}

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

func checksum(addr uintptr, size int) uint8 {
	var sum uint8
	for _, b := range toPhysBytes(addr, size) {
		sum += b
	}
	return sum
}

// Init validates the RSDP at the given physical address (as reported by
// multiboot.RSDPAddr), walks the root system description table it points
// to, and caches every table signature it finds along with a parsed FADT.
// It is the only entry point that touches physical ACPI memory directly;
// everything else in this package reads from the cache Init builds.
func Init(rsdpPhysAddr uintptr) *kernel.Error {
	kernel.Global.Require(kernel.StageTimeSources)

	rsdpVaddr := directMapFn(rsdpPhysAddr)
	rsdp := (*table.RSDPDescriptor)(unsafe.Pointer(rsdpVaddr))
	if rsdp.Signature != [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '} {
		return errBadRSDPSignature
	}
	if checksum(rsdpVaddr, int(unsafe.Sizeof(table.RSDPDescriptor{}))) != 0 {
		return errBadRSDPChecksum
	}

	active = driver{tables: make(map[string]uintptr)}

	if rsdp.Revision >= 2 {
		ext := (*table.ExtRSDPDescriptor)(unsafe.Pointer(rsdpVaddr))
		if checksum(rsdpVaddr, int(ext.Length)) != 0 {
			return errBadRSDPChecksum
		}
		active.useXSDT = true
		active.rootAddr = uintptr(ext.XSDTAddr)
	} else {
		active.rootAddr = uintptr(rsdp.RSDTAddr)
	}

	if err := enumerateTables(); err != nil {
		return err
	}

	kernel.Global.Enter(kernel.StageACPI)
	return nil
}

// mapHeader returns the SDTHeader at physAddr via the direct map, after
// validating its checksum over its full, self-reported length.
func mapHeader(physAddr uintptr) (*table.SDTHeader, *kernel.Error) {
	vaddr := directMapFn(physAddr)
	hdr := (*table.SDTHeader)(unsafe.Pointer(vaddr))
	if checksum(vaddr, int(hdr.Length)) != 0 {
		return nil, errBadTableChecksum
	}
	return hdr, nil
}

// enumerateTables walks the root table's array of table pointers (4-byte
// entries for RSDT, 8-byte for XSDT), validating and cataloging each one by
// signature. The DSDT is special-cased: it is reached through the FADT's
// Dsdt/Ext.Dsdt field rather than appearing in the root array itself.
func enumerateTables() *kernel.Error {
	rootHdr, err := mapHeader(active.rootAddr)
	if err != nil {
		return err
	}

	entrySize := uintptr(4)
	if active.useXSDT {
		entrySize = 8
	}

	entriesBase := directMapFn(active.rootAddr) + unsafe.Sizeof(table.SDTHeader{})
	entryCount := (uintptr(rootHdr.Length) - unsafe.Sizeof(table.SDTHeader{})) / entrySize

	var fadtLength uint32
	for i := uintptr(0); i < entryCount; i++ {
		var entryPhys uintptr
		if active.useXSDT {
			entryPhys = uintptr(*(*uint64)(unsafe.Pointer(entriesBase + i*entrySize)))
		} else {
			entryPhys = uintptr(*(*uint32)(unsafe.Pointer(entriesBase + i*entrySize)))
		}

		hdr, err := mapHeader(entryPhys)
		if err != nil {
			return err
		}
		sig := string(hdr.Signature[:])
		active.tables[sig] = entryPhys

		if sig == "FACP" {
			active.fadt = (*table.FADT)(unsafe.Pointer(directMapFn(entryPhys)))
			fadtLength = hdr.Length
		}
	}

	if active.fadt == nil {
		return errNoFADT
	}

	dsdtPhys := uintptr(active.fadt.Dsdt)
	hasExtDsdt := uintptr(fadtLength) >= unsafe.Offsetof(active.fadt.Ext)+unsafe.Offsetof(active.fadt.Ext.Dsdt)+8
	if hasExtDsdt && active.fadt.Ext.Dsdt != 0 {
		dsdtPhys = uintptr(active.fadt.Ext.Dsdt)
	}
	if dsdtPhys != 0 {
		if hdr, err := mapHeader(dsdtPhys); err == nil {
			active.tables[string(hdr.Signature[:])] = dsdtPhys
		}
	}

	return nil
}

// FindTable returns the physical address of the occurrence-th table (0
// being the first) bearing signature, or 0 if it does not exist. FADT and
// FACP both resolve to the cached Fixed ACPI Description Table; every other
// signature is looked up directly since BorealOS does not expect duplicate
// tables of other types.
func FindTable(signature string, occurrence int) uintptr {
	if occurrence != 0 {
		return 0
	}
	if signature == "FADT" {
		signature = "FACP"
	}
	return active.tables[signature]
}

// PowerProfile returns the FADT's preferred power-management profile, or
// PowerProfileUnspecified if the value the firmware reported is outside the
// range the ACPI spec defines.
func PowerProfile() table.PowerProfile {
	if active.fadt == nil || active.fadt.PreferredPowerManagementProfile > table.PowerProfilePerformanceServer {
		return table.PowerProfileUnspecified
	}
	return active.fadt.PreferredPowerManagementProfile
}

// acpiPollAttempts bounds how many times EnableACPIMode polls PM1a control
// before giving up and reporting a timeout.
const acpiPollAttempts = 10000

// EnableACPIMode writes the FADT's SMI command port to ask the firmware to
// hand SCI-based power management to the OS, then polls PM1a control's SCI_EN
// bit (bit 0) until it observes the transition or exhausts its attempts. A
// timeout is reported through the returned error but is not treated as
// fatal by callers: many virtual machines boot directly in ACPI mode and
// never expect the SMI command at all.
func EnableACPIMode() *kernel.Error {
	if active.fadt == nil {
		return errNoFADT
	}
	if active.fadt.SMICommandPort == 0 || active.fadt.AcpiEnable == 0 {
		return nil
	}

	pm1aControl := active.fadt.PM1aControlBlock
	if alreadyEnabled(pm1aControl) {
		return nil
	}

	outByteFn(uint16(active.fadt.SMICommandPort), active.fadt.AcpiEnable)

	for i := 0; i < acpiPollAttempts; i++ {
		if alreadyEnabled(pm1aControl) {
			return nil
		}
		ioWaitFn()
	}

	kfmt.Printf("acpi: timed out waiting for SCI_EN\n")
	return &kernel.Error{Module: "acpi", Message: "timed out enabling ACPI mode"}
}

func alreadyEnabled(pm1aControlPort uint32) bool {
	return inWordFn(uint16(pm1aControlPort))&1 != 0
}
