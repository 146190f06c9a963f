package console

import "borealos/kernel/mem"

var directMapFn = func(physAddr uintptr) uintptr { return mem.HigherHalfOffset + physAddr }
