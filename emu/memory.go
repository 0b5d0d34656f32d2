package emu

// Memory is the simulated address space seen by the emulator. Both calls are
// synchronous and little-endian. Byte and halfword accesses are composed from
// these by the load/store unit.
type Memory interface {
	// Read32 reads the 32-bit word starting at addr.
	Read32(addr uint64) uint32
	// Write32 writes the 32-bit word starting at addr.
	Write32(addr uint64, value uint32)
}
