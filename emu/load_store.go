// Package emu provides functional LEGv8 emulation.
package emu

// LoadStoreUnit implements the LEGv8 unscaled-offset loads and stores.
// Addresses and store data come from the current register file, loaded
// values are staged into the next one. Memory is written directly.
type LoadStoreUnit struct {
	cur    *RegFile
	next   *RegFile
	memory Memory

	// narrowStoreAddr truncates store addresses to 32 bits.
	narrowStoreAddr bool
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register files and memory.
func NewLoadStoreUnit(cur, next *RegFile, memory Memory, narrowStoreAddr bool) *LoadStoreUnit {
	return &LoadStoreUnit{
		cur:             cur,
		next:            next,
		memory:          memory,
		narrowStoreAddr: narrowStoreAddr,
	}
}

func (lsu *LoadStoreUnit) loadAddr(rn uint8, offset int64) uint64 {
	return lsu.cur.ReadRegU(rn) + uint64(offset)
}

func (lsu *LoadStoreUnit) storeAddr(rn uint8, offset int64) uint64 {
	addr := lsu.cur.ReadRegU(rn) + uint64(offset)
	if lsu.narrowStoreAddr {
		addr = uint64(uint32(addr))
	}
	return addr
}

// LDUR performs a 64-bit load: Xt = mem[Xn + offset]
// The value is assembled from two little-endian words.
func (lsu *LoadStoreUnit) LDUR(rt, rn uint8, offset int64) {
	addr := lsu.loadAddr(rn, offset)
	low := lsu.memory.Read32(addr)
	high := lsu.memory.Read32(addr + 4)
	lsu.next.WriteRegU(rt, uint64(high)<<32|uint64(low))
}

// LDURB loads a byte with zero extension: Xt = zero_extend(mem[addr])
func (lsu *LoadStoreUnit) LDURB(rt, rn uint8, offset int64) {
	addr := lsu.loadAddr(rn, offset)
	lsu.next.WriteRegU(rt, lsu.readNarrow(addr, 1))
}

// LDURH loads a halfword with zero extension: Xt = zero_extend(mem[addr])
func (lsu *LoadStoreUnit) LDURH(rt, rn uint8, offset int64) {
	addr := lsu.loadAddr(rn, offset)
	lsu.next.WriteRegU(rt, lsu.readNarrow(addr, 2))
}

// STUR performs a 64-bit store: mem[Xn + offset] = Xt
func (lsu *LoadStoreUnit) STUR(rt, rn uint8, offset int64) {
	addr := lsu.storeAddr(rn, offset)
	value := lsu.cur.ReadRegU(rt)
	lsu.memory.Write32(addr, uint32(value))
	lsu.memory.Write32(addr+4, uint32(value>>32))
}

// STURB stores a byte: mem[addr] = Xt[7:0]
func (lsu *LoadStoreUnit) STURB(rt, rn uint8, offset int64) {
	addr := lsu.storeAddr(rn, offset)
	lsu.writeNarrow(addr, lsu.cur.ReadRegU(rt), 1)
}

// STURH stores a halfword: mem[addr] = Xt[15:0]
func (lsu *LoadStoreUnit) STURH(rt, rn uint8, offset int64) {
	addr := lsu.storeAddr(rn, offset)
	lsu.writeNarrow(addr, lsu.cur.ReadRegU(rt), 2)
}

// readNarrow reads size bytes starting at addr out of their containing
// aligned words.
func (lsu *LoadStoreUnit) readNarrow(addr uint64, size int) uint64 {
	var value uint64
	for i := 0; i < size; i++ {
		a := addr + uint64(i)
		word := lsu.memory.Read32(a &^ 3)
		b := (word >> ((a & 3) * 8)) & 0xFF
		value |= uint64(b) << (8 * i)
	}
	return value
}

// writeNarrow stores the low size bytes of value at addr with a
// read-modify-write of each containing aligned word, so the other bytes of
// the word keep their contents.
func (lsu *LoadStoreUnit) writeNarrow(addr uint64, value uint64, size int) {
	for i := 0; i < size; i++ {
		a := addr + uint64(i)
		aligned := a &^ 3
		shift := (a & 3) * 8
		b := uint32(value>>(8*i)) & 0xFF

		word := lsu.memory.Read32(aligned)
		word = word&^(0xFF<<shift) | b<<shift
		lsu.memory.Write32(aligned, word)
	}
}
