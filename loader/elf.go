// Package loader reads LEGv8 programs from ELF binaries and hex listings
// and places them in simulated memory.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/sarchlab/legsim/memory"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment is a contiguous piece of a program image.
type Segment struct {
	// VirtAddr is the address of the first byte.
	VirtAddr uint64
	// Data holds the initialized bytes.
	Data []byte
	// MemSize is the size in memory. Bytes past len(Data) are zero.
	MemSize uint64
	// Flags holds the protection flags.
	Flags SegmentFlags
}

// Program is a loaded program image.
type Program struct {
	// EntryPoint is the address of the first instruction.
	EntryPoint uint64
	// Segments are copied into memory by LoadInto.
	Segments []Segment
}

// Load parses an ARM64 ELF64 binary and collects its PT_LOAD segments.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("not a 64-bit ELF file")
	}
	if f.Machine != elf.EM_AARCH64 {
		return nil, fmt.Errorf("not an ARM64 ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{EntryPoint: f.Entry}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		seg, err := readSegment(phdr)
		if err != nil {
			return nil, err
		}
		prog.Segments = append(prog.Segments, seg)
	}

	return prog, nil
}

func readSegment(phdr *elf.Prog) (Segment, error) {
	data := make([]byte, phdr.Filesz)
	if phdr.Filesz > 0 {
		n, err := phdr.ReadAt(data, 0)
		if err != nil && err != io.EOF {
			return Segment{}, fmt.Errorf("failed to read segment at 0x%x: %w",
				phdr.Vaddr, err)
		}
		if uint64(n) != phdr.Filesz {
			return Segment{}, fmt.Errorf(
				"short read for segment at 0x%x: got %d bytes, expected %d",
				phdr.Vaddr, n, phdr.Filesz)
		}
	}

	var flags SegmentFlags
	if phdr.Flags&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if phdr.Flags&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if phdr.Flags&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}

	return Segment{
		VirtAddr: phdr.Vaddr,
		Data:     data,
		MemSize:  phdr.Memsz,
		Flags:    flags,
	}, nil
}

// LoadInto copies every segment into m and zero-fills the part of each
// segment that has no file data.
func (p *Program) LoadInto(m *memory.Memory) error {
	for _, seg := range p.Segments {
		if err := m.LoadBytes(seg.VirtAddr, seg.Data); err != nil {
			return fmt.Errorf("load segment at 0x%x: %w", seg.VirtAddr, err)
		}

		filesz := uint64(len(seg.Data))
		if seg.MemSize > filesz {
			zeros := make([]byte, seg.MemSize-filesz)
			if err := m.LoadBytes(seg.VirtAddr+filesz, zeros); err != nil {
				return fmt.Errorf("zero-fill segment at 0x%x: %w",
					seg.VirtAddr, err)
			}
		}
	}

	return nil
}
