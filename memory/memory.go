// Package memory provides the simulated LEGv8 address space.
//
// The address space is a set of named, non-overlapping regions. Each region
// is backed by an Akita storage. Accesses outside every region read as zero
// and writes to them are dropped; both are reported to the logger.
package memory

import (
	"encoding/binary"
	"fmt"

	"github.com/go-logr/logr"
	akitamem "github.com/sarchlab/akita/v4/mem/mem"
)

// Default region layout.
const (
	TextBase  uint64 = 0x00400000
	DataBase  uint64 = 0x10000000
	StackBase uint64 = 0x7FF00000

	DefaultRegionSize uint64 = 1 << 20
)

// Region describes one mapped range of the address space.
type Region struct {
	Name string
	Base uint64
	Size uint64
}

// End returns the first address after the region.
func (r Region) End() uint64 {
	return r.Base + r.Size
}

// Contains reports whether addr falls inside the region.
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Base && addr-r.Base < r.Size
}

// Overlaps reports whether two regions share any address.
func (r Region) Overlaps(o Region) bool {
	return r.Base < o.End() && o.Base < r.End()
}

// DefaultRegions returns the text, data and stack regions, 1 MiB each.
func DefaultRegions() []Region {
	return []Region{
		{Name: "text", Base: TextBase, Size: DefaultRegionSize},
		{Name: "data", Base: DataBase, Size: DefaultRegionSize},
		{Name: "stack", Base: StackBase, Size: DefaultRegionSize},
	}
}

type mappedRegion struct {
	Region
	storage *akitamem.Storage
}

// Memory is a byte-addressable little-endian address space.
type Memory struct {
	regions []mappedRegion
	logger  logr.Logger
}

// Option is a functional option for configuring Memory.
type Option func(*Memory)

// WithLogger sets the logger that receives unmapped-access reports.
func WithLogger(logger logr.Logger) Option {
	return func(m *Memory) {
		m.logger = logger
	}
}

// New creates a memory with the given regions.
func New(regions []Region, opts ...Option) (*Memory, error) {
	m := &Memory{logger: logr.Discard()}

	for _, opt := range opts {
		opt(m)
	}

	for i, r := range regions {
		if r.Size == 0 {
			return nil, fmt.Errorf("region %q has zero size", r.Name)
		}
		if r.End() < r.Base {
			return nil, fmt.Errorf("region %q wraps the address space", r.Name)
		}
		for _, prev := range regions[:i] {
			if r.Overlaps(prev) {
				return nil, fmt.Errorf("region %q overlaps region %q",
					r.Name, prev.Name)
			}
		}

		m.regions = append(m.regions, mappedRegion{
			Region:  r,
			storage: akitamem.NewStorage(r.Size),
		})
	}

	return m, nil
}

// NewDefault creates a memory with DefaultRegions.
func NewDefault(opts ...Option) *Memory {
	m, err := New(DefaultRegions(), opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Regions returns the mapped regions.
func (m *Memory) Regions() []Region {
	regions := make([]Region, len(m.regions))
	for i, r := range m.regions {
		regions[i] = r.Region
	}
	return regions
}

func (m *Memory) find(addr uint64) *mappedRegion {
	for i := range m.regions {
		if m.regions[i].Contains(addr) {
			return &m.regions[i]
		}
	}
	return nil
}

// ReadBytes reads n bytes starting at addr. Unmapped bytes read as zero and
// are reported as an error alongside the data.
func (m *Memory) ReadBytes(addr uint64, n int) ([]byte, error) {
	data := make([]byte, n)
	var firstErr error

	for i := 0; i < n; {
		a := addr + uint64(i)
		r := m.find(a)
		if r == nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("read from unmapped address 0x%X", a)
			}
			i++
			continue
		}

		chunk := min(uint64(n-i), r.End()-a)
		bytes, err := r.storage.Read(a-r.Base, chunk)
		if err != nil {
			return data, fmt.Errorf("read 0x%X in region %q: %w", a, r.Name, err)
		}
		copy(data[i:], bytes)
		i += int(chunk)
	}

	return data, firstErr
}

// WriteBytes writes data starting at addr. Bytes that fall outside every
// region are dropped and reported as an error.
func (m *Memory) WriteBytes(addr uint64, data []byte) error {
	var firstErr error

	for i := 0; i < len(data); {
		a := addr + uint64(i)
		r := m.find(a)
		if r == nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("write to unmapped address 0x%X", a)
			}
			i++
			continue
		}

		chunk := min(uint64(len(data)-i), r.End()-a)
		err := r.storage.Write(a-r.Base, data[i:i+int(chunk)])
		if err != nil {
			return fmt.Errorf("write 0x%X in region %q: %w", a, r.Name, err)
		}
		i += int(chunk)
	}

	return firstErr
}

// LoadBytes copies a program image into memory.
func (m *Memory) LoadBytes(addr uint64, data []byte) error {
	return m.WriteBytes(addr, data)
}

func (m *Memory) read(addr uint64, n int) []byte {
	data, err := m.ReadBytes(addr, n)
	if err != nil {
		m.logger.Info("memory read", "addr", fmt.Sprintf("0x%X", addr),
			"size", n, "reason", err.Error())
	}
	return data
}

func (m *Memory) write(addr uint64, data []byte) {
	if err := m.WriteBytes(addr, data); err != nil {
		m.logger.Info("memory write", "addr", fmt.Sprintf("0x%X", addr),
			"size", len(data), "reason", err.Error())
	}
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint64) uint8 {
	return m.read(addr, 1)[0]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint64, value uint8) {
	m.write(addr, []byte{value})
}

// Read32 reads a little-endian 32-bit word.
func (m *Memory) Read32(addr uint64) uint32 {
	return binary.LittleEndian.Uint32(m.read(addr, 4))
}

// Write32 writes a little-endian 32-bit word.
func (m *Memory) Write32(addr uint64, value uint32) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, value)
	m.write(addr, buf)
}

// Read64 reads a little-endian 64-bit value.
func (m *Memory) Read64(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(m.read(addr, 8))
}

// Write64 writes a little-endian 64-bit value.
func (m *Memory) Write64(addr uint64, value uint64) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	m.write(addr, buf)
}
