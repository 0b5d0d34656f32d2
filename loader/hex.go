package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadHex reads a hex listing from path. See ParseHex.
func LoadHex(path string, base uint64) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hex file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseHex(f, base)
}

// ParseHex reads one 32-bit instruction word per line, written in hex with
// an optional 0x prefix. Text after '#' or "//" is a comment and blank lines
// are skipped. The words are placed contiguously from base, which is also
// the entry point.
func ParseHex(r io.Reader, base uint64) (*Program, error) {
	var data []byte

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		digits := strings.TrimPrefix(strings.TrimPrefix(line, "0x"), "0X")
		word, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid instruction word %q: %w",
				lineNo, line, err)
		}

		data = binary.LittleEndian.AppendUint32(data, uint32(word))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read hex listing: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("hex listing has no instructions")
	}

	return &Program{
		EntryPoint: base,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     data,
			MemSize:  uint64(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagExecute,
		}},
	}, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}
