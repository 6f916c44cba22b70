// Package trace loads per-processor memory access traces.
//
// Each processor has one file, p<N>.tr, with one access per line:
//
//	<cycle> <rw> <address>
//
// cycle is decimal, rw is 0 for a read and any other integer for a write,
// and address is a Go integer literal (usually 0x-prefixed hex). Blank lines
// and lines starting with '#' are ignored.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sarchlab/moesisim/coherence"
)

// Record is one undecoded trace line.
type Record struct {
	Cycle   uint64
	IsWrite bool
	Address uint64
}

// FileName returns the trace file name of a processor.
func FileName(processor int) string {
	return fmt.Sprintf("p%d.tr", processor)
}

// ParseLine parses one non-empty trace line.
func ParseLine(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Record{}, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	cycle, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid cycle %q: %w", fields[0], err)
	}

	rw, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid read/write flag %q: %w", fields[1], err)
	}

	addr, err := strconv.ParseUint(fields[2], 0, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid address %q: %w", fields[2], err)
	}

	return Record{Cycle: cycle, IsWrite: rw != 0, Address: addr}, nil
}

// Read parses a trace of one processor and decodes every address with g.
// The events keep file order.
func Read(r io.Reader, processor int, g coherence.Geometry) ([]coherence.AccessEvent, error) {
	var events []coherence.AccessEvent

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		ev, err := coherence.NewAccessEvent(g, rec.Cycle, processor, rec.IsWrite, rec.Address)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		events = append(events, ev)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	return events, nil
}

// LoadFile reads the trace file of one processor.
func LoadFile(path string, processor int, g coherence.Geometry) ([]coherence.AccessEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	events, err := Read(f, processor, g)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return events, nil
}

// LoadDir reads p0.tr through p<processors-1>.tr from dir and returns all
// events in simulation order.
func LoadDir(dir string, processors int, g coherence.Geometry) ([]coherence.AccessEvent, error) {
	var all []coherence.AccessEvent

	for p := 0; p < processors; p++ {
		events, err := LoadFile(filepath.Join(dir, FileName(p)), p, g)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}

	coherence.SortEvents(all)

	return all, nil
}
