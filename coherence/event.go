package coherence

import (
	"cmp"
	"fmt"
	"slices"
)

// AccessEvent is one decoded memory access from a processor trace.
type AccessEvent struct {
	Cycle     uint64
	Processor int
	IsWrite   bool
	Address   uint64

	// Derived from Address by the geometry the event was built with.
	Offset uint64
	Index  uint64
	Tag    uint64
}

// NewAccessEvent decodes address and returns the event.
func NewAccessEvent(
	g Geometry,
	cycle uint64,
	processor int,
	isWrite bool,
	address uint64,
) (AccessEvent, error) {
	a, err := g.Decode(address)
	if err != nil {
		return AccessEvent{}, err
	}

	return AccessEvent{
		Cycle:     cycle,
		Processor: processor,
		IsWrite:   isWrite,
		Address:   address,
		Offset:    a.Offset,
		Index:     a.Index,
		Tag:       a.Tag,
	}, nil
}

// Before reports whether e happens before other: earlier cycle first, lower
// processor ID on the same cycle.
func (e AccessEvent) Before(other AccessEvent) bool {
	return compareEvents(e, other) < 0
}

func (e AccessEvent) String() string {
	op := "Read"
	if e.IsWrite {
		op = "Write"
	}

	return fmt.Sprintf("[%d, P%d, %s, 0x%08x, offset=%d, index=%d, tag=%d]",
		e.Cycle, e.Processor, op, e.Address, e.Offset, e.Index, e.Tag)
}

// SortEvents orders events chronologically, breaking ties by processor.
// Events that compare equal keep their relative order.
func SortEvents(events []AccessEvent) {
	slices.SortStableFunc(events, compareEvents)
}

func compareEvents(a, b AccessEvent) int {
	if c := cmp.Compare(a.Cycle, b.Cycle); c != 0 {
		return c
	}
	return cmp.Compare(a.Processor, b.Processor)
}
