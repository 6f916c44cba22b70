package coherence

// ProcessorStats holds the coherence counters of one processor.
type ProcessorStats struct {
	// Transfers[r] counts the lines this processor supplied when processor
	// r missed.
	Transfers []uint64
	// Invalidations counts invalidations of this processor's lines, bucketed
	// by the state each line was invalidated from.
	Invalidations [NumStates]uint64
	// DirtyWriteBacks counts M or O lines written back to memory on
	// eviction, invalidation or session end.
	DirtyWriteBacks uint64
	// ConflictEvictions counts lines evicted from this processor's own slot
	// by an access to a different tag at the same index.
	ConflictEvictions uint64
}

func newProcessorStats(processors int) ProcessorStats {
	return ProcessorStats{Transfers: make([]uint64, processors)}
}

func (s ProcessorStats) clone() ProcessorStats {
	c := s
	c.Transfers = append([]uint64(nil), s.Transfers...)
	return c
}

// TotalTransfers sums Transfers over all requesters.
func (s ProcessorStats) TotalTransfers() uint64 {
	var total uint64
	for _, n := range s.Transfers {
		total += n
	}
	return total
}

// TotalInvalidations sums Invalidations over all states.
func (s ProcessorStats) TotalInvalidations() uint64 {
	var total uint64
	for _, n := range s.Invalidations {
		total += n
	}
	return total
}

// Snapshot is the read-only result of a session, consumed by reporters.
type Snapshot struct {
	Processors  int
	Stats       []ProcessorStats
	FinalStates [][NumStates]int
	BusCounts   [NumBusKinds]uint64
	Finished    bool
}
