// Package coherence models MOESI snooping-bus coherence across a fixed set of
// direct-mapped private caches.
package coherence

// State is the MOESI state of one cache line slot.
type State uint8

// MOESI states. The numeric values index per-state counters.
const (
	Modified State = iota
	Owned
	Exclusive
	Shared
	Invalid

	// NumStates is the number of MOESI states.
	NumStates = 5
)

// AllStates lists the states in report order.
var AllStates = [NumStates]State{Modified, Owned, Exclusive, Shared, Invalid}

// String returns the single-letter name of the state.
func (s State) String() string {
	switch s {
	case Modified:
		return "M"
	case Owned:
		return "O"
	case Exclusive:
		return "E"
	case Shared:
		return "S"
	case Invalid:
		return "I"
	default:
		return "?"
	}
}

// IsValid returns true if the slot holds usable data.
func (s State) IsValid() bool {
	return s != Invalid
}

// IsDirty returns true if the slot holds data newer than memory.
func (s State) IsDirty() bool {
	return s == Modified || s == Owned
}
