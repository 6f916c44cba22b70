package coherence

// BusKind identifies a snooping-bus transaction.
type BusKind uint8

// Bus transactions issued by the engine.
const (
	// BusRd is a shared read on a read miss.
	BusRd BusKind = iota
	// BusRdX is a read with intent to modify on a write miss.
	BusRdX
	// BusUpgr claims ownership of a line the originator already holds.
	BusUpgr

	// NumBusKinds is the number of bus transaction kinds.
	NumBusKinds = 3
)

func (k BusKind) String() string {
	switch k {
	case BusRd:
		return "BusRd"
	case BusRdX:
		return "BusRdX"
	case BusUpgr:
		return "BusUpgr"
	default:
		return "BusUnknown"
	}
}

// NoSupplier marks a transaction in which no remote cache supplied data.
const NoSupplier = -1

// BusTransaction describes one completed bus transaction.
type BusTransaction struct {
	Seq        uint64
	Cycle      uint64
	Kind       BusKind
	Originator int
	Index      uint64
	Tag        uint64
	// Supplier is the processor credited with the data transfer, or
	// NoSupplier.
	Supplier int
	// Invalidated lists the processors whose copies were invalidated.
	Invalidated []int
}

// BusObserver is notified of every bus transaction the engine issues.
type BusObserver interface {
	ObserveBus(tx BusTransaction)
}
