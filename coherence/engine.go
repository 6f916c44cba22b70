package coherence

import (
	"fmt"
)

// Engine applies access events to a directory following the MOESI rules.
// One Engine is one simulation session and is not safe for concurrent use.
type Engine struct {
	geometry Geometry
	dir      *Directory
	stats    []ProcessorStats

	busCounts [NumBusKinds]uint64
	seq       uint64

	observer        BusObserver
	checkInvariants bool

	finished bool
	err      error
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers an observer that receives every bus transaction.
func WithObserver(o BusObserver) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithInvariantChecking verifies the touched line after every event.
func WithInvariantChecking() Option {
	return func(e *Engine) {
		e.checkInvariants = true
	}
}

// NewEngine creates a session simulating the given number of processors.
func NewEngine(g Geometry, processors int, opts ...Option) (*Engine, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	if processors < 1 {
		return nil, fmt.Errorf("need at least one processor, got %d", processors)
	}

	e := &Engine{
		geometry: g,
		dir:      NewDirectory(g, processors),
		stats:    make([]ProcessorStats, processors),
	}
	for p := range e.stats {
		e.stats[p] = newProcessorStats(processors)
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// access is an event bound to the directory line it touches.
type access struct {
	AccessEvent
	line     []slot
	lineAddr uint64
}

func (a *access) own() *slot {
	return &a.line[a.Processor]
}

// Apply runs one event to completion, including every snoop side effect.
// Events must arrive in chronological order. A protocol invariant violation
// ends the session: the same error is returned by every later call.
func (e *Engine) Apply(ev AccessEvent) error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return ErrSessionFinished
	}
	if ev.Processor < 0 || ev.Processor >= len(e.stats) {
		return fmt.Errorf("%w: P%d, simulating %d processors",
			ErrUnknownProcessor, ev.Processor, len(e.stats))
	}
	if ev.Index >= uint64(e.dir.NumIndices()) || ev.Tag>>e.geometry.TagBits() != 0 {
		return fmt.Errorf("%w: index %d, tag %d do not fit the geometry",
			ErrInvalidAddressWidth, ev.Index, ev.Tag)
	}

	a := &access{
		AccessEvent: ev,
		line:        e.dir.lines[ev.Index],
		lineAddr:    e.geometry.LineAddress(ev.Index, ev.Tag),
	}

	e.resolveConflict(a)
	a.own().assign(a.lineAddr)

	var err error
	if ev.IsWrite {
		err = e.processorWrite(a)
	} else {
		err = e.processorRead(a)
	}

	if err == nil && e.checkInvariants {
		err = CheckLine(e.dir, ev.Index)
	}

	if err != nil {
		e.err = err
	}

	return err
}

// resolveConflict evicts the processor's line when the slot maps another tag.
func (e *Engine) resolveConflict(a *access) {
	own := a.own()
	if !own.hasTag() || own.holds(a.lineAddr) {
		return
	}

	stats := &e.stats[a.Processor]
	if own.state.IsDirty() {
		stats.DirtyWriteBacks++
	}
	stats.ConflictEvictions++

	own.invalidate()
}

func (e *Engine) processorWrite(a *access) error {
	own := a.own()

	switch own.state {
	case Modified, Exclusive:
		// Already exclusive, no bus signal.
	case Owned, Shared:
		if err := e.busUpgr(a); err != nil {
			return err
		}
	case Invalid:
		e.busRdX(a)
	}

	own.setState(Modified)

	return nil
}

func (e *Engine) processorRead(a *access) error {
	own := a.own()
	if own.state.IsValid() {
		return nil
	}

	if !e.remoteCopyExists(a) {
		// Filled from memory; nothing to snoop.
		own.setState(Exclusive)
		return nil
	}

	if err := e.busRd(a); err != nil {
		return err
	}

	own.setState(Shared)

	return nil
}

func (e *Engine) remoteCopyExists(a *access) bool {
	for q := range a.line {
		if q != a.Processor && a.line[q].holds(a.lineAddr) && a.line[q].state.IsValid() {
			return true
		}
	}
	return false
}

// snoopPriority is the order in which remote holders answer a BusRd, and the
// state each moves to after supplying the line.
var snoopPriority = [...]struct {
	holder State
	next   State
}{
	{Modified, Owned},
	{Owned, Owned},
	{Exclusive, Shared},
	{Shared, Shared},
}

func (e *Engine) busRd(a *access) error {
	tx := e.newTransaction(BusRd, a)

	for _, tier := range snoopPriority {
		q, ok := e.findHolder(a, tier.holder)
		if !ok {
			continue
		}

		e.stats[q].Transfers[a.Processor]++
		a.line[q].setState(tier.next)
		tx.Supplier = q
		e.emit(tx)

		return nil
	}

	return &InvariantViolationError{
		Op:        BusRd.String(),
		Index:     a.Index,
		Tag:       a.Tag,
		Processor: a.Processor,
		State:     a.own().state,
		Reason:    "no remote cache supplies a line reported as present",
	}
}

// findHolder returns the lowest processor other than the originator holding
// the line in state.
func (e *Engine) findHolder(a *access, state State) (int, bool) {
	for q := range a.line {
		if q != a.Processor && a.line[q].holds(a.lineAddr) && a.line[q].state == state {
			return q, true
		}
	}
	return 0, false
}

func (e *Engine) busRdX(a *access) {
	tx := e.newTransaction(BusRdX, a)

	for q := range a.line {
		s := &a.line[q]
		if q == a.Processor || !s.holds(a.lineAddr) || !s.state.IsValid() {
			continue
		}

		stats := &e.stats[q]
		stats.Invalidations[s.state]++
		if s.state.IsDirty() {
			stats.DirtyWriteBacks++
		}
		// Shared copies hold no data the originator lacks.
		if s.state != Shared {
			stats.Transfers[a.Processor]++
			if tx.Supplier == NoSupplier {
				tx.Supplier = q
			}
		}

		s.invalidate()
		tx.Invalidated = append(tx.Invalidated, q)
	}

	e.emit(tx)
}

func (e *Engine) busUpgr(a *access) error {
	for q := range a.line {
		s := &a.line[q]
		if q == a.Processor || !s.holds(a.lineAddr) {
			continue
		}

		if s.state == Modified || s.state == Exclusive {
			return &InvariantViolationError{
				Op:        BusUpgr.String(),
				Index:     a.Index,
				Tag:       a.Tag,
				Processor: q,
				State:     s.state,
				Reason: fmt.Sprintf("remote exclusive copy while P%d upgrades from %s",
					a.Processor, a.own().state),
			}
		}
	}

	tx := e.newTransaction(BusUpgr, a)

	for q := range a.line {
		s := &a.line[q]
		if q == a.Processor || !s.holds(a.lineAddr) || !s.state.IsValid() {
			continue
		}

		// Ownership moves without a write-back or a data transfer.
		e.stats[q].Invalidations[s.state]++
		s.invalidate()
		tx.Invalidated = append(tx.Invalidated, q)
	}

	e.emit(tx)

	return nil
}

func (e *Engine) newTransaction(kind BusKind, a *access) BusTransaction {
	return BusTransaction{
		Cycle:      a.Cycle,
		Kind:       kind,
		Originator: a.Processor,
		Index:      a.Index,
		Tag:        a.Tag,
		Supplier:   NoSupplier,
	}
}

func (e *Engine) emit(tx BusTransaction) {
	tx.Seq = e.seq
	e.seq++
	e.busCounts[tx.Kind]++

	if e.observer != nil {
		e.observer.ObserveBus(tx)
	}
}

// Finish ends the session, charging one write-back for every line still in
// M or O.
func (e *Engine) Finish() error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return ErrSessionFinished
	}

	for _, line := range e.dir.lines {
		for p := range line {
			if line[p].state.IsDirty() {
				e.stats[p].DirtyWriteBacks++
			}
		}
	}

	e.finished = true

	return nil
}

// Run applies every event in order and finishes the session.
func (e *Engine) Run(events []AccessEvent) error {
	for i, ev := range events {
		if err := e.Apply(ev); err != nil {
			return fmt.Errorf("event %d %v: %w", i, ev, err)
		}
	}

	return e.Finish()
}

// Err returns the error that ended the session, if any.
func (e *Engine) Err() error {
	return e.err
}

// Finished returns true once Finish has succeeded.
func (e *Engine) Finished() bool {
	return e.finished
}

// Directory returns the directory. Callers must not modify the session
// through it.
func (e *Engine) Directory() *Directory {
	return e.dir
}

// Stats returns a copy of processor p's counters.
func (e *Engine) Stats(p int) ProcessorStats {
	return e.stats[p].clone()
}

// BusCounts returns how many transactions of each kind were issued.
func (e *Engine) BusCounts() [NumBusKinds]uint64 {
	return e.busCounts
}

// Snapshot copies the session results for reporting.
func (e *Engine) Snapshot() Snapshot {
	n := len(e.stats)
	snap := Snapshot{
		Processors:  n,
		Stats:       make([]ProcessorStats, n),
		FinalStates: make([][NumStates]int, n),
		BusCounts:   e.busCounts,
		Finished:    e.finished,
	}

	for p := 0; p < n; p++ {
		snap.Stats[p] = e.stats[p].clone()
		snap.FinalStates[p] = e.dir.StateCounts(p)
	}

	return snap
}
