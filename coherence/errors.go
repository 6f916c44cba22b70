package coherence

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolInvariantViolation is the class of all coherence states the
	// MOESI rules define as impossible.
	ErrProtocolInvariantViolation = errors.New("protocol invariant violation")

	// ErrSessionFinished is returned when a finished session is used again.
	ErrSessionFinished = errors.New("simulation session already finished")

	// ErrUnknownProcessor is returned for events from a processor the session
	// does not simulate.
	ErrUnknownProcessor = errors.New("unknown processor")
)

// InvariantViolationError reports an impossible coherence state together with
// the slot that exposed it.
type InvariantViolationError struct {
	// Op is the bus transaction or check that found the violation.
	Op        string
	Index     uint64
	Tag       uint64
	Processor int
	State     State
	Reason    string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("%s: %s: P%d in %s at index %d, tag %d: %s",
		ErrProtocolInvariantViolation, e.Op, e.Processor, e.State,
		e.Index, e.Tag, e.Reason)
}

func (e *InvariantViolationError) Unwrap() error {
	return ErrProtocolInvariantViolation
}
