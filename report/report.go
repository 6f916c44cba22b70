// Package report renders the results of a simulation session.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/moesisim/coherence"
)

// WriteText prints transfers, invalidations, write-backs and final states in
// the classic coherence-assignment layout.
func WriteText(w io.Writer, snap coherence.Snapshot) error {
	var b strings.Builder

	for p := 0; p < snap.Processors; p++ {
		var pairs []string
		for r := 0; r < snap.Processors; r++ {
			if r == p {
				continue
			}
			pairs = append(pairs, fmt.Sprintf("<p%d-p%d> = %d", p, r, snap.Stats[p].Transfers[r]))
		}
		fmt.Fprintf(&b, "P%d cache transfers: %s\n", p, strings.Join(pairs, ", "))
	}
	b.WriteString("\n")

	for p := 0; p < snap.Processors; p++ {
		inv := snap.Stats[p].Invalidations
		fmt.Fprintf(&b, "P%d Invalidation from: %s\n", p, stateList(func(s coherence.State) uint64 {
			return inv[s]
		}))
	}
	b.WriteString("\n")

	var writeBacks []string
	for p := 0; p < snap.Processors; p++ {
		writeBacks = append(writeBacks, fmt.Sprintf("P%d = %d", p, snap.Stats[p].DirtyWriteBacks))
	}
	fmt.Fprintf(&b, "Dirty Writebacks: %s\n", strings.Join(writeBacks, ", "))
	b.WriteString("\n")

	for p := 0; p < snap.Processors; p++ {
		final := snap.FinalStates[p]
		fmt.Fprintf(&b, "Final States for P%d: %s\n", p, stateList(func(s coherence.State) uint64 {
			return uint64(final[s])
		}))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func stateList(value func(coherence.State) uint64) string {
	parts := make([]string, 0, coherence.NumStates)
	for _, s := range coherence.AllStates {
		parts = append(parts, fmt.Sprintf("%s = %d", strings.ToLower(s.String()), value(s)))
	}
	return strings.Join(parts, ", ")
}

// ProcessorReport is the JSON form of one processor's results.
type ProcessorReport struct {
	Processor         int               `json:"processor"`
	TransfersTo       map[string]uint64 `json:"transfers_to"`
	InvalidationsFrom map[string]uint64 `json:"invalidations_from"`
	DirtyWriteBacks   uint64            `json:"dirty_writebacks"`
	ConflictEvictions uint64            `json:"conflict_evictions"`
	FinalStates       map[string]int    `json:"final_states"`
}

// Report is the JSON form of a session.
type Report struct {
	Processors []ProcessorReport `json:"processors"`
	Bus        map[string]uint64 `json:"bus_transactions"`
}

// Build converts a snapshot into its JSON form.
func Build(snap coherence.Snapshot) Report {
	r := Report{Bus: map[string]uint64{}}

	for k := coherence.BusKind(0); k < coherence.NumBusKinds; k++ {
		r.Bus[k.String()] = snap.BusCounts[k]
	}

	for p := 0; p < snap.Processors; p++ {
		stats := snap.Stats[p]
		pr := ProcessorReport{
			Processor:         p,
			TransfersTo:       map[string]uint64{},
			InvalidationsFrom: map[string]uint64{},
			DirtyWriteBacks:   stats.DirtyWriteBacks,
			ConflictEvictions: stats.ConflictEvictions,
			FinalStates:       map[string]int{},
		}

		for q, n := range stats.Transfers {
			if q != p {
				pr.TransfersTo[fmt.Sprintf("p%d", q)] = n
			}
		}
		for _, s := range coherence.AllStates {
			pr.InvalidationsFrom[s.String()] = stats.Invalidations[s]
			pr.FinalStates[s.String()] = snap.FinalStates[p][s]
		}

		r.Processors = append(r.Processors, pr)
	}

	return r
}

// WriteJSON prints the snapshot as indented JSON.
func WriteJSON(w io.Writer, snap coherence.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(snap))
}
