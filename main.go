// Package main provides the entry point for moesisim.
// moesisim replays per-processor memory traces through a MOESI cache
// coherence model.
//
// For the full CLI, use: go run ./cmd/moesisim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("moesisim - MOESI Cache Coherence Simulator")
	fmt.Println("")
	fmt.Println("Usage: moesisim [options] [trace-dir]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  --config     Path to simulation configuration JSON file")
	fmt.Println("  --env-file   Load MOESISIM_* overrides from a dotenv file")
	fmt.Println("  -p           Number of processors")
	fmt.Println("  --format     Report format: text or json")
	fmt.Println("  --db         Record bus transactions to a SQLite file")
	fmt.Println("  --check      Verify coherence invariants after every access")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/moesisim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/moesisim' instead.")
	}
}
