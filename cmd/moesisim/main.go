// Package main provides the moesisim command.
// moesisim replays per-processor memory traces through a MOESI coherence
// model and prints the resulting coherence statistics.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/moesisim/coherence"
	"github.com/sarchlab/moesisim/config"
	"github.com/sarchlab/moesisim/recorder"
	"github.com/sarchlab/moesisim/report"
	"github.com/sarchlab/moesisim/trace"
)

type options struct {
	traceDir   string
	configPath string
	envFile    string
	processors int
	format     string
	dbPath     string
	check      bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "moesisim [trace-dir]",
		Short: "Replay processor traces through a MOESI cache coherence model.",
		Long: `moesisim reads p0.tr, p1.tr, ... from the trace directory (default: the ` +
			`current directory), replays the accesses in cycle order over one ` +
			`direct-mapped cache per processor and reports cache-to-cache transfers, ` +
			`invalidations, dirty write-backs and final line states.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.traceDir = "."
			if len(args) > 0 {
				opts.traceDir = args[0]
			}
			return run(opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to simulation configuration JSON file")
	flags.StringVar(&opts.envFile, "env-file", "", "Load MOESISIM_* overrides from a dotenv file")
	flags.IntVarP(&opts.processors, "processors", "p", 0, "Number of processors (overrides config)")
	flags.StringVar(&opts.format, "format", "text", "Report format: text or json")
	flags.StringVar(&opts.dbPath, "db", "", "Record every bus transaction to this SQLite file")
	flags.BoolVar(&opts.check, "check", false, "Verify coherence invariants after every access")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if opts.processors > 0 {
		cfg.Processors = opts.processors
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func run(opts *options, out io.Writer) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown report format %q", opts.format)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	geometry, err := cfg.Geometry()
	if err != nil {
		return err
	}

	events, err := trace.LoadDir(opts.traceDir, cfg.Processors, geometry)
	if err != nil {
		return err
	}

	if opts.verbose {
		fmt.Fprintf(out, "Loaded %d accesses from %s\n", len(events), opts.traceDir)
		fmt.Fprintf(out, "Processors: %d, lines per cache: %d, line size: %dB, tag bits: %d\n",
			cfg.Processors, geometry.NumIndices(), geometry.LineSize(), geometry.TagBits())
	}

	var engineOpts []coherence.Option
	if opts.check {
		engineOpts = append(engineOpts, coherence.WithInvariantChecking())
	}

	var rec *recorder.SQLiteRecorder
	if opts.dbPath != "" {
		rec, err = recorder.NewSQLiteRecorder(opts.dbPath)
		if err != nil {
			return err
		}
		defer func() { _ = rec.Close() }()
		engineOpts = append(engineOpts, coherence.WithObserver(rec))
	}

	engine, err := coherence.NewEngine(geometry, cfg.Processors, engineOpts...)
	if err != nil {
		return err
	}

	if err := engine.Run(events); err != nil {
		return fmt.Errorf("simulation aborted: %w", err)
	}

	if rec != nil {
		if err := rec.Close(); err != nil {
			return err
		}
		if opts.verbose {
			fmt.Fprintf(out, "Recorded %d bus transactions to %s (session %s)\n",
				rec.Written(), rec.Path(), rec.SessionID())
		}
	}

	if opts.verbose {
		counts := engine.BusCounts()
		fmt.Fprintf(out, "Bus transactions: BusRd = %d, BusRdX = %d, BusUpgr = %d\n\n",
			counts[coherence.BusRd], counts[coherence.BusRdX], counts[coherence.BusUpgr])
	}

	snap := engine.Snapshot()
	if opts.format == "json" {
		return report.WriteJSON(out, snap)
	}
	return report.WriteText(out, snap)
}
