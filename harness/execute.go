package harness

import (
	"fmt"
	"os"

	"github.com/milosgajdos/omegaff/config"
)

// Options configure Execute
type Options struct {
	// Config is path to JSON configuration; defaults are used if empty
	Config string
	// Out is path of the CSV log; it overrides the configured output if set
	Out string
	// PlotDir is directory for PNG plots; no plots are written if empty
	PlotDir string
	// Summary is path of the JSON summary; no summary is written if empty
	Summary string
	// Variants override the configured variants if set
	Variants []string
}

// Execute loads configuration, runs the comparison and writes its outputs as set by opts.
func Execute(opts Options) (*Result, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, err
		}
	}

	if len(opts.Variants) > 0 {
		cfg.Variants = opts.Variants
	}

	if opts.Out != "" {
		cfg.Output = opts.Out
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	res, err := Run(cfg, f)
	if err != nil {
		return nil, err
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close log file: %w", err)
	}

	if opts.PlotDir != "" {
		if err := Plot(res, opts.PlotDir); err != nil {
			return nil, err
		}
	}

	if opts.Summary != "" {
		sf, err := os.Create(opts.Summary)
		if err != nil {
			return nil, fmt.Errorf("failed to create summary file: %w", err)
		}
		defer sf.Close()

		if err := WriteSummary(res, sf); err != nil {
			return nil, err
		}

		if err := sf.Close(); err != nil {
			return nil, fmt.Errorf("failed to close summary file: %w", err)
		}
	}

	return res, nil
}
