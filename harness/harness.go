// Package harness runs filter variants side by side over a single simulated
// truth and measurement stream, logs every step and scores the variants.
package harness

import (
	"fmt"
	"io"

	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/config"
	"github.com/milosgajdos/omegaff/detect"
	"github.com/milosgajdos/omegaff/ff"
	"github.com/milosgajdos/omegaff/sim"
	"github.com/milosgajdos/omegaff/simlog"
	"gonum.org/v1/gonum/spatial/r3"
)

// variant is a filter under comparison
type variant struct {
	name string
	f    *ff.FF
	// err is the error which stopped the variant
	err error
}

// step runs the variant on measurement m and scores it against truth st
func (v *variant) step(st sim.State, m sim.Measurement) VariantRecord {
	if v.err != nil {
		return failed()
	}

	if err := v.f.Predict(m.Gyro); err != nil {
		v.fail(st.Step, err)
		return failed()
	}

	est, err := v.f.Update(m.Acc, m.Mag)
	if err != nil {
		v.fail(st.Step, err)
		return failed()
	}

	return VariantRecord{
		Attitude:  est.Attitude(),
		Rate:      est.Rate(),
		Bias:      est.Bias(),
		Statistic: est.Statistic(),
		Mode:      v.f.Mode(),
		RateErr:   r3.Norm(r3.Sub(est.Rate(), st.Rate)),
		AttErr:    attitude.Angle(st.Attitude, est.Attitude()),
	}
}

func (v *variant) fail(step int, err error) {
	v.err = fmt.Errorf("variant %s failed at step %d: %w", v.name, step, err)
}

// Harness is a single comparison run
type Harness struct {
	cfg      *config.Config
	ctx      *sim.Context
	truth    *sim.Truth
	sensor   *sim.Sensor
	variants []*variant
}

// New creates new Harness for configuration cfg and returns it.
// It returns error wrapping ErrConfig if cfg is invalid.
func New(cfg *config.Config) (*Harness, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, err := sim.NewContext(cfg.DT, cfg.Sensor.Seed)
	if err != nil {
		return nil, err
	}

	truth, err := sim.NewTruth(cfg.Truth, cfg.DT)
	if err != nil {
		return nil, fmt.Errorf("failed to create truth model: %w", err)
	}

	sensor, err := sim.NewSensor(cfg.Sensor, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create sensor model: %w", err)
	}

	variants := make([]*variant, len(cfg.Variants))
	for i, name := range cfg.Variants {
		f, err := NewFilter(cfg, name)
		if err != nil {
			return nil, fmt.Errorf("failed to create variant %s: %w", name, err)
		}
		variants[i] = &variant{name: name, f: f}
	}

	return &Harness{
		cfg:      cfg,
		ctx:      ctx,
		truth:    truth,
		sensor:   sensor,
		variants: variants,
	}, nil
}

// NewFilter creates a fresh filter of the named variant configured by cfg
func NewFilter(cfg *config.Config, name string) (*ff.FF, error) {
	rule, err := detect.ByName(name)
	if err != nil {
		return nil, err
	}

	init, err := sim.NewInitCondFromConfig(cfg.Filter)
	if err != nil {
		return nil, err
	}

	return ff.New(cfg.Filter, cfg.DT, rule, detect.NewThresholds(cfg.Detector), init)
}

// Names returns variant names in log order
func (h *Harness) Names() []string {
	names := make([]string, len(h.variants))
	for i, v := range h.variants {
		names[i] = v.name
	}
	return names
}

// Run runs the comparison and writes the log to w. No log is written if w is nil.
// Every call replays the run from its initial condition and noise seed.
// A numerical failure of a variant stops that variant only; its error is reported
// in the variant summary. A failure of the truth or sensor model, or a log write
// failure, stops the run.
func (h *Harness) Run(w io.Writer) (*Result, error) {
	var lw *simlog.Writer
	if w != nil {
		var err error
		if lw, err = simlog.NewWriter(w, Header(h.Names())); err != nil {
			return nil, err
		}
	}

	h.reset()

	n := h.cfg.Steps()
	records := make([]Record, 0, n)

	for i := 0; i < n; i++ {
		st, err := h.truth.Advance(h.ctx)
		if err != nil {
			return nil, err
		}

		m, err := h.sensor.Sample(st)
		if err != nil {
			return nil, err
		}

		rec := Record{
			State:       st,
			Measurement: m,
			Variants:    make([]VariantRecord, len(h.variants)),
		}
		for j, v := range h.variants {
			rec.Variants[j] = v.step(st, m)
		}
		records = append(records, rec)

		if lw != nil {
			if err := lw.Write(rec.Row()); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{
		Config:  h.cfg,
		Names:   h.Names(),
		Records: records,
	}
	res.Summaries = Summarize(res, h.errs())

	return res, nil
}

// reset rewinds the clock, reseeds the noise and resets truth and filters
func (h *Harness) reset() {
	h.ctx.Reset()
	h.truth.Reset()
	for _, v := range h.variants {
		v.f.Reset()
		v.err = nil
	}
}

func (h *Harness) errs() []error {
	errs := make([]error, len(h.variants))
	for i, v := range h.variants {
		errs[i] = v.err
	}
	return errs
}

// Run creates a Harness for cfg and runs it, writing the log to w
func Run(cfg *config.Config, w io.Writer) (*Result, error) {
	h, err := New(cfg)
	if err != nil {
		return nil, err
	}

	return h.Run(w)
}

// Result is the outcome of a comparison run
type Result struct {
	Config *config.Config
	// Names are variant names in log order
	Names   []string
	Records []Record
	// Summaries are aligned with Names
	Summaries []Summary
}

// Summary returns summary of the named variant
func (r *Result) Summary(name string) (Summary, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Summaries[i], true
		}
	}
	return Summary{}, false
}
