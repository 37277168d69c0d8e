package harness

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/sim"
	"gonum.org/v1/gonum/num/quat"
)

const (
	plotWidth  = 8
	plotHeight = 5
)

// Plot writes PNG plots of res into directory dir:
// Euler angles, angular velocity error, attitude error, decision statistic,
// detector mode and disturbance acceleration.
func Plot(res *Result, dir string) error {
	if len(res.Records) == 0 {
		return fmt.Errorf("no records to plot")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}

	ts := res.column(func(r Record) float64 { return r.State.Time })

	euler := []sim.Series{}
	for k, axis := range []string{"yaw", "pitch", "roll"} {
		k := k
		euler = append(euler, sim.Series{
			Name: "true " + axis,
			X:    ts,
			Y:    res.column(func(r Record) float64 { return euler3(r.State.Attitude)[k] }),
		})
	}
	for j, name := range res.Names {
		j := j
		for k, axis := range []string{"yaw", "pitch", "roll"} {
			k := k
			euler = append(euler, sim.Series{
				Name: name + " " + axis,
				X:    ts,
				Y:    res.column(func(r Record) float64 { return euler3(r.Variants[j].Attitude)[k] }),
			})
		}
	}

	rateErr := res.variantSeries(ts, func(v VariantRecord) float64 { return v.RateErr })
	attErr := res.variantSeries(ts, func(v VariantRecord) float64 { return v.AttErr })
	stats := res.variantSeries(ts, func(v VariantRecord) float64 { return v.Statistic })
	modes := res.variantSeries(ts, func(v VariantRecord) float64 {
		if v.Failed {
			return math.NaN()
		}
		return float64(v.Mode)
	})

	dist := []sim.Series{}
	for k, axis := range []string{"x", "y", "z"} {
		k := k
		dist = append(dist, sim.Series{
			Name: axis,
			X:    ts,
			Y:    res.column(func(r Record) float64 { return attitude.Slice(r.State.Disturbance)[k] }),
		})
	}

	for _, p := range []struct {
		file   string
		title  string
		ylabel string
		series []sim.Series
	}{
		{"euler.png", "Euler angles", "rad", euler},
		{"rate_error.png", "Angular velocity error", "rad/s", rateErr},
		{"attitude_error.png", "Attitude error", "rad", attErr},
		{"statistic.png", "Decision statistic", "-", stats},
		{"mode.png", "Detector mode", "mode", modes},
		{"disturbance.png", "Disturbance acceleration", "m/s^2", dist},
	} {
		plt, err := sim.NewTimePlot(p.title, p.ylabel, p.series...)
		if err != nil {
			return fmt.Errorf("failed to create plot %s: %w", p.file, err)
		}

		if err := sim.SavePlot(plt, plotWidth, plotHeight, filepath.Join(dir, p.file)); err != nil {
			return fmt.Errorf("failed to save plot %s: %w", p.file, err)
		}
	}

	return nil
}

func (r *Result) column(f func(Record) float64) []float64 {
	col := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		col[i] = f(rec)
	}
	return col
}

func (r *Result) variantSeries(ts []float64, f func(VariantRecord) float64) []sim.Series {
	series := make([]sim.Series, len(r.Names))
	for j, name := range r.Names {
		j := j
		series[j] = sim.Series{
			Name: name,
			X:    ts,
			Y:    r.column(func(rec Record) float64 { return f(rec.Variants[j]) }),
		}
	}
	return series
}

// euler3 returns yaw, pitch and roll of q
func euler3(q quat.Number) [3]float64 {
	yaw, pitch, roll := attitude.Euler(q)
	return [3]float64{yaw, pitch, roll}
}
