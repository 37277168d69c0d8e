package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/milosgajdos/omegaff/detect"
	"github.com/milosgajdos/omegaff/matrix"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// eps is tolerance of time window comparisons
const eps = 1e-9

// Summary scores a single filter variant of a run
type Summary struct {
	Name string `json:"name"`
	// Err is the error which stopped the variant
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
	// Steps is number of steps the variant completed
	Steps int `json:"steps"`
	// RMSRateErr is RMS of angular velocity error [rad/s]
	RMSRateErr float64 `json:"rms_rate_error"`
	// RMSAttErr is RMS of attitude error angle [rad]
	RMSAttErr float64 `json:"rms_attitude_error"`
	// PeakRateErr is maximum angular velocity error inside the disturbance window
	PeakRateErr float64 `json:"peak_rate_error"`
	// PeakAttErr is maximum attitude error inside the disturbance window
	PeakAttErr float64 `json:"peak_attitude_error"`
	// MeanStatistic is mean decision statistic
	MeanStatistic float64 `json:"mean_statistic"`
	// SettlingTime is time after the disturbance window from which the trailing RMS
	// of the angular velocity error stays below the settle bound; nil if it never does
	SettlingTime *float64 `json:"settling_time"`
	// Modes counts steps spent in each mode
	Modes map[string]int `json:"modes"`
}

// Summarize scores every variant of res. errs holds the error which stopped
// each variant, or nil; it is aligned with res.Names.
func Summarize(res *Result, errs []error) []Summary {
	n, nv := len(res.Records), len(res.Names)

	sums := make([]Summary, nv)
	if n == 0 {
		for j, name := range res.Names {
			sums[j] = Summary{Name: name, Modes: map[string]int{}}
		}
		return sums
	}

	rateErr := mat.NewDense(n, nv, nil)
	attErr := mat.NewDense(n, nv, nil)
	for i, rec := range res.Records {
		for j, v := range rec.Variants {
			rateErr.Set(i, j, v.RateErr)
			attErr.Set(i, j, v.AttErr)
		}
	}

	from, to := window(res)

	for j, name := range res.Names {
		s := Summary{
			Name:  name,
			Modes: map[string]int{},
		}
		if j < len(errs) && errs[j] != nil {
			s.Err = errs[j]
			s.Error = errs[j].Error()
		}

		valid := 0
		stats := make([]float64, 0, n)
		for _, rec := range res.Records {
			v := rec.Variants[j]
			if v.Failed {
				break
			}
			valid++
			stats = append(stats, v.Statistic)
			s.Modes[v.Mode.String()]++
		}
		s.Steps = valid

		if view, ok := matrix.Rows(rateErr, 0, valid); ok {
			s.RMSRateErr = matrix.ColRMS(view)[j]
			view, _ = matrix.Rows(attErr, 0, valid)
			s.RMSAttErr = matrix.ColRMS(view)[j]
			s.MeanStatistic = stat.Mean(stats, nil)
		}

		if view, ok := matrix.Rows(rateErr, from, min(to, valid)); ok {
			s.PeakRateErr = matrix.ColMax(view)[j]
			view, _ = matrix.Rows(attErr, from, min(to, valid))
			s.PeakAttErr = matrix.ColMax(view)[j]
		}

		if s.Err == nil {
			s.SettlingTime = settling(res, rateErr, j, to)
		}

		sums[j] = s
	}

	return sums
}

// window returns rows [from, to) of res inside the disturbance window
func window(res *Result) (from, to int) {
	d := res.Config.Truth.Disturbance
	from, to = len(res.Records), 0
	for i, rec := range res.Records {
		t := rec.State.Time
		if t >= d.Start-eps && t <= d.End+eps {
			if i < from {
				from = i
			}
			to = i + 1
		}
	}

	if to == 0 {
		return 0, 0
	}

	return from, to
}

// settling returns time elapsed after the disturbance window, which ends at row end,
// until the RMS of the rate error of variant j over the trailing settle window stays
// below the settle bound for the rest of the run. rateErr holds rate errors of all variants.
func settling(res *Result, rateErr *mat.Dense, j, end int) *float64 {
	n := len(res.Records)
	if end >= n {
		return nil
	}

	ref := 0.0
	if end > 0 {
		ref = res.Config.Truth.Disturbance.End
	}

	w := int(math.Round(res.Config.SettleWindow / res.Config.DT))
	if w < 1 {
		w = 1
	}

	settled := end
	for i := end; i < n; i++ {
		view, _ := matrix.Rows(rateErr, i-w+1, i+1)
		if matrix.ColRMS(view)[j] >= res.Config.SettleBound {
			settled = i + 1
		}
	}

	if settled >= n {
		return nil
	}

	t := res.Records[settled].State.Time - ref
	if t < 0 {
		t = 0
	}

	return &t
}

// Counts returns mode counts of s in mode order
func (s Summary) Counts() []int {
	return []int{s.Modes[detect.Normal.String()], s.Modes[detect.Attenuate.String()], s.Modes[detect.Reject.String()]}
}

// WriteSummary writes summaries of res to w as indented JSON
func WriteSummary(res *Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(res.Summaries); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	return nil
}
