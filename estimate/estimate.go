// Package estimate provides immutable filter estimates.
package estimate

import (
	"fmt"

	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/detect"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Estimate is a filter estimate at a single step.
// It is a value snapshot: later filter steps never modify it.
type Estimate struct {
	// q is estimated attitude
	q quat.Number
	// rate is estimated angular velocity
	rate r3.Vec
	// bias is estimated gyro bias
	bias r3.Vec
	// stat is decision statistic
	stat float64
	// mode is detector mode
	mode detect.Mode
}

// New returns new estimate.
// It returns error if any of the supplied values is not finite.
func New(q quat.Number, rate, bias r3.Vec, stat float64, mode detect.Mode) (*Estimate, error) {
	if !attitude.IsFinite(q) || !attitude.IsFiniteVec(rate) || !attitude.IsFiniteVec(bias) {
		return nil, fmt.Errorf("non-finite estimate: q=%v rate=%v bias=%v", q, rate, bias)
	}

	return &Estimate{
		q:    q,
		rate: rate,
		bias: bias,
		stat: stat,
		mode: mode,
	}, nil
}

// Attitude returns estimated attitude
func (e *Estimate) Attitude() quat.Number {
	return e.q
}

// Rate returns estimated angular velocity
func (e *Estimate) Rate() r3.Vec {
	return e.rate
}

// Bias returns estimated gyro bias
func (e *Estimate) Bias() r3.Vec {
	return e.bias
}

// Statistic returns decision statistic of the step
func (e *Estimate) Statistic() float64 {
	return e.stat
}

// Mode returns detector mode of the step
func (e *Estimate) Mode() detect.Mode {
	return e.mode
}

// Euler returns yaw, pitch and roll of the estimated attitude
func (e *Estimate) Euler() (yaw, pitch, roll float64) {
	return attitude.Euler(e.q)
}

// String implements fmt.Stringer
func (e *Estimate) String() string {
	return fmt.Sprintf("Estimate{\nAttitude=%v\nRate=%v\nBias=%v\nStatistic=%v\nMode=%v\n}", e.q, e.rate, e.bias, e.stat, e.mode)
}
