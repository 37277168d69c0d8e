// Package ff implements a quaternion attitude and angular rate feedback filter.
//
// The filter propagates attitude with the measured angular rate plus a feedback
// correction rate. The correction rate drives the estimate towards the attitude
// measured by the accelerometer and magnetometer; its integral estimates gyro bias.
// A decision rule flags acceleration disturbances which would corrupt the measured
// attitude, and the filter then attenuates or rejects accelerometer feedback.
package ff

import (
	"fmt"
	"math"

	"github.com/milosgajdos/omegaff"
	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/config"
	"github.com/milosgajdos/omegaff/detect"
	"github.com/milosgajdos/omegaff/estimate"
	"github.com/milosgajdos/omegaff/sim"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ omegaff.Filter = (*FF)(nil)

// FF is the feedback filter
type FF struct {
	// dt is step size
	dt float64
	// k is proportional feedback gain
	k float64
	// beta is integral feedback gain
	beta float64
	// rule computes decision statistic
	rule omegaff.Rule
	// m is disturbance mode machine
	m *detect.Machine
	// init is initial condition restored by Reset
	init *sim.InitCond
	// q is attitude estimate
	q quat.Number
	// gyr is the last gyro measurement
	gyr r3.Vec
	// corr is correction rate
	corr r3.Vec
	// integ is integral of proportional correction rate
	integ r3.Vec
}

// New creates new FF and returns it.
// alpha of c is the time constant of convergence to the measured attitude and sets
// the proportional gain 2/alpha; beta of c is the integral gain.
// It returns error wrapping ErrConfig if any of the parameters is invalid.
func New(c config.Filter, dt float64, rule omegaff.Rule, th detect.Thresholds, init *sim.InitCond) (*FF, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if !(dt > 0) || math.IsInf(dt, 1) {
		return nil, fmt.Errorf("%w: invalid step size %v", omegaff.ErrConfig, dt)
	}

	if rule == nil {
		return nil, fmt.Errorf("%w: missing decision rule", omegaff.ErrConfig)
	}

	if init == nil {
		return nil, fmt.Errorf("%w: missing initial condition", omegaff.ErrConfig)
	}

	m, err := detect.NewMachine(th)
	if err != nil {
		return nil, err
	}

	if b := init.Bias(); b != (r3.Vec{}) && c.Beta == 0 {
		return nil, fmt.Errorf("%w: initial bias %v requires positive beta", omegaff.ErrConfig, b)
	}

	f := &FF{
		dt:   dt,
		k:    2 / c.Alpha,
		beta: c.Beta,
		rule: rule,
		m:    m,
		init: init,
	}
	f.Reset()

	return f, nil
}

// Reset returns the filter to its initial condition and the detector to Normal mode.
func (f *FF) Reset() {
	f.q = f.init.Attitude()
	f.gyr = r3.Vec{}
	f.integ = r3.Vec{}
	f.corr = r3.Vec{}

	// seed the integral so the initial bias estimate matches init
	if b := f.init.Bias(); b != (r3.Vec{}) {
		f.integ = r3.Scale(-1/f.beta, b)
		f.corr = r3.Scale(-1, b)
	}

	f.m.Reset()
}

// Predict propagates the attitude estimate by one step using measured angular rate gyr
// corrected by the feedback correction rate of the previous update.
// It returns error wrapping ErrNumerical if gyr or the propagated attitude are not finite.
func (f *FF) Predict(gyr r3.Vec) error {
	if !attitude.IsFiniteVec(gyr) {
		return fmt.Errorf("%w: gyro measurement %v", omegaff.ErrNumerical, gyr)
	}

	q, ok := attitude.Integrate(f.q, r3.Add(gyr, f.corr), f.dt)
	if !ok || !attitude.IsFinite(q) {
		return fmt.Errorf("%w: attitude propagation: %v", omegaff.ErrNumerical, q)
	}

	f.q = q
	f.gyr = gyr

	return nil
}

// Update corrects the filter using measured acceleration acc and magnetic field mag
// and returns the estimate of the step.
// It returns error wrapping ErrNumerical if the measurement is not finite or
// the measured attitude cannot be computed from it.
func (f *FF) Update(acc, mag r3.Vec) (omegaff.Estimate, error) {
	if !attitude.IsFiniteVec(acc) || !attitude.IsFiniteVec(mag) {
		return nil, fmt.Errorf("%w: measurement acc=%v mag=%v", omegaff.ErrNumerical, acc, mag)
	}

	predicted := attitude.FrameRotation(f.q, attitude.GravityRef)

	e := f.rule.Statistic(acc, predicted)
	mode, err := f.m.Step(e)
	if err != nil {
		return nil, err
	}

	if mode == detect.Reject {
		acc = predicted
	}
	k := f.k * f.m.Gain()

	qgm, err := Measured(acc, mag)
	if err != nil {
		return nil, err
	}

	r := attitude.Vec(quat.Mul(quat.Conj(f.q), qgm))
	// q and -q are the same attitude: take the short way round
	if attitude.Dot(f.q, qgm) < 0 {
		r = r3.Scale(-1, r)
	}

	cp := r3.Scale(k, r)
	integ := r3.Add(f.integ, r3.Scale(f.dt, cp))
	corr := r3.Add(cp, r3.Scale(f.beta, integ))

	est, err := estimate.New(f.q, r3.Add(f.gyr, corr), r3.Scale(-f.beta, integ), e, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", omegaff.ErrNumerical, err)
	}

	f.integ = integ
	f.corr = corr

	return est, nil
}

// Measured returns attitude measured by accelerometer acc and magnetometer mag.
// Tilt comes from the direction of acc, heading from mag projected onto the horizontal plane.
// It returns error wrapping ErrNumerical if either direction is degenerate.
func Measured(acc, mag r3.Vec) (quat.Number, error) {
	qg, ok := attitude.RotateAtoB(acc, attitude.GravityRef)
	if !ok {
		return attitude.Identity, fmt.Errorf("%w: degenerate acceleration %v", omegaff.ErrNumerical, acc)
	}

	h := attitude.VectorRotation(qg, mag)
	h.Z = 0

	qe, ok := attitude.RotateAtoB(h, attitude.MagneticRef)
	if !ok {
		return attitude.Identity, fmt.Errorf("%w: degenerate horizontal magnetic field %v", omegaff.ErrNumerical, mag)
	}

	return quat.Mul(qe, qg), nil
}

// Attitude returns current attitude estimate
func (f *FF) Attitude() quat.Number {
	return f.q
}

// Bias returns current gyro bias estimate
func (f *FF) Bias() r3.Vec {
	return r3.Scale(-f.beta, f.integ)
}

// Mode returns current disturbance mode
func (f *FF) Mode() detect.Mode {
	return f.m.Mode()
}

// Rule returns decision rule of the filter
func (f *FF) Rule() omegaff.Rule {
	return f.rule
}
