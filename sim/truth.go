package sim

import (
	"fmt"
	"math"

	"github.com/milosgajdos/omegaff"
	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/config"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// eps is tolerance of time window comparisons
const eps = 1e-9

// State is ground truth of a single step
type State struct {
	// Step is step index
	Step int
	// Time is simulation time [s]
	Time float64
	// Attitude rotates body frame vectors into the reference frame
	Attitude quat.Number
	// Rate is angular velocity in body frame [rad/s]
	Rate r3.Vec
	// Bias is gyro bias [rad/s]
	Bias r3.Vec
	// Disturbance is acceleration acting on the accelerometer in body frame [m/s^2]
	Disturbance r3.Vec
}

// Truth generates ground truth motion of a rotating rigid body
type Truth struct {
	cfg  config.Truth
	dt   float64
	q    quat.Number
	rate *mat.VecDense
	// lag is discretized rate response; nil when rate follows commands instantly
	lag *Discrete
}

// NewTruth creates new ground truth model with step size dt and returns it.
// It returns error wrapping ErrConfig if the configuration is invalid.
func NewTruth(cfg config.Truth, dt float64) (*Truth, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: invalid step size %v", omegaff.ErrConfig, dt)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if _, ok := attitude.Unit(quatOf(cfg.InitialAttitude)); !ok {
		return nil, fmt.Errorf("%w: invalid initial attitude %v", omegaff.ErrConfig, cfg.InitialAttitude)
	}

	segs := make([]config.Segment, len(cfg.Segments))
	copy(segs, cfg.Segments)
	cfg.Segments = segs

	t := &Truth{
		cfg:  cfg,
		dt:   dt,
		rate: mat.NewVecDense(3, nil),
	}
	t.Reset()

	if cfg.RateTau > 0 {
		lag, err := rateLag(cfg.RateTau, dt)
		if err != nil {
			return nil, fmt.Errorf("%w: rate dynamics: %v", omegaff.ErrConfig, err)
		}
		t.lag = lag
	}

	return t, nil
}

// Reset returns the body to its initial attitude, spinning at the initial commanded rate
func (t *Truth) Reset() {
	t.q, _ = attitude.Unit(quatOf(t.cfg.InitialAttitude))

	u := t.Command(0)
	t.rate.SetVec(0, u.X)
	t.rate.SetVec(1, u.Y)
	t.rate.SetVec(2, u.Z)
}

// rateLag returns first order lag dw/dt = (u - w)/tau discretized with step dt
func rateLag(tau, dt float64) (*Discrete, error) {
	A := mat.NewDense(3, 3, nil)
	B := mat.NewDense(3, 3, nil)
	C := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		A.Set(i, i, -1/tau)
		B.Set(i, i, 1/tau)
		C.Set(i, i, 1)
	}

	ct, err := NewContinuous(A, B, C, nil)
	if err != nil {
		return nil, err
	}

	return ct.ToDiscrete(dt)
}

// Command returns commanded angular velocity at time t
func (t *Truth) Command(time float64) r3.Vec {
	rate := t.cfg.Rate
	for _, s := range t.cfg.Segments {
		if time+eps < s.Start {
			break
		}
		rate = s.Rate
	}

	return r3.Vec{X: rate[0], Y: rate[1], Z: rate[2]}
}

// Disturbance returns disturbance acceleration at time t in body frame
func (t *Truth) Disturbance(time float64) r3.Vec {
	d := t.cfg.Disturbance
	if time < d.Start-eps || time > d.End+eps {
		return r3.Vec{}
	}

	m := r3.Vec{X: d.Magnitude[0], Y: d.Magnitude[1], Z: d.Magnitude[2]}

	switch d.Shape {
	case config.ShapeSmooth:
		return r3.Scale(edge(time-d.Start, d.Rise)*edge(d.End-time, d.Rise), m)
	case config.ShapeSine:
		return r3.Scale(d.Offset+d.Amplitude*math.Sin(2*math.Pi*d.Frequency*(time-d.Start)), m)
	}

	return m
}

// edge returns raised cosine ramp factor at elapsed time s of a ramp of duration rise
func edge(s, rise float64) float64 {
	if rise <= 0 || s >= rise {
		return 1
	}
	if s <= 0 {
		return 0
	}
	return 0.5 * (1 - math.Cos(math.Pi*s/rise))
}

// Advance advances the truth by one step of ctx and returns the new state.
// The attitude is propagated with the angular velocity of the step, then the clock moves on.
// It returns error wrapping ErrConfig if ctx steps with a different step size than the truth
// and error wrapping ErrNumerical if the state stops being finite.
func (t *Truth) Advance(ctx *Context) (State, error) {
	if ctx.DT() != t.dt {
		return State{}, fmt.Errorf("%w: context step size %v differs from truth step size %v", omegaff.ErrConfig, ctx.DT(), t.dt)
	}

	step, time := ctx.Step(), ctx.Time()

	u := t.Command(time)
	rate := u
	if t.lag != nil {
		uv := mat.NewVecDense(3, []float64{u.X, u.Y, u.Z})
		x, err := t.lag.Propagate(t.rate, uv)
		if err != nil {
			return State{}, fmt.Errorf("%w: rate propagation: %v", omegaff.ErrNumerical, err)
		}
		t.rate.CopyVec(x)

		y, err := t.lag.Observe(t.rate, uv)
		if err != nil {
			return State{}, fmt.Errorf("%w: rate output: %v", omegaff.ErrNumerical, err)
		}
		rate = r3.Vec{X: y.AtVec(0), Y: y.AtVec(1), Z: y.AtVec(2)}
	} else {
		t.rate.SetVec(0, u.X)
		t.rate.SetVec(1, u.Y)
		t.rate.SetVec(2, u.Z)
	}

	q, ok := attitude.Integrate(t.q, rate, t.dt)
	if !ok || !attitude.IsFiniteVec(rate) {
		return State{}, fmt.Errorf("%w: truth at step %d: q=%v rate=%v", omegaff.ErrNumerical, step, q, rate)
	}
	t.q = q

	ctx.Advance()

	b := t.cfg.GyroBias

	return State{
		Step:        step,
		Time:        time,
		Attitude:    q,
		Rate:        rate,
		Bias:        r3.Vec{X: b[0], Y: b[1], Z: b[2]},
		Disturbance: t.Disturbance(time),
	}, nil
}

func quatOf(q config.Quat) quat.Number {
	return quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]}
}
