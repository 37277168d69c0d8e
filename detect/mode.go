package detect

import (
	"fmt"
	"math"

	"github.com/milosgajdos/omegaff"
	"github.com/milosgajdos/omegaff/config"
)

// Mode is disturbance handling mode of a filter
type Mode int

const (
	// Normal uses the accelerometer with full feedback gain
	Normal Mode = iota
	// Attenuate scales the feedback gain down
	Attenuate
	// Reject replaces the accelerometer by its prediction
	Reject
)

// String implements fmt.Stringer
func (m Mode) String() string {
	switch m {
	case Normal:
		return "NORMAL"
	case Attenuate:
		return "ATTENUATE"
	case Reject:
		return "REJECT"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Thresholds parametrize Machine
type Thresholds struct {
	// Weak is the statistic above which the machine enters Attenuate
	Weak float64
	// Strong is the statistic above which the machine enters Reject
	Strong float64
	// Hysteresis is the fraction by which exit thresholds lie below entry thresholds
	Hysteresis float64
	// Hold is number of consecutive lower level steps needed to de-escalate
	Hold int
	// Attenuation scales feedback gain in Attenuate mode
	Attenuation float64
}

// NewThresholds returns Thresholds from detector configuration
func NewThresholds(c config.Detector) Thresholds {
	return Thresholds{
		Weak:        c.Weak,
		Strong:      c.Strong,
		Hysteresis:  c.Hysteresis,
		Hold:        c.Hold,
		Attenuation: c.Attenuation,
	}
}

// Validate checks the thresholds are usable
func (t Thresholds) Validate() error {
	c := config.Detector{
		Weak:        t.Weak,
		Strong:      t.Strong,
		Hysteresis:  t.Hysteresis,
		Hold:        t.Hold,
		Attenuation: t.Attenuation,
	}
	return c.Validate()
}

// Machine is a hysteresis state machine which maps decision statistics to Mode.
// Escalation is immediate, de-escalation requires Hold consecutive steps whose
// level is below the current mode.
type Machine struct {
	th    Thresholds
	mode  Mode
	lower int
}

// NewMachine creates new Machine in Normal mode and returns it.
// It returns error if the thresholds are invalid.
func NewMachine(th Thresholds) (*Machine, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	return &Machine{th: th, mode: Normal}, nil
}

// Step feeds statistic e to the machine and returns the resulting mode.
// Non-finite statistics are rejected with ErrNumerical and leave the machine unchanged.
func (m *Machine) Step(e float64) (Mode, error) {
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return m.mode, fmt.Errorf("%w: decision statistic %v", omegaff.ErrNumerical, e)
	}

	lvl := m.level(e)
	switch {
	case lvl > m.mode:
		m.mode = lvl
		m.lower = 0
	case lvl < m.mode:
		m.lower++
		if m.lower >= m.th.Hold {
			m.mode = lvl
			m.lower = 0
		}
	default:
		m.lower = 0
	}

	return m.mode, nil
}

// Mode returns current mode
func (m *Machine) Mode() Mode {
	return m.mode
}

// Gain returns feedback gain multiplier of the current mode
func (m *Machine) Gain() float64 {
	if m.mode == Attenuate {
		return m.th.Attenuation
	}
	return 1.0
}

// Reset returns the machine to Normal mode
func (m *Machine) Reset() {
	m.mode = Normal
	m.lower = 0
}

// level returns the mode statistic e asks for given the current mode:
// a mode is kept while e stays above its exit threshold.
func (m *Machine) level(e float64) Mode {
	keep := 1 - m.th.Hysteresis

	switch {
	case e > m.th.Strong, m.mode == Reject && e > m.th.Strong*keep:
		return Reject
	case e > m.th.Weak, m.mode >= Attenuate && e > m.th.Weak*keep:
		return Attenuate
	}

	return Normal
}
