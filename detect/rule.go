// Package detect implements acceleration disturbance detection: decision
// rules which compute a scalar statistic per step and a hysteresis mode machine.
package detect

import (
	"fmt"
	"math"

	"github.com/milosgajdos/omegaff"
	"github.com/milosgajdos/omegaff/attitude"
	"gonum.org/v1/gonum/spatial/r3"
)

// None never detects a disturbance
type None struct{}

// Name returns rule name
func (None) Name() string { return "none" }

// Statistic always returns 0
func (None) Statistic(acc, predicted r3.Vec) float64 { return 0 }

// E1 compares the accelerometer norm with standard gravity:
//
//	E1 = | |acc| - g | / g
type E1 struct{}

// Name returns rule name
func (E1) Name() string { return "e1" }

// Statistic returns E1 statistic of acc; predicted is not used
func (E1) Statistic(acc, predicted r3.Vec) float64 {
	g := attitude.StandardGravity
	return math.Abs(r3.Norm(acc)-g) / g
}

// E2 compares the accelerometer with the gravity predicted from the attitude estimate:
//
//	E2 = |acc - predicted| / g
type E2 struct{}

// Name returns rule name
func (E2) Name() string { return "e2" }

// Statistic returns E2 statistic
func (E2) Statistic(acc, predicted r3.Vec) float64 {
	return r3.Norm(r3.Sub(acc, predicted)) / attitude.StandardGravity
}

// ByName returns the rule with the given name: none, e1 or e2.
// The filter variant "normal" resolves to None.
func ByName(name string) (omegaff.Rule, error) {
	switch name {
	case "none", "normal":
		return None{}, nil
	case "e1":
		return E1{}, nil
	case "e2":
		return E2{}, nil
	}

	return nil, fmt.Errorf("%w: unknown rule %q", omegaff.ErrConfig, name)
}
