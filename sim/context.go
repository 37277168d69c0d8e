// Package sim simulates a rotating rigid body carrying a strapdown IMU:
// ground truth attitude and angular rate, disturbance pulses and noisy sensors.
package sim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// Context is the clock and random source of a single run.
// It is not safe for concurrent use; each run owns its Context.
type Context struct {
	dt   float64
	step int
	seed uint64
	src  rand.Source
}

// NewContext creates new Context with step size dt and noise seed.
func NewContext(dt float64, seed uint64) (*Context, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("invalid step size: %v", dt)
	}

	return &Context{
		dt:   dt,
		seed: seed,
		src:  rand.NewSource(seed),
	}, nil
}

// Step returns current step index
func (c *Context) Step() int {
	return c.step
}

// Time returns current simulation time
func (c *Context) Time() float64 {
	return float64(c.step) * c.dt
}

// DT returns step size
func (c *Context) DT() float64 {
	return c.dt
}

// Source returns the random source shared by all noise channels of the run
func (c *Context) Source() rand.Source {
	return c.src
}

// Advance moves the clock by one step
func (c *Context) Advance() {
	c.step++
}

// Reset rewinds the clock and reseeds the random source
func (c *Context) Reset() {
	c.step = 0
	c.src.Seed(c.seed)
}
