package sim

import (
	"fmt"

	"github.com/milosgajdos/omegaff"
	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/config"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// InitCond is initial condition of a filter
type InitCond struct {
	q    quat.Number
	bias r3.Vec
}

// NewInitCond creates new InitCond with attitude q scaled to unit norm and gyro bias.
// It returns error if q cannot be normalized or bias is not finite.
func NewInitCond(q quat.Number, bias r3.Vec) (*InitCond, error) {
	u, ok := attitude.Unit(q)
	if !ok {
		return nil, fmt.Errorf("%w: invalid initial attitude %v", omegaff.ErrConfig, q)
	}

	if !attitude.IsFiniteVec(bias) {
		return nil, fmt.Errorf("%w: invalid initial bias %v", omegaff.ErrConfig, bias)
	}

	return &InitCond{
		q:    u,
		bias: bias,
	}, nil
}

// NewInitCondFromConfig creates InitCond from filter configuration
func NewInitCondFromConfig(c config.Filter) (*InitCond, error) {
	b := c.InitialBias
	return NewInitCond(quatOf(c.InitialAttitude), r3.Vec{X: b[0], Y: b[1], Z: b[2]})
}

// Attitude returns initial attitude
func (c *InitCond) Attitude() quat.Number {
	return c.q
}

// Bias returns initial gyro bias
func (c *InitCond) Bias() r3.Vec {
	return c.bias
}
