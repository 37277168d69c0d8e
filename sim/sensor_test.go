package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/milosgajdos/omegaff"
	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewSensor(t *testing.T) {
	assert := assert.New(t)

	ctx, err := NewContext(0.01, 1)
	require.NoError(t, err)

	s, err := NewSensor(config.Default().Sensor, ctx)
	assert.NotNil(s)
	assert.NoError(err)

	s, err = NewSensor(config.Sensor{AccStd: -1}, ctx)
	assert.Nil(s)
	assert.True(errors.Is(err, omegaff.ErrConfig))
}

func TestSensorNoiseless(t *testing.T) {
	assert := assert.New(t)

	ctx, err := NewContext(0.01, 1)
	require.NoError(t, err)
	s, err := NewSensor(config.Sensor{}, ctx)
	require.NoError(t, err)

	st := State{
		Attitude:    attitude.Identity,
		Rate:        r3.Vec{Z: 0.1},
		Bias:        r3.Vec{X: -0.02},
		Disturbance: r3.Vec{X: 5},
	}
	m, err := s.Sample(st)
	assert.NoError(err)
	assert.Equal(r3.Vec{X: 5, Z: attitude.StandardGravity}, m.Acc)
	assert.Equal(r3.Vec{Y: 1}, m.Mag)
	assert.Equal(r3.Vec{X: -0.02, Z: 0.1}, m.Gyro)

	// rolled by 90 degrees gravity appears along body y
	st.Attitude = attitude.FromEuler(0, 0, math.Pi/2)
	st.Disturbance = r3.Vec{}
	m, err = s.Sample(st)
	assert.NoError(err)
	assert.InDelta(attitude.StandardGravity, m.Acc.Y, 1e-9)
	assert.InDelta(0.0, m.Acc.Z, 1e-9)
	assert.Contains(m.String(), "Measurement{")

	st.Rate = r3.Vec{X: math.NaN()}
	_, err = s.Sample(st)
	assert.True(errors.Is(err, omegaff.ErrNumerical))
}

func TestSensorReproducible(t *testing.T) {
	assert := assert.New(t)

	sample := func(seed uint64) []Measurement {
		ctx, err := NewContext(0.01, seed)
		require.NoError(t, err)
		s, err := NewSensor(config.Default().Sensor, ctx)
		require.NoError(t, err)

		st := State{Attitude: attitude.Identity}
		ms := make([]Measurement, 50)
		for i := range ms {
			ms[i], err = s.Sample(st)
			require.NoError(t, err)
		}
		return ms
	}

	a, b := sample(3), sample(3)
	assert.Equal(a, b)
	assert.NotEqual(a, sample(4))
	assert.NotEqual(a[0], a[1])
}

func TestNewInitCond(t *testing.T) {
	assert := assert.New(t)

	ic, err := NewInitCondFromConfig(config.Filter{
		Alpha:           1,
		InitialAttitude: config.Quat{2, 0, 0, 0},
		InitialBias:     config.Vec3{0.1, 0, 0},
	})
	assert.NoError(err)
	assert.Equal(attitude.Identity, ic.Attitude())
	assert.Equal(r3.Vec{X: 0.1}, ic.Bias())

	ic, err = NewInitCondFromConfig(config.Filter{})
	assert.Nil(ic)
	assert.True(errors.Is(err, omegaff.ErrConfig))

	ic, err = NewInitCond(attitude.Identity, r3.Vec{Y: math.Inf(-1)})
	assert.Nil(ic)
	assert.Error(err)
}
