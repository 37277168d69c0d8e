package sim

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	"github.com/milosgajdos/omegaff"
	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/config"
	"github.com/milosgajdos/omegaff/noise"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Measurement is a single IMU sample in body frame
type Measurement struct {
	// Gyro is measured angular velocity [rad/s]
	Gyro r3.Vec
	// Acc is measured specific force [m/s^2]
	Acc r3.Vec
	// Mag is measured magnetic field direction
	Mag r3.Vec
}

// String implements fmt.Stringer
func (m Measurement) String() string {
	d := mat.NewDense(3, 3, []float64{
		m.Gyro.X, m.Gyro.Y, m.Gyro.Z,
		m.Acc.X, m.Acc.Y, m.Acc.Z,
		m.Mag.X, m.Mag.Y, m.Mag.Z,
	})
	return fmt.Sprintf("Measurement{\n%v\n}", matrix.Format(d))
}

// Sensor is a strapdown IMU: gyro, accelerometer and magnetometer
type Sensor struct {
	acc omegaff.Noise
	mag omegaff.Noise
	gyr omegaff.Noise
}

// NewSensor creates new Sensor whose noise channels draw from the random source of ctx.
// It returns error wrapping ErrConfig if the configuration is invalid.
func NewSensor(cfg config.Sensor, ctx *Context) (*Sensor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	acc, err := noise.NewIsotropic(3, cfg.AccStd, ctx.Source())
	if err != nil {
		return nil, fmt.Errorf("accelerometer noise: %w", err)
	}

	mag, err := noise.NewIsotropic(3, cfg.MagStd, ctx.Source())
	if err != nil {
		return nil, fmt.Errorf("magnetometer noise: %w", err)
	}

	gyr, err := noise.NewIsotropic(3, cfg.GyroStd, ctx.Source())
	if err != nil {
		return nil, fmt.Errorf("gyro noise: %w", err)
	}

	return &Sensor{
		acc: acc,
		mag: mag,
		gyr: gyr,
	}, nil
}

// Sample returns measurement of state st.
// Noise is drawn in a fixed order: accelerometer, magnetometer, gyro.
// It returns error wrapping ErrNumerical if the measurement is not finite.
func (s *Sensor) Sample(st State) (Measurement, error) {
	nAcc := vec(s.acc.Sample())
	nMag := vec(s.mag.Sample())
	nGyr := vec(s.gyr.Sample())

	acc := attitude.FrameRotation(st.Attitude, attitude.GravityRef)
	acc = r3.Add(r3.Add(acc, nAcc), st.Disturbance)

	mag := attitude.FrameRotation(st.Attitude, attitude.MagneticRef)
	mag = r3.Add(mag, nMag)

	gyr := r3.Add(r3.Add(st.Rate, nGyr), st.Bias)

	m := Measurement{Gyro: gyr, Acc: acc, Mag: mag}
	if !attitude.IsFiniteVec(gyr) || !attitude.IsFiniteVec(acc) || !attitude.IsFiniteVec(mag) {
		return m, fmt.Errorf("%w: measurement at step %d: %v", omegaff.ErrNumerical, st.Step, m)
	}

	return m, nil
}

func vec(v mat.Vector) r3.Vec {
	return r3.Vec{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)}
}
