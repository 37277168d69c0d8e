package omegaff

import (
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrConfig is returned when a parameter is non-finite or out of range.
	ErrConfig = errors.New("invalid configuration")
	// ErrNumerical is returned when a non-finite or degenerate value appears during a run.
	ErrNumerical = errors.New("numerical error")
)

// Filter is an attitude and angular rate filter driven by IMU measurements.
type Filter interface {
	// Predict propagates the attitude estimate using measured angular rate
	Predict(gyr r3.Vec) error
	// Update corrects the estimate using measured acceleration and magnetic field
	Update(acc, mag r3.Vec) (Estimate, error)
}

// Estimate is a filter estimate
type Estimate interface {
	// Attitude returns estimated attitude quaternion
	Attitude() quat.Number
	// Rate returns estimated angular velocity
	Rate() r3.Vec
	// Bias returns estimated gyro bias
	Bias() r3.Vec
	// Statistic returns disturbance decision statistic of the step
	Statistic() float64
}

// Rule computes a disturbance decision statistic from the measured
// acceleration and the acceleration predicted from the filter's attitude.
type Rule interface {
	// Name returns rule name
	Name() string
	// Statistic returns the decision statistic
	Statistic(acc, predicted r3.Vec) float64
}

// Noise is a measurement noise source
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
}
