// Package config defines the configuration of a filter comparison run.
// Values are fixed for the duration of a run.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/milosgajdos/omegaff"
)

// Disturbance pulse shapes
const (
	// ShapeRect is a rectangular pulse
	ShapeRect = "rect"
	// ShapeSmooth is a pulse with raised cosine edges
	ShapeSmooth = "smooth"
	// ShapeSine is a sinusoid around an offset
	ShapeSine = "sine"
)

// Filter variants
const (
	// VariantNormal is the filter without disturbance detection
	VariantNormal = "normal"
	// VariantE1 is the filter with the E1 detector
	VariantE1 = "e1"
	// VariantE2 is the filter with the E2 detector
	VariantE2 = "e2"
)

// Variants lists all known variants in log order.
var Variants = []string{VariantNormal, VariantE1, VariantE2}

// Vec3 is a 3-vector: x, y, z.
type Vec3 [3]float64

// Quat is a quaternion: w, x, y, z.
type Quat [4]float64

// Segment commands angular velocity from Start onwards.
type Segment struct {
	// Start is segment start time [s]
	Start float64 `json:"start"`
	// Rate is commanded angular velocity [rad/s]
	Rate Vec3 `json:"rate"`
}

// Disturbance is an acceleration pulse acting directly on the accelerometer.
type Disturbance struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Magnitude Vec3    `json:"magnitude"`
	Shape     string  `json:"shape"`
	// Rise is edge duration of the smooth shape [s]
	Rise float64 `json:"rise"`
	// Frequency, Offset and Amplitude parametrize the sine shape:
	// Magnitude * (Offset + Amplitude*sin(2*pi*Frequency*(t-Start)))
	Frequency float64 `json:"frequency"`
	Offset    float64 `json:"offset"`
	Amplitude float64 `json:"amplitude"`
}

// Truth configures the ground truth model.
type Truth struct {
	// Rate is commanded angular velocity from t=0 [rad/s]
	Rate Vec3 `json:"rate"`
	// RateTau is time constant of the rate response; 0 follows commands instantly
	RateTau  float64   `json:"rate_tau"`
	Segments []Segment `json:"segments,omitempty"`
	// GyroBias is constant gyro bias [rad/s]
	GyroBias        Vec3        `json:"gyro_bias"`
	InitialAttitude Quat        `json:"initial_attitude"`
	Disturbance     Disturbance `json:"disturbance"`
}

// Sensor configures measurement noise.
type Sensor struct {
	GyroStd float64 `json:"gyro_std"`
	AccStd  float64 `json:"acc_std"`
	MagStd  float64 `json:"mag_std"`
	Seed    uint64  `json:"seed"`
}

// Filter configures the feedback filter.
type Filter struct {
	// Alpha is convergence time to the measured attitude [s]
	Alpha float64 `json:"alpha"`
	// Beta is integral gain of the correction rate
	Beta            float64 `json:"beta"`
	InitialAttitude Quat    `json:"initial_attitude"`
	InitialBias     Vec3    `json:"initial_bias"`
}

// Detector configures the disturbance mode machine.
type Detector struct {
	Weak       float64 `json:"weak"`
	Strong     float64 `json:"strong"`
	Hysteresis float64 `json:"hysteresis"`
	// Hold is number of consecutive steps required to leave a mode
	Hold int `json:"hold"`
	// Attenuation scales the feedback gain under weak disturbance
	Attenuation float64 `json:"attenuation"`
}

// Config is the configuration of a run.
type Config struct {
	// DT is step size [s]
	DT float64 `json:"dt"`
	// Duration is simulated time [s]
	Duration float64  `json:"duration"`
	Truth    Truth    `json:"truth"`
	Sensor   Sensor   `json:"sensor"`
	Filter   Filter   `json:"filter"`
	Detector Detector `json:"detector"`
	Variants []string `json:"variants"`
	// SettleBound is RMS rate error [rad/s] below which a variant counts as settled
	SettleBound float64 `json:"settle_bound"`
	// SettleWindow is length [s] of the trailing window the settling RMS is taken over;
	// zero compares single steps
	SettleWindow float64 `json:"settle_window"`
	Output       string  `json:"output"`
}

// Default returns configuration of the reference study.
func Default() *Config {
	return &Config{
		DT:       0.02,
		Duration: 30,
		Truth: Truth{
			Rate:            Vec3{0.1, 0.1, 0.1},
			GyroBias:        Vec3{-0.02, 0.01, 0.05},
			InitialAttitude: Quat{1, 0, 0, 0},
			Disturbance: Disturbance{
				Start:     10,
				End:       20,
				Magnitude: Vec3{3, 0, 0},
				Shape:     ShapeRect,
			},
		},
		Sensor: Sensor{
			GyroStd: 0.01,
			AccStd:  0.1,
			MagStd:  0.1,
			Seed:    1,
		},
		Filter: Filter{
			Alpha:           1,
			Beta:            0.2,
			InitialAttitude: Quat{1, 0, 0, 0},
		},
		Detector: Detector{
			Weak:        0.04,
			Strong:      0.08,
			Hysteresis:  0.2,
			Hold:        1,
			Attenuation: 0.5,
		},
		Variants:     []string{VariantNormal, VariantE1, VariantE2},
		SettleBound:  0.2,
		SettleWindow: 1,
		Output:       "result.csv",
	}
}

// Load loads configuration from JSON file at path.
// Fields omitted from the file keep their Default values.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses JSON data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Steps returns number of simulation steps.
func (c *Config) Steps() int {
	return int(math.Round(c.Duration/c.DT)) + 1
}

// Validate checks that the configuration values are valid.
// Returned errors wrap omegaff.ErrConfig.
func (c *Config) Validate() error {
	if !finite(c.DT) || c.DT <= 0 {
		return invalid("dt must be positive, got %v", c.DT)
	}
	if !finite(c.Duration) || c.Duration < 0 {
		return invalid("duration must be non-negative, got %v", c.Duration)
	}
	if err := c.Truth.Validate(); err != nil {
		return err
	}
	if err := c.Sensor.Validate(); err != nil {
		return err
	}
	if err := c.Filter.Validate(); err != nil {
		return err
	}
	if err := c.Detector.Validate(); err != nil {
		return err
	}

	if len(c.Variants) == 0 {
		return invalid("at least one variant is required")
	}
	seen := make(map[string]bool)
	for _, v := range c.Variants {
		if !known(v) {
			return invalid("unknown variant %q", v)
		}
		if seen[v] {
			return invalid("duplicate variant %q", v)
		}
		seen[v] = true
	}

	if !finite(c.SettleBound) || c.SettleBound <= 0 {
		return invalid("settle_bound must be positive, got %v", c.SettleBound)
	}
	if !finite(c.SettleWindow) || c.SettleWindow < 0 {
		return invalid("settle_window must be non-negative, got %v", c.SettleWindow)
	}

	return nil
}

// Validate checks truth model parameters.
func (t *Truth) Validate() error {
	if !finiteVec(t.Rate[:]) {
		return invalid("truth rate must be finite, got %v", t.Rate)
	}
	if !finite(t.RateTau) || t.RateTau < 0 {
		return invalid("truth rate_tau must be non-negative, got %v", t.RateTau)
	}
	prev := 0.0
	for i, s := range t.Segments {
		if !finite(s.Start) || s.Start < prev {
			return invalid("truth segment %d start must be finite and ascending, got %v", i, s.Start)
		}
		if !finiteVec(s.Rate[:]) {
			return invalid("truth segment %d rate must be finite, got %v", i, s.Rate)
		}
		prev = s.Start
	}
	if !finiteVec(t.GyroBias[:]) {
		return invalid("truth gyro_bias must be finite, got %v", t.GyroBias)
	}
	if !unitable(t.InitialAttitude) {
		return invalid("truth initial_attitude must be finite and non-zero, got %v", t.InitialAttitude)
	}

	return t.Disturbance.Validate()
}

// Validate checks disturbance pulse parameters.
func (d *Disturbance) Validate() error {
	if !finite(d.Start) || d.Start < 0 {
		return invalid("disturbance start must be non-negative, got %v", d.Start)
	}
	if !finite(d.End) || d.End < d.Start {
		return invalid("disturbance end must not precede start, got %v < %v", d.End, d.Start)
	}
	if !finiteVec(d.Magnitude[:]) {
		return invalid("disturbance magnitude must be finite, got %v", d.Magnitude)
	}

	switch d.Shape {
	case ShapeRect:
	case ShapeSmooth:
		if !finite(d.Rise) || d.Rise < 0 || 2*d.Rise > d.End-d.Start {
			return invalid("disturbance rise must be in [0, (end-start)/2], got %v", d.Rise)
		}
	case ShapeSine:
		if !finite(d.Frequency) || d.Frequency < 0 {
			return invalid("disturbance frequency must be non-negative, got %v", d.Frequency)
		}
		if !finite(d.Offset) || !finite(d.Amplitude) {
			return invalid("disturbance offset and amplitude must be finite")
		}
	default:
		return invalid("unknown disturbance shape %q", d.Shape)
	}

	return nil
}

// Validate checks sensor noise parameters.
func (s *Sensor) Validate() error {
	for name, std := range map[string]float64{"gyro_std": s.GyroStd, "acc_std": s.AccStd, "mag_std": s.MagStd} {
		if !finite(std) || std < 0 {
			return invalid("sensor %s must be non-negative, got %v", name, std)
		}
	}

	return nil
}

// Validate checks filter parameters.
func (f *Filter) Validate() error {
	if !finite(f.Alpha) || f.Alpha <= 0 {
		return invalid("filter alpha must be positive, got %v", f.Alpha)
	}
	if !finite(f.Beta) || f.Beta < 0 {
		return invalid("filter beta must be non-negative, got %v", f.Beta)
	}
	if !unitable(f.InitialAttitude) {
		return invalid("filter initial_attitude must be finite and non-zero, got %v", f.InitialAttitude)
	}
	if !finiteVec(f.InitialBias[:]) {
		return invalid("filter initial_bias must be finite, got %v", f.InitialBias)
	}

	return nil
}

// Validate checks detector parameters.
func (d *Detector) Validate() error {
	if !finite(d.Weak) || d.Weak <= 0 {
		return invalid("detector weak threshold must be positive, got %v", d.Weak)
	}
	if !finite(d.Strong) || d.Strong < d.Weak {
		return invalid("detector strong threshold must not be below weak, got %v < %v", d.Strong, d.Weak)
	}
	if !finite(d.Hysteresis) || d.Hysteresis < 0 || d.Hysteresis >= 1 {
		return invalid("detector hysteresis must be in [0, 1), got %v", d.Hysteresis)
	}
	if d.Hold < 1 {
		return invalid("detector hold must be at least 1, got %d", d.Hold)
	}
	if !finite(d.Attenuation) || d.Attenuation < 0 || d.Attenuation > 1 {
		return invalid("detector attenuation must be in [0, 1], got %v", d.Attenuation)
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{omegaff.ErrConfig}, args...)...)
}

func known(variant string) bool {
	for _, v := range Variants {
		if v == variant {
			return true
		}
	}
	return false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteVec(v []float64) bool {
	for _, f := range v {
		if !finite(f) {
			return false
		}
	}
	return true
}

func unitable(q Quat) bool {
	if !finiteVec(q[:]) {
		return false
	}
	return q[0]*q[0]+q[1]*q[1]+q[2]*q[2]+q[3]*q[3] > 1e-24
}
