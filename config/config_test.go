package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/milosgajdos/omegaff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	assert := assert.New(t)

	c := Default()
	assert.NoError(c.Validate())
	assert.Equal(1501, c.Steps())
	assert.Equal(Vec3{-0.02, 0.01, 0.05}, c.Truth.GyroBias)
	assert.Equal(Vec3{3, 0, 0}, c.Truth.Disturbance.Magnitude)
	assert.Equal(Variants, c.Variants)
	assert.Equal(0.2, c.SettleBound)
	assert.Equal(1.0, c.SettleWindow)

	// defaults are not shared
	c.Variants[0] = "foo"
	assert.Equal(VariantNormal, Default().Variants[0])
}

func TestSteps(t *testing.T) {
	assert := assert.New(t)

	c := Default()
	c.DT, c.Duration = 0.01, 9.99
	assert.Equal(1000, c.Steps())

	c.Duration = 0
	assert.Equal(1, c.Steps())
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	for name, mod := range map[string]func(*Config){
		"zero dt":          func(c *Config) { c.DT = 0 },
		"nan dt":           func(c *Config) { c.DT = math.NaN() },
		"negative dur":     func(c *Config) { c.Duration = -1 },
		"inf rate":         func(c *Config) { c.Truth.Rate[1] = math.Inf(1) },
		"negative tau":     func(c *Config) { c.Truth.RateTau = -0.1 },
		"zero attitude":    func(c *Config) { c.Truth.InitialAttitude = Quat{} },
		"unsorted segment": func(c *Config) { c.Truth.Segments = []Segment{{Start: 5}, {Start: 1}} },
		"end before start": func(c *Config) { c.Truth.Disturbance.End = 5 },
		"bad shape":        func(c *Config) { c.Truth.Disturbance.Shape = "square" },
		"long rise": func(c *Config) {
			c.Truth.Disturbance.Shape = ShapeSmooth
			c.Truth.Disturbance.Rise = 6
		},
		"negative freq": func(c *Config) {
			c.Truth.Disturbance.Shape = ShapeSine
			c.Truth.Disturbance.Frequency = -1
		},
		"negative std":    func(c *Config) { c.Sensor.AccStd = -0.1 },
		"zero alpha":      func(c *Config) { c.Filter.Alpha = 0 },
		"negative beta":   func(c *Config) { c.Filter.Beta = -1 },
		"nan bias":        func(c *Config) { c.Filter.InitialBias[2] = math.NaN() },
		"zero weak":       func(c *Config) { c.Detector.Weak = 0 },
		"strong < weak":   func(c *Config) { c.Detector.Strong = 0.01 },
		"hysteresis 1":    func(c *Config) { c.Detector.Hysteresis = 1 },
		"zero hold":       func(c *Config) { c.Detector.Hold = 0 },
		"attenuation 2":   func(c *Config) { c.Detector.Attenuation = 2 },
		"no variants":     func(c *Config) { c.Variants = nil },
		"unknown variant": func(c *Config) { c.Variants = []string{"e3"} },
		"dup variant":     func(c *Config) { c.Variants = []string{VariantE1, VariantE1} },
		"zero settle":     func(c *Config) { c.SettleBound = 0 },
		"negative window": func(c *Config) { c.SettleWindow = -1 },
		"nan window":      func(c *Config) { c.SettleWindow = math.NaN() },
	} {
		c := Default()
		mod(c)
		err := c.Validate()
		assert.Error(err, name)
		assert.True(errors.Is(err, omegaff.ErrConfig), name)
	}
}

func TestValidateShapes(t *testing.T) {
	assert := assert.New(t)

	c := Default()
	c.Truth.Disturbance.Shape = ShapeSmooth
	c.Truth.Disturbance.Rise = 5
	assert.NoError(c.Validate())

	c.Truth.Disturbance.Shape = ShapeSine
	c.Truth.Disturbance.Frequency = 0.5
	c.Truth.Disturbance.Amplitude = 1
	assert.NoError(c.Validate())

	c.Detector.Weak = c.Detector.Strong
	assert.NoError(c.Validate())
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "run.json")
	data := `{
  "dt": 0.01,
  "duration": 9.99,
  "truth": {"rate": [0, 0, 0.1], "disturbance": {"start": 4, "end": 4.5, "magnitude": [5, 0, 0]}},
  "sensor": {"seed": 42},
  "detector": {"hold": 3},
  "variants": ["e2"]
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(0.01, c.DT)
	assert.Equal(1000, c.Steps())
	assert.Equal(Vec3{0, 0, 0.1}, c.Truth.Rate)
	assert.Equal(uint64(42), c.Sensor.Seed)
	assert.Equal(3, c.Detector.Hold)
	assert.Equal([]string{VariantE2}, c.Variants)
	// omitted fields keep defaults
	assert.Equal(ShapeRect, c.Truth.Disturbance.Shape)
	assert.Equal(Vec3{-0.02, 0.01, 0.05}, c.Truth.GyroBias)
	assert.Equal(0.04, c.Detector.Weak)
	assert.Equal(0.1, c.Sensor.AccStd)
}

func TestLoadErrors(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "run.yaml"))
	assert.Error(err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"dt": `), 0644))
	_, err = Load(bad)
	assert.Error(err)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"dt": -1}`), 0644))
	_, err = Load(invalid)
	assert.True(errors.Is(err, omegaff.ErrConfig))
}
