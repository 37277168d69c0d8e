package harness

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/milosgajdos/omegaff"
	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/config"
	"github.com/milosgajdos/omegaff/detect"
	"github.com/milosgajdos/omegaff/simlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenario is 1000 noiseless steps of 0.01 s with a 5 m/s^2 pulse on steps 400-450
func scenario() *config.Config {
	c := config.Default()
	c.DT = 0.01
	c.Duration = 9.99
	c.Truth.Rate = config.Vec3{0, 0, 0.1}
	c.Truth.GyroBias = config.Vec3{}
	c.Truth.Disturbance = config.Disturbance{
		Start:     4,
		End:       4.5,
		Magnitude: config.Vec3{5, 0, 0},
		Shape:     config.ShapeRect,
	}
	c.Sensor = config.Sensor{Seed: 1}

	return c
}

// short is the default study cut to 5 s
func short(seed uint64) *config.Config {
	c := config.Default()
	c.Duration = 5
	c.Truth.Disturbance.Start = 2
	c.Truth.Disturbance.End = 3
	c.Sensor.Seed = seed

	return c
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	h, err := New(config.Default())
	assert.NotNil(h)
	assert.NoError(err)
	assert.Equal(config.Variants, h.Names())

	h, err = New(nil)
	assert.Nil(h)
	assert.Error(err)

	c := config.Default()
	c.Filter.Alpha = -1
	h, err = New(c)
	assert.Nil(h)
	assert.True(errors.Is(err, omegaff.ErrConfig))
}

func TestScenario(t *testing.T) {
	assert := assert.New(t)

	res, err := Run(scenario(), nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 1000)

	for i, rec := range res.Records {
		inside := i >= 400 && i <= 450
		assert.Equal(inside, rec.State.Disturbance.X == 5, "step %d", i)

		normal, e1, e2 := rec.Variants[0], rec.Variants[1], rec.Variants[2]
		if i < 400 {
			assert.InDelta(0.0, normal.RateErr, 1e-9, "step %d", i)
		}
		if inside {
			assert.True(normal.RateErr > 0.2, "step %d: %v", i, normal.RateErr)
			assert.Equal(detect.Reject, e1.Mode, "step %d", i)
			assert.Equal(detect.Reject, e2.Mode, "step %d", i)
		} else {
			assert.Equal(detect.Normal, e1.Mode, "step %d", i)
			assert.Equal(detect.Normal, e2.Mode, "step %d", i)
		}
		assert.InDelta(0.0, e1.RateErr, 1e-6, "step %d", i)
		assert.InDelta(0.0, e2.RateErr, 1e-6, "step %d", i)
		assert.InDelta(0.0, e2.AttErr, 1e-6, "step %d", i)
	}

	normal, ok := res.Summary(config.VariantNormal)
	require.True(t, ok)
	assert.True(normal.PeakRateErr > 0.4)
	assert.Equal(1000, normal.Modes["NORMAL"])

	for _, name := range []string{config.VariantE1, config.VariantE2} {
		s, ok := res.Summary(name)
		require.True(t, ok)
		assert.NoError(s.Err)
		assert.Equal(1000, s.Steps)
		assert.True(s.PeakRateErr < 1e-6, name)
		assert.Equal(51, s.Modes["REJECT"], name)
		assert.Equal(949, s.Modes["NORMAL"], name)
		assert.Equal([]int{949, 0, 51}, s.Counts(), name)
		require.NotNil(t, s.SettlingTime, name)
		assert.InDelta(0.01, *s.SettlingTime, 1e-9, name)
	}

	_, ok = res.Summary("e3")
	assert.False(ok)
}

func TestNoDisturbance(t *testing.T) {
	assert := assert.New(t)

	c := config.Default()
	c.Duration = 10
	c.Truth.GyroBias = config.Vec3{}
	c.Truth.Disturbance.Magnitude = config.Vec3{}
	c.Sensor = config.Sensor{Seed: 1}

	res, err := Run(c, nil)
	require.NoError(t, err)

	for _, rec := range res.Records {
		for j, v := range rec.Variants {
			assert.Equal(detect.Normal, v.Mode, res.Names[j])
			assert.InDelta(0.0, v.Statistic, 1e-9, res.Names[j])
			assert.InDelta(0.0, v.RateErr, 1e-9, res.Names[j])
			assert.InDelta(0.0, v.AttErr, 1e-9, res.Names[j])
		}
	}

	for _, s := range res.Summaries {
		assert.Equal(res.Records[len(res.Records)-1].State.Step+1, s.Modes["NORMAL"])
		assert.InDelta(0.0, s.RMSRateErr, 1e-9)
	}
}

func TestNoDisturbanceNoisy(t *testing.T) {
	assert := assert.New(t)

	c := config.Default()
	c.Truth.Disturbance.Magnitude = config.Vec3{}

	res, err := Run(c, nil)
	require.NoError(t, err)

	for _, s := range res.Summaries {
		assert.NoError(s.Err, s.Name)
		assert.Equal(c.Steps(), s.Steps, s.Name)
		assert.True(s.RMSRateErr > 0, s.Name)
		assert.True(s.RMSRateErr < c.SettleBound, "%s: %v", s.Name, s.RMSRateErr)
		assert.True(s.RMSAttErr < 0.05, "%s: %v", s.Name, s.RMSAttErr)
		assert.NotNil(s.SettlingTime, s.Name)
	}
}

func TestDisturbanceNoisy(t *testing.T) {
	assert := assert.New(t)

	c := config.Default()
	res, err := Run(c, nil)
	require.NoError(t, err)

	normal, ok := res.Summary(config.VariantNormal)
	require.True(t, ok)
	e2, ok := res.Summary(config.VariantE2)
	require.True(t, ok)

	assert.True(normal.PeakAttErr > 0.2, "normal: %v", normal.PeakAttErr)
	assert.True(e2.PeakAttErr < 0.15, "e2: %v", e2.PeakAttErr)
	assert.True(2*e2.PeakAttErr < normal.PeakAttErr, "e2: %v normal: %v", e2.PeakAttErr, normal.PeakAttErr)
	assert.True(e2.Modes["REJECT"] >= 500, "e2 reject steps: %d", e2.Modes["REJECT"])
	assert.NotNil(e2.SettlingTime)
}

func TestDeterminism(t *testing.T) {
	assert := assert.New(t)

	var a, b, c bytes.Buffer
	_, err := Run(short(7), &a)
	require.NoError(t, err)
	_, err = Run(short(7), &b)
	require.NoError(t, err)
	_, err = Run(short(8), &c)
	require.NoError(t, err)

	assert.True(bytes.Equal(a.Bytes(), b.Bytes()))
	assert.False(bytes.Equal(a.Bytes(), c.Bytes()))
}

func TestRunReplay(t *testing.T) {
	assert := assert.New(t)

	h, err := New(short(5))
	require.NoError(t, err)

	var a, b bytes.Buffer
	resA, err := h.Run(&a)
	require.NoError(t, err)
	resB, err := h.Run(&b)
	require.NoError(t, err)

	assert.True(bytes.Equal(a.Bytes(), b.Bytes()))
	assert.Equal(resA.Summaries, resB.Summaries)

	var c bytes.Buffer
	_, err = Run(short(5), &c)
	require.NoError(t, err)
	assert.True(bytes.Equal(a.Bytes(), c.Bytes()))
}

func TestFairness(t *testing.T) {
	assert := assert.New(t)

	cfg := short(3)
	res, err := Run(cfg, nil)
	require.NoError(t, err)

	for j, name := range res.Names {
		f, err := NewFilter(cfg, name)
		require.NoError(t, err)

		for i, rec := range res.Records {
			m := rec.Measurement
			require.NoError(t, f.Predict(m.Gyro))
			est, err := f.Update(m.Acc, m.Mag)
			require.NoError(t, err)

			v := rec.Variants[j]
			assert.Equal(v.Attitude, est.Attitude(), "%s step %d", name, i)
			assert.Equal(v.Rate, est.Rate(), "%s step %d", name, i)
			assert.Equal(v.Bias, est.Bias(), "%s step %d", name, i)
			assert.Equal(v.Statistic, est.Statistic(), "%s step %d", name, i)
			assert.Equal(v.Mode, f.Mode(), "%s step %d", name, i)
		}
	}
}

func TestVariantFailure(t *testing.T) {
	assert := assert.New(t)

	// the pulse cancels gravity so the accelerometer reads zero
	c := config.Default()
	c.DT = 0.01
	c.Duration = 3
	c.Truth.Rate = config.Vec3{}
	c.Truth.GyroBias = config.Vec3{}
	c.Truth.Disturbance = config.Disturbance{
		Start:     1,
		End:       1.5,
		Magnitude: config.Vec3{0, 0, -attitude.StandardGravity},
		Shape:     config.ShapeRect,
	}
	c.Sensor = config.Sensor{Seed: 1}

	var buf bytes.Buffer
	res, err := Run(c, &buf)
	require.NoError(t, err)

	normal, _ := res.Summary(config.VariantNormal)
	assert.True(errors.Is(normal.Err, omegaff.ErrNumerical))
	assert.Contains(normal.Error, "step 100")
	assert.Equal(100, normal.Steps)
	assert.Nil(normal.SettlingTime)
	assert.True(res.Records[100].Variants[0].Failed)
	assert.True(res.Records[300].Variants[0].Failed)

	for _, name := range []string{config.VariantE1, config.VariantE2} {
		s, _ := res.Summary(name)
		assert.NoError(s.Err, name)
		assert.Equal(len(res.Records), s.Steps, name)
		assert.Equal(51, s.Modes["REJECT"], name)
	}

	assert.Contains(buf.String(), ",FAILED,")

	var out bytes.Buffer
	assert.NoError(WriteSummary(res, &out))
	assert.Contains(out.String(), `"error"`)

	// replays fail at the same step
	h, err := New(c)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		res, err = h.Run(nil)
		require.NoError(t, err)
		normal, _ = res.Summary(config.VariantNormal)
		assert.Equal(100, normal.Steps)
		assert.Contains(normal.Error, "step 100")
	}
}

func TestRunLog(t *testing.T) {
	assert := assert.New(t)

	cfg := short(1)
	cfg.Variants = []string{config.VariantE2, config.VariantNormal}

	var buf bytes.Buffer
	res, err := Run(cfg, &buf)
	require.NoError(t, err)
	assert.Equal([]string{"e2", "normal"}, res.Names)

	r, err := simlog.NewReader(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(Header(res.Names), r.Header())

	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(rows, cfg.Steps())

	steps, err := simlog.Column(rows, "step")
	require.NoError(t, err)
	ts, err := simlog.Column(rows, "time")
	require.NoError(t, err)
	for i := range rows {
		assert.Equal(float64(i), steps[i])
		assert.InDelta(float64(i)*cfg.DT, ts[i], 1e-9)
	}

	stat, err := simlog.Column(rows, "e2_stat")
	require.NoError(t, err)
	assert.InDelta(res.Records[10].Variants[0].Statistic, stat[10], 1e-7)

	mode, err := rows[len(rows)-1].String("normal_mode")
	assert.NoError(err)
	assert.Equal("NORMAL", mode)
}

type errWriter struct{}

func (errWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestRunLogError(t *testing.T) {
	assert := assert.New(t)

	res, err := Run(short(1), errWriter{})
	assert.Nil(res)
	assert.Error(err)
}
