package harness

import (
	"math"
	"strconv"

	"github.com/milosgajdos/omegaff/attitude"
	"github.com/milosgajdos/omegaff/detect"
	"github.com/milosgajdos/omegaff/sim"
	"github.com/milosgajdos/omegaff/simlog"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// failedMode is logged in place of the mode of a failed variant
const failedMode = "FAILED"

// VariantRecord is the output of a single filter variant at a single step
type VariantRecord struct {
	Attitude  quat.Number
	Rate      r3.Vec
	Bias      r3.Vec
	Statistic float64
	Mode      detect.Mode
	// RateErr is norm of angular velocity estimate error [rad/s]
	RateErr float64
	// AttErr is attitude estimate error angle [rad]
	AttErr float64
	// Failed is set once the variant stopped on a numerical error
	Failed bool
}

// failed returns record of a variant which no longer runs
func failed() VariantRecord {
	nan := math.NaN()
	v := r3.Vec{X: nan, Y: nan, Z: nan}

	return VariantRecord{
		Attitude:  quat.NaN(),
		Rate:      v,
		Bias:      v,
		Statistic: nan,
		RateErr:   nan,
		AttErr:    nan,
		Failed:    true,
	}
}

// Record is a single step of a comparison run.
// All variants of a record consumed the same Measurement.
type Record struct {
	State       sim.State
	Measurement sim.Measurement
	// Variants are aligned with Result.Names
	Variants []VariantRecord
}

// Header returns log header of a run of the named variants
func Header(names []string) []string {
	h := []string{"step", "time"}
	h = append(h, "q0", "q1", "q2", "q3", "yaw", "pitch", "roll")
	h = append(h, "wx", "wy", "wz", "bx", "by", "bz")
	h = append(h, "dist_x", "dist_y", "dist_z")
	h = append(h, "gyr_x", "gyr_y", "gyr_z", "acc_x", "acc_y", "acc_z", "mag_x", "mag_y", "mag_z")

	for _, n := range names {
		for _, c := range []string{
			"q0", "q1", "q2", "q3", "yaw", "pitch", "roll",
			"wx", "wy", "wz", "bx", "by", "bz",
			"stat", "mode", "rate_err", "att_err",
		} {
			h = append(h, n+"_"+c)
		}
	}

	return h
}

// Row returns log row of the record
func (r Record) Row() []string {
	st, m := r.State, r.Measurement

	row := []string{strconv.Itoa(st.Step), simlog.Time(st.Time)}
	row = appendQuat(row, st.Attitude)
	row = appendVecs(row, st.Rate, st.Bias, st.Disturbance, m.Gyro, m.Acc, m.Mag)

	for _, v := range r.Variants {
		row = appendQuat(row, v.Attitude)
		row = appendVecs(row, v.Rate, v.Bias)

		mode := v.Mode.String()
		if v.Failed {
			mode = failedMode
		}
		row = append(row, simlog.Float(v.Statistic), mode, simlog.Float(v.RateErr), simlog.Float(v.AttErr))
	}

	return row
}

// appendQuat appends quaternion components followed by yaw, pitch and roll
func appendQuat(row []string, q quat.Number) []string {
	yaw, pitch, roll := attitude.Euler(q)
	for _, f := range []float64{q.Real, q.Imag, q.Jmag, q.Kmag, yaw, pitch, roll} {
		row = append(row, simlog.Float(f))
	}
	return row
}

func appendVecs(row []string, vs ...r3.Vec) []string {
	for _, v := range vs {
		row = append(row, simlog.Float(v.X), simlog.Float(v.Y), simlog.Float(v.Z))
	}
	return row
}
