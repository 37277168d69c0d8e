// Package attitude provides quaternion and 3-vector helpers for attitude
// kinematics. Quaternions rotate body frame vectors into the reference frame:
//
//	v_ref = q ⊗ v_body ⊗ q*
package attitude

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Small is the norm below which a vector or quaternion is treated as zero.
const Small = 1e-12

// StandardGravity is standard acceleration of gravity [m/s^2].
const StandardGravity = 9.80665

var (
	// Identity is the identity rotation.
	Identity = quat.Number{Real: 1}
	// GravityRef is the specific force measured at rest, in the reference frame.
	GravityRef = r3.Vec{Z: StandardGravity}
	// MagneticRef is the horizontal magnetic field direction in the reference frame.
	MagneticRef = r3.Vec{Y: 1}
)

// Raise returns pure quaternion with imaginary part v.
func Raise(v r3.Vec) quat.Number {
	return quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
}

// Vec returns imaginary part of q.
func Vec(q quat.Number) r3.Vec {
	return r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
}

// Dot returns the four dimensional dot product of q and p.
func Dot(q, p quat.Number) float64 {
	return q.Real*p.Real + q.Imag*p.Imag + q.Jmag*p.Jmag + q.Kmag*p.Kmag
}

// Unit returns q scaled to unit norm.
// It returns false if q is (almost) zero or not finite.
func Unit(q quat.Number) (quat.Number, bool) {
	n := quat.Abs(q)
	if n < Small || math.IsInf(n, 0) || math.IsNaN(n) {
		return q, false
	}
	return quat.Scale(1/n, q), true
}

// VectorRotation rotates v by q: q ⊗ v ⊗ q*.
func VectorRotation(q quat.Number, v r3.Vec) r3.Vec {
	return Vec(quat.Mul(quat.Mul(q, Raise(v)), quat.Conj(q)))
}

// FrameRotation expresses reference frame vector r in the frame rotated by q: q* ⊗ r ⊗ q.
func FrameRotation(q quat.Number, r r3.Vec) r3.Vec {
	return Vec(quat.Mul(quat.Mul(quat.Conj(q), Raise(r)), q))
}

// RotateAtoB returns the shortest-arc unit quaternion q which rotates
// direction a onto direction b, i.e. VectorRotation(q, a) is parallel to b.
// It returns false if either a or b is (almost) zero.
func RotateAtoB(a, b r3.Vec) (quat.Number, bool) {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na < Small || nb < Small {
		return Identity, false
	}

	w := na*nb + r3.Dot(a, b)
	if w < Small*na*nb {
		// antiparallel: rotate by pi around any axis orthogonal to a
		axis := r3.Cross(a, r3.Vec{X: 1})
		if r3.Norm(axis) < Small*na {
			axis = r3.Cross(a, r3.Vec{Y: 1})
		}
		axis = r3.Unit(axis)
		return Raise(axis), true
	}

	c := r3.Cross(a, b)
	return Unit(quat.Number{Real: w, Imag: c.X, Jmag: c.Y, Kmag: c.Z})
}

// Integrate propagates q by angular velocity w (body frame, rad/s) over dt
// using first order kinematics q + dt/2 * q ⊗ w, and normalizes the result.
// It returns false if the result cannot be normalized.
func Integrate(q quat.Number, w r3.Vec, dt float64) (quat.Number, bool) {
	dq := quat.Mul(q, Raise(w))
	return Unit(quat.Add(q, quat.Scale(0.5*dt, dq)))
}

// Euler returns yaw, pitch and roll (ZYX convention, radians) of q.
func Euler(q quat.Number) (yaw, pitch, roll float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	s := 2 * (w*y - z*x)
	switch {
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	pitch = math.Asin(s)
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return yaw, pitch, roll
}

// FromEuler returns unit quaternion for yaw, pitch and roll (ZYX convention, radians).
func FromEuler(yaw, pitch, roll float64) quat.Number {
	sy, cy := math.Sincos(yaw / 2)
	sp, cp := math.Sincos(pitch / 2)
	sr, cr := math.Sincos(roll / 2)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// Angle returns rotation angle in radians between attitudes q and p.
// q and -p represent the same attitude, so the result is in [0, pi].
func Angle(q, p quat.Number) float64 {
	e := quat.Mul(quat.Conj(q), p)
	return 2 * math.Atan2(r3.Norm(Vec(e)), math.Abs(e.Real))
}

// IsFinite reports whether all components of q are finite.
func IsFinite(q quat.Number) bool {
	return !quat.IsNaN(q) && !quat.IsInf(q)
}

// IsFiniteVec reports whether all components of v are finite.
func IsFiniteVec(v r3.Vec) bool {
	for _, f := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// FromSlice returns vector with components s[0], s[1], s[2].
// It panics if s has fewer than 3 elements.
func FromSlice(s []float64) r3.Vec {
	return r3.Vec{X: s[0], Y: s[1], Z: s[2]}
}

// Slice returns components of v as a slice.
func Slice(v r3.Vec) []float64 {
	return []float64{v.X, v.Y, v.Z}
}
