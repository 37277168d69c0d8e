package sim

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// Continuous is a linear, continuous-time, dynamical system
//
//	dx/dt = A*x + B*u
//	y = C*x + D*u
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model.
func NewContinuous(A, B, C, D *mat.Dense) (*Continuous, error) {
	sys, err := newSystem(A, B, C, D)
	if err != nil {
		return nil, err
	}
	return &Continuous{System: sys}, nil
}

// ToDiscrete creates a zero-order-hold discrete-time model from
// a continuous time model using ts as the sampling time:
//
//	Ad = exp(A*ts)
//	Bd = (Ad - I)*inv(A)*B
//
// If A is singular Bd is integrated numerically from 0 to ts.
func (ct *Continuous) ToDiscrete(ts float64) (*Discrete, error) {
	if ts <= 0 {
		return nil, fmt.Errorf("invalid sampling time: %v", ts)
	}

	nx, _, _ := ct.SystemDims()
	dsys, err := newSystem(ct.A, ct.B, ct.C, ct.D)
	if err != nil {
		return nil, err
	}

	dsys.A.Scale(ts, dsys.A)
	dsys.A.Exp(dsys.A)

	if ct.B == nil {
		return NewDiscrete(dsys.A, dsys.B, dsys.C, dsys.D)
	}

	eye, err := matrix.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}

	aux := mat.NewDense(nx, nx, nil)
	aux.Sub(dsys.A, eye)

	ainv := mat.NewDense(nx, nx, nil)
	if err := ainv.Inverse(ct.A); err == nil {
		prod := mat.NewDense(nx, nx, nil)
		prod.Mul(aux, ainv)
		dsys.B.Mul(prod, ct.B)
		return NewDiscrete(dsys.A, dsys.B, dsys.C, dsys.D)
	}

	// trapezoidal integration of exp(A*t) over [0, ts]
	const n = 100
	h := ts / float64(n-1)
	sum := mat.NewDense(nx, nx, nil)
	for i := 0; i < n; i++ {
		aux.Scale(h*float64(i), ct.A)
		aux.Exp(aux)
		w := h
		if i == 0 || i == n-1 {
			w = h / 2
		}
		aux.Scale(w, aux)
		sum.Add(sum, aux)
	}
	dsys.B.Mul(sum, ct.B)

	return NewDiscrete(dsys.A, dsys.B, dsys.C, dsys.D)
}
