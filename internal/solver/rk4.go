// Package solver provides a fixed-step Runge-Kutta integrator shared by
// the numeric simulation backends.
package solver

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonFinite reports that integration produced NaN or Inf state.
var ErrNonFinite = errors.New("integration produced non-finite state")

// Derivative evaluates dy at time t for state y. dy has the same length
// as y and is zeroed before each call.
type Derivative func(t float64, y, dy []float64)

// Integrate advances y0 through each timepoint in times with classic RK4,
// subdividing so no internal step exceeds maxStep. It returns the state
// at every timepoint, starting with a copy of y0 at times[0].
func Integrate(deriv Derivative, y0 []float64, times []float64, maxStep float64) ([][]float64, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("empty time axis")
	}
	if maxStep <= 0 {
		return nil, fmt.Errorf("maxStep must be positive, got %v", maxStep)
	}
	n := len(y0)
	y := append([]float64(nil), y0...)
	out := make([][]float64, 0, len(times))
	out = append(out, append([]float64(nil), y...))

	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	tmp := make([]float64, n)

	for i := 1; i < len(times); i++ {
		span := times[i] - times[i-1]
		if span <= 0 {
			return nil, fmt.Errorf("time axis not strictly increasing at index %d", i)
		}
		steps := int(math.Ceil(span / maxStep))
		h := span / float64(steps)
		t := times[i-1]
		for s := 0; s < steps; s++ {
			step(deriv, t, y, h, k1, k2, k3, k4, tmp)
			t += h
		}
		for _, v := range y {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w at t=%v", ErrNonFinite, times[i])
			}
		}
		out = append(out, append([]float64(nil), y...))
	}
	return out, nil
}

func step(deriv Derivative, t float64, y []float64, h float64, k1, k2, k3, k4, tmp []float64) {
	n := len(y)
	zero(k1)
	deriv(t, y, k1)
	for j := 0; j < n; j++ {
		tmp[j] = y[j] + 0.5*h*k1[j]
	}
	zero(k2)
	deriv(t+0.5*h, tmp, k2)
	for j := 0; j < n; j++ {
		tmp[j] = y[j] + 0.5*h*k2[j]
	}
	zero(k3)
	deriv(t+0.5*h, tmp, k3)
	for j := 0; j < n; j++ {
		tmp[j] = y[j] + h*k3[j]
	}
	zero(k4)
	deriv(t+h, tmp, k4)
	for j := 0; j < n; j++ {
		y[j] += h / 6.0 * (k1[j] + 2*k2[j] + 2*k3[j] + k4[j])
	}
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}
