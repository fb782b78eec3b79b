package circuit

import (
	"math"

	"neuropharm/internal/solver"
)

// runNumeric integrates the continuous analogue of the recurrence:
//
//	dx_m = inject_m(t) + sum_u w(u,m) x_u - rowsum_m x_m - damping_m x_m
//
// with the salience hub blended into every other module. Injection is
// linearly interpolated between timepoints for the integrator's
// sub-steps.
func (s *Stage) runNumeric(weights [][]float64, injected [][]float64, timepoints []float64, pvtWeight float64) ([][]float64, error) {
	n := len(Modules)
	pvtIdx := moduleIndex(ModulePVT)

	rowsum := make([]float64, n)
	for u := 0; u < n; u++ {
		for m := 0; m < n; m++ {
			rowsum[u] += weights[u][m]
		}
	}
	damping := make([]float64, n)
	for m := range damping {
		damping[m] = s.cfg.DampingBase + s.cfg.DampingSlope*float64(m)
	}

	injectAt := func(m int, t float64) float64 {
		series := injected[m]
		if t <= timepoints[0] {
			return series[0]
		}
		last := len(timepoints) - 1
		if t >= timepoints[last] {
			return series[last]
		}
		for i := 1; i <= last; i++ {
			if t <= timepoints[i] {
				span := timepoints[i] - timepoints[i-1]
				frac := (t - timepoints[i-1]) / span
				return series[i-1] + frac*(series[i]-series[i-1])
			}
		}
		return series[last]
	}

	deriv := func(t float64, y, dy []float64) {
		for m := 0; m < n; m++ {
			v := injectAt(m, t)
			for u := 0; u < n; u++ {
				if w := weights[u][m]; w != 0 {
					v += w * y[u]
				}
			}
			v -= rowsum[m] * y[m]
			v -= damping[m] * y[m]
			if m != pvtIdx {
				v += pvtWeight * s.cfg.PVTBlend * y[pvtIdx]
			}
			dy[m] = v
		}
	}

	maxStep := timepoints[len(timepoints)-1]
	if len(timepoints) > 1 {
		maxStep = (timepoints[1] - timepoints[0]) / 2
	}
	states, err := solver.Integrate(deriv, make([]float64, n), timepoints, maxStep)
	if err != nil {
		return nil, err
	}

	activity := make([][]float64, n)
	for m := range activity {
		activity[m] = make([]float64, len(timepoints))
		for t, state := range states {
			activity[m][t] = s.saturate(state[m])
		}
	}
	// The continuous system is dissipative by construction, but keep the
	// same divergence guard as the recurrence.
	for m := range activity {
		for _, v := range activity[m] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, solver.ErrNonFinite
			}
		}
	}
	return activity, nil
}
