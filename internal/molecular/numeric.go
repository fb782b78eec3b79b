package molecular

import (
	"math"
	"sort"

	"neuropharm/internal/solver"
)

// Numeric warm-up horizon: one hour of binding kinetics sampled finely
// enough for the cascade time constants.
const (
	transientHours = 1.0
	transientSteps = 12
)

// runNumeric integrates a first-order binding cascade toward the raw
// activation targets and uses the relaxed endpoint as the initial
// condition. The transient is kept for diagnostics.
func (s *Stage) runNumeric(raw map[string]float64) (Signal, error) {
	metrics := make([]string, 0, len(raw))
	for metric := range raw {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)

	targets := make([]float64, len(metrics))
	for i, metric := range metrics {
		targets[i] = raw[metric]
	}

	times := make([]float64, transientSteps+1)
	for i := range times {
		times[i] = transientHours * float64(i) / transientSteps
	}

	// The warm-up window compresses the cascade kinetics: the relaxation
	// constant keeps the fast/slow tau ratio of the full time axis.
	tau := transientHours * s.cfg.TauFastHours / s.cfg.TauSlowHours
	deriv := func(_ float64, y, dy []float64) {
		for i := range y {
			dy[i] = (targets[i] - y[i]) / tau
		}
	}
	states, err := solver.Integrate(deriv, make([]float64, len(metrics)), times, transientHours/transientSteps)
	if err != nil {
		return Signal{}, err
	}

	initial := make(map[string]float64, len(metrics))
	transient := make(map[string][]float64, len(metrics))
	for i, metric := range metrics {
		series := make([]float64, len(states))
		for j, state := range states {
			series[j] = math.Tanh(state[i])
		}
		transient[metric] = series
		initial[metric] = series[len(series)-1]
	}
	return Signal{
		Initial:        initial,
		TransientTimes: times,
		Transient:      transient,
	}, nil
}
