//go:build highfidelity

package molecular

import (
	"math"
	"sort"

	"neuropharm/internal/params"
	"neuropharm/internal/solver"
)

// runHighFidelity integrates a small reaction network per metric: a bound
// receptor pool driving a second-messenger species with saturable
// production and first-order decay. Constructed per call; no solver state
// is shared between requests.
func runHighFidelity(raw map[string]float64, cfg params.Molecular) (Signal, error) {
	metrics := make([]string, 0, len(raw))
	for metric := range raw {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)

	// State layout: [bound_0, messenger_0, bound_1, messenger_1, ...]
	const (
		kOn   = 6.0
		kOff  = 1.5
		kProd = 4.0
		kDec  = 2.0
	)
	times := make([]float64, transientSteps+1)
	for i := range times {
		times[i] = transientHours * float64(i) / transientSteps
	}

	deriv := func(_ float64, y, dy []float64) {
		for i, metric := range metrics {
			drive := raw[metric]
			bound := y[2*i]
			messenger := y[2*i+1]
			dy[2*i] = kOn*drive - kOff*bound
			dy[2*i+1] = kProd*math.Tanh(bound) - kDec*messenger
		}
	}
	states, err := solver.Integrate(deriv, make([]float64, 2*len(metrics)), times, transientHours/transientSteps)
	if err != nil {
		return Signal{}, err
	}

	initial := make(map[string]float64, len(metrics))
	transient := make(map[string][]float64, len(metrics))
	for i, metric := range metrics {
		series := make([]float64, len(states))
		for j, state := range states {
			series[j] = math.Tanh(state[2*i+1])
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
