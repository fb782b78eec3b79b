//go:build highfidelity

package circuit

import (
	"neuropharm/internal/params"
)

// referenceConnectome is a coarse tract-weight prior layered on top of
// the request's edge weights when the connectome solver is compiled in.
// Indexing follows Modules order.
var referenceConnectome = [][]float64{
	{0, 0.22, 0.05, 0.18, 0.12, 0.08, 0.04, 0},
	{0.18, 0, 0.25, 0.04, 0.06, 0.05, 0.06, 0.08},
	{0.08, 0.28, 0, 0.05, 0.04, 0.02, 0.03, 0},
	{0.2, 0.05, 0.03, 0, 0.1, 0.12, 0.02, 0},
	{0.14, 0.06, 0.04, 0.12, 0, 0.05, 0.18, 0.06},
	{0.1, 0.06, 0.02, 0.08, 0.06, 0, 0.08, 0},
	{0.05, 0.12, 0.04, 0.03, 0.16, 0.1, 0, 0},
	{0.02, 0.1, 0.02, 0.01, 0.08, 0.02, 0.02, 0},
}

// runHighFidelity integrates the same dissipative dynamics as the
// numeric path but over the blended request + reference connectome,
// approximating a tract-weighted whole-network simulation. A fresh
// solver state is constructed per call.
func runHighFidelity(cfg params.Circuit, weights [][]float64, injected [][]float64, timepoints []float64, pvtWeight float64) ([][]float64, error) {
	n := len(Modules)
	blended := make([][]float64, n)
	for u := 0; u < n; u++ {
		blended[u] = make([]float64, n)
		for m := 0; m < n; m++ {
			blended[u][m] = weights[u][m] + 0.5*referenceConnectome[u][m]
		}
	}
	stage := &Stage{cfg: cfg}
	return stage.runNumeric(blended, injected, timepoints, pvtWeight)
}
