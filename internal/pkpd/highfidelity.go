//go:build highfidelity

package pkpd

import (
	"math"

	"neuropharm/internal/model"
	"neuropharm/internal/params"
	"neuropharm/internal/solver"
)

// runHighFidelity integrates a physiologically-structured three
// compartment model (gut, plasma, brain) with inter-compartment
// clearances, then reports the brain compartment normalized like the
// other paths. Constructed per call.
func runHighFidelity(cfg params.PKPD, dosing model.Dosing, timepoints []float64, bioavailability float64) ([]float64, error) {
	ka := math.Ln2 / cfg.AbsorptionHalfHours
	ke := math.Ln2 / cfg.ClearanceHalfHours
	if dosing == model.DosingChronic {
		ke /= cfg.ChronicClearanceMul
	}
	const (
		kPlasmaBrain = 0.8
		kBrainPlasma = 0.4
	)

	infusion := 0.0
	y0 := []float64{1, 0, 0}
	if dosing == model.DosingChronic {
		infusion = 1.0 / cfg.DoseIntervalHours
		y0 = []float64{0, 0, 0}
	}

	deriv := func(_ float64, y, dy []float64) {
		gut, plasma, brain := y[0], y[1], y[2]
		dy[0] = infusion - ka*gut
		dy[1] = ka*gut - ke*plasma - kPlasmaBrain*plasma + kBrainPlasma*brain
		dy[2] = kPlasmaBrain*plasma - kBrainPlasma*brain
	}
	states, err := solver.Integrate(deriv, y0, timepoints, cfg.AbsorptionHalfHours/4)
	if err != nil {
		return nil, err
	}

	raw := make([]float64, len(states))
	peak := 0.0
	for i, state := range states {
		raw[i] = state[2]
		if raw[i] > peak {
			peak = raw[i]
		}
	}
	if peak <= 0 {
		return raw, nil
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = bioavailability * v / peak
	}
	return out, nil
}
