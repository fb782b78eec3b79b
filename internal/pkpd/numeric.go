package pkpd

import (
	"math"

	"neuropharm/internal/model"
	"neuropharm/internal/solver"
)

// runNumeric integrates the two-compartment ODE with explicit dosing
// events: a single unit dose for acute exposure, repeated doses at the
// configured interval for chronic. The result is normalized to the same
// scale as the analytic curves so downstream scoring is backend-agnostic.
func (s *Stage) runNumeric(dosing model.Dosing, timepoints []float64, bioavailability float64) ([]float64, error) {
	ka := math.Ln2 / s.cfg.AbsorptionHalfHours
	ke := math.Ln2 / s.cfg.ClearanceHalfHours
	if dosing == model.DosingChronic {
		ke /= s.cfg.ChronicClearanceMul
	}

	interval := s.cfg.DoseIntervalHours
	doseAt := func(t float64) float64 {
		if dosing == model.DosingChronic {
			// Continuous maintenance infusion equivalent of repeated
			// dosing at the configured interval.
			return 1.0 / interval
		}
		return 0
	}

	// State: [gut, central]. Acute starts with the dose in the gut;
	// chronic starts empty and is fed by the infusion term.
	y0 := []float64{1, 0}
	if dosing == model.DosingChronic {
		y0 = []float64{0, 0}
	}
	deriv := func(t float64, y, dy []float64) {
		dy[0] = doseAt(t) - ka*y[0]
		dy[1] = ka*y[0] - ke*y[1]
	}
	states, err := solver.Integrate(deriv, y0, timepoints, s.cfg.AbsorptionHalfHours/4)
	if err != nil {
		return nil, err
	}

	raw := make([]float64, len(states))
	peak := 0.0
	for i, state := range states {
		raw[i] = state[1]
		if raw[i] > peak {
			peak = raw[i]
		}
	}
	if peak <= 0 {
		// No exposure at all (e.g. single timepoint at t=0); scale is
		// irrelevant, return zeros of the right length.
		return raw, nil
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = bioavailability * v / peak
	}
	return out, nil
}
