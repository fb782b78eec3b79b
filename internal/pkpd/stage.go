// Package pkpd propagates the molecular activation signal through
// compartmental exposure kinetics, producing per-metric effect-site
// trajectories over the simulation time axis.
package pkpd

import (
	"fmt"
	"math"

	"neuropharm/internal/backend"
	"neuropharm/internal/model"
	"neuropharm/internal/molecular"
	"neuropharm/internal/params"
)

// Stage runs the pharmacokinetic/pharmacodynamic propagation. Stateless
// apart from configuration; safe for concurrent use.
type Stage struct {
	cfg      params.PKPD
	detector *backend.Detector
}

func New(cfg params.PKPD, detector *backend.Detector) *Stage {
	return &Stage{cfg: cfg, detector: detector}
}

// Propagate scales each metric's activation by the dosing regimen's
// exposure curve. acute yields a single bolus-like peak and decay;
// chronic accumulates toward a held plateau. Trajectories always match
// the timepoint axis in length and are finite, or the path is treated as
// failed and the next fidelity level substitutes.
func (s *Stage) Propagate(signal molecular.Signal, dosing model.Dosing, timepoints []float64, pvtWeight float64, rec *backend.Recorder) (map[string][]float64, error) {
	if len(timepoints) == 0 {
		return nil, fmt.Errorf("empty timepoint axis")
	}

	bioavailability := s.cfg.BioavailBase + s.cfg.BioavailPVTSpan*pvtWeight

	var exposure []float64
	attempts := make([]backend.Attempt, 0, 3)
	for _, kind := range s.detector.Chain(backend.StagePKPD) {
		switch kind {
		case backend.KindHighFidelity:
			attempts = append(attempts, backend.Attempt{Kind: kind, Run: func() error {
				out, err := runHighFidelity(s.cfg, dosing, timepoints, bioavailability)
				if err != nil {
					return err
				}
				return s.accept(&exposure, out, timepoints)
			}})
		case backend.KindSciPy:
			attempts = append(attempts, backend.Attempt{Kind: kind, Run: func() error {
				out, err := s.runNumeric(dosing, timepoints, bioavailability)
				if err != nil {
					return err
				}
				return s.accept(&exposure, out, timepoints)
			}})
		default:
			attempts = append(attempts, backend.Attempt{Kind: kind, Run: func() error {
				return s.accept(&exposure, s.runAnalytic(dosing, timepoints, bioavailability), timepoints)
			}})
		}
	}
	if err := backend.Execute(backend.StagePKPD, rec, attempts); err != nil {
		return nil, err
	}

	trajectories := make(map[string][]float64, len(signal.Initial))
	for metric, activation := range signal.Initial {
		series := make([]float64, len(timepoints))
		for i, e := range exposure {
			series[i] = activation * e * s.cfg.EffectSiteRatio
		}
		trajectories[metric] = series
	}
	return trajectories, nil
}

// accept validates a candidate exposure curve before adopting it. A wrong
// length or a non-finite sample counts as a solver failure so the
// fallback chain advances.
func (s *Stage) accept(dst *[]float64, candidate, timepoints []float64) error {
	if len(candidate) != len(timepoints) {
		return fmt.Errorf("exposure length %d != timepoints %d", len(candidate), len(timepoints))
	}
	for i, v := range candidate {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite exposure at t=%v", timepoints[i])
		}
	}
	*dst = candidate
	return nil
}

// runAnalytic evaluates the closed-form two-compartment curves.
//
// acute: Bateman-style single dose, ka from the absorption half-life and
// ke from clearance, normalized so the peak reaches the bioavailable
// fraction. chronic: accumulation to a plateau with the slowed chronic
// clearance, normalized to the plateau.
func (s *Stage) runAnalytic(dosing model.Dosing, timepoints []float64, bioavailability float64) []float64 {
	ka := math.Ln2 / s.cfg.AbsorptionHalfHours
	ke := math.Ln2 / s.cfg.ClearanceHalfHours

	out := make([]float64, len(timepoints))
	switch dosing {
	case model.DosingChronic:
		keChronic := ke / s.cfg.ChronicClearanceMul
		for i, t := range timepoints {
			out[i] = bioavailability * (1.0 - math.Exp(-keChronic*t))
		}
	default:
		// Peak time of the Bateman function, used to normalize.
		tPeak := math.Log(ka/ke) / (ka - ke)
		peak := math.Exp(-ke*tPeak) - math.Exp(-ka*tPeak)
		for i, t := range timepoints {
			out[i] = bioavailability * (math.Exp(-ke*t) - math.Exp(-ka*t)) / peak
		}
	}
	return out
}
