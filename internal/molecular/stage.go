// Package molecular converts resolved receptor weights into the cascade
// activation signal that seeds the PK/PD stage. Three fidelity paths are
// supported: a closed-form saturation, an RK4 binding-cascade transient,
// and an optional reaction-network solver compiled in with the
// highfidelity build tag.
package molecular

import (
	"fmt"
	"math"

	"neuropharm/internal/backend"
	"neuropharm/internal/model"
	"neuropharm/internal/params"
	"neuropharm/internal/registry"
)

// Signal is the per-metric activation state handed to the PK/PD stage.
// Initial holds the state at t=0; Transient, when a numeric path ran,
// holds the short warm-up trajectory that produced it.
type Signal struct {
	Initial        map[string]float64
	TransientTimes []float64
	Transient      map[string][]float64
}

// Stage runs the molecular cascade. Stateless apart from configuration;
// safe for concurrent use.
type Stage struct {
	cfg      params.Molecular
	detector *backend.Detector
}

func New(cfg params.Molecular, detector *backend.Detector) *Stage {
	return &Stage{cfg: cfg, detector: detector}
}

// Run resolves the activation signal, walking the stage's fallback chain.
// Failures of the numeric paths are recorded on rec and never surface;
// only an analytic-floor failure returns an error.
func (s *Stage) Run(weights []model.EffectiveWeight, assumptions model.AssumptionSet, dosing model.Dosing, rec *backend.Recorder) (Signal, error) {
	raw := s.rawActivation(weights, assumptions, dosing)

	var signal Signal
	attempts := make([]backend.Attempt, 0, 3)
	for _, kind := range s.detector.Chain(backend.StageMolecular) {
		switch kind {
		case backend.KindHighFidelity:
			attempts = append(attempts, backend.Attempt{Kind: kind, Run: func() error {
				out, err := runHighFidelity(raw, s.cfg)
				if err != nil {
					return err
				}
				signal = out
				return nil
			}})
		case backend.KindSciPy:
			attempts = append(attempts, backend.Attempt{Kind: kind, Run: func() error {
				out, err := s.runNumeric(raw)
				if err != nil {
					return err
				}
				signal = out
				return nil
			}})
		default:
			attempts = append(attempts, backend.Attempt{Kind: kind, Run: func() error {
				signal = s.runAnalytic(raw)
				return nil
			}})
		}
	}
	if err := backend.Execute(backend.StageMolecular, rec, attempts); err != nil {
		return Signal{}, err
	}
	for metric, v := range signal.Initial {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Signal{}, fmt.Errorf("molecular activation for %s is non-finite", metric)
		}
	}
	return signal, nil
}

// rawActivation sums the effective weights per metric, applying the acute
// 5-HT1A clamp and the per-receptor affinity scaling before saturation.
// Sustained exposure recruits downstream adaptation, so chronic dosing
// scales the sums up by the adaptation factor.
func (s *Stage) rawActivation(weights []model.EffectiveWeight, assumptions model.AssumptionSet, dosing model.Dosing) map[string]float64 {
	raw := make(map[string]float64, len(registry.Metrics))
	for _, metric := range registry.Metrics {
		raw[metric] = 0
	}
	for _, w := range weights {
		v := w.Weight
		if entry, ok := registry.Lookup(w.ReceptorID); ok {
			v *= registry.AffinityScale(entry)
		}
		if assumptions.Acute1AClamp && dosing == model.DosingAcute && w.ReceptorID == "5-HT1A" {
			v *= s.cfg.Acute1ADamping
		}
		raw[w.MetricID] += v
	}
	if dosing == model.DosingChronic && s.cfg.ChronicAdaption > 0 {
		for metric := range raw {
			raw[metric] *= s.cfg.ChronicAdaption
		}
	}
	return raw
}

// runAnalytic saturates the raw sums smoothly into [-1, 1]. tanh keeps
// the mapping monotonic in occupancy and free of clamp discontinuities.
func (s *Stage) runAnalytic(raw map[string]float64) Signal {
	initial := make(map[string]float64, len(raw))
	for metric, v := range raw {
		initial[metric] = math.Tanh(v)
	}
	return Signal{Initial: initial}
}
