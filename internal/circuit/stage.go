// Package circuit maps PK/PD trajectories onto a small fixed network of
// behavioural modules. The analytic path runs a first-order linear
// recurrence; the numeric path integrates the equivalent continuous
// system; a connectome-based solver can be compiled in with the
// highfidelity build tag.
package circuit

import (
	"fmt"
	"math"

	"neuropharm/internal/backend"
	"neuropharm/internal/model"
	"neuropharm/internal/params"
)

// Result carries per-module timelines plus the metric trajectories read
// back from their associated modules.
type Result struct {
	Modules map[string]model.ModuleTimeline
	Metrics map[string][]float64
}

// Stage runs the circuit propagation. Stateless apart from
// configuration; safe for concurrent use.
type Stage struct {
	cfg      params.Circuit
	detector *backend.Detector
}

func New(cfg params.Circuit, detector *backend.Detector) *Stage {
	return &Stage{cfg: cfg, detector: detector}
}

// Simulate propagates metric trajectories through the module graph.
// Assumption toggles only rescale edge weights; pvtWeight blends the
// salience hub's activity into every other module.
func (s *Stage) Simulate(trajectories map[string][]float64, assumptions model.AssumptionSet, pvtWeight float64, timepoints []float64, rec *backend.Recorder) (Result, error) {
	if len(timepoints) == 0 {
		return Result{}, fmt.Errorf("empty timepoint axis")
	}
	injected := s.injection(trajectories, timepoints)
	weights := weightMatrix(assumptions)

	var activity [][]float64
	attempts := make([]backend.Attempt, 0, 3)
	for _, kind := range s.detector.Chain(backend.StageCircuit) {
		switch kind {
		case backend.KindHighFidelity:
			attempts = append(attempts, backend.Attempt{Kind: kind, Run: func() error {
				out, err := runHighFidelity(s.cfg, weights, injected, timepoints, pvtWeight)
				if err != nil {
					return err
				}
				return s.accept(&activity, out, timepoints)
			}})
		case backend.KindSciPy:
			attempts = append(attempts, backend.Attempt{Kind: kind, Run: func() error {
				out, err := s.runNumeric(weights, injected, timepoints, pvtWeight)
				if err != nil {
					return err
				}
				return s.accept(&activity, out, timepoints)
			}})
		default:
			attempts = append(attempts, backend.Attempt{Kind: kind, Run: func() error {
				return s.accept(&activity, s.runAnalytic(weights, injected, timepoints, pvtWeight), timepoints)
			}})
		}
	}
	if err := backend.Execute(backend.StageCircuit, rec, attempts); err != nil {
		return Result{}, err
	}

	return s.assemble(activity, trajectories, timepoints), nil
}

// injection builds the per-module drive series from metric trajectories
// via the fixed metric-to-module table. Indexed [module][timepoint].
func (s *Stage) injection(trajectories map[string][]float64, timepoints []float64) [][]float64 {
	index := make(map[string]int, len(Modules))
	for i, m := range Modules {
		index[m] = i
	}
	injected := make([][]float64, len(Modules))
	for i := range injected {
		injected[i] = make([]float64, len(timepoints))
	}
	for metric, series := range trajectories {
		blend, ok := metricInjection[metric]
		if !ok {
			continue
		}
		for module, weight := range blend {
			mi := index[module]
			for t := 0; t < len(timepoints) && t < len(series); t++ {
				injected[mi][t] += weight * series[t]
			}
		}
	}
	return injected
}

// runAnalytic is the first-order recurrence: each module keeps a leaky
// share of its previous value, absorbs its injected drive, upstream
// module values scaled by edge weight, and the blended salience hub.
// Divergent values are smoothly re-saturated instead of failing.
func (s *Stage) runAnalytic(weights [][]float64, injected [][]float64, timepoints []float64, pvtWeight float64) [][]float64 {
	n := len(Modules)
	pvtIdx := moduleIndex(ModulePVT)
	retain := 1.0 - s.cfg.Leak

	activity := make([][]float64, n)
	for i := range activity {
		activity[i] = make([]float64, len(timepoints))
		activity[i][0] = s.saturate(injected[i][0])
	}
	for t := 1; t < len(timepoints); t++ {
		for m := 0; m < n; m++ {
			v := retain*activity[m][t-1] + injected[m][t]
			for u := 0; u < n; u++ {
				if w := weights[u][m]; w != 0 {
					v += w * activity[u][t-1]
				}
			}
			if m != pvtIdx {
				v += pvtWeight * s.cfg.PVTBlend * activity[pvtIdx][t-1]
			}
			activity[m][t] = s.saturate(v)
		}
	}
	return activity
}

// saturate keeps module activity inside the sanity envelope with the
// same smooth tanh shaping used by the molecular stage. Near zero the
// mapping is close to identity; toward the spread it compresses instead
// of clipping.
func (s *Stage) saturate(v float64) float64 {
	spread := s.cfg.SaturationSpread
	return spread * math.Tanh(v/spread)
}

// accept validates a candidate activity matrix before adopting it.
func (s *Stage) accept(dst *[][]float64, candidate [][]float64, timepoints []float64) error {
	if len(candidate) != len(Modules) {
		return fmt.Errorf("activity has %d modules, want %d", len(candidate), len(Modules))
	}
	for i, series := range candidate {
		if len(series) != len(timepoints) {
			return fmt.Errorf("module %s series length %d != timepoints %d", Modules[i], len(series), len(timepoints))
		}
		for t, v := range series {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("module %s non-finite at t=%v", Modules[i], timepoints[t])
			}
		}
	}
	*dst = candidate
	return nil
}

func (s *Stage) assemble(activity [][]float64, trajectories map[string][]float64, timepoints []float64) Result {
	modules := make(map[string]model.ModuleTimeline, len(Modules))
	for i, name := range Modules {
		modules[name] = model.ModuleTimeline{
			Description: Descriptions[name],
			Timeline:    activity[i],
		}
	}

	metrics := make(map[string][]float64, len(trajectories))
	for metric := range trajectories {
		blend, ok := metricInjection[metric]
		if !ok {
			continue
		}
		series := make([]float64, len(timepoints))
		total := 0.0
		for module, weight := range blend {
			mi := moduleIndex(module)
			for t := range series {
				series[t] += weight * activity[mi][t]
			}
			total += weight
		}
		if total > 0 {
			for t := range series {
				series[t] /= total
			}
		}
		metrics[metric] = series
	}
	return Result{Modules: modules, Metrics: metrics}
}

func moduleIndex(name string) int {
	for i, m := range Modules {
		if m == name {
			return i
		}
	}
	return -1
}
