// Package engine orchestrates the simulation pipeline: request
// validation, evidence resolution, the three solver stages and the final
// aggregation into calibrated behavioural scores. An Engine is safe for
// concurrent use; every request gets its own diagnostics recorder and
// freshly allocated result.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neuropharm/internal/backend"
	"neuropharm/internal/circuit"
	"neuropharm/internal/evidence"
	"neuropharm/internal/model"
	"neuropharm/internal/molecular"
	"neuropharm/internal/params"
	"neuropharm/internal/pkpd"
	"neuropharm/internal/registry"
)

const defaultWorkers = 4

// ValidationError reports a malformed simulation request. It is surfaced
// to the caller before any stage runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// Config assembles an Engine. Zero values fall back to defaults: the
// calibrated parameter set, the process-wide backend detector, a NOP
// logger and a small batch worker pool. Store may be nil, in which case
// resolution trusts the registry alone.
type Config struct {
	Params   params.Params
	Store    evidence.Store
	Aliases  map[string]string
	Detector *backend.Detector
	Logger   *zap.Logger
	Workers  int
}

// Engine runs simulation requests through the full pipeline.
type Engine struct {
	params    params.Params
	resolver  *evidence.Resolver
	molecular *molecular.Stage
	pkpd      *pkpd.Stage
	circuit   *circuit.Stage
	detector  *backend.Detector
	logger    *zap.Logger
	workers   int
}

func New(cfg Config) (*Engine, error) {
	p := cfg.Params
	if p == (params.Params{}) {
		p = params.Default()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	detector := cfg.Detector
	if detector == nil {
		detector = backend.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	aliases, err := evidence.NewAliasResolver(cfg.Aliases)
	if err != nil {
		return nil, fmt.Errorf("build alias closure: %w", err)
	}

	return &Engine{
		params:    p,
		resolver:  evidence.NewResolver(cfg.Store, aliases, p.Evidence, p.Mechanisms),
		molecular: molecular.New(p.Molecular, detector),
		pkpd:      pkpd.New(p.PKPD, detector),
		circuit:   circuit.New(p.Circuit, detector),
		detector:  detector,
		logger:    logger,
		workers:   workers,
	}, nil
}

// Backends reports the tier each stage will attempt first.
func (e *Engine) Backends() map[string]string {
	return map[string]string{
		string(backend.StageMolecular): string(e.detector.Requested(backend.StageMolecular)),
		string(backend.StagePKPD):      string(e.detector.Requested(backend.StagePKPD)),
		string(backend.StageCircuit):   string(e.detector.Requested(backend.StageCircuit)),
	}
}

// Validate checks a request before any stage runs. Violations come back
// as *ValidationError and are never retried.
func (e *Engine) Validate(req model.SimulationRequest) error {
	if len(req.Receptors) == 0 {
		return &ValidationError{Field: "receptors", Reason: "at least one receptor engagement is required"}
	}
	for id, spec := range req.Receptors {
		if id == "" {
			return &ValidationError{Field: "receptors", Reason: "receptor id must not be empty"}
		}
		if spec.Occupancy < 0 || spec.Occupancy > 1 {
			return &ValidationError{
				Field:  fmt.Sprintf("receptors[%s].occupancy", id),
				Reason: fmt.Sprintf("must be in [0,1], got %v", spec.Occupancy),
			}
		}
		if _, err := model.ParseMechanism(string(spec.Mechanism)); err != nil {
			return &ValidationError{
				Field:  fmt.Sprintf("receptors[%s].mechanism", id),
				Reason: err.Error(),
			}
		}
	}
	if _, err := model.ParseDosing(string(req.Dosing)); err != nil {
		return &ValidationError{Field: "dosing", Reason: err.Error()}
	}
	if req.PVTWeight < 0 || req.PVTWeight > 1 {
		return &ValidationError{
			Field:  "pvt_weight",
			Reason: fmt.Sprintf("must be in [0,1], got %v", req.PVTWeight),
		}
	}
	return nil
}

// Simulate runs one request end to end. Backend degradation is recorded
// in the result diagnostics, never surfaced as an error; only validation
// failures, store failures and analytic-floor instability return errors.
func (e *Engine) Simulate(ctx context.Context, req model.SimulationRequest) (model.SimulationResult, error) {
	if err := e.Validate(req); err != nil {
		return model.SimulationResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.SimulationResult{}, err
	}

	rec := backend.NewRecorder()
	timepoints := e.params.Timepoints()

	weights, receptorContext, err := e.resolve(ctx, req.Receptors, rec)
	if err != nil {
		return model.SimulationResult{}, err
	}

	signal, err := e.molecular.Run(weights, req.Assumptions, req.Dosing, rec)
	if err != nil {
		return model.SimulationResult{}, fmt.Errorf("molecular stage: %w", err)
	}
	trajectories, err := e.pkpd.Propagate(signal, req.Dosing, timepoints, req.PVTWeight, rec)
	if err != nil {
		return model.SimulationResult{}, fmt.Errorf("pkpd stage: %w", err)
	}
	network, err := e.circuit.Simulate(trajectories, req.Assumptions, req.PVTWeight, timepoints, rec)
	if err != nil {
		return model.SimulationResult{}, fmt.Errorf("circuit stage: %w", err)
	}

	scores, confidence, uncertainty, citations := e.score(req, network, signal, weights, rec)

	runID := uuid.NewString()
	e.logger.Info("simulation complete",
		zap.String("run_id", runID),
		zap.String("dosing", string(req.Dosing)),
		zap.Int("receptors", len(req.Receptors)),
		zap.Int("fallbacks", rec.FallbackCount()),
	)

	return model.SimulationResult{
		RunID:       runID,
		Scores:      scores,
		Uncertainty: uncertainty,
		Confidence:  confidence,
		Citations:   citations,
		Details: model.SimulationDetails{
			Timepoints:      timepoints,
			Trajectories:    network.Metrics,
			Modules:         network.Modules,
			ReceptorContext: receptorContext,
		},
		Engine: model.EngineDiagnostics{
			Backends:  rec.Backends(),
			Fallbacks: rec.Fallbacks(),
		},
	}, nil
}

// resolve walks the receptor map in deterministic order, collecting
// effective weights and per-receptor diagnostics. Unknown receptors
// degrade to zero-weight entries with a note; they never abort the run.
func (e *Engine) resolve(ctx context.Context, receptors map[string]model.ReceptorSpec, rec *backend.Recorder) ([]model.EffectiveWeight, map[string]model.ReceptorContext, error) {
	ids := make([]string, 0, len(receptors))
	for id := range receptors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var weights []model.EffectiveWeight
	context := make(map[string]model.ReceptorContext, len(ids))
	for _, id := range ids {
		spec := receptors[id]
		if spec.ReceptorID == "" {
			spec.ReceptorID = id
		}
		resolved, err := e.resolver.Resolve(ctx, spec)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve %s: %w", id, err)
		}
		if len(resolved) == 0 {
			continue
		}

		sum := 0.0
		note := ""
		for _, w := range resolved {
			sum += w.Uncertainty
			if note == "" && w.Note != "" {
				note = w.Note
			}
		}
		if note != "" {
			rec.Note(note)
		}
		context[resolved[0].ReceptorID] = model.ReceptorContext{
			Uncertainty: sum / float64(len(resolved)),
			Note:        note,
		}
		weights = append(weights, resolved...)
	}
	return weights, context, nil
}

// score maps circuit endpoints to calibrated 0..100 behavioural scores
// and folds evidence, cascade and fallback terms into the per-metric
// uncertainty band. The apathy axis is inverted so that higher always
// means stronger expression of the reported trait. Flat cohort and
// regimen adjustments land after the tanh mapping.
func (e *Engine) score(req model.SimulationRequest, network circuit.Result, signal molecular.Signal, weights []model.EffectiveWeight, rec *backend.Recorder) (scores, confidence, uncertainty map[string]float64, citations map[string][]string) {
	scores = make(map[string]float64, len(registry.Metrics))
	confidence = make(map[string]float64, len(registry.Metrics))
	uncertainty = make(map[string]float64, len(registry.Metrics))
	citations = make(map[string][]string, len(registry.Metrics))

	fallbackPenalty := e.params.FallbackPenalty * float64(rec.FallbackCount())

	for _, metric := range registry.Metrics {
		label := registry.ReportedNames[metric]

		endpoint := 0.0
		if series := network.Metrics[metric]; len(series) > 0 {
			endpoint = series[len(series)-1]
		}
		if metric == registry.MetricApathy {
			endpoint = -endpoint
		}
		score := e.params.Scoring.Baseline + e.params.Scoring.Scale*math.Tanh(e.params.Scoring.Slope*endpoint)
		scores[label] = clamp(score, 0, e.params.Scoring.Baseline+e.params.Scoring.Scale)

		evidenceSum := 0.0
		contributing := 0
		sourceSet := make(map[string]struct{})
		for _, w := range weights {
			if w.MetricID != metric {
				continue
			}
			evidenceSum += w.Uncertainty
			contributing++
			if w.Weight != 0 {
				for _, src := range w.Sources {
					sourceSet[src] = struct{}{}
				}
			}
		}
		evidenceMean := e.params.Evidence.NoEvidenceUncertainty
		if contributing > 0 {
			evidenceMean = evidenceSum / float64(contributing)
		}

		// Cascade term from the molecular stage: proportional to the
		// activation magnitude with a small floor.
		cascade := math.Max(e.params.Molecular.UncertaintyFloor,
			e.params.Molecular.UncertaintyGain*math.Abs(signal.Initial[metric]))

		uncertainty[label] = clamp(evidenceMean+cascade+fallbackPenalty, 0, 1)
		confidence[label] = clamp(1-evidenceMean, 0, 1)

		if len(sourceSet) > 0 {
			sources := make([]string, 0, len(sourceSet))
			for src := range sourceSet {
				sources = append(sources, src)
			}
			sort.Strings(sources)
			citations[label] = sources
		}
	}

	maxScore := e.params.Scoring.Baseline + e.params.Scoring.Scale
	shift := func(metric string, delta float64) {
		label := registry.ReportedNames[metric]
		scores[label] = clamp(scores[label]+delta, 0, maxScore)
	}
	if req.Assumptions.ADHDCohort {
		shift(registry.MetricDrive, -e.params.Scoring.ADHDDrivePenalty)
		shift(registry.MetricMotivation, -e.params.Scoring.ADHDMotivationPenalty)
	}
	if req.Assumptions.GutBias {
		shift(registry.MetricApathy, e.params.Scoring.GutApathyBonus)
	}
	if req.Dosing == model.DosingChronic {
		shift(registry.MetricSleep, e.params.Scoring.ChronicSleepBonus)
	}

	return scores, confidence, uncertainty, citations
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
