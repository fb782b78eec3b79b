package evidence

import (
	"context"
	"fmt"
	"math"
	"sort"

	"neuropharm/internal/model"
	"neuropharm/internal/params"
	"neuropharm/internal/registry"
)

// Resolver turns registry baselines plus stored evidence into effective
// per-(receptor, metric) weights. It holds no mutable state and is safe
// for concurrent use across simulation requests.
type Resolver struct {
	store      Store
	aliases    *AliasResolver
	cfg        params.Evidence
	mechanisms params.Mechanisms
}

func NewResolver(store Store, aliases *AliasResolver, cfg params.Evidence, mechanisms params.Mechanisms) *Resolver {
	return &Resolver{store: store, aliases: aliases, cfg: cfg, mechanisms: mechanisms}
}

// Canonical exposes the alias closure used for subject lookups.
func (r *Resolver) Canonical(name string) string {
	return r.aliases.Canonical(name)
}

// Resolve computes the effective weights of one receptor engagement over
// every metric. Unknown receptors degrade to zero-weight entries with a
// diagnostic note; a missing evidence store degrades to registry-only
// resolution, never to an error.
func (r *Resolver) Resolve(ctx context.Context, spec model.ReceptorSpec) ([]model.EffectiveWeight, error) {
	canon := r.aliases.Canonical(spec.ReceptorID)
	entry, known := registry.Lookup(canon)
	mechanism, err := r.mechanisms.Factor(spec.Mechanism, entry.InverseEfficacy)
	if err != nil {
		return nil, err
	}

	if !known {
		note := fmt.Sprintf("unknown receptor %q: resolved with zero weight", spec.ReceptorID)
		out := make([]model.EffectiveWeight, 0, len(registry.Metrics))
		for _, metric := range registry.Metrics {
			out = append(out, model.EffectiveWeight{
				ReceptorID:  canon,
				MetricID:    metric,
				Weight:      0,
				Uncertainty: r.cfg.NoEvidenceUncertainty,
				Note:        note,
			})
		}
		return out, nil
	}

	records, err := r.findEvidence(ctx, canon)
	if err != nil {
		return nil, fmt.Errorf("find evidence for %s: %w", canon, err)
	}

	out := make([]model.EffectiveWeight, 0, len(registry.Metrics))
	for _, metric := range registry.Metrics {
		relevant := filterForMetric(records, metric)
		multiplier, uncertainty, sources := r.evidenceMultiplier(relevant)
		w := entry.Weights[metric] * mechanism * multiplier * spec.Occupancy
		out = append(out, model.EffectiveWeight{
			ReceptorID:  canon,
			MetricID:    metric,
			Weight:      w,
			Uncertainty: uncertainty,
			SourceCount: len(sources),
			Sources:     sources,
		})
	}
	return out, nil
}

func (r *Resolver) findEvidence(ctx context.Context, subject string) ([]model.EvidenceRecord, error) {
	if r.store == nil {
		return nil, nil
	}
	return r.store.FindEvidence(ctx, subject, "")
}

// filterForMetric keeps records whose object names the metric, or generic
// records that carry no metric object at all.
func filterForMetric(records []model.EvidenceRecord, metric string) []model.EvidenceRecord {
	var out []model.EvidenceRecord
	for _, record := range records {
		if record.Object == metric || record.Object == "" || record.Object == "*" {
			out = append(out, record)
		}
	}
	return out
}

// evidenceMultiplier folds evidence records into a confidence multiplier
// and an uncertainty estimate. With no records the registry is trusted at
// full weight but flagged with the no-evidence uncertainty ceiling. With
// records, the multiplier is the confidence mean lifted by a capped
// source-diversity bonus, and uncertainty shrinks like 1/sqrt(sources),
// bounded below by the smallest per-record uncertainty observed.
func (r *Resolver) evidenceMultiplier(records []model.EvidenceRecord) (float64, float64, []string) {
	if len(records) == 0 {
		return 1.0, r.cfg.NoEvidenceUncertainty, nil
	}

	sourceSet := make(map[string]struct{})
	confidenceSum := 0.0
	minUncertainty := math.Inf(1)
	for _, record := range records {
		confidenceSum += record.Confidence
		if record.Uncertainty < minUncertainty {
			minUncertainty = record.Uncertainty
		}
		for _, src := range record.Sources {
			if src != "" {
				sourceSet[src] = struct{}{}
			}
		}
	}
	meanConfidence := confidenceSum / float64(len(records))

	sourceCount := len(sourceSet)
	if sourceCount == 0 {
		sourceCount = 1
	}
	bonus := math.Min(r.cfg.CoverageBonusCap, r.cfg.CoverageBonusPerSource*float64(sourceCount))
	multiplier := clamp(meanConfidence+bonus, r.cfg.ConfidenceFloor, r.cfg.ConfidenceCeiling)

	// Shrinking interval: starts below the no-evidence ceiling, narrows
	// like 1/sqrt(sources), and never drops under the smallest observed
	// per-source uncertainty.
	floor := math.Max(minUncertainty, r.cfg.MinSourceUncertainty)
	shrink := 1.0 / math.Sqrt(float64(sourceCount)+1)
	uncertainty := floor + (r.cfg.NoEvidenceUncertainty-floor)*shrink
	uncertainty = clamp(math.Max(uncertainty, floor), 0, 1)

	sources := make([]string, 0, len(sourceSet))
	for src := range sourceSet {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return multiplier, uncertainty, sources
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
