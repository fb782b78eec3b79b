package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"

	"neuropharm/internal/backend"
	"neuropharm/internal/evidence"
	"neuropharm/internal/model"
	"neuropharm/internal/params"
	"neuropharm/internal/registry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(t *testing.T, store evidence.Store) *Engine {
	t.Helper()
	eng, err := New(Config{
		Store:    store,
		Detector: backend.NewDetector(nil),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func exampleRequest() model.SimulationRequest {
	return model.SimulationRequest{
		Receptors: map[string]model.ReceptorSpec{
			"5HT1A": {ReceptorID: "5HT1A", Occupancy: 0.7, Mechanism: model.MechanismAgonist},
		},
		Dosing:    model.DosingChronic,
		PVTWeight: 0.5,
	}
}

func TestValidateRejectsMalformedRequests(t *testing.T) {
	eng := newTestEngine(t, nil)

	cases := []struct {
		name string
		req  model.SimulationRequest
	}{
		{"empty receptors", model.SimulationRequest{Dosing: model.DosingAcute}},
		{"occupancy above one", model.SimulationRequest{
			Receptors: map[string]model.ReceptorSpec{
				"5-HT1A": {ReceptorID: "5-HT1A", Occupancy: 1.2, Mechanism: model.MechanismAgonist},
			},
			Dosing: model.DosingAcute,
		}},
		{"negative occupancy", model.SimulationRequest{
			Receptors: map[string]model.ReceptorSpec{
				"5-HT1A": {ReceptorID: "5-HT1A", Occupancy: -0.1, Mechanism: model.MechanismAgonist},
			},
			Dosing: model.DosingAcute,
		}},
		{"unknown mechanism", model.SimulationRequest{
			Receptors: map[string]model.ReceptorSpec{
				"5-HT1A": {ReceptorID: "5-HT1A", Occupancy: 0.5, Mechanism: "blocker"},
			},
			Dosing: model.DosingAcute,
		}},
		{"unknown dosing", model.SimulationRequest{
			Receptors: map[string]model.ReceptorSpec{
				"5-HT1A": {ReceptorID: "5-HT1A", Occupancy: 0.5, Mechanism: model.MechanismAgonist},
			},
			Dosing: "weekly",
		}},
		{"pvt weight above one", model.SimulationRequest{
			Receptors: map[string]model.ReceptorSpec{
				"5-HT1A": {ReceptorID: "5-HT1A", Occupancy: 0.5, Mechanism: model.MechanismAgonist},
			},
			Dosing:    model.DosingAcute,
			PVTWeight: 1.5,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.Simulate(context.Background(), tc.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSimulateExampleScenario(t *testing.T) {
	eng := newTestEngine(t, nil)
	result, err := eng.Simulate(context.Background(), exampleRequest())
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	if result.RunID == "" {
		t.Fatal("missing run id")
	}
	for _, metric := range registry.Metrics {
		label := registry.ReportedNames[metric]
		score, ok := result.Scores[label]
		if !ok {
			t.Fatalf("missing score for %s", label)
		}
		if score < 0 || score > 100 {
			t.Fatalf("score for %s out of range: %v", label, score)
		}
		u, ok := result.Uncertainty[label]
		if !ok || u < 0 || u > 1 {
			t.Fatalf("uncertainty for %s invalid: %v (present=%v)", label, u, ok)
		}
		c, ok := result.Confidence[label]
		if !ok || c < 0 || c > 1 {
			t.Fatalf("confidence for %s invalid: %v (present=%v)", label, c, ok)
		}
	}

	times := result.Details.Timepoints
	if len(times) == 0 || times[0] != 0 {
		t.Fatalf("timepoints must start at 0, got %v", times)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Fatalf("timepoints not strictly increasing at %d: %v", i, times)
		}
	}
	for metric, series := range result.Details.Trajectories {
		if len(series) != len(times) {
			t.Fatalf("trajectory %s length %d != timepoints %d", metric, len(series), len(times))
		}
	}
	if len(result.Details.Modules) == 0 {
		t.Fatal("missing module timelines")
	}
	if _, ok := result.Details.ReceptorContext["5-HT1A"]; !ok {
		t.Fatalf("receptor context should be keyed by canonical id, got %v", result.Details.ReceptorContext)
	}
	if result.Engine.Backends["molecular"] != "analytic" {
		t.Fatalf("expected analytic molecular backend, got %v", result.Engine.Backends)
	}
}

func TestSimulateIsIdempotent(t *testing.T) {
	eng := newTestEngine(t, nil)

	first, err := eng.Simulate(context.Background(), exampleRequest())
	if err != nil {
		t.Fatalf("first simulate: %v", err)
	}
	second, err := eng.Simulate(context.Background(), exampleRequest())
	if err != nil {
		t.Fatalf("second simulate: %v", err)
	}
	if first.RunID == second.RunID {
		t.Fatal("run ids must be unique per call")
	}
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(model.SimulationResult{}, "RunID")); diff != "" {
		t.Fatalf("results differ (-first +second):\n%s", diff)
	}
}

func TestMechanismsContributeOppositeSides(t *testing.T) {
	eng := newTestEngine(t, nil)

	run := func(mech model.Mechanism) model.SimulationResult {
		res, err := eng.Simulate(context.Background(), model.SimulationRequest{
			Receptors: map[string]model.ReceptorSpec{
				"5-HT2A": {ReceptorID: "5-HT2A", Occupancy: 0.8, Mechanism: mech},
			},
			Dosing: model.DosingAcute,
		})
		if err != nil {
			t.Fatalf("simulate %s: %v", mech, err)
		}
		return res
	}

	label := registry.ReportedNames[registry.MetricFlexibility]
	agonist := run(model.MechanismAgonist).Scores[label]
	antagonist := run(model.MechanismAntagonist).Scores[label]
	baseline := 50.0
	if agonist <= baseline {
		t.Fatalf("agonist flexibility score should sit above baseline, got %v", agonist)
	}
	if antagonist >= baseline {
		t.Fatalf("antagonist flexibility score should sit below baseline, got %v", antagonist)
	}
}

func TestUnknownReceptorDoesNotPerturbOthers(t *testing.T) {
	eng := newTestEngine(t, nil)

	clean, err := eng.Simulate(context.Background(), model.SimulationRequest{
		Receptors: map[string]model.ReceptorSpec{
			"5-HT2A": {ReceptorID: "5-HT2A", Occupancy: 0.6, Mechanism: model.MechanismAgonist},
		},
		Dosing: model.DosingAcute,
	})
	if err != nil {
		t.Fatalf("simulate clean: %v", err)
	}
	mixed, err := eng.Simulate(context.Background(), model.SimulationRequest{
		Receptors: map[string]model.ReceptorSpec{
			"5-HT2A":   {ReceptorID: "5-HT2A", Occupancy: 0.6, Mechanism: model.MechanismAgonist},
			"NOT-REAL": {ReceptorID: "NOT-REAL", Occupancy: 0.6, Mechanism: model.MechanismAgonist},
		},
		Dosing: model.DosingAcute,
	})
	if err != nil {
		t.Fatalf("simulate mixed: %v", err)
	}

	if diff := cmp.Diff(clean.Scores, mixed.Scores); diff != "" {
		t.Fatalf("zero-weight receptor changed scores:\n%s", diff)
	}
	ctxEntry, ok := mixed.Details.ReceptorContext["NOT-REAL"]
	if !ok || ctxEntry.Note == "" {
		t.Fatalf("unknown receptor should carry a diagnostic note, got %+v", mixed.Details.ReceptorContext)
	}
	if mixed.Engine.Fallbacks["notes"] == "" {
		t.Fatalf("unknown receptor note should surface in diagnostics, got %v", mixed.Engine.Fallbacks)
	}
}

func TestCohortAndRegimenModifiersShiftScores(t *testing.T) {
	eng := newTestEngine(t, nil)

	// A zero-weight receptor leaves every circuit endpoint flat, so all
	// scores sit at the baseline and the flat adjustments are visible in
	// isolation.
	result, err := eng.Simulate(context.Background(), model.SimulationRequest{
		Receptors: map[string]model.ReceptorSpec{
			"NOT-REAL": {ReceptorID: "NOT-REAL", Occupancy: 0.5, Mechanism: model.MechanismAgonist},
		},
		Dosing:      model.DosingChronic,
		Assumptions: model.AssumptionSet{ADHDCohort: true, GutBias: true},
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	p := params.Default()
	want := map[string]float64{
		registry.ReportedNames[registry.MetricDrive]:      p.Scoring.Baseline - p.Scoring.ADHDDrivePenalty,
		registry.ReportedNames[registry.MetricMotivation]: p.Scoring.Baseline - p.Scoring.ADHDMotivationPenalty,
		registry.ReportedNames[registry.MetricApathy]:     p.Scoring.Baseline + p.Scoring.GutApathyBonus,
		registry.ReportedNames[registry.MetricSleep]:      p.Scoring.Baseline + p.Scoring.ChronicSleepBonus,
		registry.ReportedNames[registry.MetricAnxiety]:    p.Scoring.Baseline,
	}
	for label, expected := range want {
		if got := result.Scores[label]; math.Abs(got-expected) > 1e-9 {
			t.Fatalf("score for %s = %v, want %v", label, got, expected)
		}
	}
}

func TestForcedHighFidelityFallsBackAndReports(t *testing.T) {
	t.Setenv(backend.EnvMolecular, "high_fidelity")
	eng, err := New(Config{Detector: backend.FromEnv()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	result, err := eng.Simulate(context.Background(), exampleRequest())
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	used := result.Engine.Backends["molecular"]
	if used == string(backend.KindHighFidelity) {
		t.Skip("reaction-network solver compiled in; fallback not exercised")
	}
	if used != string(backend.KindSciPy) && used != string(backend.KindAnalytic) {
		t.Fatalf("unexpected molecular backend: %q", used)
	}
	if result.Engine.Fallbacks["molecular"] == "" {
		t.Fatalf("fallback reason missing: %v", result.Engine.Fallbacks)
	}
	for _, metric := range registry.Metrics {
		label := registry.ReportedNames[metric]
		if u := result.Uncertainty[label]; u <= 0 || u > 1 {
			t.Fatalf("fallback-penalised uncertainty for %s invalid: %v", label, u)
		}
	}
}

func TestEvidenceLiftsConfidenceAndAttachesCitations(t *testing.T) {
	store := evidence.NewMemoryStore()
	records := []model.EvidenceRecord{
		{Subject: "5-HT1A", Predicate: "affects", Object: "anxiety", Confidence: 0.85, Uncertainty: 0.15, Sources: []string{"pmid:100", "pmid:200"}},
		{Subject: "5-HT1A", Predicate: "modulates", Object: "anxiety", Confidence: 0.8, Uncertainty: 0.2, Sources: []string{"pmid:300"}},
	}
	for _, record := range records {
		if err := store.SaveEvidence(context.Background(), record); err != nil {
			t.Fatalf("save evidence: %v", err)
		}
	}

	plain := newTestEngine(t, nil)
	backed := newTestEngine(t, store)

	req := exampleRequest()
	without, err := plain.Simulate(context.Background(), req)
	if err != nil {
		t.Fatalf("simulate without evidence: %v", err)
	}
	with, err := backed.Simulate(context.Background(), req)
	if err != nil {
		t.Fatalf("simulate with evidence: %v", err)
	}

	label := registry.ReportedNames[registry.MetricAnxiety]
	if with.Confidence[label] <= without.Confidence[label] {
		t.Fatalf("evidence should lift confidence: %v vs %v", without.Confidence[label], with.Confidence[label])
	}
	if with.Uncertainty[label] >= without.Uncertainty[label] {
		t.Fatalf("evidence should shrink uncertainty: %v vs %v", without.Uncertainty[label], with.Uncertainty[label])
	}
	citations := with.Citations[label]
	if len(citations) != 3 {
		t.Fatalf("expected three citations, got %v", citations)
	}
	if citations[0] != "pmid:100" {
		t.Fatalf("citations should be sorted, got %v", citations)
	}
}

func TestEvidenceSubjectsResolveThroughAliases(t *testing.T) {
	store := evidence.NewMemoryStore()
	record := model.EvidenceRecord{
		Subject: "5-HT1A", Predicate: "affects", Object: "anxiety",
		Confidence: 0.9, Uncertainty: 0.1, Sources: []string{"pmid:42"},
	}
	if err := store.SaveEvidence(context.Background(), record); err != nil {
		t.Fatalf("save evidence: %v", err)
	}

	eng := newTestEngine(t, store)
	// Gene-symbol spelling of the receptor must reach the same evidence.
	result, err := eng.Simulate(context.Background(), model.SimulationRequest{
		Receptors: map[string]model.ReceptorSpec{
			"HTR1A": {ReceptorID: "HTR1A", Occupancy: 0.7, Mechanism: model.MechanismAgonist},
		},
		Dosing: model.DosingChronic,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	label := registry.ReportedNames[registry.MetricAnxiety]
	if got := result.Citations[label]; len(got) != 1 || got[0] != "pmid:42" {
		t.Fatalf("alias subject should attach graph citations, got %v", got)
	}
}

func TestSimulateBatchKeepsOrder(t *testing.T) {
	eng := newTestEngine(t, nil)

	requests := []model.SimulationRequest{
		exampleRequest(),
		{
			Receptors: map[string]model.ReceptorSpec{
				"5-HT2A": {ReceptorID: "5-HT2A", Occupancy: 0.4, Mechanism: model.MechanismAntagonist},
			},
			Dosing: model.DosingAcute,
		},
		{
			Receptors: map[string]model.ReceptorSpec{
				"MOR": {ReceptorID: "MOR", Occupancy: 0.9, Mechanism: model.MechanismAgonist},
			},
			Dosing:    model.DosingChronic,
			PVTWeight: 1.0,
		},
	}

	results, err := eng.SimulateBatch(context.Background(), requests)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != len(requests) {
		t.Fatalf("got %d results, want %d", len(results), len(requests))
	}
	seen := make(map[string]bool)
	for i, res := range results {
		if res.RunID == "" {
			t.Fatalf("result %d missing run id", i)
		}
		if seen[res.RunID] {
			t.Fatalf("duplicate run id %s", res.RunID)
		}
		seen[res.RunID] = true
	}

	// Result order must match request order regardless of scheduling.
	single, err := eng.Simulate(context.Background(), requests[1])
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if diff := cmp.Diff(single.Scores, results[1].Scores); diff != "" {
		t.Fatalf("batch result out of order:\n%s", diff)
	}
}

func TestSimulateBatchSurfacesValidationError(t *testing.T) {
	eng := newTestEngine(t, nil)
	_, err := eng.SimulateBatch(context.Background(), []model.SimulationRequest{
		exampleRequest(),
		{Dosing: model.DosingAcute},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
