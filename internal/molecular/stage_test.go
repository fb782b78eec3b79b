package molecular

import (
	"math"
	"testing"

	"neuropharm/internal/backend"
	"neuropharm/internal/model"
	"neuropharm/internal/params"
	"neuropharm/internal/registry"
)

func analyticStage() *Stage {
	return New(params.Default().Molecular, backend.NewDetector(nil))
}

func weightsFor(receptor string, occupancy float64, mech model.Mechanism) []model.EffectiveWeight {
	entry, ok := registry.Lookup(receptor)
	if !ok {
		panic("unknown test receptor " + receptor)
	}
	factor, err := params.Default().Mechanisms.Factor(mech, entry.InverseEfficacy)
	if err != nil {
		panic(err)
	}
	var out []model.EffectiveWeight
	for _, metric := range registry.Metrics {
		out = append(out, model.EffectiveWeight{
			ReceptorID: receptor,
			MetricID:   metric,
			Weight:     entry.Weights[metric] * factor * occupancy,
		})
	}
	return out
}

func TestAnalyticActivationMonotonicInOccupancy(t *testing.T) {
	stage := analyticStage()
	var previous float64
	for i, occ := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		rec := backend.NewRecorder()
		signal, err := stage.Run(weightsFor("5-HT2A", occ, model.MechanismAgonist), model.AssumptionSet{}, model.DosingAcute, rec)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		v := signal.Initial[registry.MetricFlexibility]
		if v <= 0 {
			t.Fatalf("agonist flexibility activation should be positive, got %v", v)
		}
		if i > 0 && v <= previous {
			t.Fatalf("activation not monotonic in occupancy: %v then %v", previous, v)
		}
		previous = v
	}
}

func TestAnalyticActivationBounded(t *testing.T) {
	stage := analyticStage()
	// Stack every receptor at full occupancy so raw sums exceed 1.
	var weights []model.EffectiveWeight
	for _, id := range registry.IDs() {
		weights = append(weights, weightsFor(id, 1.0, model.MechanismAgonist)...)
	}
	rec := backend.NewRecorder()
	signal, err := stage.Run(weights, model.AssumptionSet{}, model.DosingChronic, rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for metric, v := range signal.Initial {
		if math.Abs(v) >= 1 {
			t.Fatalf("activation for %s not smoothly saturated: %v", metric, v)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("activation for %s not finite: %v", metric, v)
		}
	}
}

func TestMechanismSignFlip(t *testing.T) {
	stage := analyticStage()
	rec := backend.NewRecorder()
	agonist, err := stage.Run(weightsFor("5-HT1A", 0.7, model.MechanismAgonist), model.AssumptionSet{}, model.DosingAcute, rec)
	if err != nil {
		t.Fatalf("run agonist: %v", err)
	}
	antagonist, err := stage.Run(weightsFor("5-HT1A", 0.7, model.MechanismAntagonist), model.AssumptionSet{}, model.DosingAcute, backend.NewRecorder())
	if err != nil {
		t.Fatalf("run antagonist: %v", err)
	}
	a := agonist.Initial[registry.MetricAnxiety]
	b := antagonist.Initial[registry.MetricAnxiety]
	if a == 0 || math.Abs(a+b) > 1e-12 {
		t.Fatalf("expected opposite-signed activations, got %v and %v", a, b)
	}
}

func TestAcute1AClampDampensSerotonin1A(t *testing.T) {
	stage := analyticStage()
	weights := weightsFor("5-HT1A", 0.8, model.MechanismAgonist)

	plain, err := stage.Run(weights, model.AssumptionSet{}, model.DosingAcute, backend.NewRecorder())
	if err != nil {
		t.Fatalf("run plain: %v", err)
	}
	clamped, err := stage.Run(weights, model.AssumptionSet{Acute1AClamp: true}, model.DosingAcute, backend.NewRecorder())
	if err != nil {
		t.Fatalf("run clamped: %v", err)
	}
	if math.Abs(clamped.Initial[registry.MetricAnxiety]) >= math.Abs(plain.Initial[registry.MetricAnxiety]) {
		t.Fatal("acute clamp should dampen 5-HT1A activation")
	}

	// Chronic dosing leaves the clamp inactive.
	chronicClamped, err := stage.Run(weights, model.AssumptionSet{Acute1AClamp: true}, model.DosingChronic, backend.NewRecorder())
	if err != nil {
		t.Fatalf("run chronic clamped: %v", err)
	}
	chronicPlain, err := stage.Run(weights, model.AssumptionSet{}, model.DosingChronic, backend.NewRecorder())
	if err != nil {
		t.Fatalf("run chronic plain: %v", err)
	}
	if chronicClamped.Initial[registry.MetricAnxiety] != chronicPlain.Initial[registry.MetricAnxiety] {
		t.Fatal("clamp should only apply to acute dosing")
	}
}

func TestChronicAdaptationAmplifiesActivation(t *testing.T) {
	stage := analyticStage()
	weights := weightsFor("5-HT2A", 0.6, model.MechanismAgonist)

	acute, err := stage.Run(weights, model.AssumptionSet{}, model.DosingAcute, backend.NewRecorder())
	if err != nil {
		t.Fatalf("run acute: %v", err)
	}
	chronic, err := stage.Run(weights, model.AssumptionSet{}, model.DosingChronic, backend.NewRecorder())
	if err != nil {
		t.Fatalf("run chronic: %v", err)
	}
	a := math.Abs(acute.Initial[registry.MetricFlexibility])
	c := math.Abs(chronic.Initial[registry.MetricFlexibility])
	if c <= a {
		t.Fatalf("sustained exposure should amplify chronic activation: acute=%v chronic=%v", a, c)
	}
	want := math.Tanh(math.Atanh(a) * params.Default().Molecular.ChronicAdaption)
	if math.Abs(c-want) > 1e-9 {
		t.Fatalf("chronic activation = %v, want %v", c, want)
	}
}

func TestNumericPathApproachesAnalytic(t *testing.T) {
	weights := weightsFor("TRKB", 0.6, model.MechanismAgonist)
	analytic, err := analyticStage().Run(weights, model.AssumptionSet{}, model.DosingAcute, backend.NewRecorder())
	if err != nil {
		t.Fatalf("analytic run: %v", err)
	}

	numericStage := New(params.Default().Molecular, backend.NewDetector(map[backend.Stage]backend.Kind{
		backend.StageMolecular: backend.KindSciPy,
	}))
	rec := backend.NewRecorder()
	numeric, err := numericStage.Run(weights, model.AssumptionSet{}, model.DosingAcute, rec)
	if err != nil {
		t.Fatalf("numeric run: %v", err)
	}
	if rec.Backends()["molecular"] != "scipy" {
		t.Fatalf("expected scipy backend, got %v", rec.Backends())
	}
	if len(numeric.Transient) == 0 || len(numeric.TransientTimes) == 0 {
		t.Fatal("numeric path should record a transient")
	}
	for metric, want := range analytic.Initial {
		got := numeric.Initial[metric]
		if math.Abs(got-want) > 0.05 {
			t.Fatalf("numeric endpoint for %s = %v, analytic = %v", metric, got, want)
		}
	}
}

func TestHighFidelityFallsBackWhenUnavailable(t *testing.T) {
	stage := New(params.Default().Molecular, backend.NewDetector(map[backend.Stage]backend.Kind{
		backend.StageMolecular: backend.KindHighFidelity,
	}))
	rec := backend.NewRecorder()
	_, err := stage.Run(weightsFor("MOR", 0.5, model.MechanismAgonist), model.AssumptionSet{}, model.DosingAcute, rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	used := rec.Backends()["molecular"]
	if used == string(backend.KindHighFidelity) {
		t.Skip("high-fidelity solver compiled in; fallback not exercised")
	}
	if used != string(backend.KindSciPy) && used != string(backend.KindAnalytic) {
		t.Fatalf("unexpected backend: %q", used)
	}
	if rec.Fallbacks()["molecular"] == "" {
		t.Fatal("fallback reason must be recorded")
	}
}
