package pkpd

import (
	"math"
	"testing"

	"neuropharm/internal/backend"
	"neuropharm/internal/model"
	"neuropharm/internal/molecular"
	"neuropharm/internal/params"
)

func testSignal() molecular.Signal {
	return molecular.Signal{Initial: map[string]float64{
		"drive":   0.5,
		"anxiety": -0.3,
	}}
}

func testTimepoints() []float64 {
	return params.Default().Timepoints()
}

func analyticStage() *Stage {
	return New(params.Default().PKPD, backend.NewDetector(nil))
}

func TestAcuteTrajectoryPeaksAndDecays(t *testing.T) {
	stage := analyticStage()
	times := testTimepoints()
	trajectories, err := stage.Propagate(testSignal(), model.DosingAcute, times, 0.5, backend.NewRecorder())
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}

	drive := trajectories["drive"]
	if len(drive) != len(times) {
		t.Fatalf("trajectory length %d != timepoints %d", len(drive), len(times))
	}
	peakIdx := 0
	for i, v := range drive {
		if v > drive[peakIdx] {
			peakIdx = i
		}
	}
	if peakIdx == 0 || peakIdx == len(drive)-1 {
		t.Fatalf("acute curve should peak mid-axis, peaked at index %d", peakIdx)
	}
	for i := peakIdx + 1; i < len(drive); i++ {
		if drive[i] > drive[i-1]+1e-12 {
			t.Fatalf("acute curve should decay after the peak, rose at index %d", i)
		}
	}
}

func TestChronicTrajectoryApproachesPlateau(t *testing.T) {
	stage := analyticStage()
	times := testTimepoints()
	trajectories, err := stage.Propagate(testSignal(), model.DosingChronic, times, 0.5, backend.NewRecorder())
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}

	drive := trajectories["drive"]
	// Non-decreasing plateau over the final third of the axis.
	start := 2 * len(drive) / 3
	for i := start + 1; i < len(drive); i++ {
		if drive[i] < drive[i-1]-1e-12 {
			t.Fatalf("chronic curve should not decay in final third, fell at index %d", i)
		}
	}
	// Plateau means the final increments are tiny relative to the level.
	lastDelta := math.Abs(drive[len(drive)-1] - drive[len(drive)-2])
	if lastDelta > 0.01*math.Abs(drive[len(drive)-1]) {
		t.Fatalf("chronic curve still climbing steeply at horizon: delta %v", lastDelta)
	}
}

func TestTrajectoryScalesWithActivation(t *testing.T) {
	stage := analyticStage()
	times := testTimepoints()
	trajectories, err := stage.Propagate(testSignal(), model.DosingAcute, times, 0.5, backend.NewRecorder())
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	drive := trajectories["drive"]
	anxiety := trajectories["anxiety"]
	for i := range drive {
		if drive[i] == 0 {
			continue
		}
		ratio := anxiety[i] / drive[i]
		if math.Abs(ratio-(-0.6)) > 1e-9 {
			t.Fatalf("trajectories should scale linearly with activation, ratio %v at %d", ratio, i)
		}
	}
}

func TestTrajectoriesFinite(t *testing.T) {
	stage := analyticStage()
	times := testTimepoints()
	for _, dosing := range []model.Dosing{model.DosingAcute, model.DosingChronic} {
		trajectories, err := stage.Propagate(testSignal(), dosing, times, 1.0, backend.NewRecorder())
		if err != nil {
			t.Fatalf("propagate %s: %v", dosing, err)
		}
		for metric, series := range trajectories {
			for i, v := range series {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s/%s non-finite at %d", dosing, metric, i)
				}
			}
		}
	}
}

func TestNumericPathMatchesAnalyticShape(t *testing.T) {
	times := testTimepoints()
	numericStage := New(params.Default().PKPD, backend.NewDetector(map[backend.Stage]backend.Kind{
		backend.StagePKPD: backend.KindSciPy,
	}))
	rec := backend.NewRecorder()
	trajectories, err := numericStage.Propagate(testSignal(), model.DosingChronic, times, 0.5, rec)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if rec.Backends()["pkpd"] != "scipy" {
		t.Fatalf("expected scipy backend, got %v", rec.Backends())
	}

	drive := trajectories["drive"]
	start := 2 * len(drive) / 3
	for i := start + 1; i < len(drive); i++ {
		if drive[i] < drive[i-1]-1e-9 {
			t.Fatalf("numeric chronic curve decayed in final third at index %d", i)
		}
	}
}

func TestHighFidelityFallsBack(t *testing.T) {
	stage := New(params.Default().PKPD, backend.NewDetector(map[backend.Stage]backend.Kind{
		backend.StagePKPD: backend.KindHighFidelity,
	}))
	rec := backend.NewRecorder()
	_, err := stage.Propagate(testSignal(), model.DosingAcute, testTimepoints(), 0.5, rec)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	used := rec.Backends()["pkpd"]
	if used == string(backend.KindHighFidelity) {
		t.Skip("PBPK solver compiled in; fallback not exercised")
	}
	if rec.Fallbacks()["pkpd"] == "" {
		t.Fatal("fallback reason must be recorded")
	}
}

func TestPVTWeightRaisesBioavailability(t *testing.T) {
	stage := analyticStage()
	times := testTimepoints()
	low, err := stage.Propagate(testSignal(), model.DosingChronic, times, 0.0, backend.NewRecorder())
	if err != nil {
		t.Fatalf("propagate low: %v", err)
	}
	high, err := stage.Propagate(testSignal(), model.DosingChronic, times, 1.0, backend.NewRecorder())
	if err != nil {
		t.Fatalf("propagate high: %v", err)
	}
	last := len(times) - 1
	if high["drive"][last] <= low["drive"][last] {
		t.Fatal("higher pvt weight should raise exposure")
	}
}
