// Package params centralises the numeric tunables of the simulation
// pipeline. Defaults reproduce the published heuristics; a YAML file named
// by NEUROPHARM_PARAMS overrides individual fields for calibration work.
package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"neuropharm/internal/model"
)

// EnvParamsFile names the environment variable holding an optional YAML
// override file path.
const EnvParamsFile = "NEUROPHARM_PARAMS"

// Scoring controls the mapping from raw aggregated activity to 0..100
// behavioural scores, plus the flat cohort and regimen adjustments
// applied after the tanh mapping.
type Scoring struct {
	Baseline              float64 `yaml:"baseline"`
	Scale                 float64 `yaml:"scale"`
	Slope                 float64 `yaml:"slope"`
	ADHDDrivePenalty      float64 `yaml:"adhd_drive_penalty"`
	ADHDMotivationPenalty float64 `yaml:"adhd_motivation_penalty"`
	GutApathyBonus        float64 `yaml:"gut_apathy_bonus"`
	ChronicSleepBonus     float64 `yaml:"chronic_sleep_bonus"`
}

// Mechanisms sets the signed activation multiplier per ligand mechanism.
// Inverse agonism suppresses constitutive signalling, so its factor is
// InverseBase scaled by the receptor's intrinsic-efficacy constant.
type Mechanisms struct {
	Agonist                float64 `yaml:"agonist"`
	Antagonist             float64 `yaml:"antagonist"`
	Partial                float64 `yaml:"partial"`
	InverseBase            float64 `yaml:"inverse_base"`
	DefaultInverseEfficacy float64 `yaml:"default_inverse_efficacy"`
}

// Factor resolves the multiplier for a mechanism. The efficacy argument
// applies only to inverse agonism; zero or negative selects the default.
func (m Mechanisms) Factor(mech model.Mechanism, efficacy float64) (float64, error) {
	switch mech {
	case model.MechanismAgonist:
		return m.Agonist, nil
	case model.MechanismAntagonist:
		return m.Antagonist, nil
	case model.MechanismPartial:
		return m.Partial, nil
	case model.MechanismInverse:
		if efficacy <= 0 {
			efficacy = m.DefaultInverseEfficacy
		}
		return m.InverseBase * efficacy, nil
	default:
		return 0, fmt.Errorf("unsupported mechanism: %q", mech)
	}
}

// Evidence controls how knowledge-graph records reshape weights.
type Evidence struct {
	MinSourceUncertainty   float64 `yaml:"min_source_uncertainty"`
	NoEvidenceUncertainty  float64 `yaml:"no_evidence_uncertainty"`
	CoverageBonusCap       float64 `yaml:"coverage_bonus_cap"`
	CoverageBonusPerSource float64 `yaml:"coverage_bonus_per_source"`
	ConfidenceFloor        float64 `yaml:"confidence_floor"`
	ConfidenceCeiling      float64 `yaml:"confidence_ceiling"`
}

// Molecular controls the receptor-to-cascade stage.
type Molecular struct {
	TauFastHours     float64 `yaml:"tau_fast_hours"`
	TauSlowHours     float64 `yaml:"tau_slow_hours"`
	ChronicAdaption  float64 `yaml:"chronic_adaptation"`
	UncertaintyFloor float64 `yaml:"uncertainty_floor"`
	UncertaintyGain  float64 `yaml:"uncertainty_gain"`
	Acute1ADamping   float64 `yaml:"acute_1a_damping"`
}

// PKPD controls exposure kinetics.
type PKPD struct {
	AbsorptionHalfHours float64 `yaml:"absorption_half_hours"`
	ClearanceHalfHours  float64 `yaml:"clearance_half_hours"`
	ChronicClearanceMul float64 `yaml:"chronic_clearance_mul"`
	EffectSiteRatio     float64 `yaml:"effect_site_ratio"`
	BioavailBase        float64 `yaml:"bioavail_base"`
	BioavailPVTSpan     float64 `yaml:"bioavail_pvt_span"`
	DoseIntervalHours   float64 `yaml:"dose_interval_hours"`
}

// Circuit controls the network relaxation stage.
type Circuit struct {
	Leak             float64 `yaml:"leak"`
	SaturationSpread float64 `yaml:"saturation_spread"`
	DampingBase      float64 `yaml:"damping_base"`
	DampingSlope     float64 `yaml:"damping_slope"`
	PVTBlend         float64 `yaml:"pvt_blend"`
}

// Params is the full tunable set for one engine instance.
type Params struct {
	HorizonHours    float64    `yaml:"horizon_hours"`
	StepHours       float64    `yaml:"step_hours"`
	FallbackPenalty float64    `yaml:"fallback_penalty"`
	Scoring         Scoring    `yaml:"scoring"`
	Mechanisms      Mechanisms `yaml:"mechanisms"`
	Evidence        Evidence   `yaml:"evidence"`
	Molecular       Molecular  `yaml:"molecular"`
	PKPD            PKPD       `yaml:"pkpd"`
	Circuit         Circuit    `yaml:"circuit"`
}

// Default returns the calibrated baseline parameter set.
func Default() Params {
	return Params{
		HorizonHours:    240,
		StepHours:       10,
		FallbackPenalty: 0.08,
		Scoring: Scoring{
			Baseline:              50,
			Scale:                 50,
			Slope:                 0.4,
			ADHDDrivePenalty:      5,
			ADHDMotivationPenalty: 4,
			GutApathyBonus:        3,
			ChronicSleepBonus:     2,
		},
		Mechanisms: Mechanisms{
			Agonist:                1.0,
			Antagonist:             -1.0,
			Partial:                0.5,
			InverseBase:            -1.0,
			DefaultInverseEfficacy: 1.3,
		},
		Evidence: Evidence{
			MinSourceUncertainty:   0.05,
			NoEvidenceUncertainty:  0.5,
			CoverageBonusCap:       0.25,
			CoverageBonusPerSource: 0.07,
			ConfidenceFloor:        0.05,
			ConfidenceCeiling:      0.95,
		},
		Molecular: Molecular{
			TauFastHours:     45,
			TauSlowHours:     180,
			ChronicAdaption:  1.2,
			UncertaintyFloor: 0.01,
			UncertaintyGain:  0.05,
			Acute1ADamping:   0.75,
		},
		PKPD: PKPD{
			AbsorptionHalfHours: 1.5,
			ClearanceHalfHours:  6,
			ChronicClearanceMul: 1.5,
			EffectSiteRatio:     0.8,
			BioavailBase:        0.5,
			BioavailPVTSpan:     0.25,
			DoseIntervalHours:   24,
		},
		Circuit: Circuit{
			Leak:             0.6,
			SaturationSpread: 3.0,
			DampingBase:      0.1,
			DampingSlope:     0.05,
			PVTBlend:         0.1,
		},
	}
}

// Load returns the defaults merged with the YAML override file named by
// NEUROPHARM_PARAMS, when set. Missing env var is not an error; a named
// file that cannot be read or parsed is.
func Load() (Params, error) {
	p := Default()
	path := os.Getenv(EnvParamsFile)
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parse params file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("params file %s: %w", path, err)
	}
	return p, nil
}

// Validate checks structural sanity of a parameter set.
func (p Params) Validate() error {
	if p.StepHours <= 0 {
		return fmt.Errorf("step_hours must be positive, got %v", p.StepHours)
	}
	if p.HorizonHours < p.StepHours {
		return fmt.Errorf("horizon_hours %v shorter than step_hours %v", p.HorizonHours, p.StepHours)
	}
	if p.Scoring.Scale <= 0 || p.Scoring.Slope <= 0 {
		return fmt.Errorf("scoring scale and slope must be positive")
	}
	if p.Mechanisms.DefaultInverseEfficacy <= 0 {
		return fmt.Errorf("default inverse efficacy must be positive, got %v", p.Mechanisms.DefaultInverseEfficacy)
	}
	if p.PKPD.ClearanceHalfHours <= 0 || p.PKPD.AbsorptionHalfHours <= 0 {
		return fmt.Errorf("pkpd half-lives must be positive")
	}
	if p.Evidence.ConfidenceFloor >= p.Evidence.ConfidenceCeiling {
		return fmt.Errorf("evidence confidence floor must stay below ceiling")
	}
	return nil
}

// Timepoints materialises the simulation time axis in hours.
func (p Params) Timepoints() []float64 {
	n := int(p.HorizonHours/p.StepHours) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * p.StepHours
	}
	return out
}
