package model

import "fmt"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version" yaml:"schema_version"`
	CodecVersion  int `json:"codec_version" yaml:"codec_version"`
}

// Mechanism is the pharmacological action type of a receptor engagement.
type Mechanism string

const (
	MechanismAgonist    Mechanism = "agonist"
	MechanismAntagonist Mechanism = "antagonist"
	MechanismPartial    Mechanism = "partial"
	MechanismInverse    Mechanism = "inverse"
)

// ParseMechanism validates a mechanism name.
func ParseMechanism(raw string) (Mechanism, error) {
	switch Mechanism(raw) {
	case MechanismAgonist, MechanismAntagonist, MechanismPartial, MechanismInverse:
		return Mechanism(raw), nil
	default:
		return "", fmt.Errorf("unsupported mechanism: %q", raw)
	}
}

// Dosing selects the exposure regimen for a simulation run.
type Dosing string

const (
	DosingAcute   Dosing = "acute"
	DosingChronic Dosing = "chronic"
)

// ParseDosing validates a dosing regimen name.
func ParseDosing(raw string) (Dosing, error) {
	switch Dosing(raw) {
	case DosingAcute, DosingChronic:
		return Dosing(raw), nil
	default:
		return "", fmt.Errorf("unsupported dosing regimen: %q", raw)
	}
}

// ReceptorSpec describes one receptor engagement in a simulation request.
type ReceptorSpec struct {
	ReceptorID string    `json:"receptor_id"`
	Occupancy  float64   `json:"occupancy"`
	Mechanism  Mechanism `json:"mechanism"`
}

// AssumptionSet is the immutable collection of model assumption toggles.
// Each toggle multiplies specific circuit edge weights (or, for the acute
// 5-HT1A clamp, dampens the molecular initial condition); none of them
// changes graph topology.
type AssumptionSet struct {
	Acute1AClamp           bool `json:"acute_1a_clamp"`
	ADHDCohort             bool `json:"adhd_cohort"`
	GutBias                bool `json:"gut_bias"`
	TrkBFacilitation       bool `json:"trkB_facilitation"`
	Alpha2AHCNClosure      bool `json:"alpha2a_hcn_closure"`
	MuOpioidBonding        bool `json:"mu_opioid_bonding"`
	A2AD2Heteromer         bool `json:"a2a_d2_heteromer"`
	Alpha2CGate            bool `json:"alpha2c_gate"`
	BLACholinergicSalience bool `json:"bla_cholinergic_salience"`
	OxytocinProsocial      bool `json:"oxytocin_prosocial"`
	VasopressinGating      bool `json:"vasopressin_gating"`
}

// ParseAssumptions builds an AssumptionSet from toggle names. Unknown
// toggle names are rejected so callers cannot silently misspell one.
func ParseAssumptions(toggles map[string]bool) (AssumptionSet, error) {
	var set AssumptionSet
	for name, enabled := range toggles {
		switch name {
		case "acute_1a_clamp":
			set.Acute1AClamp = enabled
		case "adhd_cohort":
			set.ADHDCohort = enabled
		case "gut_bias":
			set.GutBias = enabled
		case "trkB_facilitation":
			set.TrkBFacilitation = enabled
		case "alpha2a_hcn_closure":
			set.Alpha2AHCNClosure = enabled
		case "a2a_d2_heteromer":
			set.A2AD2Heteromer = enabled
		case "mu_opioid_bonding":
			set.MuOpioidBonding = enabled
		case "alpha2c_gate":
			set.Alpha2CGate = enabled
		case "bla_cholinergic_salience":
			set.BLACholinergicSalience = enabled
		case "oxytocin_prosocial":
			set.OxytocinProsocial = enabled
		case "vasopressin_gating":
			set.VasopressinGating = enabled
		default:
			return AssumptionSet{}, fmt.Errorf("unrecognized assumption toggle: %q", name)
		}
	}
	return set, nil
}

// SimulationRequest is the caller-owned top level input. It is treated as
// immutable once validated.
type SimulationRequest struct {
	Receptors   map[string]ReceptorSpec `json:"receptors"`
	Dosing      Dosing                  `json:"dosing"`
	Assumptions AssumptionSet           `json:"assumptions"`
	PVTWeight   float64                 `json:"pvt_weight"`
}

// EvidenceRecord is a knowledge-graph statement linking a receptor to an
// outcome. The simulation core reads these and never mutates them.
// Confidence and Uncertainty are independently estimated; Uncertainty is
// not 1-Confidence.
type EvidenceRecord struct {
	VersionedRecord `yaml:",inline"`
	Subject         string   `json:"subject" yaml:"subject"`
	Predicate       string   `json:"predicate" yaml:"predicate"`
	Object          string   `json:"object" yaml:"object"`
	Confidence      float64  `json:"confidence" yaml:"confidence"`
	Uncertainty     float64  `json:"uncertainty" yaml:"uncertainty"`
	Sources         []string `json:"sources" yaml:"sources"`
}

// Key identifies a record for upsert purposes.
func (r EvidenceRecord) Key() string {
	return r.Subject + "|" + r.Predicate + "|" + r.Object
}

// EffectiveWeight is the per-run, per-(receptor, metric) contribution
// derived from the registry baseline, mechanism, occupancy and evidence.
type EffectiveWeight struct {
	ReceptorID  string   `json:"receptor_id"`
	MetricID    string   `json:"metric_id"`
	Weight      float64  `json:"weight"`
	Uncertainty float64  `json:"uncertainty"`
	SourceCount int      `json:"source_count"`
	Sources     []string `json:"sources,omitempty"`
	Note        string   `json:"note,omitempty"`
}

// ModuleTimeline is one circuit module's simulated activity.
type ModuleTimeline struct {
	Description string    `json:"description"`
	Timeline    []float64 `json:"timeline"`
}

// ReceptorContext summarises per-receptor resolution diagnostics.
type ReceptorContext struct {
	Uncertainty float64 `json:"uncertainty"`
	Note        string  `json:"note,omitempty"`
}

// SimulationDetails carries the time-resolved intermediate outputs.
type SimulationDetails struct {
	Timepoints      []float64                  `json:"timepoints"`
	Trajectories    map[string][]float64       `json:"trajectories"`
	Modules         map[string]ModuleTimeline  `json:"modules"`
	ReceptorContext map[string]ReceptorContext `json:"receptor_context"`
}

// EngineDiagnostics reports which backend served each stage and, when a
// higher-fidelity backend failed, why the stage fell back.
type EngineDiagnostics struct {
	Backends  map[string]string `json:"backends"`
	Fallbacks map[string]string `json:"fallbacks,omitempty"`
}

// FallbackCount reports how many stages degraded below their requested
// solver tier. The "notes" entry carries free-form diagnostics, not a
// stage fallback.
func (d EngineDiagnostics) FallbackCount() int {
	n := 0
	for stage := range d.Fallbacks {
		if stage != "notes" {
			n++
		}
	}
	return n
}

// SimulationResult is freshly allocated per call; nothing in it is shared
// across requests.
type SimulationResult struct {
	RunID       string              `json:"run_id"`
	Scores      map[string]float64  `json:"scores"`
	Uncertainty map[string]float64  `json:"uncertainty"`
	Confidence  map[string]float64  `json:"confidence"`
	Citations   map[string][]string `json:"citations"`
	Details     SimulationDetails   `json:"details"`
	Engine      EngineDiagnostics   `json:"engine"`
}
