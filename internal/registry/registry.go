// Package registry holds the static receptor catalogue: baseline metric
// weights, binding parameters and name canonicalization. The catalogue is
// read-only at runtime; evidence adjusts the weights per run without
// mutating these tables.
package registry

import (
	"sort"
	"strings"
)

// Metric identifiers used throughout the pipeline. Order matters for
// deterministic iteration.
const (
	MetricDrive       = "drive"
	MetricApathy      = "apathy"
	MetricMotivation  = "motivation"
	MetricFlexibility = "cognitive_flexibility"
	MetricAnxiety     = "anxiety"
	MetricSleep       = "sleep_quality"
	MetricSocial      = "social_affiliation"
	MetricExploration = "exploration"
	MetricSalience    = "salience"
)

// Metrics lists every behavioural metric in canonical order.
var Metrics = []string{
	MetricDrive,
	MetricApathy,
	MetricMotivation,
	MetricFlexibility,
	MetricAnxiety,
	MetricSleep,
	MetricSocial,
	MetricExploration,
	MetricSalience,
}

// ReportedNames maps metric identifiers to the labels used in results.
var ReportedNames = map[string]string{
	MetricDrive:       "DriveInvigoration",
	MetricApathy:      "ApathyBlunting",
	MetricMotivation:  "Motivation",
	MetricFlexibility: "CognitiveFlexibility",
	MetricAnxiety:     "Anxiety",
	MetricSleep:       "SleepQuality",
	MetricSocial:      "SocialAffiliation",
	MetricExploration: "Exploration",
	MetricSalience:    "SalienceTagging",
}

// Entry describes one receptor in the catalogue. KiNM and Expression are
// zero for composite nodes that lack binding parameters; affinity scaling
// then defaults to neutral.
type Entry struct {
	ID            string
	Description   string
	Weights       map[string]float64
	KiNM          float64
	Expression    float64
	RegionWeights map[string]float64
	// InverseEfficacy scales the inverse-agonist multiplier for receptors
	// with unusual constitutive activity. Zero defers to the configured
	// default.
	InverseEfficacy float64
}

var entries = map[string]Entry{
	"5-HT2C": {
		ID:          "5-HT2C",
		Description: "Gq-coupled receptor; activation reduces dopamine burst firing via VTA GABA interneurons and raises effort cost.",
		Weights: map[string]float64{
			MetricDrive: -0.4, MetricApathy: 0.5, MetricMotivation: -0.3,
			MetricFlexibility: -0.2, MetricAnxiety: 0.4, MetricSleep: -0.1,
			MetricSocial: -0.25, MetricExploration: -0.4, MetricSalience: 0.18,
		},
		KiNM: 4.5, Expression: 0.7,
		RegionWeights: map[string]float64{"striatum": -0.4, "vta": -0.25},
		// High constitutive activity; inverse agonists bite harder here.
		InverseEfficacy: 1.5,
	},
	"5-HT1B": {
		ID:          "5-HT1B",
		Description: "Gi/o heteroreceptor; presynaptic filter for glutamate and GABA inputs, dampening phasic drive.",
		Weights: map[string]float64{
			MetricDrive: -0.3, MetricApathy: 0.2, MetricMotivation: -0.1,
			MetricFlexibility: 0.0, MetricAnxiety: 0.1, MetricSleep: 0.0,
			MetricSocial: -0.05, MetricExploration: -0.2, MetricSalience: 0.15,
		},
		KiNM: 3.0, Expression: 0.65,
		RegionWeights: map[string]float64{"striatum": -0.3, "vta": -0.2},
	},
	"5-HT2A": {
		ID:          "5-HT2A",
		Description: "Gq-coupled cortical receptor; acute activation enhances glutamatergic output and plasticity.",
		Weights: map[string]float64{
			MetricDrive: 0.1, MetricApathy: -0.1, MetricMotivation: 0.2,
			MetricFlexibility: 0.4, MetricAnxiety: 0.3, MetricSleep: -0.2,
			MetricSocial: 0.05, MetricExploration: 0.3, MetricSalience: 0.35,
		},
		KiNM: 2.0, Expression: 0.8,
		RegionWeights: map[string]float64{"pfc": 0.45, "hippocampus": 0.2},
	},
	"5-HT3": {
		ID:          "5-HT3",
		Description: "Ionotropic cation channel on interneurons; fast inhibitory currents, linked to nausea and cognitive fog.",
		Weights: map[string]float64{
			MetricDrive: -0.1, MetricApathy: 0.2, MetricMotivation: -0.1,
			MetricFlexibility: -0.2, MetricAnxiety: 0.2, MetricSleep: -0.3,
			MetricSocial: -0.15, MetricExploration: -0.25, MetricSalience: 0.22,
		},
		KiNM: 8.0, Expression: 0.5,
		RegionWeights: map[string]float64{"pfc": -0.3, "amygdala": 0.25},
	},
	"5-HT7": {
		ID:          "5-HT7",
		Description: "Gs-coupled receptor enriched in thalamus, hippocampus and PFC; regulates circadian phase and pattern separation.",
		Weights: map[string]float64{
			MetricDrive: 0.2, MetricApathy: -0.2, MetricMotivation: 0.3,
			MetricFlexibility: 0.3, MetricAnxiety: 0.1, MetricSleep: 0.3,
			MetricSocial: 0.15, MetricExploration: 0.25, MetricSalience: 0.1,
		},
		KiNM: 6.0, Expression: 0.6,
		RegionWeights: map[string]float64{"thalamus": 0.4, "hippocampus": 0.3},
	},
	"5-HT1A": {
		ID:          "5-HT1A",
		Description: "Gi/o coupled raphe autoreceptor and postsynaptic cortical receptor; agonism reduces anxiety and releases cortical inhibition.",
		Weights: map[string]float64{
			MetricDrive: 0.2, MetricApathy: -0.2, MetricMotivation: 0.1,
			MetricFlexibility: 0.1, MetricAnxiety: -0.4, MetricSleep: 0.2,
			MetricSocial: 0.25, MetricExploration: 0.18, MetricSalience: -0.12,
		},
		KiNM: 1.4, Expression: 0.9,
		RegionWeights: map[string]float64{"pfc": -0.2, "hippocampus": 0.3, "amygdala": -0.25},
	},
	"MT2": {
		ID:          "MT2",
		Description: "Gi/o coupled melatonin receptor; synchronises circadian rhythms, agonism improves sleep architecture.",
		Weights: map[string]float64{
			MetricDrive: 0.1, MetricApathy: -0.2, MetricMotivation: 0.1,
			MetricFlexibility: 0.1, MetricAnxiety: -0.1, MetricSleep: 0.4,
			MetricSocial: 0.05, MetricExploration: 0.05, MetricSalience: -0.05,
		},
		KiNM: 12.0, Expression: 0.4,
		RegionWeights: map[string]float64{"thalamus": 0.5, "hippocampus": 0.2},
	},
	"MOR": {
		ID:          "MOR",
		Description: "Mu-opioid receptor; hedonic hotspot engagement promotes social bonding, warmth and motivation.",
		Weights: map[string]float64{
			MetricDrive: 0.35, MetricApathy: -0.45, MetricMotivation: 0.4,
			MetricFlexibility: 0.1, MetricAnxiety: -0.3, MetricSleep: 0.15,
			MetricSocial: 0.6, MetricExploration: 0.2, MetricSalience: -0.05,
		},
	},
	"MOR-BONDING": {
		ID:          "MOR-BONDING",
		Description: "Composite node for mu-opioid driven social bonding with downstream oxytocin and enkephalin release.",
		Weights: map[string]float64{
			MetricDrive: 0.25, MetricApathy: -0.4, MetricMotivation: 0.3,
			MetricFlexibility: 0.08, MetricAnxiety: -0.32, MetricSleep: 0.12,
			MetricSocial: 0.75, MetricExploration: 0.22, MetricSalience: -0.08,
		},
	},
	"A2A": {
		ID:          "A2A",
		Description: "Striatal adenosine A2A receptor; dampens D2 signalling and raises effort cost.",
		Weights: map[string]float64{
			MetricDrive: -0.2, MetricApathy: 0.3, MetricMotivation: -0.25,
			MetricFlexibility: 0.1, MetricAnxiety: 0.05, MetricSleep: -0.05,
			MetricSocial: -0.1, MetricExploration: -0.2, MetricSalience: 0.15,
		},
	},
	"A2A-D2": {
		ID:          "A2A-D2",
		Description: "A2A-D2 heteromer integrating adenosine and dopamine tone; stabilises motivational gating in ventral striatum.",
		Weights: map[string]float64{
			MetricDrive: 0.25, MetricApathy: -0.25, MetricMotivation: 0.3,
			MetricFlexibility: 0.15, MetricAnxiety: -0.1, MetricSleep: 0.05,
			MetricSocial: 0.2, MetricExploration: 0.35, MetricSalience: 0.28,
		},
	},
	"A2A-D2-HETEROMER": {
		ID:          "A2A-D2-HETEROMER",
		Description: "Composite ventral striatal A2A-D2 heteromer node; emphasises exploration bias and salience weighting via DARPP-32 cascades.",
		Weights: map[string]float64{
			MetricDrive: 0.28, MetricApathy: -0.28, MetricMotivation: 0.34,
			MetricFlexibility: 0.2, MetricAnxiety: -0.12, MetricSleep: 0.08,
			MetricSocial: 0.18, MetricExploration: 0.42, MetricSalience: 0.34,
		},
	},
	"ACH-BLA": {
		ID:          "ACH-BLA",
		Description: "Basolateral amygdala cholinergic burst; heightens cue salience and social relevance learning.",
		Weights: map[string]float64{
			MetricDrive: 0.1, MetricApathy: -0.1, MetricMotivation: 0.2,
			MetricFlexibility: 0.15, MetricAnxiety: 0.18, MetricSleep: -0.05,
			MetricSocial: 0.12, MetricExploration: 0.05, MetricSalience: 0.45,
		},
	},
	"OXTR": {
		ID:          "OXTR",
		Description: "Oxytocin receptor; facilitates social bonding, trust and affiliation in limbic-prefrontal loops.",
		Weights: map[string]float64{
			MetricDrive: 0.05, MetricApathy: -0.1, MetricMotivation: 0.15,
			MetricFlexibility: 0.05, MetricAnxiety: -0.25, MetricSleep: 0.05,
			MetricSocial: 0.55, MetricExploration: 0.1, MetricSalience: 0.12,
		},
	},
	"AVPR1A": {
		ID:          "AVPR1A",
		Description: "Arginine vasopressin 1A receptor; heightens threat surveillance while coupling to social dominance circuits.",
		Weights: map[string]float64{
			MetricDrive: 0.08, MetricApathy: -0.06, MetricMotivation: 0.1,
			MetricFlexibility: -0.05, MetricAnxiety: 0.32, MetricSleep: -0.05,
			MetricSocial: 0.18, MetricExploration: -0.12, MetricSalience: 0.28,
		},
	},
	"TRKB": {
		ID:          "TRKB",
		Description: "TrkB (NTRK2) neurotrophin receptor; supports BDNF-dependent plasticity and rapid antidepressant responses.",
		Weights: map[string]float64{
			MetricDrive: 0.3, MetricApathy: -0.35, MetricMotivation: 0.35,
			MetricFlexibility: 0.25, MetricAnxiety: -0.2, MetricSleep: 0.15,
			MetricSocial: 0.32, MetricExploration: 0.22, MetricSalience: 0.18,
		},
	},
	"ADRA2A": {
		ID:          "ADRA2A",
		Description: "Alpha-2A adrenergic receptor; engages PFC HCN channel closure to stabilise working memory and top-down control.",
		Weights: map[string]float64{
			MetricDrive: 0.05, MetricApathy: -0.22, MetricMotivation: 0.18,
			MetricFlexibility: 0.35, MetricAnxiety: -0.18, MetricSleep: 0.1,
			MetricSocial: 0.12, MetricExploration: -0.28, MetricSalience: -0.08,
		},
	},
	"ADRA2C": {
		ID:          "ADRA2C",
		Description: "Alpha-2C adrenergic receptor; cortico-striatal gate tightening thalamo-cortical gain during stress states.",
		Weights: map[string]float64{
			MetricDrive: 0.08, MetricApathy: -0.18, MetricMotivation: 0.16,
			MetricFlexibility: 0.28, MetricAnxiety: -0.22, MetricSleep: 0.12,
			MetricSocial: 0.1, MetricExploration: -0.22, MetricSalience: -0.05,
		},
	},
}

var staticAliases = map[string]string{
	"NTRK2":           "TRKB",
	"TRKB":            "TRKB",
	"BDNFR":           "TRKB",
	"ADRA2A":          "ADRA2A",
	"ALPHA2A":         "ADRA2A",
	"ADRENALPHA2A":    "ADRA2A",
	"MUOPIOIDBONDING": "MOR-BONDING",
	"MORBONDED":       "MOR-BONDING",
	"A2AD2HETEROMER":  "A2A-D2-HETEROMER",
	"ADRA2C":          "ADRA2C",
	"ALPHA2C":         "ADRA2C",
	"ALPHA2CGATE":     "ADRA2C",
	"ACHBLA":          "ACH-BLA",
}

// Lookup returns the catalogue entry for a canonical receptor identifier.
func Lookup(id string) (Entry, bool) {
	e, ok := entries[id]
	return e, ok
}

// IDs returns all canonical receptor identifiers in sorted order.
func IDs() []string {
	out := make([]string, 0, len(entries))
	for id := range entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Canonical normalizes a receptor name to its catalogue identifier.
// Unknown names are returned upper-cased so that callers can surface them
// in diagnostics without losing the original token.
func Canonical(name string) string {
	raw := strings.ToUpper(strings.TrimSpace(name))
	if _, ok := entries[raw]; ok {
		return raw
	}

	compact := strings.NewReplacer(" ", "", "_", "").Replace(raw)
	if _, ok := entries[compact]; ok {
		return compact
	}

	if strings.HasPrefix(compact, "5HT") {
		compact = "5-HT" + compact[3:]
	} else if strings.HasPrefix(compact, "HTR") {
		candidate := "5-HT" + compact[3:]
		if _, ok := entries[candidate]; ok {
			return candidate
		}
	}
	compact = strings.ReplaceAll(compact, "--", "-")
	if _, ok := entries[compact]; ok {
		return compact
	}

	noDash := strings.ReplaceAll(compact, "-", "")
	if target, ok := staticAliases[noDash]; ok {
		if _, known := entries[target]; known {
			return target
		}
	}
	for canon := range entries {
		if noDash == strings.ReplaceAll(canon, "-", "") {
			return canon
		}
	}
	return raw
}

// Known reports whether an identifier (after canonicalization) is in the
// catalogue.
func Known(name string) bool {
	_, ok := entries[Canonical(name)]
	return ok
}

// AffinityScale converts a binding constant to a 0..1 potency multiplier.
// Entries without binding data scale neutrally.
func AffinityScale(e Entry) float64 {
	if e.KiNM <= 0 {
		return 1.0
	}
	return 1.0 / (1.0 + e.KiNM/10.0)
}
