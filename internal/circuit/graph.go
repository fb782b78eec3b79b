package circuit

import "neuropharm/internal/model"

// Module identifiers for the fixed behavioural circuit.
const (
	ModulePFC         = "pfc"
	ModuleStriatum    = "striatum"
	ModuleVTA         = "vta"
	ModuleHippocampus = "hippocampus"
	ModuleAmygdala    = "amygdala"
	ModuleThalamus    = "thalamus"
	ModulePVT         = "pvt"
	ModuleGut         = "gut"
)

// Modules lists every circuit module in canonical order.
var Modules = []string{
	ModulePFC,
	ModuleStriatum,
	ModuleVTA,
	ModuleHippocampus,
	ModuleAmygdala,
	ModuleThalamus,
	ModulePVT,
	ModuleGut,
}

// Descriptions label the modules in results.
var Descriptions = map[string]string{
	ModulePFC:         "Prefrontal cortex: executive control and cognitive flexibility.",
	ModuleStriatum:    "Dorsal/ventral striatum: effort gating and reward drive.",
	ModuleVTA:         "Ventral tegmental area: dopaminergic invigoration.",
	ModuleHippocampus: "Hippocampus: pattern separation and exploratory mapping.",
	ModuleAmygdala:    "Amygdala analog: threat appraisal and affective salience.",
	ModuleThalamus:    "Thalamus: sensory relay and sleep architecture.",
	ModulePVT:         "Paraventricular thalamus: salience broadcasting hub.",
	ModuleGut:         "Gut-brain axis: enteric signalling into limbic loops.",
}

// edge is one weighted directed connection.
type edge struct {
	From   string
	To     string
	Weight float64
}

// baseEdges is the fixed topology. Assumption toggles rescale individual
// weights but never add or remove connections.
var baseEdges = []edge{
	{ModulePFC, ModuleStriatum, 0.30},
	{ModulePFC, ModuleHippocampus, 0.20},
	{ModulePFC, ModuleAmygdala, 0.10},
	{ModuleStriatum, ModulePFC, 0.20},
	{ModuleStriatum, ModuleVTA, 0.30},
	{ModuleStriatum, ModuleGut, 0.10},
	{ModuleVTA, ModuleStriatum, 0.25},
	{ModuleHippocampus, ModulePFC, 0.15},
	{ModuleHippocampus, ModuleThalamus, 0.10},
	{ModuleAmygdala, ModulePFC, 0.10},
	{ModuleAmygdala, ModulePVT, 0.20},
	{ModuleThalamus, ModulePFC, 0.05},
	{ModulePVT, ModuleAmygdala, 0.15},
	{ModulePVT, ModuleStriatum, 0.10},
	{ModuleGut, ModuleStriatum, 0.12},
	{ModuleGut, ModuleAmygdala, 0.10},
}

// metricInjection maps each behavioural metric to the modules that carry
// it, with blend weights. The same table is used to inject PK/PD
// trajectories into modules and to read metric trajectories back out.
var metricInjection = map[string]map[string]float64{
	"drive":                 {ModuleStriatum: 0.6, ModuleVTA: 0.4},
	"apathy":                {ModuleStriatum: 0.5, ModulePFC: 0.5},
	"motivation":            {ModuleVTA: 0.6, ModuleStriatum: 0.4},
	"cognitive_flexibility": {ModulePFC: 1.0},
	"anxiety":               {ModuleAmygdala: 0.8, ModuleGut: 0.2},
	"sleep_quality":         {ModuleThalamus: 1.0},
	"social_affiliation":    {ModulePFC: 0.4, ModuleAmygdala: 0.3, ModuleHippocampus: 0.3},
	"exploration":           {ModuleHippocampus: 0.5, ModuleVTA: 0.5},
	"salience":              {ModulePVT: 0.7, ModuleAmygdala: 0.3},
}

// toggleEdgeFactor is one assumption toggle's multiplicative effect on a
// single edge.
type toggleEdgeFactor struct {
	From   string
	To     string
	Factor float64
}

// edgeToggles documents each assumption toggle as pure edge-weight
// modifiers. Facilitation toggles scale above 1, gating toggles below.
func edgeToggles(assumptions model.AssumptionSet) []toggleEdgeFactor {
	var out []toggleEdgeFactor
	if assumptions.TrkBFacilitation {
		out = append(out,
			toggleEdgeFactor{ModuleHippocampus, ModulePFC, 1.35},
			toggleEdgeFactor{ModulePFC, ModuleHippocampus, 1.35},
		)
	}
	if assumptions.Alpha2AHCNClosure {
		out = append(out, toggleEdgeFactor{ModuleThalamus, ModulePFC, 0.75})
	}
	if assumptions.Alpha2CGate {
		out = append(out, toggleEdgeFactor{ModuleAmygdala, ModulePFC, 0.75})
	}
	if assumptions.MuOpioidBonding {
		out = append(out, toggleEdgeFactor{ModuleVTA, ModuleStriatum, 1.30})
	}
	if assumptions.A2AD2Heteromer {
		out = append(out, toggleEdgeFactor{ModuleStriatum, ModuleVTA, 1.25})
	}
	if assumptions.BLACholinergicSalience {
		out = append(out, toggleEdgeFactor{ModuleAmygdala, ModulePVT, 1.40})
	}
	if assumptions.OxytocinProsocial {
		out = append(out, toggleEdgeFactor{ModulePFC, ModuleAmygdala, 1.25})
	}
	if assumptions.VasopressinGating {
		out = append(out, toggleEdgeFactor{ModulePVT, ModuleAmygdala, 1.30})
	}
	if assumptions.GutBias {
		out = append(out,
			toggleEdgeFactor{ModuleGut, ModuleStriatum, 1.30},
			toggleEdgeFactor{ModuleGut, ModuleAmygdala, 1.30},
		)
	}
	if assumptions.ADHDCohort {
		out = append(out,
			toggleEdgeFactor{ModuleVTA, ModuleStriatum, 0.85},
			toggleEdgeFactor{ModuleStriatum, ModuleVTA, 0.85},
		)
	}
	return out
}

// weightMatrix materialises the edge list with toggles applied.
// Indexing follows Modules order: w[from][to].
func weightMatrix(assumptions model.AssumptionSet) [][]float64 {
	index := make(map[string]int, len(Modules))
	for i, m := range Modules {
		index[m] = i
	}
	w := make([][]float64, len(Modules))
	for i := range w {
		w[i] = make([]float64, len(Modules))
	}
	for _, e := range baseEdges {
		w[index[e.From]][index[e.To]] = e.Weight
	}
	for _, tf := range edgeToggles(assumptions) {
		w[index[tf.From]][index[tf.To]] *= tf.Factor
	}
	return w
}
