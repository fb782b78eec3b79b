package evidence

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"neuropharm/internal/registry"
)

// graphAliases maps graph-layer identifiers (gene symbols, ingestion
// tokens) to either a catalogue receptor or another alias. Chains are
// legal; the Datalog closure below flattens them.
var graphAliases = map[string]string{
	"HTR1A":   "5-HT1A",
	"HTR1B":   "5-HT1B",
	"HTR2A":   "5-HT2A",
	"HTR2C":   "5-HT2C",
	"HTR3A":   "5-HT3",
	"HTR7":    "5-HT7",
	"MTNR1B":  "MT2",
	"OPRM1":   "MOR",
	"ADORA2A": "A2A",
	"NTRK2":   "TRKB",
	"BDNF":    "NTRK2",
	"OXT":     "OXTR",
	"AVP":     "AVPR1A",
	"ADRA2A":  "ADRA2A",
	"ADRA2C":  "ADRA2C",
}

// AliasResolver answers canonical-name queries for evidence subjects. The
// closure over alias chains is derived once at construction by a small
// Datalog program; lookups afterwards are map reads, safe for concurrent
// use.
type AliasResolver struct {
	canonical map[string]string
}

// NewAliasResolver evaluates the alias closure. extra supplies additional
// ingestion-time aliases (source token -> catalogue name or other alias).
func NewAliasResolver(extra map[string]string) (*AliasResolver, error) {
	var b strings.Builder
	for _, id := range registry.IDs() {
		fmt.Fprintf(&b, "catalog(%q).\n", id)
	}
	writeAlias := func(from, to string) {
		fmt.Fprintf(&b, "alias(%q, %q).\n", strings.ToUpper(from), to)
	}
	for from, to := range graphAliases {
		writeAlias(from, to)
	}
	for from, to := range extra {
		writeAlias(from, to)
	}
	b.WriteString("canonical(X, C) :- alias(X, C), catalog(C).\n")
	b.WriteString("canonical(X, C) :- alias(X, Y), canonical(Y, C).\n")

	unit, err := parse.Unit(strings.NewReader(b.String()))
	if err != nil {
		return nil, fmt.Errorf("parse alias program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze alias program: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if _, err := mengine.EvalProgramWithStats(programInfo, store); err != nil {
		return nil, fmt.Errorf("evaluate alias program: %w", err)
	}

	var sym ast.PredicateSym
	found := false
	for candidate := range programInfo.Decls {
		if candidate.Symbol == "canonical" {
			sym = candidate
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("alias program did not declare canonical/2")
	}
	closure := make(map[string]string)
	err = store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		from, ok1 := stringConstant(atom.Args[0])
		to, ok2 := stringConstant(atom.Args[1])
		if !ok1 || !ok2 {
			return fmt.Errorf("unexpected alias fact shape: %v", atom)
		}
		// Alias chains may derive several targets; keep the first
		// catalogue hit deterministically by preferring the shorter
		// (more direct) canonical name on conflict.
		if prev, exists := closure[from]; !exists || to < prev {
			closure[from] = to
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query alias closure: %w", err)
	}

	return &AliasResolver{canonical: closure}, nil
}

// Canonical resolves a subject token to its catalogue receptor name. The
// Datalog closure is consulted first; anything it does not cover goes
// through the registry's syntactic normalization.
func (r *AliasResolver) Canonical(name string) string {
	token := strings.ToUpper(strings.TrimSpace(name))
	if r != nil {
		if target, ok := r.canonical[token]; ok {
			return target
		}
	}
	return registry.Canonical(name)
}

// Known reports whether a token resolves to a catalogue receptor.
func (r *AliasResolver) Known(name string) bool {
	_, ok := registry.Lookup(r.Canonical(name))
	return ok
}

func stringConstant(term ast.BaseTerm) (string, bool) {
	c, ok := term.(ast.Constant)
	if !ok || c.Type != ast.StringType {
		return "", false
	}
	return c.Symbol, true
}
