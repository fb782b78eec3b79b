// Package backend implements the capability detector and the shared
// fallback discipline used by the three simulation stages. Detection
// happens once per process; per-request state lives in a Recorder.
package backend

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Kind names a solver tier, from cheapest to most detailed.
type Kind string

const (
	KindAnalytic     Kind = "analytic"
	KindSciPy        Kind = "scipy"
	KindHighFidelity Kind = "high_fidelity"
)

// Stage names one pipeline stage for diagnostics.
type Stage string

const (
	StageMolecular Stage = "molecular"
	StagePKPD      Stage = "pkpd"
	StageCircuit   Stage = "circuit"
)

// Environment variables read once at detector initialization.
const (
	EnvMolecular = "MOLECULAR_SIM_BACKEND"
	EnvPKPD      = "PKPD_SIM_BACKEND"
	EnvCircuit   = "CIRCUIT_SIM_BACKEND"
)

// ErrUnavailable marks a solver tier that is not compiled into or usable
// by this process.
var ErrUnavailable = errors.New("backend unavailable")

// Detector holds the per-stage requested tier. It is immutable after
// construction, so concurrent reads need no locking.
type Detector struct {
	requested map[Stage]Kind
}

// NewDetector builds a detector from explicit per-stage requests. Unset
// stages default to analytic.
func NewDetector(requested map[Stage]Kind) *Detector {
	d := &Detector{requested: map[Stage]Kind{
		StageMolecular: KindAnalytic,
		StagePKPD:      KindAnalytic,
		StageCircuit:   KindAnalytic,
	}}
	for stage, kind := range requested {
		d.requested[stage] = kind
	}
	return d
}

// FromEnv reads the three *_SIM_BACKEND variables. Unknown values fall
// back to analytic so a typo degrades rather than aborts.
func FromEnv() *Detector {
	read := func(name string) Kind {
		switch Kind(os.Getenv(name)) {
		case KindSciPy:
			return KindSciPy
		case KindHighFidelity:
			return KindHighFidelity
		default:
			return KindAnalytic
		}
	}
	return NewDetector(map[Stage]Kind{
		StageMolecular: read(EnvMolecular),
		StagePKPD:      read(EnvPKPD),
		StageCircuit:   read(EnvCircuit),
	})
}

var (
	defaultOnce sync.Once
	defaultDet  *Detector
)

// Default returns the process-wide detector, initialized lazily from the
// environment on first use.
func Default() *Detector {
	defaultOnce.Do(func() {
		defaultDet = FromEnv()
	})
	return defaultDet
}

// Requested returns the tier a stage should attempt first.
func (d *Detector) Requested(stage Stage) Kind {
	if d == nil {
		return KindAnalytic
	}
	return d.requested[stage]
}

// Chain returns the ordered fallback chain for a stage, highest requested
// tier first and analytic always last.
func (d *Detector) Chain(stage Stage) []Kind {
	switch d.Requested(stage) {
	case KindHighFidelity:
		return []Kind{KindHighFidelity, KindSciPy, KindAnalytic}
	case KindSciPy:
		return []Kind{KindSciPy, KindAnalytic}
	default:
		return []Kind{KindAnalytic}
	}
}

// Recorder accumulates per-request backend diagnostics. It is request
// scoped and not safe for concurrent use.
type Recorder struct {
	backends  map[string]string
	fallbacks map[string]string
	notes     []string
}

// NewRecorder returns an empty diagnostics recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		backends:  map[string]string{},
		fallbacks: map[string]string{},
	}
}

// Used records which tier ultimately served a stage.
func (r *Recorder) Used(stage Stage, kind Kind) {
	r.backends[string(stage)] = string(kind)
}

// Fallback records why a higher tier was skipped for a stage. Multiple
// failures for the same stage are concatenated in order.
func (r *Recorder) Fallback(stage Stage, reason string) {
	key := string(stage)
	if prev, ok := r.fallbacks[key]; ok && prev != "" {
		r.fallbacks[key] = prev + "; " + reason
		return
	}
	r.fallbacks[key] = reason
}

// Note attaches a free-form diagnostic (e.g. an unknown receptor warning).
func (r *Recorder) Note(msg string) {
	r.notes = append(r.notes, msg)
}

// Backends returns a copy of the stage-to-tier map.
func (r *Recorder) Backends() map[string]string {
	out := make(map[string]string, len(r.backends))
	for k, v := range r.backends {
		out[k] = v
	}
	return out
}

// Fallbacks returns a copy of the stage-to-reason map, with notes folded
// in under the "notes" key. Nil when nothing degraded.
func (r *Recorder) Fallbacks() map[string]string {
	if len(r.fallbacks) == 0 && len(r.notes) == 0 {
		return nil
	}
	out := make(map[string]string, len(r.fallbacks)+1)
	for k, v := range r.fallbacks {
		out[k] = v
	}
	if len(r.notes) > 0 {
		sorted := append([]string(nil), r.notes...)
		sort.Strings(sorted)
		joined := sorted[0]
		for _, n := range sorted[1:] {
			joined += "; " + n
		}
		out["notes"] = joined
	}
	return out
}

// FallbackCount reports how many stages degraded below their requested
// tier; used for the uncertainty penalty.
func (r *Recorder) FallbackCount() int {
	return len(r.fallbacks)
}

// Attempt pairs a tier with the function that runs it.
type Attempt struct {
	Kind Kind
	Run  func() error
}

// Execute walks attempts in order until one succeeds, recording the
// winning tier and every skipped tier's reason. The last attempt is the
// analytic floor; if it also fails the error is fatal and returned.
func Execute(stage Stage, rec *Recorder, attempts []Attempt) error {
	if len(attempts) == 0 {
		return fmt.Errorf("stage %s has no backends", stage)
	}
	for i, a := range attempts {
		err := a.Run()
		if err == nil {
			rec.Used(stage, a.Kind)
			return nil
		}
		if i == len(attempts)-1 {
			return fmt.Errorf("stage %s failed on final backend %s: %w", stage, a.Kind, err)
		}
		rec.Fallback(stage, fmt.Sprintf("%s: %v", a.Kind, err))
	}
	return nil
}
