// Package neuropharm is the public entry point for the simulation core:
// a Client owning the evidence store, the parameter set and the pipeline
// engine, with run artifacts persisted under a runs directory.
package neuropharm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"neuropharm/internal/engine"
	"neuropharm/internal/evidence"
	"neuropharm/internal/model"
	"neuropharm/internal/params"
	"neuropharm/internal/registry"
	"neuropharm/internal/report"
)

const (
	defaultRunsDir = "runs"
	defaultDBPath  = "neuropharm.db"
)

// Options configures a Client. Zero values select the in-memory store,
// the calibrated defaults (plus NEUROPHARM_PARAMS overrides) and a NOP
// logger.
type Options struct {
	StoreKind string
	DBPath    string
	RunsDir   string
	Workers   int
	Logger    *zap.Logger
}

// Client is safe for concurrent use once constructed.
type Client struct {
	store   evidence.Store
	aliases *evidence.AliasResolver
	engine  *engine.Engine
	runsDir string
}

// ReceptorItem is one catalogue row for listing.
type ReceptorItem struct {
	ID          string
	Description string
	Weights     map[string]float64
}

// RunsRequest limits a run-index listing.
type RunsRequest struct {
	Limit int
}

// RunItem is one persisted run, newest first.
type RunItem struct {
	RunID        string
	Dosing       string
	Receptors    int
	Fallbacks    int
	CreatedAtUTC string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = evidence.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}

	store, err := evidence.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	aliases, err := evidence.NewAliasResolver(nil)
	if err != nil {
		return nil, err
	}
	p, err := params.Load()
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(engine.Config{
		Params:  p,
		Store:   store,
		Logger:  opts.Logger,
		Workers: opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		aliases: aliases,
		engine:  eng,
		runsDir: runsDir,
	}, nil
}

func (c *Client) Close() error {
	return evidence.CloseIfSupported(c.store)
}

// Init prepares the evidence store (creates tables for the sqlite kind).
func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Simulate runs one request and persists its artifacts.
func (c *Client) Simulate(ctx context.Context, req model.SimulationRequest) (model.SimulationResult, error) {
	result, err := c.engine.Simulate(ctx, req)
	if err != nil {
		return model.SimulationResult{}, err
	}
	if err := c.persist(req, result); err != nil {
		return model.SimulationResult{}, err
	}
	return result, nil
}

// SimulateBatch runs independent requests on the engine's worker pool
// and persists every result.
func (c *Client) SimulateBatch(ctx context.Context, requests []model.SimulationRequest) ([]model.SimulationResult, error) {
	results, err := c.engine.SimulateBatch(ctx, requests)
	if err != nil {
		return nil, err
	}
	for i, result := range results {
		if err := c.persist(requests[i], result); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Receptors lists the catalogue in sorted order.
func (c *Client) Receptors() []ReceptorItem {
	ids := registry.IDs()
	out := make([]ReceptorItem, 0, len(ids))
	for _, id := range ids {
		entry, ok := registry.Lookup(id)
		if !ok {
			continue
		}
		weights := make(map[string]float64, len(entry.Weights))
		for metric, w := range entry.Weights {
			weights[metric] = w
		}
		out = append(out, ReceptorItem{
			ID:          entry.ID,
			Description: entry.Description,
			Weights:     weights,
		})
	}
	return out
}

// ImportEvidence bulk-loads a YAML or JSON evidence file, canonicalizing
// subjects through the alias closure.
func (c *Client) ImportEvidence(ctx context.Context, path string) (evidence.ImportSummary, error) {
	return evidence.ImportFile(ctx, c.store, c.aliases, path)
}

// Evidence lists stored records for a receptor, accepting alias
// spellings of the subject.
func (c *Client) Evidence(ctx context.Context, subject string) ([]model.EvidenceRecord, error) {
	return c.store.FindEvidence(ctx, c.aliases.Canonical(subject), "")
}

// Runs lists persisted runs, newest first.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := report.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			Dosing:       e.Dosing,
			Receptors:    e.Receptors,
			Fallbacks:    e.Fallbacks,
			CreatedAtUTC: e.CreatedAtUTC,
		})
	}
	return out, nil
}

// Backends reports which solver tier each stage will attempt first.
func (c *Client) Backends() map[string]string {
	return c.engine.Backends()
}

func (c *Client) persist(req model.SimulationRequest, result model.SimulationResult) error {
	if _, err := report.WriteRunArtifacts(c.runsDir, report.RunArtifacts{
		Request: req,
		Result:  result,
	}); err != nil {
		return err
	}
	return report.AppendRunIndex(c.runsDir, report.RunIndexEntry{
		RunID:        result.RunID,
		Dosing:       string(req.Dosing),
		Receptors:    len(req.Receptors),
		Fallbacks:    result.Engine.FallbackCount(),
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
	})
}
