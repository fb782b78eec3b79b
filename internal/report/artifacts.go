// Package report persists simulation runs as JSON artifacts under a runs
// directory and maintains a newest-first run index for listing.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"neuropharm/internal/model"
)

const runIndexFile = "run_index.json"

// RunArtifacts bundles everything written for one simulation run.
type RunArtifacts struct {
	Request model.SimulationRequest `json:"request"`
	Result  model.SimulationResult  `json:"result"`
}

// RunIndexEntry is one row of the run index.
type RunIndexEntry struct {
	RunID        string `json:"run_id"`
	Dosing       string `json:"dosing"`
	Receptors    int    `json:"receptors"`
	Fallbacks    int    `json:"fallbacks"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// WriteRunArtifacts writes the run's request, scores and time-resolved
// details into baseDir/<run_id>/ and returns the run directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Result.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Result.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "request.json"), artifacts.Request); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "scores.json"), map[string]any{
		"scores":      artifacts.Result.Scores,
		"uncertainty": artifacts.Result.Uncertainty,
		"confidence":  artifacts.Result.Confidence,
		"citations":   artifacts.Result.Citations,
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "details.json"), artifacts.Result.Details); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "engine.json"), artifacts.Result.Engine); err != nil {
		return "", err
	}

	return runDir, nil
}

// AppendRunIndex inserts or replaces an index row, matched by run id.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index sorted newest first. A missing index
// file is an empty index, not an error.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ReadRunScores loads the aggregated score payload written for a run.
func ReadRunScores(baseDir, runID string) (map[string]json.RawMessage, bool, error) {
	path := filepath.Join(baseDir, runID, "scores.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
