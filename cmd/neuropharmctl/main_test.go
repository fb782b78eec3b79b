package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"neuropharm/internal/model"
	"neuropharm/internal/registry"
)

func TestRunRequiresCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), nil, &out)
	if err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"frobnicate"}, &out)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestSimulateCommandWritesResultAndArtifacts(t *testing.T) {
	runsDir := filepath.Join(t.TempDir(), "runs")

	var out bytes.Buffer
	args := []string{
		"simulate",
		"-store", "memory",
		"-runs-dir", runsDir,
		"-receptor", "5-HT1A",
		"-occupancy", "0.7",
		"-mechanism", "agonist",
		"-dosing", "chronic",
		"-pvt-weight", "0.5",
	}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("simulate command: %v", err)
	}

	var result model.SimulationResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id")
	}
	for _, label := range registry.ReportedNames {
		if _, ok := result.Scores[label]; !ok {
			t.Fatalf("missing score for %s: %v", label, result.Scores)
		}
	}

	scoresPath := filepath.Join(runsDir, result.RunID, "scores.json")
	if _, err := os.Stat(scoresPath); err != nil {
		t.Fatalf("expected persisted scores at %s: %v", scoresPath, err)
	}
}

func TestSimulateCommandRequiresRequestOrReceptor(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"simulate", "-store", "memory"}, &out)
	if err == nil || !strings.Contains(err.Error(), "simulate requires") {
		t.Fatalf("expected flag requirement error, got %v", err)
	}
}

func TestBatchCommandReportsEveryRun(t *testing.T) {
	workdir := t.TempDir()
	runsDir := filepath.Join(workdir, "runs")
	requestsPath := filepath.Join(workdir, "requests.json")

	content := `[
  {"receptors": {"5-HT1A": {"occupancy": 0.6, "mechanism": "agonist"}}, "dosing": "acute"},
  {"receptors": {"5-HT2A": {"occupancy": 0.4, "mechanism": "antagonist"}}, "dosing": "chronic", "pvt_weight": 0.3}
]`
	if err := os.WriteFile(requestsPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write requests: %v", err)
	}

	var out bytes.Buffer
	args := []string{"batch", "-store", "memory", "-runs-dir", runsDir, "-requests", requestsPath}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("batch command: %v", err)
	}

	var results []model.SimulationResult
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RunID == results[1].RunID {
		t.Fatalf("expected distinct run ids, got %s twice", results[0].RunID)
	}
}

func TestReceptorsCommandListsRegistry(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"receptors", "-store", "memory"}, &out); err != nil {
		t.Fatalf("receptors command: %v", err)
	}
	listing := out.String()
	for _, id := range []string{"5-HT1A", "MOR", "TRKB"} {
		if !strings.Contains(listing, id) {
			t.Fatalf("expected %s in listing:\n%s", id, listing)
		}
	}
}

func TestEvidenceImportAndQuery(t *testing.T) {
	workdir := t.TempDir()
	evidencePath := filepath.Join(workdir, "evidence.yaml")
	content := `records:
  - subject: HTR1A
    predicate: affects
    object: anxiety
    confidence: 0.8
    uncertainty: 0.2
    sources: [pmid:1, pmid:2]
`
	if err := os.WriteFile(evidencePath, []byte(content), 0o644); err != nil {
		t.Fatalf("write evidence file: %v", err)
	}

	var importOut bytes.Buffer
	args := []string{"evidence-import", "-store", "memory", "-file", evidencePath}
	if err := run(context.Background(), args, &importOut); err != nil {
		t.Fatalf("evidence-import command: %v", err)
	}
	if !strings.Contains(importOut.String(), "imported=1") {
		t.Fatalf("unexpected import summary: %s", importOut.String())
	}
}

func TestRunsCommandListsNothingForFreshDir(t *testing.T) {
	runsDir := filepath.Join(t.TempDir(), "runs")

	var out bytes.Buffer
	args := []string{"runs", "-store", "memory", "-runs-dir", runsDir, "-limit", "5"}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if strings.TrimSpace(out.String()) != "" {
		t.Fatalf("expected empty listing, got %q", out.String())
	}
}

func TestBackendsCommandReportsAllStages(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"backends", "-store", "memory"}, &out); err != nil {
		t.Fatalf("backends command: %v", err)
	}
	for _, stage := range []string{"molecular=", "pkpd=", "circuit="} {
		if !strings.Contains(out.String(), stage) {
			t.Fatalf("expected %s in output:\n%s", stage, out.String())
		}
	}
}
