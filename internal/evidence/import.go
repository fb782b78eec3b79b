package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"neuropharm/internal/model"
	"neuropharm/internal/registry"
)

// ImportSummary reports what a bulk import did.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

type importFile struct {
	Records []model.EvidenceRecord `json:"records" yaml:"records"`
}

// ImportFile loads evidence records from a YAML or JSON file into the
// store. Subjects are canonicalized through the alias closure so records
// keyed by gene symbols land under engine receptor names. Records with
// out-of-range confidence or uncertainty are skipped with a warning
// rather than aborting the import.
func ImportFile(ctx context.Context, store Store, resolver *AliasResolver, path string) (ImportSummary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("read evidence file: %w", err)
	}

	var file importFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &file); err != nil {
			return ImportSummary{}, fmt.Errorf("parse evidence file %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return ImportSummary{}, fmt.Errorf("parse evidence file %s: %w", path, err)
		}
	}

	var summary ImportSummary
	for i, record := range file.Records {
		if record.Subject == "" || record.Object == "" {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("record %d: missing subject or object", i))
			continue
		}
		if record.Confidence < 0 || record.Confidence > 1 || record.Uncertainty < 0 || record.Uncertainty > 1 {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("record %d (%s): confidence/uncertainty out of [0,1]", i, record.Subject))
			continue
		}
		subject := record.Subject
		if resolver != nil {
			subject = resolver.Canonical(subject)
		} else {
			subject = registry.Canonical(subject)
		}
		record.Subject = subject
		record = Stamp(record)
		if err := store.SaveEvidence(ctx, record); err != nil {
			return summary, fmt.Errorf("save evidence %s: %w", record.Key(), err)
		}
		summary.Imported++
	}
	return summary, nil
}
