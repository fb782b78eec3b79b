// Package evidence persists knowledge-graph receptor-outcome statements
// and resolves them into per-run effective weights. The simulation core
// only ever reads through this package; writes happen at ingestion time.
package evidence

import (
	"context"

	"neuropharm/internal/model"
)

// Store defines persistence operations for evidence records. FindEvidence
// with an empty predicate returns every record for the subject.
type Store interface {
	Init(ctx context.Context) error
	SaveEvidence(ctx context.Context, record model.EvidenceRecord) error
	GetEvidence(ctx context.Context, subject, predicate, object string) (model.EvidenceRecord, bool, error)
	FindEvidence(ctx context.Context, subject, predicate string) ([]model.EvidenceRecord, error)
	ListSubjects(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}
