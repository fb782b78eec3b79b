package evidence

import (
	"context"
	"sort"
	"sync"

	"neuropharm/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	records     map[string]model.EvidenceRecord
	bySubject   map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.records = make(map[string]model.EvidenceRecord)
	s.bySubject = make(map[string][]string)
	return nil
}

func (s *MemoryStore) SaveEvidence(_ context.Context, record model.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.Key()
	if _, exists := s.records[key]; !exists {
		s.bySubject[record.Subject] = append(s.bySubject[record.Subject], key)
	}
	record.Sources = append([]string(nil), record.Sources...)
	s.records[key] = record
	return nil
}

func (s *MemoryStore) GetEvidence(_ context.Context, subject, predicate, object string) (model.EvidenceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[subject+"|"+predicate+"|"+object]
	if !ok {
		return model.EvidenceRecord{}, false, nil
	}
	return copyRecord(record), true, nil
}

func (s *MemoryStore) FindEvidence(_ context.Context, subject, predicate string) ([]model.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.bySubject[subject]
	out := make([]model.EvidenceRecord, 0, len(keys))
	for _, key := range keys {
		record := s.records[key]
		if predicate != "" && record.Predicate != predicate {
			continue
		}
		out = append(out, copyRecord(record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *MemoryStore) ListSubjects(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.bySubject))
	for subject := range s.bySubject {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records), nil
}

func copyRecord(record model.EvidenceRecord) model.EvidenceRecord {
	record.Sources = append([]string(nil), record.Sources...)
	return record
}
