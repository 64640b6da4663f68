// Package memory provides in-memory stores for tests and single-shot CLI
// runs that do not need a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-txkit/internal/domain"
	"solana-txkit/internal/storage"
)

// SubmissionStore is an in-memory implementation of storage.SubmissionStore.
type SubmissionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Submission // keyed by signature
}

// NewSubmissionStore creates a new in-memory submission store.
func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		data: make(map[string]*domain.Submission),
	}
}

// Compile-time interface check.
var _ storage.SubmissionStore = (*SubmissionStore)(nil)

// Insert journals a new submission. Returns ErrDuplicateKey if the
// signature was already journaled.
func (s *SubmissionStore) Insert(_ context.Context, sub *domain.Submission) error {
	if sub == nil || sub.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sub.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	subCopy := *sub
	s.data[sub.Signature] = &subCopy
	return nil
}

// GetBySignature retrieves a submission. Returns ErrNotFound if the
// signature was never journaled.
func (s *SubmissionStore) GetBySignature(_ context.Context, signature string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.data[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}

	subCopy := *sub
	return &subCopy, nil
}

// ListByPayer retrieves all submissions paid by payer.
func (s *SubmissionStore) ListByPayer(_ context.Context, payer string) ([]*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Submission
	for _, sub := range s.data {
		if sub.Payer == payer {
			subCopy := *sub
			result = append(result, &subCopy)
		}
	}

	sortSubmissions(result)
	return result, nil
}

// ListByStatus retrieves all submissions in a given status.
func (s *SubmissionStore) ListByStatus(_ context.Context, status domain.SubmissionStatus) ([]*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Submission
	for _, sub := range s.data {
		if sub.Status == status {
			subCopy := *sub
			result = append(result, &subCopy)
		}
	}

	sortSubmissions(result)
	return result, nil
}

// MarkConfirmed transitions a submission to confirmed.
func (s *SubmissionStore) MarkConfirmed(_ context.Context, signature string, slot uint64, confirmedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.data[signature]
	if !exists {
		return storage.ErrNotFound
	}

	sub.Status = domain.StatusConfirmed
	sub.Slot = slot
	sub.ConfirmedAt = &confirmedAt
	sub.Err = ""
	return nil
}

// MarkFailed transitions a submission to failed.
func (s *SubmissionStore) MarkFailed(_ context.Context, signature string, reason string, failedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.data[signature]
	if !exists {
		return storage.ErrNotFound
	}

	sub.Status = domain.StatusFailed
	sub.Err = reason
	sub.ConfirmedAt = &failedAt
	return nil
}

// sortSubmissions orders by submitted_at ASC, signature ASC.
func sortSubmissions(subs []*domain.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].SubmittedAt != subs[j].SubmittedAt {
			return subs[i].SubmittedAt < subs[j].SubmittedAt
		}
		return subs[i].Signature < subs[j].Signature
	})
}
