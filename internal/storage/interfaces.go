// Package storage defines the persistence interfaces for the submission
// journal, with in-memory and PostgreSQL implementations in subpackages.
package storage

import (
	"context"

	"solana-txkit/internal/domain"
)

// SubmissionStore provides access to the submission journal.
type SubmissionStore interface {
	// Insert journals a new submission. Returns ErrDuplicateKey if the
	// signature was already journaled.
	Insert(ctx context.Context, s *domain.Submission) error

	// GetBySignature retrieves a submission. Returns ErrNotFound if the
	// signature was never journaled.
	GetBySignature(ctx context.Context, signature string) (*domain.Submission, error)

	// ListByPayer retrieves all submissions paid by payer, ordered by
	// submitted_at ASC, signature ASC.
	ListByPayer(ctx context.Context, payer string) ([]*domain.Submission, error)

	// ListByStatus retrieves all submissions in a given status, ordered by
	// submitted_at ASC, signature ASC.
	ListByStatus(ctx context.Context, status domain.SubmissionStatus) ([]*domain.Submission, error)

	// MarkConfirmed transitions a pending submission to confirmed.
	// Returns ErrNotFound if the signature was never journaled.
	MarkConfirmed(ctx context.Context, signature string, slot uint64, confirmedAt int64) error

	// MarkFailed transitions a pending submission to failed, recording the
	// node's error detail. Returns ErrNotFound if the signature was never
	// journaled.
	MarkFailed(ctx context.Context, signature string, reason string, failedAt int64) error
}
