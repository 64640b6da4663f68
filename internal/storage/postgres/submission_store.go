package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-txkit/internal/domain"
	"solana-txkit/internal/storage"
)

// SubmissionStore implements storage.SubmissionStore using PostgreSQL.
type SubmissionStore struct {
	pool *Pool
}

// NewSubmissionStore creates a new SubmissionStore.
func NewSubmissionStore(pool *Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SubmissionStore = (*SubmissionStore)(nil)

const submissionColumns = `
	signature, payer, blockhash, num_instructions, size_bytes,
	status, err, slot, submitted_at, confirmed_at
`

// Insert journals a new submission. Returns ErrDuplicateKey if the
// signature was already journaled.
func (s *SubmissionStore) Insert(ctx context.Context, sub *domain.Submission) error {
	if sub == nil || sub.Signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO submissions (
			signature, payer, blockhash, num_instructions, size_bytes,
			status, err, slot, submitted_at, confirmed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		sub.Signature,
		sub.Payer,
		sub.Blockhash,
		sub.NumInstructions,
		sub.SizeBytes,
		string(sub.Status),
		sub.Err,
		int64(sub.Slot),
		sub.SubmittedAt,
		sub.ConfirmedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// GetBySignature retrieves a submission. Returns ErrNotFound if the
// signature was never journaled.
func (s *SubmissionStore) GetBySignature(ctx context.Context, signature string) (*domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE signature = $1`

	row := s.pool.QueryRow(ctx, query, signature)
	sub, err := scanSubmission(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get submission by signature: %w", err)
	}
	return sub, nil
}

// ListByPayer retrieves all submissions paid by payer.
func (s *SubmissionStore) ListByPayer(ctx context.Context, payer string) ([]*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE payer = $1
		ORDER BY submitted_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, payer)
	if err != nil {
		return nil, fmt.Errorf("list submissions by payer: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

// ListByStatus retrieves all submissions in a given status.
func (s *SubmissionStore) ListByStatus(ctx context.Context, status domain.SubmissionStatus) ([]*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE status = $1
		ORDER BY submitted_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list submissions by status: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

// MarkConfirmed transitions a submission to confirmed.
func (s *SubmissionStore) MarkConfirmed(ctx context.Context, signature string, slot uint64, confirmedAt int64) error {
	query := `
		UPDATE submissions
		SET status = $2, slot = $3, confirmed_at = $4, err = ''
		WHERE signature = $1
	`

	tag, err := s.pool.Exec(ctx, query, signature, string(domain.StatusConfirmed), int64(slot), confirmedAt)
	if err != nil {
		return fmt.Errorf("mark submission confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkFailed transitions a submission to failed.
func (s *SubmissionStore) MarkFailed(ctx context.Context, signature string, reason string, failedAt int64) error {
	query := `
		UPDATE submissions
		SET status = $2, err = $3, confirmed_at = $4
		WHERE signature = $1
	`

	tag, err := s.pool.Exec(ctx, query, signature, string(domain.StatusFailed), reason, failedAt)
	if err != nil {
		return fmt.Errorf("mark submission failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanSubmission scans a single row into a Submission.
func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var sub domain.Submission
	var statusStr string
	var slot int64

	err := row.Scan(
		&sub.Signature,
		&sub.Payer,
		&sub.Blockhash,
		&sub.NumInstructions,
		&sub.SizeBytes,
		&statusStr,
		&sub.Err,
		&slot,
		&sub.SubmittedAt,
		&sub.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Status = domain.SubmissionStatus(statusStr)
	sub.Slot = uint64(slot)
	return &sub, nil
}

// scanSubmissions scans multiple rows into a slice of Submission.
func scanSubmissions(rows pgx.Rows) ([]*domain.Submission, error) {
	var subs []*domain.Submission

	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}

	return subs, nil
}
