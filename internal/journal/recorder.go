// Package journal records every submitted transaction and tracks its
// confirmation lifecycle in a SubmissionStore.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"solana-txkit/internal/domain"
	"solana-txkit/internal/observability"
	"solana-txkit/internal/rpc"
	"solana-txkit/internal/storage"
)

// Sender is the slice of the RPC surface the recorder needs.
type Sender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error)
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatus, error)
}

// Recorder submits transactions and journals their lifecycle.
type Recorder struct {
	client Sender
	store  storage.SubmissionStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(client Sender, store storage.SubmissionStore, logger zerolog.Logger) *Recorder {
	return &Recorder{
		client: client,
		store:  store,
		logger: logger.With().Str("component", "journal").Logger(),
		now:    time.Now,
	}
}

// Submit sends a signed transaction and journals it as pending. The journal
// entry is written only after the node accepts the transaction; a rejected
// transaction is not journaled because it never received a slot on chain.
func (r *Recorder) Submit(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err := r.client.SendTransaction(ctx, tx, skipPreflight)
	if err != nil {
		observability.RecordSubmissionFailure()
		r.logger.Warn().Err(err).Msg("transaction rejected by node")
		return solana.Signature{}, err
	}

	sub := &domain.Submission{
		Signature:       sig.String(),
		Payer:           tx.Message.AccountKeys[0].String(),
		Blockhash:       tx.Message.RecentBlockhash.String(),
		NumInstructions: len(tx.Message.Instructions),
		SizeBytes:       len(raw),
		Status:          domain.StatusPending,
		SubmittedAt:     r.now().UnixMilli(),
	}

	if err := r.store.Insert(ctx, sub); err != nil {
		// The transaction is in flight either way; surface the journal
		// failure so the caller knows the record is missing.
		return sig, fmt.Errorf("journal submission %s: %w", sig, err)
	}

	observability.RecordSubmission()
	r.logger.Info().
		Str("signature", sig.String()).
		Str("payer", sub.Payer).
		Int("instructions", sub.NumInstructions).
		Int("size_bytes", sub.SizeBytes).
		Msg("transaction submitted")

	return sig, nil
}

// Confirm queries the signature status once and advances the journal entry.
// It returns the resulting status: StatusPending when the node does not know
// the signature yet or the commitment is still below the requested level.
func (r *Recorder) Confirm(ctx context.Context, sig solana.Signature, commitment rpc.Commitment) (domain.SubmissionStatus, error) {
	status, err := r.client.GetSignatureStatus(ctx, sig)
	if err != nil {
		return "", fmt.Errorf("query signature status: %w", err)
	}
	if status == nil {
		return domain.StatusPending, nil
	}

	now := r.now().UnixMilli()

	if status.Err != nil {
		reason := fmt.Sprintf("%v", status.Err)
		if err := r.store.MarkFailed(ctx, sig.String(), reason, now); err != nil {
			return "", fmt.Errorf("journal failure of %s: %w", sig, err)
		}
		observability.RecordSubmissionFailure()
		r.logger.Warn().
			Str("signature", sig.String()).
			Str("reason", reason).
			Msg("transaction failed on chain")
		return domain.StatusFailed, nil
	}

	if !status.Commitment.AtLeast(commitment) {
		return domain.StatusPending, nil
	}

	if err := r.store.MarkConfirmed(ctx, sig.String(), status.Slot, now); err != nil {
		return "", fmt.Errorf("journal confirmation of %s: %w", sig, err)
	}
	observability.RecordConfirmation()
	r.logger.Info().
		Str("signature", sig.String()).
		Uint64("slot", status.Slot).
		Str("commitment", string(status.Commitment)).
		Msg("transaction confirmed")

	return domain.StatusConfirmed, nil
}

// WaitForConfirmation polls Confirm at interval until the submission leaves
// the pending state or ctx expires.
func (r *Recorder) WaitForConfirmation(ctx context.Context, sig solana.Signature, commitment rpc.Commitment, interval time.Duration) (domain.SubmissionStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := r.Confirm(ctx, sig, commitment)
		if err != nil {
			return "", err
		}
		if status != domain.StatusPending {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return domain.StatusPending, ctx.Err()
		case <-ticker.C:
		}
	}
}
