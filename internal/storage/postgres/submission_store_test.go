package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-txkit/internal/domain"
	"solana-txkit/internal/storage"
)

func testSubmission(sig string, submittedAt int64) *domain.Submission {
	return &domain.Submission{
		Signature:       sig,
		Payer:           "PayerAddress111",
		Blockhash:       "BlockhashAbc",
		NumInstructions: 2,
		SizeBytes:       312,
		Status:          domain.StatusPending,
		SubmittedAt:     submittedAt,
	}
}

func TestSubmissionStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSubmissionStore(pool)
	ctx := context.Background()

	sub := testSubmission("Sig001", 1700000000000)
	require.NoError(t, store.Insert(ctx, sub))

	retrieved, err := store.GetBySignature(ctx, "Sig001")
	require.NoError(t, err)

	assert.Equal(t, sub.Signature, retrieved.Signature)
	assert.Equal(t, sub.Payer, retrieved.Payer)
	assert.Equal(t, sub.Blockhash, retrieved.Blockhash)
	assert.Equal(t, sub.NumInstructions, retrieved.NumInstructions)
	assert.Equal(t, sub.SizeBytes, retrieved.SizeBytes)
	assert.Equal(t, domain.StatusPending, retrieved.Status)
	assert.Equal(t, sub.SubmittedAt, retrieved.SubmittedAt)
	assert.Nil(t, retrieved.ConfirmedAt)
}

func TestSubmissionStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSubmissionStore(pool)
	ctx := context.Background()

	sub := testSubmission("SigDup", 1700000000000)
	require.NoError(t, store.Insert(ctx, sub))

	err := store.Insert(ctx, sub)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSubmissionStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSubmissionStore(pool)

	_, err := store.GetBySignature(context.Background(), "SigMissing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubmissionStore_MarkConfirmed(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSubmissionStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSubmission("SigConf", 1700000000000)))
	require.NoError(t, store.MarkConfirmed(ctx, "SigConf", 250000, 1700000005000))

	retrieved, err := store.GetBySignature(ctx, "SigConf")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusConfirmed, retrieved.Status)
	assert.Equal(t, uint64(250000), retrieved.Slot)
	require.NotNil(t, retrieved.ConfirmedAt)
	assert.Equal(t, int64(1700000005000), *retrieved.ConfirmedAt)

	// Unknown signature.
	err = store.MarkConfirmed(ctx, "SigMissing", 1, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubmissionStore_MarkFailed(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSubmissionStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSubmission("SigFail", 1700000000000)))
	require.NoError(t, store.MarkFailed(ctx, "SigFail", "BlockhashNotFound", 1700000006000))

	retrieved, err := store.GetBySignature(ctx, "SigFail")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, retrieved.Status)
	assert.Equal(t, "BlockhashNotFound", retrieved.Err)
	require.NotNil(t, retrieved.ConfirmedAt)
}

func TestSubmissionStore_ListByPayer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSubmissionStore(pool)
	ctx := context.Background()

	// Out-of-order inserts; listed by submitted_at ASC, signature ASC.
	require.NoError(t, store.Insert(ctx, testSubmission("SigB", 1700000002000)))
	require.NoError(t, store.Insert(ctx, testSubmission("SigC", 1700000001000)))
	require.NoError(t, store.Insert(ctx, testSubmission("SigA", 1700000002000)))

	other := testSubmission("SigX", 1700000000000)
	other.Payer = "PayerAddress222"
	require.NoError(t, store.Insert(ctx, other))

	subs, err := store.ListByPayer(ctx, "PayerAddress111")
	require.NoError(t, err)
	require.Len(t, subs, 3)

	assert.Equal(t, "SigC", subs[0].Signature)
	assert.Equal(t, "SigA", subs[1].Signature)
	assert.Equal(t, "SigB", subs[2].Signature)
}

func TestSubmissionStore_ListByStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSubmissionStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSubmission("Sig1", 1700000000000)))
	require.NoError(t, store.Insert(ctx, testSubmission("Sig2", 1700000001000)))
	require.NoError(t, store.Insert(ctx, testSubmission("Sig3", 1700000002000)))
	require.NoError(t, store.MarkConfirmed(ctx, "Sig2", 100, 1700000005000))

	pending, err := store.ListByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	confirmed, err := store.ListByStatus(ctx, domain.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "Sig2", confirmed[0].Signature)
}
