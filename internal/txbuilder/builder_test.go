package txbuilder

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"solana-txkit/internal/keys"
	"solana-txkit/internal/rpc"
)

// stubBlockhashProvider returns a fixed blockhash and counts calls.
type stubBlockhashProvider struct {
	hash  solana.Hash
	calls int
	err   error
}

func (s *stubBlockhashProvider) GetLatestBlockhash(_ context.Context) (*rpc.Blockhash, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &rpc.Blockhash{Hash: s.hash, LastValidBlockHeight: 100}, nil
}

func testBlockhash() *rpc.Blockhash {
	return &rpc.Blockhash{
		Hash:                 solana.HashFromBytes([]byte("00000000000000000000000000000001")),
		LastValidBlockHeight: 100,
	}
}

func TestBuild_EmptyTransaction(t *testing.T) {
	b := New(&stubBlockhashProvider{}, keys.Generate())

	_, err := b.Build(context.Background(), testBlockhash())
	if !errors.Is(err, ErrEmptyTransaction) {
		t.Errorf("expected ErrEmptyTransaction, got %v", err)
	}
}

func TestBuild_SingleTransfer(t *testing.T) {
	payer := keys.Generate()
	to := keys.Generate().PublicKey()
	b := New(&stubBlockhashProvider{}, payer)

	b.AddTransfer(payer.PublicKey(), to, 1000)
	if b.InstructionCount() != 1 {
		t.Fatalf("expected 1 instruction, got %d", b.InstructionCount())
	}

	tx, err := b.Build(context.Background(), testBlockhash())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(tx.Message.Instructions) != 1 {
		t.Errorf("expected 1 message instruction, got %d", len(tx.Message.Instructions))
	}
	if !tx.Message.AccountKeys[0].Equals(payer.PublicKey()) {
		t.Errorf("expected payer as first account key, got %s", tx.Message.AccountKeys[0])
	}
}

func TestBuild_FetchesBlockhashWhenAbsent(t *testing.T) {
	payer := keys.Generate()
	provider := &stubBlockhashProvider{hash: testBlockhash().Hash}
	b := New(provider, payer)
	b.AddTransfer(payer.PublicKey(), keys.Generate().PublicKey(), 1)

	tx, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 blockhash fetch, got %d", provider.calls)
	}
	if tx.Message.RecentBlockhash != provider.hash {
		t.Errorf("expected fetched blockhash in message")
	}

	// An explicit blockhash suppresses the fetch.
	if _, err := b.Build(context.Background(), testBlockhash()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("expected no extra fetch, got %d calls", provider.calls)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	payer := keys.Generate()
	to := keys.Generate().PublicKey()
	recent := testBlockhash()

	build := func() []byte {
		tx, err := New(&stubBlockhashProvider{}, payer).
			AddTransfer(payer.PublicKey(), to, 42).
			Build(context.Background(), recent)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		raw, err := tx.Message.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal message: %v", err)
		}
		return raw
	}

	a, b := build(), build()
	if string(a) != string(b) {
		t.Error("identical inputs produced different message bytes")
	}
}

func TestBuildAndSign_PayerAlwaysSigns(t *testing.T) {
	payer := keys.Generate()
	b := New(&stubBlockhashProvider{}, payer)
	b.AddTransfer(payer.PublicKey(), keys.Generate().PublicKey(), 1000)

	// Empty explicit signer list: the payer is still included.
	tx, err := b.BuildAndSign(context.Background(), nil, testBlockhash())
	if err != nil {
		t.Fatalf("BuildAndSign: %v", err)
	}

	if len(tx.Signatures) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(tx.Signatures))
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	if !keys.Verify(payer.PublicKey(), message, tx.Signatures[0]) {
		t.Error("payer signature does not verify against message bytes")
	}
}

func TestBuildAndSign_DuplicateSignersDeduped(t *testing.T) {
	payer := keys.Generate()
	b := New(&stubBlockhashProvider{}, payer)
	b.AddTransfer(payer.PublicKey(), keys.Generate().PublicKey(), 1000)

	// Payer passed explicitly, twice: dedupe is by public key bytes.
	tx, err := b.BuildAndSign(context.Background(), []*keys.Keypair{payer, payer}, testBlockhash())
	if err != nil {
		t.Fatalf("BuildAndSign: %v", err)
	}
	if len(tx.Signatures) != 1 {
		t.Errorf("expected 1 signature for a single required signer, got %d", len(tx.Signatures))
	}
}

func TestBuildAndSign_SecondSigner(t *testing.T) {
	payer := keys.Generate()
	other := keys.Generate()
	b := New(&stubBlockhashProvider{}, payer)

	// A transfer from another account requires that account's signature too.
	b.AddTransfer(other.PublicKey(), keys.Generate().PublicKey(), 500)

	tx, err := b.BuildAndSign(context.Background(), []*keys.Keypair{other}, testBlockhash())
	if err != nil {
		t.Fatalf("BuildAndSign: %v", err)
	}
	if len(tx.Signatures) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(tx.Signatures))
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	for i, key := range tx.Message.AccountKeys[:2] {
		if !keys.Verify(key, message, tx.Signatures[i]) {
			t.Errorf("signature %d does not verify against signer %s", i, key)
		}
	}
}

func TestBuildAndSign_MissingSignerFails(t *testing.T) {
	payer := keys.Generate()
	other := keys.Generate()
	b := New(&stubBlockhashProvider{}, payer)
	b.AddTransfer(other.PublicKey(), keys.Generate().PublicKey(), 500)

	// The second required signer is never provided.
	if _, err := b.BuildAndSign(context.Background(), nil, testBlockhash()); err == nil {
		t.Error("expected error when a required signer is missing")
	}
}

func TestReset(t *testing.T) {
	payer := keys.Generate()
	b := New(&stubBlockhashProvider{}, payer)
	b.AddTransfer(payer.PublicKey(), keys.Generate().PublicKey(), 1)
	b.AddTransfer(payer.PublicKey(), keys.Generate().PublicKey(), 2)

	if b.Reset().InstructionCount() != 0 {
		t.Error("Reset did not clear instructions")
	}

	if _, err := b.Build(context.Background(), testBlockhash()); !errors.Is(err, ErrEmptyTransaction) {
		t.Errorf("expected ErrEmptyTransaction after reset, got %v", err)
	}
}

func TestEstimateSize(t *testing.T) {
	payer := keys.Generate()
	tx, err := NewTransferTransaction(context.Background(), &stubBlockhashProvider{}, payer, keys.Generate().PublicKey(), 1000, testBlockhash())
	if err != nil {
		t.Fatalf("NewTransferTransaction: %v", err)
	}

	size, err := EstimateSize(tx)
	if err != nil {
		t.Fatalf("EstimateSize: %v", err)
	}
	if size <= 0 {
		t.Errorf("expected positive size, got %d", size)
	}
	// A single-signer transfer stays well under the wire packet limit.
	if size >= 2000 {
		t.Errorf("expected size below 2000 bytes, got %d", size)
	}
}

func TestAddInstruction_PreservesDuplicates(t *testing.T) {
	payer := keys.Generate()
	to := keys.Generate().PublicKey()
	b := New(&stubBlockhashProvider{}, payer)

	b.AddTransfer(payer.PublicKey(), to, 10)
	b.AddTransfer(payer.PublicKey(), to, 10)

	if b.InstructionCount() != 2 {
		t.Errorf("expected identical instructions to be preserved, got %d", b.InstructionCount())
	}

	tx, err := b.Build(context.Background(), testBlockhash())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tx.Message.Instructions) != 2 {
		t.Errorf("expected 2 message instructions, got %d", len(tx.Message.Instructions))
	}
}
