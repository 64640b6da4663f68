// Package txbuilder assembles and signs Solana transactions.
package txbuilder

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"solana-txkit/internal/keys"
	"solana-txkit/internal/rpc"
)

// ErrEmptyTransaction is returned when building with zero instructions.
// Always a caller logic error.
var ErrEmptyTransaction = errors.New("transaction must have at least one instruction")

// BlockhashProvider supplies a recent blockhash for transaction validity.
type BlockhashProvider interface {
	GetLatestBlockhash(ctx context.Context) (*rpc.Blockhash, error)
}

// Builder accumulates instructions for a single transaction.
//
// A Builder is for single-owner use while one transaction is constructed;
// it is not safe for concurrent mutation. Reset returns it to the empty
// building state.
type Builder struct {
	client       BlockhashProvider
	payer        *keys.Keypair
	instructions []solana.Instruction
}

// New creates a Builder whose transactions are paid for by payer.
func New(client BlockhashProvider, payer *keys.Keypair) *Builder {
	return &Builder{
		client: client,
		payer:  payer,
	}
}

// AddInstruction appends an instruction. Repeated identical instructions
// are preserved in order; nothing is deduplicated.
func (b *Builder) AddInstruction(instr solana.Instruction) *Builder {
	b.instructions = append(b.instructions, instr)
	return b
}

// AddTransfer appends a system-program SOL transfer. Balance sufficiency
// is enforced by the network at submission time, not here.
func (b *Builder) AddTransfer(from, to solana.PublicKey, lamports uint64) *Builder {
	return b.AddInstruction(system.NewTransferInstruction(lamports, from, to).Build())
}

// AddCustomInstruction appends an instruction for an arbitrary program.
func (b *Builder) AddCustomInstruction(programID solana.PublicKey, accounts solana.AccountMetaSlice, data []byte) *Builder {
	return b.AddInstruction(solana.NewInstruction(programID, accounts, data))
}

// Build assembles the unsigned transaction. When recent is nil a blockhash
// is fetched from the client; otherwise the result is deterministic for the
// same instruction list, payer and blockhash.
func (b *Builder) Build(ctx context.Context, recent *rpc.Blockhash) (*solana.Transaction, error) {
	if len(b.instructions) == 0 {
		return nil, ErrEmptyTransaction
	}

	if recent == nil {
		fetched, err := b.client.GetLatestBlockhash(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch blockhash: %w", err)
		}
		recent = fetched
	}

	tx, err := solana.NewTransaction(
		b.instructions,
		recent.Hash,
		solana.TransactionPayer(b.payer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}
	return tx, nil
}

// BuildAndSign assembles and signs the transaction. The payer is always in
// the signing set and is prepended when the caller omits it; the set is
// deduplicated by public key bytes, so passing the payer (or any signer)
// twice is harmless. Signing itself performs no network call.
func (b *Builder) BuildAndSign(ctx context.Context, signers []*keys.Keypair, recent *rpc.Blockhash) (*solana.Transaction, error) {
	tx, err := b.Build(ctx, recent)
	if err != nil {
		return nil, err
	}

	set := mergeSigners(b.payer, signers)

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for _, kp := range set {
			if kp.PublicKey().Equals(key) {
				priv := kp.PrivateKey()
				return &priv
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	return tx, nil
}

// mergeSigners prepends payer and drops duplicates by public key bytes.
func mergeSigners(payer *keys.Keypair, signers []*keys.Keypair) []*keys.Keypair {
	set := []*keys.Keypair{payer}
	seen := map[solana.PublicKey]bool{payer.PublicKey(): true}

	for _, kp := range signers {
		if kp == nil || seen[kp.PublicKey()] {
			continue
		}
		seen[kp.PublicKey()] = true
		set = append(set, kp)
	}
	return set
}

// Reset clears all instructions, returning the builder to the empty state.
func (b *Builder) Reset() *Builder {
	b.instructions = nil
	return b
}

// InstructionCount returns the number of accumulated instructions.
func (b *Builder) InstructionCount() int {
	return len(b.instructions)
}

// EstimateSize returns the byte length of the fully serialized transaction.
func EstimateSize(tx *solana.Transaction) (int, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("serialize transaction: %w", err)
	}
	return len(raw), nil
}

// NewTransferTransaction creates and signs a single SOL transfer from the
// payer to a destination.
func NewTransferTransaction(ctx context.Context, client BlockhashProvider, payer *keys.Keypair, to solana.PublicKey, lamports uint64, recent *rpc.Blockhash) (*solana.Transaction, error) {
	return New(client, payer).
		AddTransfer(payer.PublicKey(), to, lamports).
		BuildAndSign(ctx, nil, recent)
}
