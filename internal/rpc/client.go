// Package rpc is a façade over a Solana node's JSON-RPC query/submit API.
package rpc

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Client defines the Solana RPC operations the kit depends on.
type Client interface {
	// GetBalance retrieves an account's balance in lamports.
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)

	// GetAccountInfo retrieves account info. Returns nil if the account
	// does not exist; absence is not an error.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*AccountInfo, error)

	// SendTransaction submits a signed transaction and returns its signature.
	SendTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error)

	// ConfirmTransaction queries the signature status once and reports
	// whether it reached the commitment level without an error marker.
	ConfirmTransaction(ctx context.Context, sig solana.Signature, commitment Commitment) (bool, error)

	// GetSignatureStatus queries the status of a single signature. Returns
	// nil if the node does not know the signature yet.
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)

	// GetLatestBlockhash retrieves the most recent blockhash.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (uint64, error)

	// SimulateTransaction simulates a transaction without submitting it.
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)

	// GetTokenAccountsByOwner retrieves token accounts for an owner,
	// filtered by mint when given, otherwise by the token program.
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, mint *solana.PublicKey) ([]TokenAccount, error)

	// Close releases the transport. Idempotent.
	Close()
}

// Commitment is a Solana commitment level.
type Commitment string

// Commitment levels, weakest to strongest.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// rank orders commitment levels for comparison.
func (c Commitment) rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	}
	return 0
}

// AtLeast reports whether c satisfies the required commitment level.
func (c Commitment) AtLeast(required Commitment) bool {
	return c.rank() >= required.rank()
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      solana.PublicKey
	Executable bool
	RentEpoch  uint64
	Data       []byte
}

// Blockhash is a recent blockhash bounding a transaction's validity window.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// SimulationResult is the outcome of simulateTransaction.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed *uint64
}

// SignatureStatus is the node's view of a submitted signature.
type SignatureStatus struct {
	Slot          uint64
	Confirmations *uint64
	Err           interface{} // non-nil when the transaction failed on chain
	Commitment    Commitment
}

// TokenAccount pairs a token account address with its account info.
type TokenAccount struct {
	Pubkey  solana.PublicKey
	Account AccountInfo
}
