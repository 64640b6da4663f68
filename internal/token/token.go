// Package token builds SPL token instructions and answers token account
// queries. Address derivation lives in derive.go and never touches the
// network.
package token

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/gagliardetto/solana-go"
	ata "github.com/gagliardetto/solana-go/programs/associated-token-account"
	tokenprog "github.com/gagliardetto/solana-go/programs/token"

	"solana-txkit/internal/rpc"
)

var (
	// ErrMintNotFound is returned when the mint account does not exist.
	ErrMintNotFound = errors.New("mint account not found")

	// ErrInvalidAccountData is returned when an account's data does not
	// match the SPL layout it is expected to carry.
	ErrInvalidAccountData = errors.New("account data does not match SPL layout")
)

// SPL account layout offsets.
const (
	tokenAccountMinLen = 72 // mint(32) + owner(32) + amount(8)
	mintAccountMinLen  = 45 // authority option(36) + supply(8) + decimals(1)

	mintSupplyOffset   = 36
	mintDecimalsOffset = 44
)

// AccountLookup is the slice of the RPC surface the helper reads through.
type AccountLookup interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.AccountInfo, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, mint *solana.PublicKey) ([]rpc.TokenAccount, error)
}

// Helper answers token account queries through an RPC client.
type Helper struct {
	client AccountLookup
}

// NewHelper creates a Helper backed by client.
func NewHelper(client AccountLookup) *Helper {
	return &Helper{client: client}
}

// CreateAssociatedAccountInstruction builds the instruction that creates
// owner's associated token account for mint, funded by payer. The
// instruction fails on chain if the account already exists; callers check
// with IsValidTokenAccount first when that matters.
func CreateAssociatedAccountInstruction(payer, owner, mint solana.PublicKey) solana.Instruction {
	return ata.NewCreateInstruction(payer, owner, mint).Build()
}

// TransferInstruction builds a checked SPL transfer of a raw amount between
// two token accounts of the same mint. decimals must match the mint or the
// program rejects the instruction. extraSigners lists multisig signers and
// is usually nil.
func TransferInstruction(source, destination, owner, mint solana.PublicKey, amount uint64, decimals uint8, extraSigners []solana.PublicKey) solana.Instruction {
	return tokenprog.NewTransferCheckedInstruction(
		amount,
		decimals,
		source,
		mint,
		destination,
		owner,
		extraSigners,
	).Build()
}

// ToRawAmount converts a UI amount to the smallest unit of the mint.
// Fractional digits beyond the mint's precision truncate toward zero.
func ToRawAmount(uiAmount float64, decimals uint8) uint64 {
	return uint64(uiAmount * math.Pow10(int(decimals)))
}

// ToUiAmount converts a raw amount to the mint's UI representation.
func ToUiAmount(raw uint64, decimals uint8) float64 {
	return float64(raw) / math.Pow10(int(decimals))
}

// Balance is a token account balance in both raw and UI form.
type Balance struct {
	Amount   uint64
	Decimals uint8
	UIAmount float64
}

// UIAmountString formats the UI amount without exponent notation.
func (b Balance) UIAmountString() string {
	return strconv.FormatFloat(b.UIAmount, 'f', -1, 64)
}

// Mint describes an SPL mint account.
type Mint struct {
	Address  solana.PublicKey
	Supply   uint64
	Decimals uint8
}

// TokenAccountsByOwner lists owner's token accounts, restricted to mint
// when given.
func (h *Helper) TokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, mint *solana.PublicKey) ([]rpc.TokenAccount, error) {
	accounts, err := h.client.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return nil, fmt.Errorf("list token accounts for %s: %w", owner, err)
	}
	return accounts, nil
}

// IsValidTokenAccount reports whether account exists and is owned by the
// SPL token program. Any lookup failure reads as invalid rather than as an
// error; callers treat the result as advisory.
func (h *Helper) IsValidTokenAccount(ctx context.Context, account solana.PublicKey) bool {
	info, err := h.client.GetAccountInfo(ctx, account)
	if err != nil || info == nil {
		return false
	}
	return info.Owner.Equals(solana.TokenProgramID)
}

// TokenAccountBalance reads a token account's balance. The mint is read as
// well to resolve decimals.
func (h *Helper) TokenAccountBalance(ctx context.Context, account solana.PublicKey) (*Balance, error) {
	info, err := h.client.GetAccountInfo(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("fetch token account %s: %w", account, err)
	}
	if info == nil {
		return nil, fmt.Errorf("token account %s: %w", account, ErrInvalidAccountData)
	}

	mintAddr, _, amount, err := ParseTokenAccount(info.Data)
	if err != nil {
		return nil, fmt.Errorf("token account %s: %w", account, err)
	}

	mint, err := h.MintInfo(ctx, mintAddr)
	if err != nil {
		return nil, err
	}

	return &Balance{
		Amount:   amount,
		Decimals: mint.Decimals,
		UIAmount: ToUiAmount(amount, mint.Decimals),
	}, nil
}

// MintInfo reads an SPL mint account.
func (h *Helper) MintInfo(ctx context.Context, mint solana.PublicKey) (*Mint, error) {
	info, err := h.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	if info == nil {
		return nil, fmt.Errorf("mint %s: %w", mint, ErrMintNotFound)
	}
	if !info.Owner.Equals(solana.TokenProgramID) || len(info.Data) < mintAccountMinLen {
		return nil, fmt.Errorf("mint %s: %w", mint, ErrInvalidAccountData)
	}

	return &Mint{
		Address:  mint,
		Supply:   binary.LittleEndian.Uint64(info.Data[mintSupplyOffset : mintSupplyOffset+8]),
		Decimals: info.Data[mintDecimalsOffset],
	}, nil
}

// ParseTokenAccount extracts the mint, owner and raw amount from SPL token
// account data.
func ParseTokenAccount(data []byte) (mint, owner solana.PublicKey, amount uint64, err error) {
	if len(data) < tokenAccountMinLen {
		return solana.PublicKey{}, solana.PublicKey{}, 0, ErrInvalidAccountData
	}
	mint = solana.PublicKeyFromBytes(data[0:32])
	owner = solana.PublicKeyFromBytes(data[32:64])
	amount = binary.LittleEndian.Uint64(data[64:72])
	return mint, owner, amount, nil
}
