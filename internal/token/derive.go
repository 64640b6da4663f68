package token

import (
	"crypto/sha256"
	"errors"

	"github.com/gagliardetto/solana-go"

	"solana-txkit/internal/keys"
)

// ErrNoValidBump is returned when no bump seed yields an off-curve address.
// Practically unreachable for real inputs.
var ErrNoValidBump = errors.New("unable to find a viable program address bump")

// pdaMarker terminates the hash input of program derived addresses.
const pdaMarker = "ProgramDerivedAddress"

// DeriveProgramAddress derives a Program Derived Address for seeds under
// programID. Pure function: the first bump (searched from 255 downward)
// whose sha256 image is off the ed25519 curve wins.
func DeriveProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	for bump := uint8(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID[:]...)
		data = append(data, pdaMarker...)

		hash := sha256.Sum256(data)
		candidate := solana.PublicKeyFromBytes(hash[:])

		// PDAs must not be valid curve points
		if !keys.IsOnCurve(candidate) {
			return candidate, bump, nil
		}
	}

	return solana.PublicKey{}, 0, ErrNoValidBump
}

// AssociatedAddress derives the associated token account address for an
// owner and mint. Pure function of (owner, mint) and the two program ids;
// no network call.
func AssociatedAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		owner[:],
		solana.TokenProgramID[:],
		mint[:],
	}

	addr, _, err := DeriveProgramAddress(seeds, solana.SPLAssociatedTokenAccountProgramID)
	return addr, err
}
