package txbuilder

import (
	"context"
	"testing"

	"solana-txkit/internal/keys"
)

func BenchmarkKeypairGeneration(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = keys.Generate()
	}
}

func BenchmarkBuildAndSign(b *testing.B) {
	payer := keys.Generate()
	to := keys.Generate().PublicKey()
	recent := testBlockhash()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder := New(&stubBlockhashProvider{}, payer)
		builder.AddTransfer(payer.PublicKey(), to, 1000)
		if _, err := builder.BuildAndSign(ctx, nil, recent); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSerialize(b *testing.B) {
	payer := keys.Generate()
	tx, err := NewTransferTransaction(context.Background(), &stubBlockhashProvider{}, payer, keys.Generate().PublicKey(), 1000, testBlockhash())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tx.MarshalBinary(); err != nil {
			b.Fatal(err)
		}
	}
}
