// Command balance prints the SOL balance of a wallet and, optionally, its
// SPL token balances.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"solana-txkit/internal/config"
	"solana-txkit/internal/keys"
	"solana-txkit/internal/rpc"
	"solana-txkit/internal/token"
)

const lamportsPerSOL = 1_000_000_000

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides SOLANA_RPC_URL)")
	address := flag.String("address", "", "Wallet address (base58); defaults to the configured keypair's public key")
	mintStr := flag.String("mint", "", "Restrict token balances to this mint")
	tokens := flag.Bool("tokens", false, "Also list SPL token balances")
	commitment := flag.String("commitment", "", "Commitment level (overrides SOLANA_COMMITMENT)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *rpcEndpoint, *address, *mintStr, *tokens, *commitment); err != nil {
		logger.Fatal().Err(err).Msg("balance lookup failed")
	}
}

func run(ctx context.Context, rpcEndpoint, address, mintStr string, listTokens bool, commitment string) error {
	src := config.Chain{flagSource(rpcEndpoint, commitment), config.EnvSource{}}
	cfg := config.Load(src)

	owner, err := resolveOwner(address, src)
	if err != nil {
		return err
	}

	client := rpc.NewHTTPClient(cfg.RPCEndpoint, rpc.WithCommitment(rpc.Commitment(cfg.Commitment)))
	defer client.Close()

	lamports, err := client.GetBalance(ctx, owner)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	slot, err := client.GetSlot(ctx)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}

	fmt.Printf("address: %s\n", owner)
	fmt.Printf("slot:    %d\n", slot)
	fmt.Printf("balance: %.9f SOL (%d lamports)\n", float64(lamports)/lamportsPerSOL, lamports)

	if !listTokens && mintStr == "" {
		return nil
	}

	var mint *solana.PublicKey
	if mintStr != "" {
		parsed, err := solana.PublicKeyFromBase58(mintStr)
		if err != nil {
			return fmt.Errorf("parse mint: %w", err)
		}
		mint = &parsed
	}

	helper := token.NewHelper(client)
	accounts, err := helper.TokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return err
	}

	if len(accounts) == 0 {
		fmt.Println("no token accounts")
		return nil
	}

	fmt.Println("token accounts:")
	for _, acc := range accounts {
		accMint, _, amount, err := token.ParseTokenAccount(acc.Account.Data)
		if err != nil {
			fmt.Printf("  %s  <unparseable>\n", acc.Pubkey)
			continue
		}

		info, err := helper.MintInfo(ctx, accMint)
		if err != nil {
			fmt.Printf("  %s  mint=%s raw=%d\n", acc.Pubkey, accMint, amount)
			continue
		}
		fmt.Printf("  %s  mint=%s amount=%s\n",
			acc.Pubkey, accMint,
			token.Balance{Amount: amount, Decimals: info.Decimals, UIAmount: token.ToUiAmount(amount, info.Decimals)}.UIAmountString(),
		)
	}

	return nil
}

// resolveOwner parses -address or falls back to the configured keypair.
func resolveOwner(address string, src config.Source) (solana.PublicKey, error) {
	if address != "" {
		owner, err := solana.PublicKeyFromBase58(address)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("parse address: %w", err)
		}
		return owner, nil
	}

	kp, err := keys.Load("", src)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("no -address given and no keypair configured: %w", err)
	}
	return kp.PublicKey(), nil
}

func flagSource(rpcEndpoint, commitment string) config.MapSource {
	src := config.MapSource{}
	if rpcEndpoint != "" {
		src[config.KeyRPCEndpoint] = rpcEndpoint
	}
	if commitment != "" {
		src[config.KeyCommitment] = commitment
	}
	return src
}
