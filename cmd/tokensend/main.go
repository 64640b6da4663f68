// Command tokensend transfers SPL tokens between associated token accounts,
// creating the recipient's account when asked to, and journals the
// submission.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"solana-txkit/internal/config"
	"solana-txkit/internal/journal"
	"solana-txkit/internal/keys"
	"solana-txkit/internal/rpc"
	"solana-txkit/internal/storage"
	"solana-txkit/internal/storage/memory"
	"solana-txkit/internal/storage/migrations"
	pgstore "solana-txkit/internal/storage/postgres"
	"solana-txkit/internal/token"
	"solana-txkit/internal/txbuilder"
)

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides SOLANA_RPC_URL)")
	mintStr := flag.String("mint", "", "Token mint address (base58)")
	toStr := flag.String("to", "", "Recipient wallet address (base58), not the token account")
	amount := flag.Float64("amount", 0, "Amount in UI units of the mint")
	decimals := flag.Int("decimals", -1, "Mint decimals (-1 to read from the mint account)")
	createATA := flag.Bool("create-ata", false, "Create the recipient's associated token account if missing")
	skipPreflight := flag.Bool("skip-preflight", false, "Skip node-side preflight simulation")
	commitment := flag.String("commitment", "", "Commitment level (overrides SOLANA_COMMITMENT)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN for the submission journal (overrides POSTGRES_DSN)")
	useMemory := flag.Bool("use-memory", false, "Journal in memory instead of PostgreSQL")
	timeout := flag.Duration("timeout", 90*time.Second, "Confirmation wait timeout")
	pollInterval := flag.Duration("poll-interval", 2*time.Second, "Status poll interval")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, logger, sendOptions{
		rpcEndpoint:   *rpcEndpoint,
		mint:          *mintStr,
		to:            *toStr,
		amount:        *amount,
		decimals:      *decimals,
		createATA:     *createATA,
		skipPreflight: *skipPreflight,
		commitment:    *commitment,
		postgresDSN:   *postgresDSN,
		useMemory:     *useMemory,
		timeout:       *timeout,
		pollInterval:  *pollInterval,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("token transfer failed")
	}
}

type sendOptions struct {
	rpcEndpoint   string
	mint          string
	to            string
	amount        float64
	decimals      int
	createATA     bool
	skipPreflight bool
	commitment    string
	postgresDSN   string
	useMemory     bool
	timeout       time.Duration
	pollInterval  time.Duration
}

func run(ctx context.Context, logger zerolog.Logger, opts sendOptions) error {
	if opts.mint == "" || opts.to == "" {
		return errors.New("-mint and -to are required")
	}
	if opts.amount <= 0 {
		return errors.New("-amount must be positive")
	}

	mint, err := solana.PublicKeyFromBase58(opts.mint)
	if err != nil {
		return fmt.Errorf("parse mint: %w", err)
	}
	recipient, err := solana.PublicKeyFromBase58(opts.to)
	if err != nil {
		return fmt.Errorf("parse recipient: %w", err)
	}

	src := config.Chain{flagSource(opts), config.EnvSource{}}
	cfg := config.Load(src)

	payer, err := keys.Load("", src)
	if err != nil {
		return err
	}

	client := rpc.NewHTTPClient(cfg.RPCEndpoint, rpc.WithCommitment(rpc.Commitment(cfg.Commitment)))
	defer client.Close()

	helper := token.NewHelper(client)

	dec := uint8(opts.decimals)
	if opts.decimals < 0 {
		info, err := helper.MintInfo(ctx, mint)
		if err != nil {
			return err
		}
		dec = info.Decimals
	}
	raw := token.ToRawAmount(opts.amount, dec)
	if raw == 0 {
		return fmt.Errorf("amount %v is below the mint's %d-decimal resolution", opts.amount, dec)
	}

	sourceATA, err := token.AssociatedAddress(payer.PublicKey(), mint)
	if err != nil {
		return fmt.Errorf("derive source account: %w", err)
	}
	destATA, err := token.AssociatedAddress(recipient, mint)
	if err != nil {
		return fmt.Errorf("derive destination account: %w", err)
	}

	builder := txbuilder.New(client, payer)

	if !helper.IsValidTokenAccount(ctx, destATA) {
		if !opts.createATA {
			return fmt.Errorf("recipient has no token account for mint %s (use -create-ata)", mint)
		}
		builder.AddInstruction(token.CreateAssociatedAccountInstruction(payer.PublicKey(), recipient, mint))
		logger.Info().Str("account", destATA.String()).Msg("creating recipient token account")
	}

	builder.AddInstruction(token.TransferInstruction(sourceATA, destATA, payer.PublicKey(), mint, raw, dec, nil))

	tx, err := builder.BuildAndSign(ctx, nil, nil)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.PostgresDSN, opts.useMemory)
	if err != nil {
		return err
	}
	defer closeStore()

	recorder := journal.NewRecorder(client, store, logger)

	sig, err := recorder.Submit(ctx, tx, opts.skipPreflight)
	if err != nil {
		return err
	}
	fmt.Println(sig.String())

	waitCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	status, err := recorder.WaitForConfirmation(waitCtx, sig, rpc.Commitment(cfg.Commitment), opts.pollInterval)
	if err != nil {
		return fmt.Errorf("wait for confirmation: %w", err)
	}
	logger.Info().
		Str("signature", sig.String()).
		Str("status", string(status)).
		Uint64("raw_amount", raw).
		Msg("token transfer finished")
	return nil
}

func flagSource(opts sendOptions) config.MapSource {
	src := config.MapSource{}
	if opts.rpcEndpoint != "" {
		src[config.KeyRPCEndpoint] = opts.rpcEndpoint
	}
	if opts.commitment != "" {
		src[config.KeyCommitment] = opts.commitment
	}
	if opts.postgresDSN != "" {
		src[config.KeyPostgresDSN] = opts.postgresDSN
	}
	return src
}

func openStore(ctx context.Context, dsn string, useMemory bool) (storage.SubmissionStore, func(), error) {
	if useMemory || dsn == "" {
		return memory.NewSubmissionStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgstore.NewSubmissionStore(pool), pool.Close, nil
}
