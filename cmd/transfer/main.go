// Command transfer builds, signs and submits a SOL transfer, journals the
// submission, and waits for confirmation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"solana-txkit/internal/config"
	"solana-txkit/internal/journal"
	"solana-txkit/internal/keys"
	"solana-txkit/internal/observability"
	"solana-txkit/internal/rpc"
	"solana-txkit/internal/storage"
	"solana-txkit/internal/storage/memory"
	"solana-txkit/internal/storage/migrations"
	pgstore "solana-txkit/internal/storage/postgres"
	"solana-txkit/internal/txbuilder"
)

const lamportsPerSOL = 1_000_000_000

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides SOLANA_RPC_URL)")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint for confirmation (empty to poll over HTTP)")
	to := flag.String("to", "", "Destination public key (base58)")
	sol := flag.Float64("sol", 0, "Amount in SOL")
	lamports := flag.Uint64("lamports", 0, "Amount in lamports (takes precedence over -sol)")
	skipPreflight := flag.Bool("skip-preflight", false, "Skip node-side preflight simulation")
	simulate := flag.Bool("simulate", false, "Simulate the transaction and exit without submitting")
	commitment := flag.String("commitment", "", "Commitment level: processed, confirmed or finalized (overrides SOLANA_COMMITMENT)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN for the submission journal (overrides POSTGRES_DSN)")
	useMemory := flag.Bool("use-memory", false, "Journal in memory instead of PostgreSQL")
	timeout := flag.Duration("timeout", 90*time.Second, "Confirmation wait timeout")
	pollInterval := flag.Duration("poll-interval", 2*time.Second, "Status poll interval when not using WebSocket")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		rpcEndpoint:   *rpcEndpoint,
		wsEndpoint:    *wsEndpoint,
		to:            *to,
		sol:           *sol,
		lamports:      *lamports,
		skipPreflight: *skipPreflight,
		simulate:      *simulate,
		commitment:    *commitment,
		postgresDSN:   *postgresDSN,
		useMemory:     *useMemory,
		timeout:       *timeout,
		pollInterval:  *pollInterval,
	}); err != nil {
		logger.Fatal().Err(err).Msg("transfer failed")
	}
}

type options struct {
	rpcEndpoint   string
	wsEndpoint    string
	to            string
	sol           float64
	lamports      uint64
	skipPreflight bool
	simulate      bool
	commitment    string
	postgresDSN   string
	useMemory     bool
	timeout       time.Duration
	pollInterval  time.Duration
}

func run(ctx context.Context, logger zerolog.Logger, opts options) error {
	if opts.to == "" {
		return errors.New("-to is required")
	}

	amount := opts.lamports
	if amount == 0 {
		amount = uint64(opts.sol * lamportsPerSOL)
	}
	if amount == 0 {
		return errors.New("amount is required: use -lamports or -sol")
	}

	dest, err := solana.PublicKeyFromBase58(opts.to)
	if err != nil {
		return fmt.Errorf("parse destination: %w", err)
	}

	// Flags take precedence over environment variables.
	src := config.Chain{flagSource(opts), config.EnvSource{}}
	cfg := config.Load(src)

	payer, err := keys.Load("", src)
	if err != nil {
		return err
	}

	client := rpc.NewHTTPClient(cfg.RPCEndpoint, rpc.WithCommitment(rpc.Commitment(cfg.Commitment)))
	defer client.Close()

	tx, err := txbuilder.NewTransferTransaction(ctx, client, payer, dest, amount, nil)
	if err != nil {
		return err
	}

	if opts.simulate {
		result, err := client.SimulateTransaction(ctx, tx)
		if err != nil {
			return fmt.Errorf("simulate: %w", err)
		}
		if result.Err != nil {
			return fmt.Errorf("simulation failed: %v", result.Err)
		}
		logger.Info().Strs("logs", result.Logs).Msg("simulation ok")
		return nil
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

	want := rpc.Commitment(cfg.Commitment)

	if opts.wsEndpoint != "" {
		ws, err := rpc.NewWSClient(ctx, opts.wsEndpoint, nil, logger)
		if err != nil {
			return fmt.Errorf("connect websocket: %w", err)
		}
		defer ws.Close()

		ok, err := ws.WaitForSignature(waitCtx, sig, want)
		if err != nil {
			return fmt.Errorf("wait for signature: %w", err)
		}
		// Journal the final state seen over the subscription.
		if _, err := recorder.Confirm(ctx, sig, want); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("transaction %s failed on chain", sig)
		}
		logger.Info().Str("signature", sig.String()).Msg("transfer confirmed")
		return nil
	}

	status, err := recorder.WaitForConfirmation(waitCtx, sig, want, opts.pollInterval)
	if err != nil {
		return fmt.Errorf("wait for confirmation: %w", err)
	}
	logger.Info().Str("signature", sig.String()).Str("status", string(status)).Msg("transfer finished")
	return nil
}

// flagSource maps set flags onto configuration keys.
func flagSource(opts options) config.MapSource {
	src := config.MapSource{}
	if opts.rpcEndpoint != "" {
		src[config.KeyRPCEndpoint] = opts.rpcEndpoint
	}
	if opts.wsEndpoint != "" {
		src[config.KeyWSEndpoint] = opts.wsEndpoint
	}
	if opts.commitment != "" {
		src[config.KeyCommitment] = opts.commitment
	}
	if opts.postgresDSN != "" {
		src[config.KeyPostgresDSN] = opts.postgresDSN
	}
	return src
}

// openStore returns the submission store: in-memory when requested or when
// no DSN is configured, PostgreSQL otherwise.
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

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Info().Str("addr", addr).Msg("starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
