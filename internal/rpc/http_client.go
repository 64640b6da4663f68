package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"

	"solana-txkit/internal/observability"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
//
// Calls are single-shot: a network or node failure surfaces immediately to
// the caller. Callers needing retries or bounded latency wrap calls
// externally.
type HTTPClient struct {
	endpoint   string
	client     *http.Client
	commitment Commitment
	requestID  atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithCommitment sets the default commitment level for queries.
func WithCommitment(commitment Commitment) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		commitment: CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// call performs a single JSON-RPC call.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	err := c.doCall(ctx, method, params, result)
	observability.RecordRPCCall(method, time.Since(start).Seconds(), err)
	return err
}

func (c *HTTPClient) doCall(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// GetBalance retrieves an account's balance in lamports.
func (c *HTTPClient) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	params := []interface{}{
		pubkey.String(),
		map[string]interface{}{"commitment": string(c.commitment)},
	}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if the account does not exist.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*AccountInfo, error) {
	params := []interface{}{
		pubkey.String(),
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": string(c.commitment),
		},
	}

	var result struct {
		Value *accountInfoValue `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}
	return result.Value.decode()
}

// accountInfoValue is the raw RPC account representation.
type accountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

func (v *accountInfoValue) decode() (*AccountInfo, error) {
	owner, err := solana.PublicKeyFromBase58(v.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse account owner: %w", err)
	}

	info := &AccountInfo{
		Lamports:   v.Lamports,
		Owner:      owner,
		Executable: v.Executable,
		RentEpoch:  v.RentEpoch,
	}

	if len(v.Data) >= 1 && v.Data[0] != "" {
		data, err := base64.StdEncoding.DecodeString(v.Data[0])
		if err != nil {
			return nil, fmt.Errorf("decode account data: %w", err)
		}
		info.Data = data
	}

	return info, nil
}

// SendTransaction submits a signed transaction. Node rejections surface as
// *SubmissionError carrying the node's error payload verbatim.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error) {
	serialized, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("serialize transaction: %w", err)
	}

	params := []interface{}{
		base64.StdEncoding.EncodeToString(serialized),
		map[string]interface{}{
			"encoding":            "base64",
			"skipPreflight":       skipPreflight,
			"preflightCommitment": string(c.commitment),
		},
	}

	var result string
	if err := c.call(ctx, "sendTransaction", params, &result); err != nil {
		var nodeErr *rpcError
		if errors.As(err, &nodeErr) {
			return solana.Signature{}, &SubmissionError{
				Code:    nodeErr.Code,
				Message: nodeErr.Message,
				Data:    nodeErr.Data,
			}
		}
		return solana.Signature{}, err
	}

	sig, err := solana.SignatureFromBase58(result)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("parse signature: %w", err)
	}
	return sig, nil
}

// signatureStatus is one entry of getSignatureStatuses.
type signatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// GetSignatureStatus queries the status of a single signature. Returns nil
// if the node does not know the signature yet.
func (c *HTTPClient) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	params := []interface{}{
		[]string{sig.String()},
		map[string]interface{}{"searchTransactionHistory": true},
	}

	var result struct {
		Value []*signatureStatus `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}

	raw := result.Value[0]
	return &SignatureStatus{
		Slot:          raw.Slot,
		Confirmations: raw.Confirmations,
		Err:           raw.Err,
		Commitment:    Commitment(raw.ConfirmationStatus),
	}, nil
}

// ConfirmTransaction queries the signature status once. It reports true iff
// the node knows the signature, it carries no error marker, and it reached
// the requested commitment level.
func (c *HTTPClient) ConfirmTransaction(ctx context.Context, sig solana.Signature, commitment Commitment) (bool, error) {
	status, err := c.GetSignatureStatus(ctx, sig)
	if err != nil {
		return false, err
	}
	if status == nil || status.Err != nil {
		return false, nil
	}
	return status.Commitment.AtLeast(commitment), nil
}

// GetLatestBlockhash retrieves the most recent blockhash.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": string(c.commitment)},
	}

	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}

	hash, err := solana.HashFromBase58(result.Value.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}

	return &Blockhash{
		Hash:                 hash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (uint64, error) {
	var result uint64
	if err := c.call(ctx, "getSlot", nil, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// SimulateTransaction simulates a transaction without submitting it.
func (c *HTTPClient) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	serialized, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}

	params := []interface{}{
		base64.StdEncoding.EncodeToString(serialized),
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": string(c.commitment),
		},
	}

	var result struct {
		Value struct {
			Err           interface{} `json:"err"`
			Logs          []string    `json:"logs"`
			UnitsConsumed *uint64     `json:"unitsConsumed"`
		} `json:"value"`
	}
	if err := c.call(ctx, "simulateTransaction", params, &result); err != nil {
		return nil, err
	}

	return &SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: result.Value.UnitsConsumed,
	}, nil
}

// GetTokenAccountsByOwner retrieves token accounts for an owner, filtered
// by mint when given, otherwise by the token program.
func (c *HTTPClient) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, mint *solana.PublicKey) ([]TokenAccount, error) {
	filter := map[string]interface{}{}
	if mint != nil {
		filter["mint"] = mint.String()
	} else {
		filter["programId"] = solana.TokenProgramID.String()
	}

	params := []interface{}{
		owner.String(),
		filter,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": string(c.commitment),
		},
	}

	var result struct {
		Value []struct {
			Pubkey  string           `json:"pubkey"`
			Account accountInfoValue `json:"account"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, err
	}

	accounts := make([]TokenAccount, 0, len(result.Value))
	for _, entry := range result.Value {
		pubkey, err := solana.PublicKeyFromBase58(entry.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("parse token account pubkey: %w", err)
		}
		info, err := entry.Account.decode()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, TokenAccount{Pubkey: pubkey, Account: *info})
	}

	return accounts, nil
}

// Close releases idle transport connections. Idempotent.
func (c *HTTPClient) Close() {
	c.client.CloseIdleConnections()
}
