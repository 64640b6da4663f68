package rpc

import (
	"encoding/json"
	"fmt"
)

// SubmissionError is returned when the node rejects or fails to process a
// submitted transaction. It carries the node's error payload verbatim and
// is never retried internally.
type SubmissionError struct {
	Code    int
	Message string
	// Data is the node's raw error detail, untouched.
	Data json.RawMessage
}

func (e *SubmissionError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("transaction submission failed: RPC error %d: %s: %s", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("transaction submission failed: RPC error %d: %s", e.Code, e.Message)
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}
