// Package domain holds the records the kit persists.
package domain

// SubmissionStatus is the lifecycle state of a submitted transaction.
type SubmissionStatus string

const (
	// StatusPending means the transaction was accepted by an RPC node but
	// its commitment is not yet known.
	StatusPending SubmissionStatus = "pending"

	// StatusConfirmed means the transaction reached the requested
	// commitment without an error marker.
	StatusConfirmed SubmissionStatus = "confirmed"

	// StatusFailed means the node reported an error for the transaction.
	StatusFailed SubmissionStatus = "failed"
)

// Submission is one journal entry for a submitted transaction. Signature is
// the primary key; a signature is submitted at most once.
type Submission struct {
	Signature       string
	Payer           string
	Blockhash       string
	NumInstructions int
	SizeBytes       int
	Status          SubmissionStatus
	Err             string // node error detail, set only for StatusFailed
	Slot            uint64 // confirmation slot, zero while pending
	SubmittedAt     int64  // unix milliseconds
	ConfirmedAt     *int64 // unix milliseconds, nil while pending
}
