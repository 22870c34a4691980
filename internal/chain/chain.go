// Package chain abstracts balance, transfer, and transaction-status
// operations over the two supported chain families.
package chain

import "context"

// TxStatus is the confirmation state of a broadcast transaction.
type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// Adapter is the uniform contract over chain families. Amounts are base-unit
// integer strings; the secret is the wallet's stored text encoding, decoded
// inside the adapter for the duration of a single call only.
type Adapter interface {
	// Balance returns the canonical balance for address, "0" when the
	// address has no on-chain presence yet.
	Balance(ctx context.Context, address string) (string, error)

	// Transfer builds, signs, and broadcasts a native value transfer and
	// returns a confirmation reference. A broadcast whose confirmation
	// cannot be established within the bounded wait surfaces as a
	// confirmation-unknown error carrying the reference, never as failure.
	Transfer(ctx context.Context, secret, recipient, amount string) (string, error)

	// Status resolves the confirmation state of a reference. It is
	// idempotent and safe to poll; an unresolvable-but-well-formed
	// reference reports pending, since chains prune history and ambiguity
	// must never read as definite failure.
	Status(ctx context.Context, ref string) (TxStatus, error)
}
