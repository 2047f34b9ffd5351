package store

import (
	"context"
	"errors"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"
)

// Sentinel errors shared by every component of the custody core.
var (
	ErrNotFound                  = errors.New("not found")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrBelowMinimum              = errors.New("deposit below minimum")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrNothingToWithdraw         = errors.New("nothing to withdraw")
	ErrCapacityExceeded          = errors.New("allocation position capacity exceeded")
	ErrAlreadyWithdrawn          = errors.New("allocation already withdrawn")
	ErrNotWithdrawn              = errors.New("allocation not withdrawn")
	ErrMaturityGate              = errors.New("allocation not yet matured")
	ErrAssetMismatch             = errors.New("asset mismatch")
	ErrDivisionByZero            = errors.New("division by zero")
	ErrInsufficientComputeBudget = errors.New("insufficient compute budget")
	ErrParse                     = errors.New("unable to parse instruction")
	ErrAmountOverflow            = amount.ErrOverflow
)

// Notifier receives deposit and position events.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Transferer is the asynchronous transfer primitive. Submit must not block
// on the transfer itself; outcomes are reported separately.
type Transferer interface {
	Submit(t models.TransferRecord)
}

// SnapshotStore persists the full state of the custody core.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	Close()
}
