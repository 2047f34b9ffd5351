package formance

import (
	"context"
	"fmt"
	"strconv"

	"custody-capital-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// All metadata is set inside the script via set_tx_meta() so the Formance
// transaction is fully self-describing.

const numscriptDeposit = `vars {
  asset $asset
  number $amount
  account $depositor
  string $event_type
  string $agent
  string $account
  string $external_id
  string $note
  string $asset_id
}

send [$asset $amount] (
  source = @custody:inbound allowing unbounded overdraft
  destination = $depositor
)

set_tx_meta("event_type", $event_type)
set_tx_meta("agent", $agent)
set_tx_meta("account", $account)
set_tx_meta("external_id", $external_id)
set_tx_meta("note", $note)
set_tx_meta("asset_id", $asset_id)
`

const numscriptAddPosition = `vars {
  asset $asset
  number $amount
  account $allocation
  string $agent
  string $allocation_id
  string $asset_id
}

send [$asset $amount] (
  source = @custody:operator allowing unbounded overdraft
  destination = $allocation
)

set_tx_meta("event_type", "add_position")
set_tx_meta("agent", $agent)
set_tx_meta("allocation_id", $allocation_id)
set_tx_meta("asset_id", $asset_id)
`

// Notify posts the notification as a ledger transaction referenced by the
// notification id. Replays of the same notification are ignored.
func (s *Service) Notify(ctx context.Context, n models.Notification) error {
	if n.Amount.IsZero() {
		zap.L().Debug("Skipping zero-amount notification", zap.String("action", n.Action))
		return nil
	}

	postTx, err := s.buildTransaction(n)
	if err != nil {
		return err
	}
	if !n.Timestamp.IsZero() {
		postTx.Timestamp = &n.Timestamp
	}

	_, err = s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Notification already journaled", zap.String("id", n.Id))
			return nil
		}
		return fmt.Errorf("error journaling %s: %w", n.Action, err)
	}

	zap.L().Info("Notification journaled in Formance",
		zap.String("id", n.Id),
		zap.String("action", n.Action),
		zap.String("amount", n.Amount.String()))
	return nil
}

func (s *Service) buildTransaction(n models.Notification) (shared.V2PostTransaction, error) {
	fAsset := formanceAsset(n.AssetId, s.precisionFor(n.AssetId))

	switch n.Action {
	case models.ActionDepositNative, models.ActionDepositStable:
		if n.ExternalId == nil {
			return shared.V2PostTransaction{}, fmt.Errorf("%s notification without external id", n.Action)
		}
		note := "0"
		if n.Note != nil {
			note = n.Note.String()
		}
		return shared.V2PostTransaction{
			Reference: strPtr(n.Id),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptDeposit,
				Vars: map[string]string{
					"asset":       fAsset,
					"amount":      n.Amount.String(),
					"depositor":   depositorAddress(n),
					"event_type":  n.Action,
					"agent":       n.Agent,
					"account":     n.Account,
					"external_id": n.ExternalId.String(),
					"note":        note,
					"asset_id":    n.AssetId,
				},
			},
		}, nil

	case models.ActionAddPosition:
		if n.AllocationId == nil {
			return shared.V2PostTransaction{}, fmt.Errorf("add_position notification without allocation id")
		}
		id := strconv.FormatUint(*n.AllocationId, 10)
		return shared.V2PostTransaction{
			Reference: strPtr(n.Id),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptAddPosition,
				Vars: map[string]string{
					"asset":         fAsset,
					"amount":        n.Amount.String(),
					"allocation":    "allocations:" + id,
					"agent":         n.Agent,
					"allocation_id": id,
					"asset_id":      n.AssetId,
				},
			},
		}, nil
	}

	return shared.V2PostTransaction{}, fmt.Errorf("unsupported notification action %q", n.Action)
}

// depositorAddress returns e.g. "depositors:stable:alice_near:42".
func depositorAddress(n models.Notification) string {
	namespace := models.NamespaceStable
	if n.Action == models.ActionDepositNative {
		namespace = models.NamespaceNative
	}
	return fmt.Sprintf("depositors:%s:%s:%s", namespace, accountSegment(n.Account), n.ExternalId.String())
}
