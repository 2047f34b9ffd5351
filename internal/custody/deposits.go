package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	"go.uber.org/zap"
)

// instruction is the externally tagged union carried in an inbound
// transfer's msg: exactly one variant must be present
type instruction struct {
	Deposit    *depositInstruction    `json:"Deposit"`
	AddCapital *addCapitalInstruction `json:"AddCapital"`
}

type depositInstruction struct {
	ExternalId *amount.Amount `json:"external_id"`
	Note       *amount.Amount `json:"note"`
}

type addCapitalInstruction struct {
	AllocationId *uint64 `json:"allocation_id"`
}

func parseInstruction(msg string) (*instruction, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(msg)))
	dec.DisallowUnknownFields()

	var in instruction
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after instruction", store.ErrParse)
	}

	switch {
	case in.Deposit != nil && in.AddCapital != nil:
		return nil, fmt.Errorf("%w: more than one instruction variant", store.ErrParse)
	case in.Deposit != nil:
		if in.Deposit.ExternalId == nil {
			return nil, fmt.Errorf("%w: Deposit requires external_id", store.ErrParse)
		}
	case in.AddCapital != nil:
		if in.AddCapital.AllocationId == nil {
			return nil, fmt.Errorf("%w: AddCapital requires allocation_id", store.ErrParse)
		}
	default:
		return nil, fmt.Errorf("%w: unknown instruction", store.ErrParse)
	}
	return &in, nil
}

// OnTransfer applies an inbound token transfer according to its msg.
// transfer.Token must be the authenticated account that delivered the funds;
// transfer.Sender is taken on that token's word. A
// message that does not parse changes nothing.
func (s *Service) OnTransfer(ctx context.Context, transfer models.InboundTransfer) (*models.InboundResult, error) {
	in, err := parseInstruction(transfer.Msg)
	if err != nil {
		zap.L().Warn("Rejected inbound transfer",
			zap.String("sender", transfer.Sender),
			zap.String("token", transfer.Token),
			zap.Error(err))
		return nil, err
	}

	if in.Deposit != nil {
		return s.depositStable(ctx, transfer, in.Deposit)
	}
	return s.addCapital(ctx, transfer, *in.AddCapital.AllocationId)
}

func (s *Service) depositStable(ctx context.Context, transfer models.InboundTransfer, in *depositInstruction) (*models.InboundResult, error) {
	if transfer.Token != s.cfg.StableAsset {
		return nil, fmt.Errorf("%w: deposits accept %s, got %s", store.ErrAssetMismatch, s.cfg.StableAsset, transfer.Token)
	}

	key := models.DepositKey{ExternalId: *in.ExternalId, Account: transfer.Sender}
	newBalance, err := s.ledger.Deposit(key, models.NamespaceStable, transfer.Amount)
	if err != nil {
		return nil, err
	}

	note := amount.Zero
	if in.Note != nil {
		note = *in.Note
	}
	externalId := key.ExternalId
	s.notify(ctx, models.Notification{
		Action:     models.ActionDepositStable,
		Account:    transfer.Sender,
		ExternalId: &externalId,
		Note:       &note,
		AssetId:    transfer.Token,
		Amount:     transfer.Amount,
	})

	zap.L().Info("Stable deposit processed",
		zap.String("account", transfer.Sender),
		zap.String("external_id", key.ExternalId.String()),
		zap.String("amount", transfer.Amount.String()),
		zap.String("new_balance", newBalance.String()))

	return &models.InboundResult{Action: models.ActionDepositStable, NewBalance: &newBalance}, nil
}

func (s *Service) addCapital(ctx context.Context, transfer models.InboundTransfer, allocationId uint64) (*models.InboundResult, error) {
	if !s.acceptsToken(transfer.Token) {
		zap.L().Warn("Rejected capital from unknown token",
			zap.String("token", transfer.Token),
			zap.String("sender", transfer.Sender))
		return nil, fmt.Errorf("%w: token %q may not fund allocations", store.ErrUnauthorized, transfer.Token)
	}
	if err := s.requireOperator(transfer.Sender, "add capital"); err != nil {
		return nil, err
	}

	position := models.AssetPosition{AssetId: transfer.Token, Amount: transfer.Amount}
	if err := s.allocations.AddPosition(allocationId, position); err != nil {
		return nil, err
	}

	id := allocationId
	s.notify(ctx, models.Notification{
		Action:       models.ActionAddPosition,
		AllocationId: &id,
		AssetId:      transfer.Token,
		Amount:       transfer.Amount,
	})

	zap.L().Info("Position added to capital allocation",
		zap.Uint64("allocation_id", allocationId),
		zap.String("asset", transfer.Token),
		zap.String("amount", transfer.Amount.String()))

	return &models.InboundResult{Action: models.ActionAddPosition, AllocationId: &id}, nil
}

// DepositNative credits attached native value to (externalId, caller).
func (s *Service) DepositNative(ctx context.Context, caller string, externalId, attached amount.Amount) (amount.Amount, error) {
	key := models.DepositKey{ExternalId: externalId, Account: caller}
	newBalance, err := s.ledger.Deposit(key, models.NamespaceNative, attached)
	if err != nil {
		return amount.Zero, err
	}

	s.notify(ctx, models.Notification{
		Action:     models.ActionDepositNative,
		Account:    caller,
		ExternalId: &externalId,
		AssetId:    s.cfg.NativeAsset,
		Amount:     attached,
	})

	zap.L().Info("Native deposit processed",
		zap.String("account", caller),
		zap.String("external_id", externalId.String()),
		zap.String("amount", attached.String()),
		zap.String("new_balance", newBalance.String()))

	return newBalance, nil
}

// Balance never creates a ledger entry.
func (s *Service) Balance(key models.DepositKey, ns models.Namespace) (amount.Amount, error) {
	if !ns.Valid() {
		return amount.Zero, fmt.Errorf("%w: unknown namespace %q", store.ErrParse, ns)
	}
	return s.ledger.BalanceOf(key, ns), nil
}

// Entries lists every ledger balance.
func (s *Service) Entries() []models.LedgerEntry {
	return s.ledger.Entries()
}
