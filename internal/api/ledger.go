package api

import (
	"context"
	"time"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/metrics"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/sweeper"
)

var _ sweeper.MaturitySource = (*LedgerService)(nil)

// OnTransfer applies an inbound token transfer.
func (s *LedgerService) OnTransfer(ctx context.Context, transfer models.InboundTransfer) (*models.InboundResult, error) {
	var result *models.InboundResult
	err := s.mutate(ctx, func() error {
		var err error
		result, err = s.core.OnTransfer(ctx, transfer)
		return err
	})
	if err != nil {
		return nil, err
	}

	switch result.Action {
	case models.ActionDepositStable:
		metrics.DepositsTotal.WithLabelValues(string(models.NamespaceStable)).Inc()
	case models.ActionAddPosition:
		metrics.PositionsAdded.Inc()
	}
	return result, nil
}

func (s *LedgerService) DepositNative(ctx context.Context, caller string, externalId, attached amount.Amount) (amount.Amount, error) {
	var balance amount.Amount
	err := s.mutate(ctx, func() error {
		var err error
		balance, err = s.core.DepositNative(ctx, caller, externalId, attached)
		return err
	})
	if err != nil {
		return amount.Amount{}, err
	}
	metrics.DepositsTotal.WithLabelValues(string(models.NamespaceNative)).Inc()
	return balance, nil
}

func (s *LedgerService) WithdrawNative(ctx context.Context, caller string, key models.DepositKey) (*models.WithdrawalResult, error) {
	var result *models.WithdrawalResult
	err := s.mutate(ctx, func() error {
		var err error
		result, err = s.core.WithdrawNative(caller, key)
		return err
	})
	return result, err
}

func (s *LedgerService) WithdrawStable(ctx context.Context, caller string, key models.DepositKey, requested *amount.Amount) (*models.WithdrawalResult, error) {
	var result *models.WithdrawalResult
	err := s.mutate(ctx, func() error {
		var err error
		result, err = s.core.WithdrawStable(caller, key, requested)
		return err
	})
	return result, err
}

func (s *LedgerService) Balance(key models.DepositKey, ns models.Namespace) (amount.Amount, error) {
	var (
		balance amount.Amount
		err     error
	)
	s.read(func() { balance, err = s.core.Balance(key, ns) })
	return balance, err
}

func (s *LedgerService) Entries() []models.LedgerEntry {
	var entries []models.LedgerEntry
	s.read(func() { entries = s.core.Entries() })
	return entries
}

func (s *LedgerService) Settings() models.Settings {
	var settings models.Settings
	s.read(func() { settings = s.core.Settings() })
	return settings
}

func (s *LedgerService) SetOperator(ctx context.Context, caller, operator string) error {
	return s.mutate(ctx, func() error { return s.core.SetOperator(caller, operator) })
}

func (s *LedgerService) SetAgent(ctx context.Context, caller, agent string) error {
	return s.mutate(ctx, func() error { return s.core.SetAgent(caller, agent) })
}

func (s *LedgerService) SetLockDuration(ctx context.Context, caller string, lock time.Duration) error {
	return s.mutate(ctx, func() error { return s.core.SetLockDuration(caller, lock) })
}
