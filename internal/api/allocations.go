package api

import (
	"context"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/metrics"
	"custody-capital-go/internal/models"

	"go.uber.org/zap"
)

func (s *LedgerService) CreateAllocation(ctx context.Context, caller, owner string, entryAmount amount.Amount, entryAsset string) (uint64, error) {
	var id uint64
	err := s.mutate(ctx, func() error {
		var err error
		id, err = s.core.CreateAllocation(caller, owner, entryAmount, entryAsset)
		return err
	})
	if err != nil {
		return 0, err
	}
	metrics.AllocationsCreated.Inc()
	return id, nil
}

// WithdrawAllocation uses the default compute budget when budget is zero.
func (s *LedgerService) WithdrawAllocation(ctx context.Context, caller string, id, budget uint64) (*models.WithdrawalResult, error) {
	if budget == 0 {
		budget = s.defaultBudget
	}
	var result *models.WithdrawalResult
	err := s.mutate(ctx, func() error {
		var err error
		result, err = s.core.WithdrawAllocation(caller, id, budget)
		return err
	})
	return result, err
}

func (s *LedgerService) SettleAllocation(ctx context.Context, caller string, id uint64, exitAmount amount.Amount, exitAsset string) (*models.SettlementResult, error) {
	var result *models.SettlementResult
	err := s.mutate(ctx, func() error {
		var err error
		result, err = s.core.SettleAllocation(caller, id, exitAmount, exitAsset)
		return err
	})
	if err != nil {
		return nil, err
	}

	outcome := "loss"
	if result.IsProfit {
		outcome = "profit"
	}
	metrics.SettlementsTotal.WithLabelValues(outcome).Inc()
	return result, nil
}

func (s *LedgerService) ConfirmTransfer(ctx context.Context, result models.TransferResult) error {
	return s.mutate(ctx, func() error { return s.core.ConfirmTransfer(result) })
}

// HandleTransferResult adapts ConfirmTransfer to the dispatcher callback.
func (s *LedgerService) HandleTransferResult(ctx context.Context, result models.TransferResult) {
	if err := s.ConfirmTransfer(ctx, result); err != nil {
		zap.L().Error("Failed to record transfer result",
			zap.String("transfer_id", result.TransferId),
			zap.Bool("ok", result.Ok),
			zap.Error(err))
	}
}

func (s *LedgerService) GetAllocation(id uint64) (models.CapitalAllocation, error) {
	var (
		allocation models.CapitalAllocation
		err        error
	)
	s.read(func() { allocation, err = s.core.GetAllocation(id) })
	return allocation, err
}

func (s *LedgerService) AllocationSummary(id uint64) (*models.AllocationSummary, error) {
	var (
		summary *models.AllocationSummary
		err     error
	)
	s.read(func() { summary, err = s.core.AllocationSummary(id) })
	return summary, err
}

func (s *LedgerService) Allocations() []models.CapitalAllocation {
	var allocations []models.CapitalAllocation
	s.read(func() { allocations = s.core.Allocations() })
	return allocations
}

func (s *LedgerService) MaturedAllocations(context.Context) []uint64 {
	var ids []uint64
	s.read(func() { ids = s.core.MaturedAllocations() })
	return ids
}

func (s *LedgerService) WithdrawCost(id uint64) (uint64, error) {
	var (
		cost uint64
		err  error
	)
	s.read(func() { cost, err = s.core.WithdrawCost(id) })
	return cost, err
}

func (s *LedgerService) Leaderboard() models.LeaderboardResponse {
	var board models.LeaderboardResponse
	s.read(func() { board = s.core.Leaderboard() })
	return board
}
