package custody

import (
	"fmt"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	"go.uber.org/zap"
)

// CreateAllocation opens a capital allocation for owner. An empty entryAsset
// means the stable asset.
func (s *Service) CreateAllocation(caller, owner string, entryAmount amount.Amount, entryAsset string) (uint64, error) {
	if err := s.requireOperator(caller, "create capital allocation"); err != nil {
		return 0, err
	}
	if owner == "" {
		return 0, fmt.Errorf("%w: owner is required", store.ErrParse)
	}
	if entryAsset == "" {
		entryAsset = s.cfg.StableAsset
	}

	now := s.now()
	id := s.allocations.Create(owner, models.AssetPosition{AssetId: entryAsset, Amount: entryAmount}, now, s.settings.LockDuration)

	zap.L().Info("Capital allocation created",
		zap.Uint64("allocation_id", id),
		zap.String("owner", owner),
		zap.String("entry_asset", entryAsset),
		zap.String("entry_amount", entryAmount.String()),
		zap.Time("exit_timestamp", now.Add(s.settings.LockDuration)))

	return id, nil
}

// WithdrawAllocation releases a matured allocation and sends every position
// to the downstream custody account. budget is the compute the caller
// attached to the call.
func (s *Service) WithdrawAllocation(caller string, id uint64, budget uint64) (*models.WithdrawalResult, error) {
	if err := s.requireOperator(caller, "withdraw capital allocation"); err != nil {
		return nil, err
	}

	positions, err := s.allocations.Withdraw(id, s.now(), budget)
	if err != nil {
		return nil, err
	}

	transfers := make([]models.TransferRecord, 0, len(positions))
	for _, p := range positions {
		t := s.newTransfer(models.TransferAllocationExit, s.cfg.DownstreamCustodyAccount, p, s.cfg.TransferFee, s.cfg.TransferStaticBudget)
		t.AllocationId = id
		transfers = append(transfers, t)
	}
	if err := s.allocations.AttachTransfers(id, transfers); err != nil {
		return nil, err
	}
	s.issue(transfers)

	zap.L().Info("Capital allocation withdrawn",
		zap.Uint64("allocation_id", id),
		zap.Int("positions", len(positions)),
		zap.Uint64("budget", budget))

	return &models.WithdrawalResult{Amount: amount.Zero, Transfers: transfers}, nil
}

// SettleAllocation records the exit value and ranks the result. An empty
// exitAsset means the stable asset.
func (s *Service) SettleAllocation(caller string, id uint64, exitAmount amount.Amount, exitAsset string) (*models.SettlementResult, error) {
	if err := s.requireOperator(caller, "settle capital allocation"); err != nil {
		return nil, err
	}
	if exitAsset == "" {
		exitAsset = s.cfg.StableAsset
	}

	result, err := s.settlement.Settle(id, models.AssetPosition{AssetId: exitAsset, Amount: exitAmount})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Capital allocation settled",
		zap.Uint64("allocation_id", id),
		zap.String("owner", result.Owner),
		zap.String("percent", result.Percent.String()),
		zap.Bool("is_profit", result.IsProfit),
		zap.Bool("ranked", result.Ranked))

	return result, nil
}

// ConfirmTransfer records the outcome reported for an issued transfer.
// A failed allocation transfer is logged and kept; the allocation stays
// Withdrawn.
func (s *Service) ConfirmTransfer(result models.TransferResult) error {
	status := models.TransferConfirmed
	if !result.Ok {
		status = models.TransferFailed
	}

	if result.Kind == models.TransferAllocationExit {
		if err := s.allocations.UpdateTransfer(result.AllocationId, result.TransferId, status, result.Detail); err != nil {
			return err
		}
	}

	if result.Ok {
		zap.L().Info("Outbound transfer confirmed",
			zap.String("transfer_id", result.TransferId),
			zap.String("kind", string(result.Kind)))
	} else {
		zap.L().Error("Outbound transfer failed",
			zap.String("transfer_id", result.TransferId),
			zap.String("kind", string(result.Kind)),
			zap.Uint64("allocation_id", result.AllocationId),
			zap.String("detail", result.Detail))
	}
	return nil
}

func (s *Service) GetAllocation(id uint64) (models.CapitalAllocation, error) {
	return s.allocations.Get(id)
}

// AllocationSummary returns the active flag, owner, exit time in unix
// milliseconds and positions of an allocation.
func (s *Service) AllocationSummary(id uint64) (*models.AllocationSummary, error) {
	a, err := s.allocations.Get(id)
	if err != nil {
		return nil, err
	}
	return &models.AllocationSummary{
		Active:        a.IsActive(),
		Owner:         a.Owner,
		ExitTimestamp: a.ExitTimestamp.UnixMilli(),
		Positions:     a.Positions,
	}, nil
}

func (s *Service) Allocations() []models.CapitalAllocation {
	return s.allocations.All()
}

// MaturedAllocations lists Active allocations that may now be withdrawn.
func (s *Service) MaturedAllocations() []uint64 {
	return s.allocations.Matured(s.now())
}

// WithdrawCost is the compute budget needed to withdraw allocation id.
func (s *Service) WithdrawCost(id uint64) (uint64, error) {
	a, err := s.allocations.Get(id)
	if err != nil {
		return 0, err
	}
	return s.allocations.Costs().WithdrawCost(len(a.Positions)), nil
}

func (s *Service) Leaderboard() models.LeaderboardResponse {
	profit, loss := s.board.Get()
	return models.LeaderboardResponse{Profit: profit, Loss: loss}
}
