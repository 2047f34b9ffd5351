package custody

import (
	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"

	"go.uber.org/zap"
)

// WithdrawNative moves the full native balance of key to the operator.
func (s *Service) WithdrawNative(caller string, key models.DepositKey) (*models.WithdrawalResult, error) {
	if err := s.requireOperator(caller, "withdraw native balance"); err != nil {
		return nil, err
	}

	withdrawn, err := s.ledger.Withdraw(key, models.NamespaceNative)
	if err != nil {
		return nil, err
	}

	transfer := s.newTransfer(models.TransferNativeWithdrawal, s.settings.Operator,
		models.AssetPosition{AssetId: s.cfg.NativeAsset, Amount: withdrawn}, amount.Zero, 0)
	s.issue([]models.TransferRecord{transfer})

	zap.L().Info("Native balance withdrawn",
		zap.String("account", key.Account),
		zap.String("external_id", key.ExternalId.String()),
		zap.String("amount", withdrawn.String()))

	return &models.WithdrawalResult{Amount: withdrawn, Transfers: []models.TransferRecord{transfer}}, nil
}

// WithdrawStable moves requested, or the full stable balance when requested
// is nil, to the operator.
func (s *Service) WithdrawStable(caller string, key models.DepositKey, requested *amount.Amount) (*models.WithdrawalResult, error) {
	if err := s.requireOperator(caller, "withdraw stable balance"); err != nil {
		return nil, err
	}

	var (
		withdrawn amount.Amount
		err       error
	)
	if requested == nil {
		withdrawn, err = s.ledger.Withdraw(key, models.NamespaceStable)
	} else {
		withdrawn, err = s.ledger.WithdrawAmount(key, models.NamespaceStable, *requested)
	}
	if err != nil {
		return nil, err
	}

	transfer := s.newTransfer(models.TransferStableWithdrawal, s.settings.Operator,
		models.AssetPosition{AssetId: s.cfg.StableAsset, Amount: withdrawn}, s.cfg.TransferFee, s.cfg.LedgerTransferBudget)
	s.issue([]models.TransferRecord{transfer})

	zap.L().Info("Stable balance withdrawn",
		zap.String("account", key.Account),
		zap.String("external_id", key.ExternalId.String()),
		zap.String("amount", withdrawn.String()),
		zap.String("remaining", s.ledger.BalanceOf(key, models.NamespaceStable).String()))

	return &models.WithdrawalResult{Amount: withdrawn, Transfers: []models.TransferRecord{transfer}}, nil
}
