// Package settlement turns a withdrawn allocation's exit value into a
// ranked profit or loss percentage.
package settlement

import (
	"errors"
	"fmt"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/capital"
	"custody-capital-go/internal/leaderboard"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"
)

type Coordinator struct {
	allocations *capital.Store
	board       *leaderboard.Board
}

func NewCoordinator(allocations *capital.Store, board *leaderboard.Board) *Coordinator {
	return &Coordinator{allocations: allocations, board: board}
}

// PercentChange returns floor(|exit-entry|*100/entry) and whether exit is at
// least entry.
func PercentChange(entry, exit amount.Amount) (amount.Amount, bool, error) {
	if entry.IsZero() {
		return amount.Zero, false, store.ErrDivisionByZero
	}
	isProfit := exit.Cmp(entry) >= 0
	percent, err := exit.AbsDiff(entry).MulDiv(100, entry)
	if err != nil {
		if errors.Is(err, amount.ErrDivisionByZero) {
			return amount.Zero, false, store.ErrDivisionByZero
		}
		return amount.Zero, false, err
	}
	return percent, isProfit, nil
}

// Settle records the exit value of allocation id and ranks the result. All
// checks run before anything is written.
func (c *Coordinator) Settle(id uint64, exit models.AssetPosition) (*models.SettlementResult, error) {
	a, err := c.allocations.Get(id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.AllocationWithdrawn || a.Settled() {
		return nil, fmt.Errorf("%w: capital allocation %d", store.ErrNotWithdrawn, id)
	}
	if exit.AssetId != a.EntryValue.AssetId {
		return nil, fmt.Errorf("%w: exit asset %s, entry asset %s", store.ErrAssetMismatch, exit.AssetId, a.EntryValue.AssetId)
	}

	percent, isProfit, err := PercentChange(a.EntryValue.Amount, exit.Amount)
	if err != nil {
		return nil, fmt.Errorf("unable to settle capital allocation %d: %w", id, err)
	}

	if err := c.allocations.RecordExit(id, exit); err != nil {
		return nil, err
	}
	ranked := c.board.AddItem(models.LeaderboardItem{
		Account:      a.Owner,
		Value:        percent,
		AllocationId: id,
	}, isProfit)

	return &models.SettlementResult{
		AllocationId: id,
		Owner:        a.Owner,
		Percent:      percent,
		IsProfit:     isProfit,
		Ranked:       ranked,
	}, nil
}
