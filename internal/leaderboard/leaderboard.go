// Package leaderboard keeps the best profit and loss results, each list
// bounded and ordered by value descending.
package leaderboard

import (
	"slices"

	"custody-capital-go/internal/models"
)

// Capacity is the number of entries kept per list.
const Capacity = 5

type Board struct {
	capacity int
	profit   []models.LeaderboardItem
	loss     []models.LeaderboardItem
}

func New() *Board {
	return NewWithCapacity(Capacity)
}

func NewWithCapacity(capacity int) *Board {
	if capacity <= 0 {
		capacity = Capacity
	}
	return &Board{capacity: capacity}
}

// AddItem ranks item into the profit or loss list and reports whether it was
// kept. Equal values keep their insertion order.
func (b *Board) AddItem(item models.LeaderboardItem, isProfit bool) bool {
	if isProfit {
		var kept bool
		b.profit, kept = insert(b.profit, item, b.capacity)
		return kept
	}
	var kept bool
	b.loss, kept = insert(b.loss, item, b.capacity)
	return kept
}

func insert(list []models.LeaderboardItem, item models.LeaderboardItem, capacity int) ([]models.LeaderboardItem, bool) {
	if len(list) >= capacity && item.Value.Cmp(list[len(list)-1].Value) <= 0 {
		return list, false
	}

	list = append(list, item)
	slices.SortStableFunc(list, func(a, b models.LeaderboardItem) int {
		return b.Value.Cmp(a.Value)
	})

	if len(list) > capacity {
		list = list[:capacity]
	}
	return list, true
}

// Get returns copies of both lists.
func (b *Board) Get() (profit, loss []models.LeaderboardItem) {
	profit = append([]models.LeaderboardItem{}, b.profit...)
	loss = append([]models.LeaderboardItem{}, b.loss...)
	return profit, loss
}

// Restore replaces both lists, re-ranking and truncating them.
func (b *Board) Restore(profit, loss []models.LeaderboardItem) {
	b.profit, b.loss = nil, nil
	for _, item := range profit {
		b.profit, _ = insert(b.profit, item, b.capacity)
	}
	for _, item := range loss {
		b.loss, _ = insert(b.loss, item, b.capacity)
	}
}
