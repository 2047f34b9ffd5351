package models

import (
	"custody-capital-go/internal/amount"
)

// Namespace partitions the deposit ledger by kind of value held
type Namespace string

const (
	NamespaceNative Namespace = "native"
	NamespaceStable Namespace = "stable"
)

func (n Namespace) Valid() bool {
	return n == NamespaceNative || n == NamespaceStable
}

// DepositKey identifies one depositor: an external identity paired with the
// account that made the deposit
type DepositKey struct {
	ExternalId amount.Amount `json:"external_id"`
	Account    string        `json:"account"`
}

// LedgerEntry is one balance row of the deposit ledger
type LedgerEntry struct {
	Key       DepositKey    `json:"key"`
	Namespace Namespace     `json:"namespace"`
	Balance   amount.Amount `json:"balance"`
}

// LeaderboardItem records one settled allocation's result in percent
type LeaderboardItem struct {
	Account      string        `json:"account"`
	Value        amount.Amount `json:"value"`
	AllocationId uint64        `json:"allocation_id"`
}
