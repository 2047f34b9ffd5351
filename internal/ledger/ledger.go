// Package ledger keeps deposit balances per (external identity, account) in
// two independent namespaces.
package ledger

import (
	"fmt"
	"slices"
	"strings"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"
)

type Ledger struct {
	minimums map[models.Namespace]amount.Amount
	balances map[models.Namespace]map[models.DepositKey]amount.Amount
}

// New creates an empty ledger. A namespace without a minimum accepts any
// resulting balance.
func New(minimums map[models.Namespace]amount.Amount) *Ledger {
	l := &Ledger{
		minimums: make(map[models.Namespace]amount.Amount, len(minimums)),
		balances: map[models.Namespace]map[models.DepositKey]amount.Amount{
			models.NamespaceNative: {},
			models.NamespaceStable: {},
		},
	}
	for ns, minimum := range minimums {
		l.minimums[ns] = minimum
	}
	return l
}

func (l *Ledger) namespace(ns models.Namespace) (map[models.DepositKey]amount.Amount, error) {
	balances, ok := l.balances[ns]
	if !ok {
		return nil, fmt.Errorf("%w: unknown namespace %q", store.ErrParse, ns)
	}
	return balances, nil
}

// Deposit credits amt to key and returns the new balance. The resulting
// balance, not the deposit itself, is checked against the namespace minimum.
func (l *Ledger) Deposit(key models.DepositKey, ns models.Namespace, amt amount.Amount) (amount.Amount, error) {
	balances, err := l.namespace(ns)
	if err != nil {
		return amount.Zero, err
	}

	newBalance, err := balances[key].Add(amt)
	if err != nil {
		return amount.Zero, err
	}
	if minimum, ok := l.minimums[ns]; ok && newBalance.Cmp(minimum) < 0 {
		return amount.Zero, fmt.Errorf("%w: %s balance %s is below %s", store.ErrBelowMinimum, ns, newBalance.String(), minimum.String())
	}

	balances[key] = newBalance
	return newBalance, nil
}

// Withdraw zeroes the balance of key and returns what it held. The entry is
// kept as a zero tombstone.
func (l *Ledger) Withdraw(key models.DepositKey, ns models.Namespace) (amount.Amount, error) {
	balances, err := l.namespace(ns)
	if err != nil {
		return amount.Zero, err
	}

	balance, ok := balances[key]
	if !ok {
		return amount.Zero, fmt.Errorf("%w: no %s deposit for %s/%s", store.ErrNotFound, ns, key.ExternalId.String(), key.Account)
	}
	if balance.IsZero() {
		return amount.Zero, fmt.Errorf("%w: %s balance for %s/%s is zero", store.ErrNothingToWithdraw, ns, key.ExternalId.String(), key.Account)
	}

	balances[key] = amount.Zero
	return balance, nil
}

// WithdrawAmount debits part of a balance.
func (l *Ledger) WithdrawAmount(key models.DepositKey, ns models.Namespace, amt amount.Amount) (amount.Amount, error) {
	balances, err := l.namespace(ns)
	if err != nil {
		return amount.Zero, err
	}

	balance, ok := balances[key]
	if !ok {
		return amount.Zero, fmt.Errorf("%w: no %s deposit for %s/%s", store.ErrNotFound, ns, key.ExternalId.String(), key.Account)
	}
	if balance.IsZero() || amt.IsZero() {
		return amount.Zero, fmt.Errorf("%w: %s balance %s, requested %s", store.ErrNothingToWithdraw, ns, balance.String(), amt.String())
	}

	remaining, ok := balance.Sub(amt)
	if !ok {
		return amount.Zero, fmt.Errorf("%w: %s balance %s, requested %s", store.ErrInsufficientBalance, ns, balance.String(), amt.String())
	}

	balances[key] = remaining
	return amt, nil
}

// BalanceOf returns zero for unknown keys without creating an entry.
func (l *Ledger) BalanceOf(key models.DepositKey, ns models.Namespace) amount.Amount {
	return l.balances[ns][key]
}

// Entries lists every balance, tombstones included, ordered by namespace,
// account and external id.
func (l *Ledger) Entries() []models.LedgerEntry {
	var entries []models.LedgerEntry
	for ns, balances := range l.balances {
		for key, balance := range balances {
			entries = append(entries, models.LedgerEntry{Key: key, Namespace: ns, Balance: balance})
		}
	}
	slices.SortFunc(entries, func(a, b models.LedgerEntry) int {
		if c := strings.Compare(string(a.Namespace), string(b.Namespace)); c != 0 {
			return c
		}
		if c := strings.Compare(a.Key.Account, b.Key.Account); c != 0 {
			return c
		}
		return a.Key.ExternalId.Cmp(b.Key.ExternalId)
	})
	return entries
}

// Restore replaces all balances. Minimums are not re-checked.
func (l *Ledger) Restore(entries []models.LedgerEntry) error {
	restored := map[models.Namespace]map[models.DepositKey]amount.Amount{
		models.NamespaceNative: {},
		models.NamespaceStable: {},
	}
	for _, e := range entries {
		balances, ok := restored[e.Namespace]
		if !ok {
			return fmt.Errorf("%w: unknown namespace %q", store.ErrParse, e.Namespace)
		}
		balances[e.Key] = e.Balance
	}
	l.balances = restored
	return nil
}
