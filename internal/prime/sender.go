package prime

import (
	"context"
	"fmt"
	"sync"

	"custody-capital-go/internal/models"
	"custody-capital-go/internal/transfer"

	"go.uber.org/zap"
)

// Compile-time check: *Sender must satisfy transfer.Sender.
var _ transfer.Sender = (*Sender)(nil)

const vaultWalletType = "VAULT"

// Route describes how an asset id maps onto a Prime wallet.
type Route struct {
	Symbol   string
	Network  string
	Decimals int32
	WalletId string
}

// WithdrawalClient is the subset of the Prime service the sender needs.
type WithdrawalClient interface {
	ListWallets(ctx context.Context, portfolioId, walletType string, symbols []string) ([]models.Wallet, error)
	CreateWithdrawal(ctx context.Context, params WithdrawalParams) (*models.Withdrawal, error)
}

// Sender turns outbound transfer records into Prime wallet withdrawals.
// The receiver account is used as the destination address.
type Sender struct {
	client      WithdrawalClient
	portfolioId string
	routes      map[string]Route

	mutex   sync.Mutex
	wallets map[string]string // symbol -> resolved wallet id
}

func NewSender(client WithdrawalClient, portfolioId string, routes map[string]Route) *Sender {
	return &Sender{
		client:      client,
		portfolioId: portfolioId,
		routes:      routes,
		wallets:     make(map[string]string),
	}
}

func (s *Sender) Send(ctx context.Context, t models.TransferRecord) (string, error) {
	route, ok := s.routes[t.AssetId]
	if !ok {
		return "", fmt.Errorf("no prime route for asset %s", t.AssetId)
	}

	walletId, err := s.walletFor(ctx, route)
	if err != nil {
		return "", err
	}

	withdrawal, err := s.client.CreateWithdrawal(ctx, WithdrawalParams{
		PortfolioId:    s.portfolioId,
		WalletId:       walletId,
		Destination:    t.Receiver,
		Amount:         t.Amount.Human(route.Decimals).String(),
		Symbol:         route.Symbol,
		Network:        route.Network,
		IdempotencyKey: t.Id,
	})
	if err != nil {
		return "", err
	}

	zap.L().Info("Transfer submitted to Prime",
		zap.String("transfer_id", t.Id),
		zap.String("activity_id", withdrawal.ActivityId),
		zap.String("fee", t.Fee.String()))

	return withdrawal.ActivityId, nil
}

func (s *Sender) walletFor(ctx context.Context, route Route) (string, error) {
	if route.WalletId != "" {
		return route.WalletId, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if id, ok := s.wallets[route.Symbol]; ok {
		return id, nil
	}

	wallets, err := s.client.ListWallets(ctx, s.portfolioId, vaultWalletType, []string{route.Symbol})
	if err != nil {
		return "", err
	}
	if len(wallets) == 0 {
		return "", fmt.Errorf("no %s wallet found for %s", vaultWalletType, route.Symbol)
	}

	s.wallets[route.Symbol] = wallets[0].Id
	zap.L().Info("Resolved Prime wallet",
		zap.String("symbol", route.Symbol),
		zap.String("wallet_id", wallets[0].Id))
	return wallets[0].Id, nil
}
