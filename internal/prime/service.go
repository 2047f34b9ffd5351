package prime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"custody-capital-go/internal/models"

	"github.com/coinbase-samples/prime-sdk-go/client"
	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/portfolios"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/coinbase-samples/prime-sdk-go/wallets"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// DefaultPortfolioName is the portfolio outbound transfers are drawn from
// unless another name is configured.
const DefaultPortfolioName = "Default Portfolio"

const destinationBlockchain = "DESTINATION_BLOCKCHAIN"

// Service is the slice of the Prime REST API used to pay out custody value:
// portfolio lookup, vault wallet lookup and wallet withdrawals.
type Service struct {
	portfoliosSvc   portfolios.PortfoliosService
	walletsSvc      wallets.WalletsService
	transactionsSvc transactions.TransactionsService
}

func NewService(creds *credentials.Credentials) (*Service, error) {
	httpClient, err := newHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create prime http client: %w", err)
	}

	restClient := client.NewRestClient(creds, httpClient)

	return &Service{
		portfoliosSvc:   portfolios.NewPortfoliosService(restClient),
		walletsSvc:      wallets.NewWalletsService(restClient),
		transactionsSvc: transactions.NewTransactionsService(restClient),
	}, nil
}

// newHttpClient returns an HTTP/2 client tuned for a small number of
// long-lived connections to a single API host.
func newHttpClient() (http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{Transport: tr, Timeout: 60 * time.Second}, nil
}

// ResolvePortfolio returns the portfolio with the given name.
func (s *Service) ResolvePortfolio(ctx context.Context, name string) (*models.Portfolio, error) {
	response, err := s.portfoliosSvc.ListPortfolios(ctx, &portfolios.ListPortfoliosRequest{})
	if err != nil {
		return nil, fmt.Errorf("unable to list portfolios: %w", err)
	}

	for _, p := range response.Portfolios {
		if p.Name == name {
			return &models.Portfolio{Id: p.Id, Name: p.Name}, nil
		}
	}

	return nil, fmt.Errorf("portfolio %q not found among %d portfolios", name, len(response.Portfolios))
}

func (s *Service) ListWallets(ctx context.Context, portfolioId, walletType string, symbols []string) ([]models.Wallet, error) {
	response, err := s.walletsSvc.ListWallets(ctx, &wallets.ListWalletsRequest{
		PortfolioId: portfolioId,
		Type:        walletType,
		Symbols:     symbols,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list wallets: %w", err)
	}

	out := make([]models.Wallet, 0, len(response.Wallets))
	for _, w := range response.Wallets {
		out = append(out, models.Wallet{Id: w.Id, Name: w.Name, Symbol: w.Symbol, Type: w.Type})
	}
	return out, nil
}

// WithdrawalParams describes one payout from a vault wallet to an external
// address. Network has the form "<id>-<type>", e.g. "near-mainnet"; when it
// is empty Prime picks the symbol's default network.
type WithdrawalParams struct {
	PortfolioId    string
	WalletId       string
	Destination    string
	Amount         string
	Symbol         string
	Network        string
	IdempotencyKey string
}

func (p WithdrawalParams) blockchainAddress() *model.BlockchainAddress {
	addr := &model.BlockchainAddress{Address: p.Destination}
	if id, networkType, ok := strings.Cut(p.Network, "-"); ok {
		addr.Network = &model.NetworkDetails{Id: id, Type: networkType}
	}
	return addr
}

// CreateWithdrawal submits a wallet withdrawal. Resubmitting with the same
// idempotency key does not create a second payout.
func (s *Service) CreateWithdrawal(ctx context.Context, params WithdrawalParams) (*models.Withdrawal, error) {
	request := &transactions.CreateWalletWithdrawalRequest{
		PortfolioId:       params.PortfolioId,
		SourceWalletId:    params.WalletId,
		Amount:            params.Amount,
		IdempotencyKey:    params.IdempotencyKey,
		Symbol:            params.Symbol,
		DestinationType:   destinationBlockchain,
		BlockchainAddress: params.blockchainAddress(),
	}

	response, err := s.transactionsSvc.CreateWalletWithdrawal(ctx, request)
	if err != nil {
		zap.L().Error("Prime withdrawal rejected",
			zap.String("transfer_id", params.IdempotencyKey),
			zap.String("wallet_id", params.WalletId),
			zap.String("symbol", params.Symbol),
			zap.String("amount", params.Amount),
			zap.Error(err))
		return nil, fmt.Errorf("unable to create withdrawal: %w", err)
	}

	zap.L().Debug("Prime withdrawal accepted",
		zap.String("transfer_id", params.IdempotencyKey),
		zap.String("activity_id", response.ActivityId),
		zap.String("network", params.Network))

	return &models.Withdrawal{
		ActivityId:  response.ActivityId,
		TransferId:  params.IdempotencyKey,
		Symbol:      params.Symbol,
		Amount:      params.Amount,
		Destination: params.Destination,
	}, nil
}
