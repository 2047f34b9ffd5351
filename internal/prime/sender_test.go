package prime

import (
	"context"
	"errors"
	"testing"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"
)

type fakeClient struct {
	listCalls   int
	wallets     []models.Wallet
	withdrawals []WithdrawalParams
	err         error
}

func (f *fakeClient) ListWallets(_ context.Context, _, _ string, _ []string) ([]models.Wallet, error) {
	f.listCalls++
	return f.wallets, nil
}

func (f *fakeClient) CreateWithdrawal(_ context.Context, params WithdrawalParams) (*models.Withdrawal, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.withdrawals = append(f.withdrawals, params)
	return &models.Withdrawal{ActivityId: "act-" + params.IdempotencyKey}, nil
}

func transferRecord(id string, amt amount.Amount) models.TransferRecord {
	return models.TransferRecord{
		Id:       id,
		Kind:     models.TransferAllocationExit,
		Receiver: "custody.near",
		AssetId:  "usdc.near",
		Amount:   amt,
		Fee:      amount.New(1),
	}
}

func TestSender_ConfiguredWallet(t *testing.T) {
	client := &fakeClient{}
	sender := NewSender(client, "portfolio-1", map[string]Route{
		"usdc.near": {Symbol: "USDC", Network: "near-mainnet", Decimals: 6, WalletId: "wallet-usdc"},
	})

	detail, err := sender.Send(context.Background(), transferRecord("t-1", amount.New(2_500_000)))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if detail != "act-t-1" {
		t.Errorf("Expected activity id act-t-1, got %q", detail)
	}
	if client.listCalls != 0 {
		t.Errorf("Expected no wallet lookup, got %d", client.listCalls)
	}

	params := client.withdrawals[0]
	if params.Amount != "2.5" {
		t.Errorf("Expected amount 2.5, got %s", params.Amount)
	}
	if params.Symbol != "USDC" || params.Network != "near-mainnet" {
		t.Errorf("Expected USDC on near-mainnet, got %s on %s", params.Symbol, params.Network)
	}
	if params.Destination != "custody.near" || params.WalletId != "wallet-usdc" {
		t.Errorf("Unexpected withdrawal params %+v", params)
	}
}

func TestSender_ResolvesWalletOnce(t *testing.T) {
	client := &fakeClient{wallets: []models.Wallet{{Id: "wallet-resolved", Symbol: "USDC"}}}
	sender := NewSender(client, "portfolio-1", map[string]Route{
		"usdc.near": {Symbol: "USDC", Decimals: 6},
	})

	for _, id := range []string{"t-1", "t-2"} {
		if _, err := sender.Send(context.Background(), transferRecord(id, amount.New(1))); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	if client.listCalls != 1 {
		t.Errorf("Expected 1 wallet lookup, got %d", client.listCalls)
	}
	if client.withdrawals[1].WalletId != "wallet-resolved" {
		t.Errorf("Expected resolved wallet id, got %s", client.withdrawals[1].WalletId)
	}
	if client.withdrawals[0].Network != "" {
		t.Errorf("Expected no network, got %s", client.withdrawals[0].Network)
	}
}

func TestSender_Errors(t *testing.T) {
	sender := NewSender(&fakeClient{}, "portfolio-1", map[string]Route{"usdc.near": {Symbol: "USDC"}})

	if _, err := sender.Send(context.Background(), models.TransferRecord{AssetId: "unknown.near"}); err == nil {
		t.Error("Expected error for unrouted asset")
	}
	if _, err := sender.Send(context.Background(), transferRecord("t-1", amount.New(1))); err == nil {
		t.Error("Expected error when no wallet exists")
	}

	boom := errors.New("prime unavailable")
	failing := NewSender(&fakeClient{err: boom}, "portfolio-1", map[string]Route{"usdc.near": {Symbol: "USDC", WalletId: "w"}})
	if _, err := failing.Send(context.Background(), transferRecord("t-1", amount.New(1))); !errors.Is(err, boom) {
		t.Errorf("Expected prime error, got %v", err)
	}
}

func TestWithdrawalParams_BlockchainAddress(t *testing.T) {
	addr := WithdrawalParams{Destination: "custody.near", Network: "near-mainnet"}.blockchainAddress()
	if addr.Address != "custody.near" {
		t.Errorf("Expected destination custody.near, got %s", addr.Address)
	}
	if addr.Network == nil || addr.Network.Id != "near" || addr.Network.Type != "mainnet" {
		t.Errorf("Expected near/mainnet network details, got %+v", addr.Network)
	}

	if bare := (WithdrawalParams{Destination: "custody.near"}).blockchainAddress(); bare.Network != nil {
		t.Errorf("Expected no network details, got %+v", bare.Network)
	}
}
