package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/custody"
	"custody-capital-go/internal/database"
	"custody-capital-go/internal/models"

	"github.com/go-chi/chi/v5"
)

const (
	operator    = "operator.near"
	stableAsset = "usdc.near"
)

type memorySnapshots struct {
	saves int
	last  *models.Snapshot
	err   error
}

// cancelAwareSnapshots fails saves whose context is already done.
type cancelAwareSnapshots struct {
	memorySnapshots
}

func (c *cancelAwareSnapshots) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memorySnapshots.SaveSnapshot(ctx, snap)
}

func (m *memorySnapshots) LoadSnapshot(context.Context) (*models.Snapshot, error) { return m.last, nil }

func (m *memorySnapshots) SaveSnapshot(_ context.Context, snap *models.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.last = snap
	return nil
}

func (m *memorySnapshots) Close() {}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func testConfig() models.CustodyConfig {
	return models.CustodyConfig{
		OperatorAccount:          operator,
		AgentName:                "agent.near",
		LockDuration:             time.Hour,
		NativeAsset:              "near",
		StableAsset:              stableAsset,
		NativeMinDeposit:         amount.New(1000),
		StableMinDeposit:         amount.New(100),
		DownstreamCustodyAccount: "intents.near",
		MaxPositions:             7,
		WithdrawBaseCost:         10,
		TransferCost:             2,
		TransferStaticBudget:     25,
		LedgerTransferBudget:     2,
		TransferFee:              amount.New(1),
		DefaultComputeBudget:     300,
	}
}

// newTestEnv creates a LedgerService over a fresh custody core and a chi router.
func newTestEnv(t *testing.T, snapshots *memorySnapshots) (*LedgerService, *testClock, chi.Router) {
	t.Helper()
	clock := &testClock{now: time.UnixMilli(1_700_000_000_000)}
	core := custody.NewService(testConfig(), custody.WithClock(clock.Now))

	svc, err := NewLedgerService(context.Background(), core, snapshots)
	if err != nil {
		t.Fatalf("NewLedgerService failed: %v", err)
	}

	r := chi.NewRouter()
	r.Get("/health", svc.Health)
	r.Route("/api/v1", svc.Routes)
	return svc, clock, r
}

func do(t *testing.T, router chi.Router, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("Expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	resp := decodeBody[models.ErrorResponse](t, w)
	if resp.Code != code {
		t.Errorf("Expected error code %s, got %s", code, resp.Code)
	}
}

func stableDeposit(externalId uint64, sender string, amt uint64) models.InboundTransfer {
	return models.InboundTransfer{
		Sender: sender,
		Token:  stableAsset,
		Amount: amount.New(amt),
		Msg:    `{"Deposit":{"external_id":` + amount.New(externalId).String() + `}}`,
	}
}

func TestHealth(t *testing.T) {
	_, _, router := newTestEnv(t, &memorySnapshots{})

	w := do(t, router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
}

func TestInboundDeposit_PersistsAndQueries(t *testing.T) {
	snapshots := &memorySnapshots{}
	_, _, router := newTestEnv(t, snapshots)

	w := do(t, router, http.MethodPost, "/api/v1/transfers/inbound", stableAsset, stableDeposit(42, "alice.near", 500))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeBody[models.InboundResult](t, w)
	if result.NewBalance == nil || *result.NewBalance != amount.New(500) {
		t.Errorf("Expected new balance 500, got %v", result.NewBalance)
	}
	if snapshots.saves != 1 {
		t.Errorf("Expected 1 snapshot save, got %d", snapshots.saves)
	}

	w = do(t, router, http.MethodGet, "/api/v1/balances/stable/alice.near/42", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	balance := decodeBody[models.BalanceResponse](t, w)
	if balance.Balance != amount.New(500) {
		t.Errorf("Expected balance 500, got %s", balance.Balance)
	}

	w = do(t, router, http.MethodGet, "/api/v1/entries?account=bob.near", "", nil)
	entries := decodeBody[[]models.LedgerEntry](t, w)
	if len(entries) != 0 {
		t.Errorf("Expected no entries for bob.near, got %d", len(entries))
	}
}

func TestInboundDeposit_Rejections(t *testing.T) {
	snapshots := &memorySnapshots{}
	_, _, router := newTestEnv(t, snapshots)

	malformed := stableDeposit(1, "alice.near", 500)
	malformed.Msg = `{"Deposit":{}}`
	w := do(t, router, http.MethodPost, "/api/v1/transfers/inbound", stableAsset, malformed)
	expectError(t, w, http.StatusBadRequest, "parse_error")

	w = do(t, router, http.MethodPost, "/api/v1/transfers/inbound", stableAsset, stableDeposit(1, "alice.near", 5))
	expectError(t, w, http.StatusUnprocessableEntity, "below_minimum")

	if snapshots.saves != 0 {
		t.Errorf("Expected no snapshot saves, got %d", snapshots.saves)
	}
}

func TestCreateAllocation_RequiresOperator(t *testing.T) {
	_, _, router := newTestEnv(t, &memorySnapshots{})

	req := createAllocationRequest{Owner: "alice.near", EntryAmount: amount.New(1000)}
	w := do(t, router, http.MethodPost, "/api/v1/allocations", "mallory.near", req)
	expectError(t, w, http.StatusForbidden, "unauthorized")
}

func TestInboundTransfer_CallerIsToken(t *testing.T) {
	snapshots := &memorySnapshots{}
	svc, _, router := newTestEnv(t, snapshots)

	if _, err := svc.CreateAllocation(context.Background(), operator, "alice.near", amount.New(1000), ""); err != nil {
		t.Fatalf("CreateAllocation failed: %v", err)
	}
	saves := snapshots.saves

	forged := stableDeposit(7, "victim.near", 1_000_000)
	w := do(t, router, http.MethodPost, "/api/v1/transfers/inbound", "mallory.near", forged)
	expectError(t, w, http.StatusForbidden, "unauthorized")

	forged.Token = ""
	w = do(t, router, http.MethodPost, "/api/v1/transfers/inbound", "mallory.near", forged)
	expectError(t, w, http.StatusUnprocessableEntity, "asset_mismatch")

	w = do(t, router, http.MethodPost, "/api/v1/transfers/inbound", "", forged)
	expectError(t, w, http.StatusForbidden, "unauthorized")

	addCapital := models.InboundTransfer{
		Sender: operator,
		Amount: amount.New(1000),
		Msg:    `{"AddCapital":{"allocation_id":0}}`,
	}
	w = do(t, router, http.MethodPost, "/api/v1/transfers/inbound", "mallory.near", addCapital)
	expectError(t, w, http.StatusForbidden, "unauthorized")

	balance, err := svc.Balance(models.DepositKey{ExternalId: amount.New(7), Account: "victim.near"}, models.NamespaceStable)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("Expected zero balance for victim.near, got %s", balance)
	}
	allocation, err := svc.GetAllocation(0)
	if err != nil {
		t.Fatalf("GetAllocation failed: %v", err)
	}
	if len(allocation.Positions) != 0 {
		t.Errorf("Expected no positions, got %d", len(allocation.Positions))
	}
	if snapshots.saves != saves {
		t.Errorf("Expected no snapshot saves, got %d", snapshots.saves-saves)
	}
}

func TestAllocationLifecycle(t *testing.T) {
	_, clock, router := newTestEnv(t, &memorySnapshots{})

	w := do(t, router, http.MethodPost, "/api/v1/allocations", operator,
		createAllocationRequest{Owner: "alice.near", EntryAmount: amount.New(1000)})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeBody[map[string]uint64](t, w)
	if created["allocation_id"] != 0 {
		t.Fatalf("Expected allocation id 0, got %d", created["allocation_id"])
	}

	addCapital := models.InboundTransfer{
		Sender: operator,
		Token:  stableAsset,
		Amount: amount.New(1000),
		Msg:    `{"AddCapital":{"allocation_id":0}}`,
	}
	w = do(t, router, http.MethodPost, "/api/v1/transfers/inbound", stableAsset, addCapital)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/api/v1/allocations/0/withdraw", operator, nil)
	expectError(t, w, http.StatusConflict, "not_matured")

	clock.now = clock.now.Add(time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/allocations/0/withdraw", nil)
	req.Header.Set(CallerHeader, operator)
	req.Header.Set(BudgetHeader, "11")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	expectError(t, w, http.StatusUnprocessableEntity, "insufficient_compute_budget")

	w = do(t, router, http.MethodGet, "/api/v1/allocations/0/withdraw-cost", "", nil)
	cost := decodeBody[map[string]uint64](t, w)
	if cost["compute_budget"] != 12 {
		t.Errorf("Expected withdraw cost 12, got %d", cost["compute_budget"])
	}

	w = do(t, router, http.MethodPost, "/api/v1/allocations/0/withdraw", operator, withdrawAllocationRequest{ComputeBudget: 12})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	withdrawal := decodeBody[models.WithdrawalResult](t, w)
	if len(withdrawal.Transfers) != 1 || withdrawal.Transfers[0].Receiver != "intents.near" {
		t.Errorf("Expected one transfer to intents.near, got %+v", withdrawal.Transfers)
	}

	w = do(t, router, http.MethodPost, "/api/v1/allocations/0/settle", operator, settleRequest{ExitAmount: amount.New(1500)})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	settled := decodeBody[models.SettlementResult](t, w)
	if !settled.IsProfit || settled.Percent != amount.New(50) {
		t.Errorf("Expected 50%% profit, got %+v", settled)
	}

	w = do(t, router, http.MethodPost, "/api/v1/allocations/0/settle", operator, settleRequest{ExitAmount: amount.New(1500)})
	expectError(t, w, http.StatusConflict, "not_withdrawn")

	w = do(t, router, http.MethodGet, "/api/v1/leaderboard", "", nil)
	board := decodeBody[models.LeaderboardResponse](t, w)
	if len(board.Profit) != 1 || board.Profit[0].Account != "alice.near" {
		t.Errorf("Expected alice.near on the profit board, got %+v", board.Profit)
	}
	if len(board.Loss) != 0 {
		t.Errorf("Expected empty loss board, got %+v", board.Loss)
	}

	w = do(t, router, http.MethodGet, "/api/v1/allocations/0/summary", "", nil)
	summary := decodeBody[models.AllocationSummary](t, w)
	if summary.Active {
		t.Error("Expected allocation to be inactive after withdrawal")
	}
}

func TestTransferResult(t *testing.T) {
	_, _, router := newTestEnv(t, &memorySnapshots{})

	w := do(t, router, http.MethodPost, "/api/v1/transfers/results", "", models.TransferResult{
		TransferId:   "missing",
		Kind:         models.TransferAllocationExit,
		AllocationId: 9,
		Ok:           true,
	})
	expectError(t, w, http.StatusNotFound, "not_found")

	w = do(t, router, http.MethodPost, "/api/v1/transfers/results", "", models.TransferResult{})
	expectError(t, w, http.StatusBadRequest, "bad_request")
}

func TestInvalidPathParameters(t *testing.T) {
	_, _, router := newTestEnv(t, &memorySnapshots{})

	w := do(t, router, http.MethodGet, "/api/v1/allocations/abc", "", nil)
	expectError(t, w, http.StatusBadRequest, "bad_request")

	w = do(t, router, http.MethodGet, "/api/v1/balances/gold/alice.near/1", "", nil)
	expectError(t, w, http.StatusBadRequest, "bad_request")

	w = do(t, router, http.MethodGet, "/api/v1/allocations/7", "", nil)
	expectError(t, w, http.StatusNotFound, "not_found")
}

func TestSettings(t *testing.T) {
	_, _, router := newTestEnv(t, &memorySnapshots{})

	lock := int64(5000)
	w := do(t, router, http.MethodPut, "/api/v1/settings/lock-duration", operator, settingRequest{LockDurationMs: &lock})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	settings := decodeBody[settingsResponse](t, w)
	if settings.LockDurationMs != 5000 {
		t.Errorf("Expected lock duration 5000ms, got %d", settings.LockDurationMs)
	}

	w = do(t, router, http.MethodPut, "/api/v1/settings/operator", "mallory.near", settingRequest{Operator: "mallory.near"})
	expectError(t, w, http.StatusForbidden, "unauthorized")
}

func TestSettings_LockDurationRange(t *testing.T) {
	svc, _, router := newTestEnv(t, &memorySnapshots{})

	tooLong := maxLockDurationMs + 1
	w := do(t, router, http.MethodPut, "/api/v1/settings/lock-duration", operator, settingRequest{LockDurationMs: &tooLong})
	expectError(t, w, http.StatusBadRequest, "bad_request")

	negative := int64(-1)
	w = do(t, router, http.MethodPut, "/api/v1/settings/lock-duration", operator, settingRequest{LockDurationMs: &negative})
	expectError(t, w, http.StatusBadRequest, "parse_error")

	longest := maxLockDurationMs
	w = do(t, router, http.MethodPut, "/api/v1/settings/lock-duration", operator, settingRequest{LockDurationMs: &longest})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := svc.Settings().LockDuration; got <= 0 {
		t.Errorf("Expected a positive lock duration, got %s", got)
	}
}

func TestMutate_SaveFailure(t *testing.T) {
	snapshots := &memorySnapshots{err: errors.New("disk full")}
	_, _, router := newTestEnv(t, snapshots)

	w := do(t, router, http.MethodPost, "/api/v1/transfers/inbound", stableAsset, stableDeposit(42, "alice.near", 500))
	expectError(t, w, http.StatusInternalServerError, "internal_error")
}

func TestNewLedgerService_RestoresFromDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewService(ctx, models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("database.NewService failed: %v", err)
	}
	defer db.Close()

	first, err := NewLedgerService(ctx, custody.NewService(testConfig()), db)
	if err != nil {
		t.Fatalf("NewLedgerService failed: %v", err)
	}
	if _, err := first.OnTransfer(ctx, stableDeposit(7, "bob.near", 250)); err != nil {
		t.Fatalf("OnTransfer failed: %v", err)
	}
	if _, err := first.CreateAllocation(ctx, operator, "bob.near", amount.New(100), ""); err != nil {
		t.Fatalf("CreateAllocation failed: %v", err)
	}

	second, err := NewLedgerService(ctx, custody.NewService(testConfig()), db)
	if err != nil {
		t.Fatalf("NewLedgerService failed: %v", err)
	}

	balance, err := second.Balance(models.DepositKey{ExternalId: amount.New(7), Account: "bob.near"}, models.NamespaceStable)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != amount.New(250) {
		t.Errorf("Expected restored balance 250, got %s", balance)
	}

	id, err := second.CreateAllocation(ctx, operator, "bob.near", amount.New(100), "")
	if err != nil {
		t.Fatalf("CreateAllocation failed: %v", err)
	}
	if id != 1 {
		t.Errorf("Expected next allocation id 1 after restore, got %d", id)
	}
}

func TestZeroLockDuration_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewService(ctx, models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("database.NewService failed: %v", err)
	}
	defer db.Close()

	first, err := NewLedgerService(ctx, custody.NewService(testConfig()), db)
	if err != nil {
		t.Fatalf("NewLedgerService failed: %v", err)
	}
	r := chi.NewRouter()
	r.Route("/api/v1", first.Routes)

	lock := int64(0)
	w := do(t, r, http.MethodPut, "/api/v1/settings/lock-duration", operator, settingRequest{LockDurationMs: &lock})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	second, err := NewLedgerService(ctx, custody.NewService(testConfig()), db)
	if err != nil {
		t.Fatalf("NewLedgerService failed: %v", err)
	}
	if got := second.Settings().LockDuration; got != 0 {
		t.Errorf("Expected lock duration 0 after restart, got %s", got)
	}
}

func TestMutate_SavesAfterCancellation(t *testing.T) {
	snapshots := &cancelAwareSnapshots{}
	svc, err := NewLedgerService(context.Background(), custody.NewService(testConfig()), snapshots)
	if err != nil {
		t.Fatalf("NewLedgerService failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.CreateAllocation(ctx, operator, "alice.near", amount.New(1000), ""); err != nil {
		t.Fatalf("Expected save to ignore cancellation, got %v", err)
	}
	if snapshots.saves != 1 || len(snapshots.last.Allocations) != 1 {
		t.Errorf("Expected 1 save holding the allocation, got %d", snapshots.saves)
	}
}
