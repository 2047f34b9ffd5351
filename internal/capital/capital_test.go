package capital

import (
	"errors"
	"testing"
	"time"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"
)

const stableAsset = "usdc.token"

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore(DefaultMaxPositions, Costs{WithdrawBase: DefaultWithdrawBaseCost, PerTransfer: DefaultTransferCost})
}

func position(asset string, amt uint64) models.AssetPosition {
	return models.AssetPosition{AssetId: asset, Amount: amount.New(amt)}
}

func TestCreate_AssignsSequentialIds(t *testing.T) {
	s := newTestStore()

	for want := uint64(0); want < 3; want++ {
		id := s.Create("owner.near", position(stableAsset, 1000), t0, DefaultLockDuration)
		if id != want {
			t.Errorf("Expected id %d, got %d", want, id)
		}
	}

	a, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !a.IsActive() {
		t.Error("Expected new allocation to be active")
	}
	if len(a.Positions) != 0 {
		t.Errorf("Expected no positions, got %d", len(a.Positions))
	}
	if !a.ExitTimestamp.Equal(t0.Add(24 * time.Hour)) {
		t.Errorf("Expected exit at %s, got %s", t0.Add(24*time.Hour), a.ExitTimestamp)
	}
	if a.ExitValue != nil {
		t.Error("Expected no exit value")
	}
}

func TestCreate_UsesGivenLockDuration(t *testing.T) {
	s := newTestStore()
	id := s.Create("owner.near", position(stableAsset, 1000), t0, time.Minute)

	a, _ := s.Get(id)
	if !a.ExitTimestamp.Equal(t0.Add(time.Minute)) {
		t.Errorf("Expected exit at %s, got %s", t0.Add(time.Minute), a.ExitTimestamp)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore()
	if _, err := s.Get(42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAddPosition_Capacity(t *testing.T) {
	s := newTestStore()
	id := s.Create("owner.near", position(stableAsset, 1000), t0, DefaultLockDuration)

	for i := 0; i < DefaultMaxPositions; i++ {
		if err := s.AddPosition(id, position("token-"+string(rune('a'+i)), uint64(i+1))); err != nil {
			t.Fatalf("AddPosition %d failed: %v", i, err)
		}
	}

	err := s.AddPosition(id, position("token-h", 8))
	if !errors.Is(err, store.ErrCapacityExceeded) {
		t.Fatalf("Expected ErrCapacityExceeded, got %v", err)
	}

	a, _ := s.Get(id)
	if len(a.Positions) != DefaultMaxPositions {
		t.Fatalf("Expected %d positions, got %d", DefaultMaxPositions, len(a.Positions))
	}
	for i, p := range a.Positions {
		if p.AssetId != "token-"+string(rune('a'+i)) || p.Amount.Cmp(amount.New(uint64(i+1))) != 0 {
			t.Errorf("Position %d changed: %+v", i, p)
		}
	}
}

func TestAddPosition_NotFound(t *testing.T) {
	s := newTestStore()
	if err := s.AddPosition(3, position(stableAsset, 1)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAddPosition_AfterWithdrawal(t *testing.T) {
	s := newTestStore()
	id := s.Create("owner.near", position(stableAsset, 1000), t0, time.Hour)
	if _, err := s.Withdraw(id, t0.Add(time.Hour), 100); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if err := s.AddPosition(id, position(stableAsset, 5)); err != nil {
		t.Errorf("Expected positions to be accepted after withdrawal, got %v", err)
	}
}

func TestWithdraw_MaturityGate(t *testing.T) {
	s := newTestStore()
	id := s.Create("owner.near", position(stableAsset, 1000), t0, time.Hour)

	_, err := s.Withdraw(id, t0.Add(59*time.Minute), 100)
	if !errors.Is(err, store.ErrMaturityGate) {
		t.Fatalf("Expected ErrMaturityGate, got %v", err)
	}
	a, _ := s.Get(id)
	if !a.IsActive() {
		t.Error("Expected allocation to stay active after rejected withdrawal")
	}

	if _, err := s.Withdraw(id, t0.Add(time.Hour), 100); err != nil {
		t.Errorf("Expected withdrawal at exit time to succeed, got %v", err)
	}
}

func TestWithdraw_ComputeBudget(t *testing.T) {
	s := newTestStore()
	id := s.Create("owner.near", position(stableAsset, 1000), t0, 0)
	for i := 0; i < 3; i++ {
		if err := s.AddPosition(id, position(stableAsset, 10)); err != nil {
			t.Fatalf("AddPosition failed: %v", err)
		}
	}

	// 10 + 2*3
	if got := s.Costs().WithdrawCost(3); got != 16 {
		t.Fatalf("Expected cost 16, got %d", got)
	}

	_, err := s.Withdraw(id, t0, 15)
	if !errors.Is(err, store.ErrInsufficientComputeBudget) {
		t.Fatalf("Expected ErrInsufficientComputeBudget, got %v", err)
	}
	a, _ := s.Get(id)
	if !a.IsActive() {
		t.Error("Expected allocation to stay active when the budget check fails")
	}

	positions, err := s.Withdraw(id, t0, 16)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if len(positions) != 3 {
		t.Errorf("Expected 3 positions to transfer, got %d", len(positions))
	}
}

func TestWithdraw_AlreadyWithdrawn(t *testing.T) {
	s := newTestStore()
	id := s.Create("owner.near", position(stableAsset, 1000), t0, 0)

	if _, err := s.Withdraw(id, t0, 100); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if _, err := s.Withdraw(id, t0, 100); !errors.Is(err, store.ErrAlreadyWithdrawn) {
		t.Errorf("Expected ErrAlreadyWithdrawn, got %v", err)
	}
	if _, err := s.Withdraw(99, t0, 100); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRecordExit(t *testing.T) {
	s := newTestStore()
	id := s.Create("owner.near", position(stableAsset, 1000), t0, 0)

	if err := s.RecordExit(id, position(stableAsset, 2000)); !errors.Is(err, store.ErrNotWithdrawn) {
		t.Errorf("Expected ErrNotWithdrawn for active allocation, got %v", err)
	}

	if _, err := s.Withdraw(id, t0, 100); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if err := s.RecordExit(id, position(stableAsset, 2000)); err != nil {
		t.Fatalf("RecordExit failed: %v", err)
	}
	if err := s.RecordExit(id, position(stableAsset, 3000)); !errors.Is(err, store.ErrNotWithdrawn) {
		t.Errorf("Expected second exit to be rejected, got %v", err)
	}

	a, _ := s.Get(id)
	if a.ExitValue == nil || a.ExitValue.Amount.Cmp(amount.New(2000)) != 0 {
		t.Errorf("Expected exit value 2000, got %+v", a.ExitValue)
	}
}

func TestUpdateTransfer(t *testing.T) {
	s := newTestStore()
	id := s.Create("owner.near", position(stableAsset, 1000), t0, 0)
	if err := s.AttachTransfers(id, []models.TransferRecord{{Id: "tr-1", Status: models.TransferPending}}); err != nil {
		t.Fatalf("AttachTransfers failed: %v", err)
	}

	if err := s.UpdateTransfer(id, "tr-1", models.TransferFailed, "receiver rejected"); err != nil {
		t.Fatalf("UpdateTransfer failed: %v", err)
	}
	if err := s.UpdateTransfer(id, "tr-2", models.TransferConfirmed, ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown transfer, got %v", err)
	}

	a, _ := s.Get(id)
	if a.Transfers[0].Status != models.TransferFailed || a.Transfers[0].Detail != "receiver rejected" {
		t.Errorf("Unexpected transfer state: %+v", a.Transfers[0])
	}
}

func TestMatured(t *testing.T) {
	s := newTestStore()
	early := s.Create("a", position(stableAsset, 1), t0, time.Hour)
	late := s.Create("b", position(stableAsset, 1), t0, 3*time.Hour)
	done := s.Create("c", position(stableAsset, 1), t0, 0)
	if _, err := s.Withdraw(done, t0, 100); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	ids := s.Matured(t0.Add(2 * time.Hour))
	if len(ids) != 1 || ids[0] != early {
		t.Errorf("Expected only allocation %d to be matured, got %v (late=%d)", early, ids, late)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore()
	id := s.Create("owner.near", position(stableAsset, 1000), t0, 0)
	_ = s.AddPosition(id, position(stableAsset, 1))

	a, _ := s.Get(id)
	a.Positions[0].AssetId = "mutated"

	again, _ := s.Get(id)
	if again.Positions[0].AssetId != stableAsset {
		t.Error("Expected store to be unaffected by caller mutation")
	}
}

func TestRestore_NeverReusesIds(t *testing.T) {
	s := newTestStore()
	s.Restore(0, []models.CapitalAllocation{
		{Id: 4, Owner: "x", Status: models.AllocationWithdrawn},
	})

	if id := s.Create("y", position(stableAsset, 1), t0, 0); id != 5 {
		t.Errorf("Expected next id 5, got %d", id)
	}
	if len(s.All()) != 2 {
		t.Errorf("Expected 2 allocations, got %d", len(s.All()))
	}
}
