package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"
)

type stubSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]error
}

func (s *stubSender) Send(_ context.Context, t models.TransferRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[t.Id]; err != nil {
		return "", err
	}
	s.sent = append(s.sent, t.Id)
	return "ok:" + t.Id, nil
}

// blockingSender holds every send until release is closed.
type blockingSender struct {
	release chan struct{}
}

func (b *blockingSender) Send(ctx context.Context, t models.TransferRecord) (string, error) {
	<-b.release
	return "", nil
}

type resultCollector struct {
	mu      sync.Mutex
	results []models.TransferResult
	ch      chan struct{}
}

func newResultCollector() *resultCollector {
	return &resultCollector{ch: make(chan struct{}, 64)}
}

func (c *resultCollector) handle(_ context.Context, r models.TransferResult) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *resultCollector) wait(t *testing.T, n int) []models.TransferResult {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for result %d of %d", i+1, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.TransferResult(nil), c.results...)
}

func record(id string, allocationId uint64) models.TransferRecord {
	return models.TransferRecord{
		Id:           id,
		Kind:         models.TransferAllocationExit,
		AllocationId: allocationId,
		Receiver:     "custody.near",
		AssetId:      "usdc.near",
		Amount:       amount.New(100),
		Fee:          amount.New(1),
		Status:       models.TransferPending,
	}
}

func TestDispatcher_SendsInOrderAndReports(t *testing.T) {
	sender := &stubSender{fail: map[string]error{"t-2": errors.New("receiver rejected")}}
	collector := newResultCollector()

	d := NewDispatcher(DispatcherConfig{Sender: sender, OnResult: collector.handle, QueueSize: 8})
	d.Start(context.Background())
	defer d.Stop()

	d.Submit(record("t-1", 0))
	d.Submit(record("t-2", 0))
	d.Submit(record("t-3", 4))

	results := collector.wait(t, 3)

	if !results[0].Ok || results[0].Detail != "ok:t-1" {
		t.Errorf("Expected t-1 to succeed, got %+v", results[0])
	}
	if results[1].Ok || results[1].Detail != "receiver rejected" {
		t.Errorf("Expected t-2 to fail with detail, got %+v", results[1])
	}
	if results[2].AllocationId != 4 || results[2].Kind != models.TransferAllocationExit {
		t.Errorf("Expected t-3 result to carry allocation id and kind, got %+v", results[2])
	}
}

func TestDispatcher_QueueFullReportsFailure(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	collector := newResultCollector()

	d := NewDispatcher(DispatcherConfig{Sender: sender, OnResult: collector.handle, QueueSize: 1})

	// Not started: the first record fills the queue, the second is rejected.
	d.Submit(record("t-1", 0))
	d.Submit(record("t-2", 0))

	results := collector.wait(t, 1)
	if results[0].TransferId != "t-2" || results[0].Ok {
		t.Errorf("Expected t-2 to be rejected, got %+v", results[0])
	}
	if results[0].Detail != "transfer queue full" {
		t.Errorf("Expected queue full detail, got %q", results[0].Detail)
	}
	close(sender.release)
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	sender := &stubSender{}
	collector := newResultCollector()

	d := NewDispatcher(DispatcherConfig{Sender: sender, OnResult: collector.handle, QueueSize: 8})
	d.Submit(record("t-1", 0))
	d.Submit(record("t-2", 0))

	d.Start(context.Background())
	d.Stop()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 2 {
		t.Errorf("Expected 2 transfers sent before stop, got %d", len(sender.sent))
	}
}

func TestLogSender(t *testing.T) {
	detail, err := LogSender{}.Send(context.Background(), record("t-1", 0))
	if err != nil {
		t.Fatalf("LogSender failed: %v", err)
	}
	if detail != "logged" {
		t.Errorf("Expected detail logged, got %q", detail)
	}
}
