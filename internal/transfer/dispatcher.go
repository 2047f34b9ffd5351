/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package transfer

import (
	"context"

	"custody-capital-go/internal/metrics"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	"go.uber.org/zap"
)

// Compile-time check: *Dispatcher must satisfy store.Transferer.
var _ store.Transferer = (*Dispatcher)(nil)

const DefaultQueueSize = 256

// Sender moves value for one transfer record. The returned detail is
// reported back with the result.
type Sender interface {
	Send(ctx context.Context, t models.TransferRecord) (string, error)
}

// ResultHandler receives the outcome of every dispatched transfer.
type ResultHandler func(ctx context.Context, result models.TransferResult)

type DispatcherConfig struct {
	Sender    Sender
	OnResult  ResultHandler
	QueueSize int
}

// Dispatcher queues transfers and sends them in the background so that
// Submit never waits on the receiving side.
type Dispatcher struct {
	sender   Sender
	onResult ResultHandler
	queue    chan models.TransferRecord

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	onResult := cfg.OnResult
	if onResult == nil {
		onResult = func(context.Context, models.TransferResult) {}
	}
	return &Dispatcher{
		sender:   cfg.Sender,
		onResult: onResult,
		queue:    make(chan models.TransferRecord, size),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Submit enqueues t. When the queue is full the transfer is reported as
// failed instead of blocking the caller.
func (d *Dispatcher) Submit(t models.TransferRecord) {
	select {
	case d.queue <- t:
		metrics.TransferQueueDepth.Set(float64(len(d.queue)))
	default:
		zap.L().Error("Transfer queue full, rejecting transfer",
			zap.String("transfer_id", t.Id),
			zap.String("kind", string(t.Kind)))
		metrics.TransfersTotal.WithLabelValues(string(t.Kind), "rejected").Inc()
		go d.onResult(context.Background(), resultFor(t, false, "transfer queue full"))
	}
}

// Start begins dispatching queued transfers
func (d *Dispatcher) Start(ctx context.Context) {
	zap.L().Info("Starting transfer dispatcher", zap.Int("queue_size", cap(d.queue)))
	go d.run(ctx)
}

// Stop sends whatever is still queued and waits for the dispatcher to exit
func (d *Dispatcher) Stop() {
	zap.L().Info("Stopping transfer dispatcher")
	close(d.stopChan)
	<-d.doneChan
	zap.L().Info("Transfer dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.doneChan)

	for {
		select {
		case t := <-d.queue:
			d.dispatch(ctx, t)
		case <-d.stopChan:
			d.drain(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case t := <-d.queue:
			d.dispatch(ctx, t)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, t models.TransferRecord) {
	metrics.TransferQueueDepth.Set(float64(len(d.queue)))

	detail, err := d.sender.Send(ctx, t)
	if err != nil {
		zap.L().Error("Transfer failed",
			zap.String("transfer_id", t.Id),
			zap.String("kind", string(t.Kind)),
			zap.String("receiver", t.Receiver),
			zap.Error(err))
		metrics.TransfersTotal.WithLabelValues(string(t.Kind), "failed").Inc()
		d.onResult(ctx, resultFor(t, false, err.Error()))
		return
	}

	metrics.TransfersTotal.WithLabelValues(string(t.Kind), "sent").Inc()
	d.onResult(ctx, resultFor(t, true, detail))
}

func resultFor(t models.TransferRecord, ok bool, detail string) models.TransferResult {
	return models.TransferResult{
		TransferId:   t.Id,
		Kind:         t.Kind,
		AllocationId: t.AllocationId,
		Ok:           ok,
		Detail:       detail,
	}
}

// LogSender accepts every transfer and only logs it.
type LogSender struct{}

func (LogSender) Send(_ context.Context, t models.TransferRecord) (string, error) {
	zap.L().Info("Transfer sent",
		zap.String("transfer_id", t.Id),
		zap.String("kind", string(t.Kind)),
		zap.String("receiver", t.Receiver),
		zap.String("asset", t.AssetId),
		zap.String("amount", t.Amount.String()),
		zap.String("fee", t.Fee.String()),
		zap.Uint64("compute_budget", t.ComputeBudget))
	return "logged", nil
}
