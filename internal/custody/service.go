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

package custody

import (
	"context"
	"fmt"
	"slices"
	"time"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/capital"
	"custody-capital-go/internal/leaderboard"
	"custody-capital-go/internal/ledger"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/settlement"
	"custody-capital-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Authorizer decides whether caller may run a privileged operation
type Authorizer func(caller string, settings models.Settings) bool

// OperatorOnly admits only the configured operator account
func OperatorOnly(caller string, settings models.Settings) bool {
	return caller != "" && caller == settings.Operator
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithAuthorizer(authorize Authorizer) Option {
	return func(s *Service) { s.authorize = authorize }
}

func WithNotifier(notifier store.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

func WithTransferer(transferer store.Transferer) Option {
	return func(s *Service) { s.transferer = transferer }
}

// Service is the custody core: deposit ledger, capital allocations,
// settlement and leaderboard behind one set of entry points. It holds no
// locks; the host serializes calls.
type Service struct {
	cfg         models.CustodyConfig
	settings    models.Settings
	ledger      *ledger.Ledger
	allocations *capital.Store
	board       *leaderboard.Board
	settlement  *settlement.Coordinator
	authorize   Authorizer
	notifier    store.Notifier
	transferer  store.Transferer
	now         func() time.Time
	newId       func() string
}

func NewService(cfg models.CustodyConfig, opts ...Option) *Service {
	allocations := capital.NewStore(cfg.MaxPositions, capital.Costs{
		WithdrawBase: cfg.WithdrawBaseCost,
		PerTransfer:  cfg.TransferCost,
	})
	board := leaderboard.New()

	s := &Service{
		cfg: cfg,
		settings: models.Settings{
			Operator:     cfg.OperatorAccount,
			Agent:        cfg.AgentName,
			LockDuration: cfg.LockDuration,
		},
		ledger: ledger.New(map[models.Namespace]amount.Amount{
			models.NamespaceNative: cfg.NativeMinDeposit,
			models.NamespaceStable: cfg.StableMinDeposit,
		}),
		allocations: allocations,
		board:       board,
		settlement:  settlement.NewCoordinator(allocations, board),
		authorize:   OperatorOnly,
		notifier:    discard{},
		transferer:  discard{},
		now:         time.Now,
		newId:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) requireOperator(caller, operation string) error {
	if !s.authorize(caller, s.settings) {
		zap.L().Warn("Rejected privileged call",
			zap.String("caller", caller),
			zap.String("operation", operation))
		return fmt.Errorf("%w: %s may not %s", store.ErrUnauthorized, caller, operation)
	}
	return nil
}

// notify delivers an event after the state change is committed, so delivery
// failures are logged and never returned
func (s *Service) notify(ctx context.Context, n models.Notification) {
	n.Id = s.newId()
	n.Agent = s.settings.Agent
	n.Timestamp = s.now().UTC()
	if err := s.notifier.Notify(ctx, n); err != nil {
		zap.L().Warn("Failed to deliver notification",
			zap.String("action", n.Action),
			zap.String("notification_id", n.Id),
			zap.Error(err))
	}
}

// issue hands transfers to the transfer primitive without waiting on them
func (s *Service) issue(transfers []models.TransferRecord) {
	for _, t := range transfers {
		s.transferer.Submit(t)
		zap.L().Info("Outbound transfer issued",
			zap.String("transfer_id", t.Id),
			zap.String("kind", string(t.Kind)),
			zap.String("receiver", t.Receiver),
			zap.String("asset", t.AssetId),
			zap.String("amount", t.Amount.String()))
	}
}

func (s *Service) newTransfer(kind models.TransferKind, receiver string, position models.AssetPosition, fee amount.Amount, budget uint64) models.TransferRecord {
	return models.TransferRecord{
		Id:            s.newId(),
		Kind:          kind,
		Receiver:      receiver,
		AssetId:       position.AssetId,
		Amount:        position.Amount,
		Fee:           fee,
		ComputeBudget: budget,
		Status:        models.TransferPending,
		IssuedAt:      s.now().UTC(),
	}
}

// acceptsToken reports whether token may fund an allocation position
func (s *Service) acceptsToken(token string) bool {
	if token == "" {
		return false
	}
	return token == s.cfg.StableAsset || token == s.cfg.NativeAsset || slices.Contains(s.cfg.AcceptedTokens, token)
}

func (s *Service) Config() models.CustodyConfig {
	return s.cfg
}

type discard struct{}

func (discard) Notify(context.Context, models.Notification) error { return nil }
func (discard) Submit(models.TransferRecord)                      {}
