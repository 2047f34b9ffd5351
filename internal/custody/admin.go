package custody

import (
	"fmt"
	"time"

	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) Settings() models.Settings {
	return s.settings
}

func (s *Service) LockDuration() time.Duration {
	return s.settings.LockDuration
}

// SetOperator hands privileged access to another account.
func (s *Service) SetOperator(caller, operator string) error {
	if err := s.requireOperator(caller, "set operator"); err != nil {
		return err
	}
	if operator == "" {
		return fmt.Errorf("%w: operator is required", store.ErrParse)
	}
	previous := s.settings.Operator
	s.settings.Operator = operator
	zap.L().Info("Operator changed", zap.String("previous", previous), zap.String("operator", operator))
	return nil
}

func (s *Service) SetAgent(caller, agent string) error {
	if err := s.requireOperator(caller, "set agent"); err != nil {
		return err
	}
	if agent == "" {
		return fmt.Errorf("%w: agent is required", store.ErrParse)
	}
	s.settings.Agent = agent
	zap.L().Info("Agent changed", zap.String("agent", agent))
	return nil
}

// SetLockDuration applies to allocations created afterwards.
func (s *Service) SetLockDuration(caller string, lock time.Duration) error {
	if err := s.requireOperator(caller, "set lock duration"); err != nil {
		return err
	}
	if lock < 0 {
		return fmt.Errorf("%w: negative lock duration %s", store.ErrParse, lock)
	}
	s.settings.LockDuration = lock
	zap.L().Info("Lock duration changed", zap.Duration("lock_duration", lock))
	return nil
}
