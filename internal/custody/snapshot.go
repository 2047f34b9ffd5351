package custody

import (
	"custody-capital-go/internal/models"
)

// Snapshot captures the full state for persistence.
func (s *Service) Snapshot() *models.Snapshot {
	profit, loss := s.board.Get()
	return &models.Snapshot{
		Settings:         s.settings,
		LockDurationSet:  true,
		Entries:          s.ledger.Entries(),
		Allocations:      s.allocations.All(),
		NextAllocationId: s.allocations.NextId(),
		Profit:           profit,
		Loss:             loss,
	}
}

// Restore replaces the in-memory state with snap. Operator and agent left
// empty in snap, and a lock duration snap does not carry, keep their
// configured values.
func (s *Service) Restore(snap *models.Snapshot) error {
	if snap == nil {
		return nil
	}
	if err := s.ledger.Restore(snap.Entries); err != nil {
		return err
	}
	s.allocations.Restore(snap.NextAllocationId, snap.Allocations)
	s.board.Restore(snap.Profit, snap.Loss)

	if snap.Settings.Operator != "" {
		s.settings.Operator = snap.Settings.Operator
	}
	if snap.Settings.Agent != "" {
		s.settings.Agent = snap.Settings.Agent
	}
	if snap.LockDurationSet {
		s.settings.LockDuration = snap.Settings.LockDuration
	}
	return nil
}
