package service

import (
	"context"
	"errors"
	"fmt"

	"go-cyclecount-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FinalizeResult describes a committed finalize.
type FinalizeResult struct {
	Session       *model.CountSession
	Modifications []model.CycleCountModification
}

// FinalizeSession moves an open session to Accepted or Canceled exactly once.
// Accepting overwrites the ledger for every counted pair and writes one audit row per pair,
// all in the transaction that holds the session row lock.
func (s *cycleCountService) FinalizeSession(ctx context.Context, id uuid.UUID, decision model.FinalState, completer Actor) (*FinalizeResult, error) {
	start := s.now()
	ctx = s.log.WithFields(ctx, map[string]any{"session_id": id.String(), "decision": string(decision)})

	if !decision.Valid() {
		s.metrics.ObserveFinalize(string(decision), "invalid", s.now().Sub(start))
		return nil, fmt.Errorf("%w: got %q", ErrInvalidDecision, decision)
	}

	result := &FinalizeResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.repos.Sessions.FindForUpdate(tx, id)
		if err != nil {
			return notFound(err, "count session %s", id)
		}
		if session.FinalState != nil {
			return fmt.Errorf("%w: %s was %s at %v", ErrSessionAlreadyFinalized, id, *session.FinalState, session.FinalStateAt)
		}

		at := s.now()
		state := decision
		completedBy := completer.ID
		session.FinalState = &state
		session.FinalStateAt = &at
		session.CompletedByID = &completedBy
		session.UpdatedBy = completer.label()
		if err := s.repos.Sessions.MarkFinal(tx, session); err != nil {
			return fmt.Errorf("mark session final: %w", err)
		}
		result.Session = session

		if decision == model.FinalStateCanceled {
			return nil
		}

		mods, err := s.reconcile(tx, session, completer)
		if err != nil {
			return err
		}
		result.Modifications = mods
		return nil
	})
	if err != nil {
		s.metrics.ObserveFinalize(string(decision), finalizeOutcome(err), s.now().Sub(start))
		return nil, err
	}

	s.metrics.ObserveFinalize(string(decision), "ok", s.now().Sub(start))
	if decision == model.FinalStateAccepted {
		s.metrics.ObservePairs(len(result.Modifications))
	}
	s.log.Info(s.log.WithField(ctx, "pairs", len(result.Modifications)), "count session finalized")
	s.publish(ctx, EventSessionFinalized, map[string]any{
		"session_id": id,
		"decision":   decision,
		"pairs":      len(result.Modifications),
		"completer":  completer.label(),
	})
	return result, nil
}

// reconcile overwrites the ledger from the session's Active counts. Pairs are visited in
// sorted order so concurrent sessions lock shared ledger rows in the same sequence.
func (s *cycleCountService) reconcile(tx *gorm.DB, session *model.CountSession, completer Actor) ([]model.CycleCountModification, error) {
	counts, err := s.repos.Counts.ListBySession(tx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load counts: %w", err)
	}

	totals := aggregateCounts(counts)
	mods := make([]model.CycleCountModification, 0, len(totals))
	for _, total := range totals {
		oldQty, err := s.overwriteEntry(tx, total, completer)
		if err != nil {
			return nil, err
		}
		mod := model.CycleCountModification{
			SessionID:   session.ID,
			LocationID:  total.Key.LocationID,
			ProductID:   total.Key.ProductID,
			OldQty:      oldQty,
			NewQty:      total.Qty,
			AssociateID: completer.ID,
		}
		mod.CreatedBy = completer.label()
		mod.UpdatedBy = completer.label()
		mods = append(mods, mod)
	}

	if err := s.repos.Modifications.CreateBatch(tx, mods); err != nil {
		return nil, fmt.Errorf("record modifications: %w", err)
	}
	return mods, nil
}

// overwriteEntry sets the pair's quantity to the counted total and returns the previous one.
// A soft-deleted entry is revived and counts as zero on hand.
func (s *cycleCountService) overwriteEntry(tx *gorm.DB, total pairTotal, completer Actor) (int, error) {
	entry, err := s.repos.Inventory.FindForUpdate(tx, total.Key)
	switch {
	case err == nil:
		if err := s.repos.Inventory.UpdateQty(tx, entry.ID, total.Qty, completer.label()); err != nil {
			return 0, fmt.Errorf("update inventory %s/%s: %w", total.Key.LocationID, total.Key.ProductID, err)
		}
		if entry.DeletedAt.Valid {
			return 0, nil
		}
		return entry.Qty, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		created := &model.InventoryEntry{
			LocationID: total.Key.LocationID,
			ProductID:  total.Key.ProductID,
			Qty:        total.Qty,
		}
		created.CreatedBy = completer.label()
		created.UpdatedBy = completer.label()
		if err := s.repos.Inventory.Create(tx, created); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return 0, fmt.Errorf("%w: %s/%s", ErrConcurrentReconciliation, total.Key.LocationID, total.Key.ProductID)
			}
			return 0, fmt.Errorf("create inventory %s/%s: %w", total.Key.LocationID, total.Key.ProductID, err)
		}
		return 0, nil

	default:
		return 0, fmt.Errorf("lock inventory %s/%s: %w", total.Key.LocationID, total.Key.ProductID, err)
	}
}

func finalizeOutcome(err error) string {
	switch {
	case errors.Is(err, ErrSessionAlreadyFinalized):
		return "already_finalized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrentReconciliation):
		return "conflict"
	default:
		return "error"
	}
}
