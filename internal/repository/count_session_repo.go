package repository

import (
	"context"

	"go-cyclecount-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CountSessionRepository interface {
	Create(ctx context.Context, session *model.CountSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CountSession, error)
	// FindForUpdate takes an exclusive row lock on the session inside tx.
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.CountSession, error)
	// FindForShare takes a shared row lock so a concurrent finalize waits for the scan to commit.
	FindForShare(tx *gorm.DB, id uuid.UUID) (*model.CountSession, error)
	MarkFinal(tx *gorm.DB, session *model.CountSession) error
	ListOpenByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.CountSession, error)
	CountOpen(ctx context.Context) (int64, error)
}

type countSessionRepo struct {
	db *gorm.DB
}

func NewCountSessionRepo(db *gorm.DB) CountSessionRepository {
	return &countSessionRepo{db}
}

func (r *countSessionRepo) Create(ctx context.Context, session *model.CountSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *countSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CountSession, error) {
	var session model.CountSession
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("CompletedBy").
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *countSessionRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.CountSession, error) {
	return r.findLocked(tx, id, clause.LockingStrengthUpdate)
}

func (r *countSessionRepo) FindForShare(tx *gorm.DB, id uuid.UUID) (*model.CountSession, error) {
	return r.findLocked(tx, id, clause.LockingStrengthShare)
}

func (r *countSessionRepo) findLocked(tx *gorm.DB, id uuid.UUID, strength string) (*model.CountSession, error) {
	var session model.CountSession
	err := tx.Clauses(clause.Locking{Strength: strength}).First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// MarkFinal persists the terminal decision columns only.
func (r *countSessionRepo) MarkFinal(tx *gorm.DB, session *model.CountSession) error {
	return tx.Model(&model.CountSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"final_state":     session.FinalState,
			"final_state_at":  session.FinalStateAt,
			"completed_by_id": session.CompletedByID,
			"updated_by":      session.UpdatedBy,
		}).Error
}

func (r *countSessionRepo) ListOpenByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.CountSession, error) {
	var sessions []model.CountSession
	err := r.db.WithContext(ctx).
		Where("creator_id = ? AND final_state IS NULL", creatorID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *countSessionRepo) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.CountSession{}).Where("final_state IS NULL").Count(&n).Error
	return n, err
}
