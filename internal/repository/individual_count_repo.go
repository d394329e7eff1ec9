package repository

import (
	"context"

	"go-cyclecount-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IndividualCountRepository interface {
	Create(tx *gorm.DB, count *model.IndividualCount) error
	// ListBySession returns every count of the session, in any state, oldest first.
	ListBySession(tx *gorm.DB, sessionID uuid.UUID) ([]model.IndividualCount, error)
	ListBySessionDetailed(ctx context.Context, sessionID uuid.UUID) ([]model.IndividualCount, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

type individualCountRepo struct {
	db *gorm.DB
}

func NewIndividualCountRepo(db *gorm.DB) IndividualCountRepository {
	return &individualCountRepo{db}
}

func (r *individualCountRepo) Create(tx *gorm.DB, count *model.IndividualCount) error {
	return tx.Create(count).Error
}

func (r *individualCountRepo) ListBySession(tx *gorm.DB, sessionID uuid.UUID) ([]model.IndividualCount, error) {
	var counts []model.IndividualCount
	err := tx.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&counts).Error
	return counts, err
}

// ListBySessionDetailed is ListBySession with location, product and associate loaded.
func (r *individualCountRepo) ListBySessionDetailed(ctx context.Context, sessionID uuid.UUID) ([]model.IndividualCount, error) {
	var counts []model.IndividualCount
	err := r.db.WithContext(ctx).
		Preload("Location").
		Preload("Product").
		Preload("Associate").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&counts).Error
	return counts, err
}

func (r *individualCountRepo) CountBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.IndividualCount{}).Where("session_id = ?", sessionID).Count(&n).Error
	return n, err
}
