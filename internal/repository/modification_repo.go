package repository

import (
	"context"
	"time"

	"go-cyclecount-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdjustmentData is one day of reconciliation activity for charts.
type AdjustmentData struct {
	Date          string `json:"date"`
	NetChange     int64  `json:"net_change"`
	Modifications int64  `json:"modifications"`
}

type ModificationRepository interface {
	CreateBatch(tx *gorm.DB, mods []model.CycleCountModification) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CycleCountModification, error)
	DailyAdjustments(ctx context.Context, startDate, endDate time.Time) ([]AdjustmentData, error)
}

type modificationRepo struct {
	db *gorm.DB
}

func NewModificationRepo(db *gorm.DB) ModificationRepository {
	return &modificationRepo{db}
}

func (r *modificationRepo) CreateBatch(tx *gorm.DB, mods []model.CycleCountModification) error {
	if len(mods) == 0 {
		return nil
	}
	return tx.CreateInBatches(&mods, 200).Error
}

func (r *modificationRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CycleCountModification, error) {
	var mods []model.CycleCountModification
	err := r.db.WithContext(ctx).
		Preload("Location").
		Preload("Product").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&mods).Error
	return mods, err
}

func (r *modificationRepo) DailyAdjustments(ctx context.Context, startDate, endDate time.Time) ([]AdjustmentData, error) {
	results := []AdjustmentData{}

	rows, err := r.db.WithContext(ctx).Model(&model.CycleCountModification{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(new_qty - old_qty), 0) as net_change,
			COUNT(*) as modifications
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data AdjustmentData
		if err := rows.Scan(&data.Date, &data.NetChange, &data.Modifications); err != nil {
			return nil, err
		}
		results = append(results, data)
	}
	return results, rows.Err()
}
