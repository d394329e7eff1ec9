package repository

import (
	"context"

	"go-cyclecount-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository interface {
	// FindForUpdate reads and row-locks the entry for a pair inside tx, soft-deleted rows included.
	FindForUpdate(tx *gorm.DB, key model.PairKey) (*model.InventoryEntry, error)
	Create(tx *gorm.DB, entry *model.InventoryEntry) error
	UpdateQty(tx *gorm.DB, id uuid.UUID, qty int, updatedBy string) error
	FindByLocations(ctx context.Context, locationIDs []uuid.UUID) ([]model.InventoryEntry, error)
	FindAll(ctx context.Context) ([]model.InventoryEntry, error)
	Page(ctx context.Context, offset, limit int) ([]model.InventoryEntry, int64, error)
	TotalUnits(ctx context.Context) (int64, error)
}

type inventoryRepo struct {
	db *gorm.DB
}

func NewInventoryRepo(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{db}
}

func (r *inventoryRepo) FindForUpdate(tx *gorm.DB, key model.PairKey) (*model.InventoryEntry, error) {
	var entry model.InventoryEntry
	err := tx.Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("location_id = ? AND product_id = ?", key.LocationID, key.ProductID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *inventoryRepo) Create(tx *gorm.DB, entry *model.InventoryEntry) error {
	return tx.Create(entry).Error
}

// UpdateQty overwrites the quantity and restores the row if it was soft-deleted.
// Reconciliation never increments.
func (r *inventoryRepo) UpdateQty(tx *gorm.DB, id uuid.UUID, qty int, updatedBy string) error {
	return tx.Unscoped().
		Model(&model.InventoryEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"qty":        qty,
			"updated_by": updatedBy,
			"deleted_at": nil,
			"deleted_by": "",
		}).Error
}

func (r *inventoryRepo) FindByLocations(ctx context.Context, locationIDs []uuid.UUID) ([]model.InventoryEntry, error) {
	var entries []model.InventoryEntry
	if len(locationIDs) == 0 {
		return entries, nil
	}
	err := r.db.WithContext(ctx).Where("location_id IN ?", locationIDs).Find(&entries).Error
	return entries, err
}

func (r *inventoryRepo) FindAll(ctx context.Context) ([]model.InventoryEntry, error) {
	var entries []model.InventoryEntry
	err := r.db.WithContext(ctx).
		Preload("Location").
		Preload("Product").
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// Page returns one slice of the ledger in creation order plus the total row count.
func (r *inventoryRepo) Page(ctx context.Context, offset, limit int) ([]model.InventoryEntry, int64, error) {
	var total int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.InventoryEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	entries := make([]model.InventoryEntry, 0, limit)
	err := db.Preload("Location").
		Preload("Product").
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

func (r *inventoryRepo) TotalUnits(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.InventoryEntry{}).Select("COALESCE(SUM(qty), 0)").Scan(&total).Error
	return total, err
}
