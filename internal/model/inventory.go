package model

import "github.com/google/uuid"

// InventoryEntry is the on-hand quantity for one location/product pair.
// Only reconciliation writes it.
type InventoryEntry struct {
	BaseModel
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_location_product,priority:1" json:"location_id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_location_product,priority:2;index" json:"product_id"`
	Qty        int       `gorm:"not null;default:0;check:chk_inventory_qty_non_negative,qty >= 0" json:"qty"`

	Location *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Product  *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// PairKey identifies a location/product pair.
type PairKey struct {
	LocationID uuid.UUID
	ProductID  uuid.UUID
}

// Less orders pairs by location then product so locks are always taken in the same order.
func (k PairKey) Less(other PairKey) bool {
	if k.LocationID != other.LocationID {
		return k.LocationID.String() < other.LocationID.String()
	}
	return k.ProductID.String() < other.ProductID.String()
}

func (e InventoryEntry) Key() PairKey {
	return PairKey{LocationID: e.LocationID, ProductID: e.ProductID}
}
