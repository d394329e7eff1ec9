package model

// Location is a physical bin; Description doubles as its scannable barcode.
type Location struct {
	BaseModel
	Description string `gorm:"type:varchar(255);uniqueIndex;not null" json:"description" validate:"required,max=255"`
}

// Product is a catalog item scanned by SKU.
type Product struct {
	BaseModel
	Description string `gorm:"type:varchar(255);not null" json:"description" validate:"required,max=255"`
	SKU         string `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku" validate:"required,max=100"`
}
