package model

import (
	"time"

	"github.com/google/uuid"
)

// FinalState is the terminal decision on a session. A nil *FinalState means open.
type FinalState string

const (
	FinalStateAccepted FinalState = "Accepted"
	FinalStateCanceled FinalState = "Canceled"
)

func (s FinalState) Valid() bool {
	return s == FinalStateAccepted || s == FinalStateCanceled
}

// CountSession groups the scans of one cycle count.
type CountSession struct {
	BaseModel
	CreatorID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"creator_id"`
	FinalState    *FinalState `gorm:"type:varchar(20);index" json:"final_state"`
	FinalStateAt  *time.Time  `json:"final_state_at"`
	CompletedByID *uuid.UUID  `gorm:"type:uuid" json:"completed_by_id"`

	Creator     *User             `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	CompletedBy *User             `gorm:"foreignKey:CompletedByID" json:"completed_by,omitempty"`
	Counts      []IndividualCount `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"counts,omitempty"`
}

func (s *CountSession) IsOpen() bool {
	return s.FinalState == nil
}

// CountState marks an individual count as live or retracted.
type CountState string

const (
	CountStateActive  CountState = "Active"
	CountStateDeleted CountState = "Deleted"
)

// IndividualCount is one scan event. Rows are appended, never merged.
type IndividualCount struct {
	BaseModel
	AssociateID uuid.UUID  `gorm:"type:uuid;not null" json:"associate_id"`
	SessionID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"session_id"`
	LocationID  uuid.UUID  `gorm:"type:uuid;not null" json:"location_id"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null" json:"product_id"`
	Qty         int        `gorm:"not null;default:1" json:"qty"`
	State       CountState `gorm:"type:varchar(20);not null;default:Active" json:"state"`

	Associate *User     `gorm:"foreignKey:AssociateID" json:"associate,omitempty"`
	Location  *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (c IndividualCount) Key() PairKey {
	return PairKey{LocationID: c.LocationID, ProductID: c.ProductID}
}

// CycleCountModification is the audit row written for each pair a reconciliation overwrites.
type CycleCountModification struct {
	BaseModel
	SessionID   uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	LocationID  uuid.UUID `gorm:"type:uuid;not null" json:"location_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	OldQty      int       `gorm:"not null" json:"old_qty"`
	NewQty      int       `gorm:"not null" json:"new_qty"`
	AssociateID uuid.UUID `gorm:"type:uuid;not null" json:"associate_id"`

	Location  *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Associate *User     `gorm:"foreignKey:AssociateID" json:"associate,omitempty"`
}
