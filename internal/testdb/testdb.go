// Package testdb opens throwaway sqlite databases with the full schema migrated.
package testdb

import (
	"testing"

	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// New returns an isolated in-memory database that is closed when the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Connect(database.Options{Driver: database.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Fixture creates catalog rows and users directly, bypassing services.
type Fixture struct {
	t  testing.TB
	DB *gorm.DB
}

func NewFixture(t testing.TB, db *gorm.DB) *Fixture {
	return &Fixture{t: t, DB: db}
}

func (f *Fixture) Location(description string) *model.Location {
	f.t.Helper()
	loc := &model.Location{Description: description}
	f.must(f.DB.Create(loc).Error)
	return loc
}

func (f *Fixture) Product(sku, description string) *model.Product {
	f.t.Helper()
	p := &model.Product{SKU: sku, Description: description}
	f.must(f.DB.Create(p).Error)
	return p
}

func (f *Fixture) User(username string) *model.User {
	f.t.Helper()
	u := &model.User{Username: username, FullName: username, IsActive: true}
	f.must(u.SetPassword("password"))
	f.must(f.DB.Create(u).Error)
	return u
}

func (f *Fixture) Inventory(loc *model.Location, p *model.Product, qty int) *model.InventoryEntry {
	f.t.Helper()
	e := &model.InventoryEntry{LocationID: loc.ID, ProductID: p.ID, Qty: qty}
	f.must(f.DB.Create(e).Error)
	return e
}

func (f *Fixture) Session(creator *model.User) *model.CountSession {
	f.t.Helper()
	s := &model.CountSession{CreatorID: creator.ID}
	f.must(f.DB.Create(s).Error)
	return s
}

func (f *Fixture) Count(s *model.CountSession, associate *model.User, loc *model.Location, p *model.Product, qty int, state model.CountState) *model.IndividualCount {
	f.t.Helper()
	c := &model.IndividualCount{
		SessionID:   s.ID,
		AssociateID: associate.ID,
		LocationID:  loc.ID,
		ProductID:   p.ID,
		Qty:         qty,
		State:       state,
	}
	f.must(f.DB.Create(c).Error)
	return c
}

func (f *Fixture) must(err error) {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("fixture: %v", err)
	}
}
