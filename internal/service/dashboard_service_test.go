package service

import (
	"context"
	"testing"

	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/repository"
	"go-cyclecount-ws/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDashboardStats(t *testing.T) {
	db := testdb.New(t)
	fx := testdb.NewFixture(t, db)
	svc := NewDashboardService(repository.NewRepositories(db))

	user := fx.User("ana")
	l1 := fx.Location("L1")
	fx.Location("L2")
	a := fx.Product("A", "A")
	b := fx.Product("B", "B")
	fx.Product("C", "C")
	fx.Inventory(l1, a, 4)
	fx.Inventory(l1, b, 6)

	fx.Session(user)
	closed := fx.Session(user)
	require.NoError(t, db.Model(closed).Update("final_state", string(model.FinalStateCanceled)).Error)

	stats, err := svc.GetDashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &DashboardStats{Locations: 2, Products: 3, OpenSessions: 1, UnitsOnHand: 10}, stats)
}
