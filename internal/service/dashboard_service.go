package service

import (
	"context"
	"time"

	"go-cyclecount-ws/internal/repository"
)

type DashboardStats struct {
	Locations    int64 `json:"locations"`
	Products     int64 `json:"products"`
	OpenSessions int64 `json:"open_sessions"`
	UnitsOnHand  int64 `json:"units_on_hand"`
}

type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	GetAdjustments(ctx context.Context, days int) ([]repository.AdjustmentData, error)
}

type dashboardService struct {
	repos *repository.Repositories
	now   func() time.Time
}

func NewDashboardService(repos *repository.Repositories) DashboardService {
	return &dashboardService{repos: repos, now: time.Now}
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	var err error
	if stats.Locations, err = s.repos.Locations.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Products, err = s.repos.Products.Count(ctx); err != nil {
		return nil, err
	}
	if stats.OpenSessions, err = s.repos.Sessions.CountOpen(ctx); err != nil {
		return nil, err
	}
	if stats.UnitsOnHand, err = s.repos.Inventory.TotalUnits(ctx); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetAdjustments returns per-day net ledger change from reconciliations over the last days.
func (s *dashboardService) GetAdjustments(ctx context.Context, days int) ([]repository.AdjustmentData, error) {
	endDate := s.now()
	startDate := endDate.AddDate(0, 0, -days)
	return s.repos.Modifications.DailyAdjustments(ctx, startDate, endDate)
}
