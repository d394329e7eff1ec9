package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/repository"
	"go-cyclecount-ws/pkg/logger"
	"go-cyclecount-ws/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CycleCountService interface {
	StartSession(ctx context.Context, initiator Actor) (*model.CountSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*model.CountSession, error)
	GetOpenSession(ctx context.Context, id uuid.UUID) (*model.CountSession, error)
	ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]model.CountSession, error)

	GetLocation(ctx context.Context, id uuid.UUID) (*model.Location, error)
	ResolveLocation(ctx context.Context, barcode string) (*model.Location, error)
	ResolveProduct(ctx context.Context, sku string) (*model.Product, error)
	RecordScan(ctx context.Context, in ScanInput) (*model.IndividualCount, error)

	ReviewSession(ctx context.Context, id uuid.UUID) (*SessionReview, error)
	FinalizeSession(ctx context.Context, id uuid.UUID, decision model.FinalState, completer Actor) (*FinalizeResult, error)
}

// ScanInput is one "scan product" action.
type ScanInput struct {
	SessionID uuid.UUID
	Location  *model.Location
	Product   *model.Product
	Associate Actor
}

type cycleCountService struct {
	db      *gorm.DB
	repos   *repository.Repositories
	events  EventPublisher
	metrics *metrics.CycleCountMetrics
	log     *logger.Logger
	now     func() time.Time
}

func NewCycleCountService(db *gorm.DB, repos *repository.Repositories, events EventPublisher, m *metrics.CycleCountMetrics, log *logger.Logger) CycleCountService {
	if log == nil {
		log = logger.Nop()
	}
	return &cycleCountService{
		db:      db,
		repos:   repos,
		events:  events,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *cycleCountService) StartSession(ctx context.Context, initiator Actor) (*model.CountSession, error) {
	if initiator.ID == uuid.Nil {
		return nil, errors.New("an authenticated initiator is required")
	}
	session := &model.CountSession{CreatorID: initiator.ID}
	session.CreatedBy = initiator.label()
	session.UpdatedBy = initiator.label()
	if err := s.repos.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create count session: %w", err)
	}
	s.log.Info(s.log.WithSessionID(ctx, session.ID.String()), "count session started")
	return session, nil
}

func (s *cycleCountService) GetSession(ctx context.Context, id uuid.UUID) (*model.CountSession, error) {
	session, err := s.repos.Sessions.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "count session %s", id)
	}
	return session, nil
}

// GetOpenSession returns the session only while it can still take scans.
func (s *cycleCountService) GetOpenSession(ctx context.Context, id uuid.UUID) (*model.CountSession, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionClosed, id, *session.FinalState)
	}
	return session, nil
}

func (s *cycleCountService) ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]model.CountSession, error) {
	return s.repos.Sessions.ListOpenByCreator(ctx, userID)
}

func (s *cycleCountService) GetLocation(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	location, err := s.repos.Locations.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "location %s", id)
	}
	return location, nil
}

func (s *cycleCountService) ResolveLocation(ctx context.Context, barcode string) (*model.Location, error) {
	location, err := s.repos.Locations.FindByDescription(ctx, strings.TrimSpace(barcode))
	if err != nil {
		return nil, notFound(err, "location %q", barcode)
	}
	return location, nil
}

func (s *cycleCountService) ResolveProduct(ctx context.Context, sku string) (*model.Product, error) {
	product, err := s.repos.Products.FindBySKU(ctx, strings.TrimSpace(sku))
	if err != nil {
		return nil, notFound(err, "product %q", sku)
	}
	return product, nil
}

// RecordScan appends one Active count of qty 1. Prior counts for the pair are left alone.
func (s *cycleCountService) RecordScan(ctx context.Context, in ScanInput) (*model.IndividualCount, error) {
	if in.Location == nil || in.Product == nil {
		return nil, errors.New("scan requires a location and a product")
	}
	count := &model.IndividualCount{
		SessionID:   in.SessionID,
		AssociateID: in.Associate.ID,
		LocationID:  in.Location.ID,
		ProductID:   in.Product.ID,
		Qty:         1,
		State:       model.CountStateActive,
	}
	count.CreatedBy = in.Associate.label()
	count.UpdatedBy = in.Associate.label()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.repos.Sessions.FindForShare(tx, in.SessionID)
		if err != nil {
			return notFound(err, "count session %s", in.SessionID)
		}
		if !session.IsOpen() {
			return fmt.Errorf("%w: %s is %s", ErrSessionClosed, in.SessionID, *session.FinalState)
		}
		return s.repos.Counts.Create(tx, count)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncScan()
	s.publish(ctx, EventCountRecorded, map[string]any{
		"session_id": in.SessionID,
		"count_id":   count.ID,
		"location":   in.Location.Description,
		"sku":        in.Product.SKU,
		"associate":  in.Associate.label(),
	})
	return count, nil
}

func (s *cycleCountService) publish(ctx context.Context, eventType string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventType, payload)
}

// notFound maps a missing row to ErrNotFound and passes other failures through.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
