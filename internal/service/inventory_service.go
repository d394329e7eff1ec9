package service

import (
	"context"
	"fmt"

	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/repository"
	"go-cyclecount-ws/pkg/pagination"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultLookupConcurrency = 8

// InventoryRecord is one row of the paginated ledger table.
type InventoryRecord struct {
	ID       uuid.UUID `json:"id"`
	Location string    `json:"location"`
	SKU      *string   `json:"sku"`
	Qty      int       `json:"qty"`
}

type InventoryPage struct {
	LastPage int               `json:"last_page"`
	Data     []InventoryRecord `json:"data"`
}

// SKUResolver looks a product's SKU up somewhere other than the local catalog.
type SKUResolver interface {
	LookupSKU(ctx context.Context, productID uuid.UUID) (string, bool)
}

type InventoryService interface {
	ListInventory(ctx context.Context) ([]model.InventoryEntry, error)
	PageFromDB(ctx context.Context, page, size int) (*InventoryPage, error)
	PageWithResolver(ctx context.Context, page, size int, resolver SKUResolver) (*InventoryPage, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	concurrency   int
}

func NewInventoryService(inventoryRepo repository.InventoryRepository, lookupConcurrency int) InventoryService {
	if lookupConcurrency <= 0 {
		lookupConcurrency = defaultLookupConcurrency
	}
	return &inventoryService{inventoryRepo: inventoryRepo, concurrency: lookupConcurrency}
}

func (s *inventoryService) ListInventory(ctx context.Context) ([]model.InventoryEntry, error) {
	return s.inventoryRepo.FindAll(ctx)
}

func (s *inventoryService) PageFromDB(ctx context.Context, page, size int) (*InventoryPage, error) {
	entries, lastPage, err := s.load(ctx, page, size)
	if err != nil {
		return nil, err
	}
	records := toRecords(entries)
	for i, e := range entries {
		if e.Product != nil {
			sku := e.Product.SKU
			records[i].SKU = &sku
		}
	}
	return &InventoryPage{LastPage: lastPage, Data: records}, nil
}

// PageWithResolver fills sku from resolver; a failed lookup leaves that row's sku null
// and never fails the page.
func (s *inventoryService) PageWithResolver(ctx context.Context, page, size int, resolver SKUResolver) (*InventoryPage, error) {
	entries, lastPage, err := s.load(ctx, page, size)
	if err != nil {
		return nil, err
	}
	records := toRecords(entries)
	if resolver == nil || len(entries) == 0 {
		return &InventoryPage{LastPage: lastPage, Data: records}, nil
	}

	productIDs := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]bool, len(entries))
	for _, e := range entries {
		if !seen[e.ProductID] {
			seen[e.ProductID] = true
			productIDs = append(productIDs, e.ProductID)
		}
	}

	skus := make([]*string, len(productIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, productID := range productIDs {
		i, productID := i, productID
		g.Go(func() error {
			if sku, ok := resolver.LookupSKU(gctx, productID); ok {
				skus[i] = &sku
			}
			return nil
		})
	}
	_ = g.Wait()

	byProduct := make(map[uuid.UUID]*string, len(productIDs))
	for i, productID := range productIDs {
		byProduct[productID] = skus[i]
	}
	for i, e := range entries {
		if sku := byProduct[e.ProductID]; sku != nil {
			v := *sku
			records[i].SKU = &v
		}
	}
	return &InventoryPage{LastPage: lastPage, Data: records}, nil
}

func (s *inventoryService) load(ctx context.Context, page, size int) ([]model.InventoryEntry, int, error) {
	page, size = pagination.Normalize(page, size)
	entries, total, err := s.inventoryRepo.Page(ctx, pagination.Offset(page, size), size)
	if err != nil {
		return nil, 0, fmt.Errorf("load inventory page: %w", err)
	}
	return entries, pagination.LastPage(total, size), nil
}

func toRecords(entries []model.InventoryEntry) []InventoryRecord {
	records := make([]InventoryRecord, len(entries))
	for i, e := range entries {
		records[i] = InventoryRecord{ID: e.ID, Qty: e.Qty}
		if e.Location != nil {
			records[i].Location = e.Location.Description
		}
	}
	return records
}
