package service

import (
	"context"
	"fmt"
	"sort"

	"go-cyclecount-ws/internal/model"

	"github.com/google/uuid"
)

type pairTotal struct {
	Key model.PairKey
	Qty int
}

// aggregateCounts sums qty per pair over non-Deleted counts, sorted by pair.
func aggregateCounts(counts []model.IndividualCount) []pairTotal {
	sums := make(map[model.PairKey]int)
	for _, c := range counts {
		if c.State == model.CountStateDeleted {
			continue
		}
		sums[c.Key()] += c.Qty
	}

	totals := make([]pairTotal, 0, len(sums))
	for key, qty := range sums {
		totals = append(totals, pairTotal{Key: key, Qty: qty})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Key.Less(totals[j].Key) })
	return totals
}

// ReviewLine compares the counted quantity of a pair with the ledger.
type ReviewLine struct {
	Location      model.Location `json:"location"`
	Product       model.Product  `json:"product"`
	CycleCountQty int            `json:"cyclecount_qty"`
	Qty           int            `json:"qty"`
}

// Delta is what accepting the session would change the ledger by.
func (l ReviewLine) Delta() int {
	return l.CycleCountQty - l.Qty
}

// SessionReview is the projection of one session. Modifications is filled once the session is closed.
type SessionReview struct {
	Session       *model.CountSession            `json:"session"`
	Lines         []ReviewLine                   `json:"lines"`
	Counts        []model.IndividualCount        `json:"counts"`
	Modifications []model.CycleCountModification `json:"modifications,omitempty"`
}

// Mapping indexes the lines by location/product pair.
func (r *SessionReview) Mapping() map[model.PairKey]ReviewLine {
	m := make(map[model.PairKey]ReviewLine, len(r.Lines))
	for _, line := range r.Lines {
		m[model.PairKey{LocationID: line.Location.ID, ProductID: line.Product.ID}] = line
	}
	return m
}

// ReviewSession projects a session of any state against current ledger quantities. It never writes.
func (s *cycleCountService) ReviewSession(ctx context.Context, id uuid.UUID) (*SessionReview, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	counts, err := s.repos.Counts.ListBySessionDetailed(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load counts: %w", err)
	}

	locations := make(map[uuid.UUID]model.Location)
	products := make(map[uuid.UUID]model.Product)
	for _, c := range counts {
		if c.Location != nil {
			locations[c.LocationID] = *c.Location
		}
		if c.Product != nil {
			products[c.ProductID] = *c.Product
		}
	}

	totals := aggregateCounts(counts)
	locationIDs := make([]uuid.UUID, 0, len(locations))
	for locationID := range locations {
		locationIDs = append(locationIDs, locationID)
	}
	entries, err := s.repos.Inventory.FindByLocations(ctx, locationIDs)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	current := make(map[model.PairKey]int, len(entries))
	for _, e := range entries {
		current[e.Key()] = e.Qty
	}

	lines := make([]ReviewLine, 0, len(totals))
	for _, t := range totals {
		lines = append(lines, ReviewLine{
			Location:      locations[t.Key.LocationID],
			Product:       products[t.Key.ProductID],
			CycleCountQty: t.Qty,
			Qty:           current[t.Key],
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Location.Description != lines[j].Location.Description {
			return lines[i].Location.Description < lines[j].Location.Description
		}
		return lines[i].Product.SKU < lines[j].Product.SKU
	})

	review := &SessionReview{Session: session, Lines: lines, Counts: counts}
	if !session.IsOpen() {
		review.Modifications, err = s.repos.Modifications.ListBySession(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load modifications: %w", err)
		}
	}
	return review, nil
}
