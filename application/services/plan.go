package services

import (
	"context"

	"mindmap-backend/application/ports"
)

// Plan names
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// StorePlanProvider counts an owner's stored maps against the free limit.
// Premium owners are unlimited.
type StorePlanProvider struct {
	store     ports.MindMapStore
	freeLimit int
	premium   map[string]bool
}

// NewStorePlanProvider creates a plan provider
func NewStorePlanProvider(store ports.MindMapStore, freeLimit int, premiumOwners []string) *StorePlanProvider {
	premium := make(map[string]bool, len(premiumOwners))
	for _, o := range premiumOwners {
		premium[o] = true
	}
	return &StorePlanProvider{store: store, freeLimit: freeLimit, premium: premium}
}

// Status implements ports.PlanProvider
func (p *StorePlanProvider) Status(ctx context.Context, ownerID string) (ports.PlanStatus, error) {
	count, err := p.store.CountByOwner(ctx, ownerID)
	if err != nil {
		return ports.PlanStatus{}, err
	}

	if p.premium[ownerID] || p.freeLimit < 0 {
		return ports.PlanStatus{Plan: PlanPremium, CanCreate: true, CurrentCount: count, Limit: -1}, nil
	}
	return ports.PlanStatus{
		Plan:         PlanFree,
		CanCreate:    count < p.freeLimit,
		CurrentCount: count,
		Limit:        p.freeLimit,
	}, nil
}
