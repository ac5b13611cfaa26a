// Package queries holds the read-only requests answered by the query bus.
package queries

import (
	"strings"

	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/pkg/common"
	"mindmap-backend/pkg/errors"
)

// GetMapQuery returns the current state of a map, opening it if needed
type GetMapQuery struct {
	OwnerID string
	MapID   valueobjects.MapID
}

// Validate validates the query
func (q GetMapQuery) Validate() error {
	if q.MapID == "" {
		return errors.NewValidationError("map ID is required")
	}
	return nil
}

// ListMapsQuery lists an owner's stored maps, newest first
type ListMapsQuery struct {
	OwnerID  string
	Page     int
	PageSize int
}

// Validate validates the query
func (q ListMapsQuery) Validate() error {
	if q.OwnerID == "" {
		return errors.NewValidationError("owner ID is required")
	}
	if q.Page < 0 {
		return errors.NewValidationError("page cannot be negative")
	}
	if q.PageSize < 0 {
		return errors.NewValidationError("page size cannot be negative")
	}
	return nil
}

// ListMapsResult is one page of map summaries
type ListMapsResult struct {
	Maps       []aggregates.MindMapSummary `json:"maps"`
	Pagination *common.PaginationInfo      `json:"pagination"`
}

// ExportMapQuery renders a map as an export document
type ExportMapQuery struct {
	OwnerID string
	MapID   valueobjects.MapID
}

// Validate validates the query
func (q ExportMapQuery) Validate() error {
	if q.MapID == "" {
		return errors.NewValidationError("map ID is required")
	}
	return nil
}

// GetNodeQuery returns one node of a map
type GetNodeQuery struct {
	OwnerID string
	MapID   valueobjects.MapID
	NodeID  valueobjects.NodeID
}

// Validate validates the query
func (q GetNodeQuery) Validate() error {
	if q.MapID == "" {
		return errors.NewValidationError("map ID is required")
	}
	if q.NodeID == "" {
		return errors.NewValidationError("node ID is required")
	}
	return nil
}

// GetPlanQuery returns the owner's plan and map allowance
type GetPlanQuery struct {
	OwnerID string
}

// Validate validates the query
func (q GetPlanQuery) Validate() error {
	if q.OwnerID == "" {
		return errors.NewValidationError("owner ID is required")
	}
	return nil
}

// ClassifyQuery assigns a label to a concept category
type ClassifyQuery struct {
	Label string
}

// Validate validates the query
func (q ClassifyQuery) Validate() error {
	if strings.TrimSpace(q.Label) == "" {
		return errors.NewValidationError("label is required")
	}
	if len(q.Label) > 200 {
		return errors.NewValidationError("label is too long")
	}
	return nil
}
