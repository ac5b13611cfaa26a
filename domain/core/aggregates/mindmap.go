package aggregates

import (
	"time"

	"mindmap-backend/domain/config"
	"mindmap-backend/domain/core/entities"
	"mindmap-backend/domain/core/valueobjects"
)

// MindMap is the persisted form of a graph together with its ownership and
// versioning metadata
type MindMap struct {
	MapID       valueobjects.MapID      `json:"mapId" dynamodbav:"mapId"`
	OwnerID     string                  `json:"ownerId" dynamodbav:"ownerId"`
	Title       string                  `json:"title" dynamodbav:"title"`
	Description string                  `json:"description" dynamodbav:"description"`
	Nodes       []entities.NodeDocument `json:"nodes" dynamodbav:"nodes"`
	Edges       []entities.EdgeDocument `json:"edges" dynamodbav:"edges"`
	CreatedAt   time.Time               `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt" dynamodbav:"updatedAt"`
	Version     int                     `json:"version" dynamodbav:"version"`
}

// NewMindMap creates version 1 of a map. A map with no nodes gets the
// default central node.
func NewMindMap(cfg *config.DomainConfig, mapID valueobjects.MapID, ownerID, title, description string, data GraphData, now time.Time) *MindMap {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if title == "" {
		title = cfg.DefaultMapTitle
	}
	if data.Empty() {
		data = NewGraphWithCentralNode(cfg).Data()
	}
	now = now.UTC()
	return &MindMap{
		MapID:       mapID,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Nodes:       nonNilNodes(data.Nodes),
		Edges:       nonNilEdges(data.Edges),
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// Data returns the node and edge records
func (m *MindMap) Data() GraphData {
	return GraphData{Nodes: nonNilNodes(m.Nodes), Edges: nonNilEdges(m.Edges)}
}

// ApplySave replaces the contents and bumps the version by one
func (m *MindMap) ApplySave(data GraphData, now time.Time) {
	m.Nodes = nonNilNodes(data.Nodes)
	m.Edges = nonNilEdges(data.Edges)
	m.UpdatedAt = now.UTC()
	m.Version++
}

// Summary drops the graph payload for listings
func (m *MindMap) Summary() MindMapSummary {
	return MindMapSummary{
		MapID:       m.MapID,
		Title:       m.Title,
		Description: m.Description,
		NodeCount:   len(m.Nodes),
		EdgeCount:   len(m.Edges),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Version:     m.Version,
	}
}

// MindMapSummary is a map listing entry
type MindMapSummary struct {
	MapID       valueobjects.MapID `json:"mapId"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	NodeCount   int                `json:"nodeCount"`
	EdgeCount   int                `json:"edgeCount"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Version     int                `json:"version"`
}

func nonNilNodes(in []entities.NodeDocument) []entities.NodeDocument {
	return append(make([]entities.NodeDocument, 0, len(in)), in...)
}

func nonNilEdges(in []entities.EdgeDocument) []entities.EdgeDocument {
	return append(make([]entities.EdgeDocument, 0, len(in)), in...)
}
