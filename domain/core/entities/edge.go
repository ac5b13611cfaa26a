package entities

import (
	"encoding/json"

	"mindmap-backend/domain/core/valueobjects"
)

// Edge is an undirected connection between two nodes
type Edge struct {
	id     valueobjects.EdgeID
	source valueobjects.NodeID
	target valueobjects.NodeID
}

// NewEdge builds an edge; endpoint checks belong to the graph
func NewEdge(id valueobjects.EdgeID, source, target valueobjects.NodeID) Edge {
	return Edge{id: id, source: source, target: target}
}

// ID returns the edge identifier
func (e Edge) ID() valueobjects.EdgeID {
	return e.id
}

// Source returns the node the edge was drawn from
func (e Edge) Source() valueobjects.NodeID {
	return e.source
}

// Target returns the node the edge was drawn to
func (e Edge) Target() valueobjects.NodeID {
	return e.target
}

// Touches reports whether the edge references the node
func (e Edge) Touches(id valueobjects.NodeID) bool {
	return e.source == id || e.target == id
}

// PairKey is the same for (a,b) and (b,a)
func (e Edge) PairKey() string {
	return PairKey(e.source, e.target)
}

// PairKey orders the endpoints so the key is direction independent
func PairKey(a, b valueobjects.NodeID) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "\x00" + string(b)
}

// EdgeDocument is the wire and storage shape of an edge
type EdgeDocument struct {
	ID     string `json:"id" dynamodbav:"id"`
	Source string `json:"source" dynamodbav:"source"`
	Target string `json:"target" dynamodbav:"target"`
}

// Document converts the edge to its flat shape
func (e Edge) Document() EdgeDocument {
	return EdgeDocument{
		ID:     e.id.String(),
		Source: e.source.String(),
		Target: e.target.String(),
	}
}

// MarshalJSON implements json.Marshaler
func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Document())
}
