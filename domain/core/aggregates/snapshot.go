package aggregates

import (
	"mindmap-backend/domain/core/entities"
)

// Snapshot is an immutable copy of the full node and edge state
type Snapshot struct {
	nodes []entities.Node
	edges []entities.Edge
}

// NewSnapshot copies the given slices
func NewSnapshot(nodes []entities.Node, edges []entities.Edge) Snapshot {
	return Snapshot{
		nodes: append([]entities.Node(nil), nodes...),
		edges: append([]entities.Edge(nil), edges...),
	}
}

// Nodes returns a copy of the captured nodes
func (s Snapshot) Nodes() []entities.Node {
	return append([]entities.Node(nil), s.nodes...)
}

// Edges returns a copy of the captured edges
func (s Snapshot) Edges() []entities.Edge {
	return append([]entities.Edge(nil), s.edges...)
}

// NodeCount returns the number of captured nodes
func (s Snapshot) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of captured edges
func (s Snapshot) EdgeCount() int {
	return len(s.edges)
}

// Data converts the snapshot to its document form
func (s Snapshot) Data() GraphData {
	data := GraphData{
		Nodes: make([]entities.NodeDocument, 0, len(s.nodes)),
		Edges: make([]entities.EdgeDocument, 0, len(s.edges)),
	}
	for _, n := range s.nodes {
		data.Nodes = append(data.Nodes, n.Document())
	}
	for _, e := range s.edges {
		data.Edges = append(data.Edges, e.Document())
	}
	return data
}

// GraphData is the plain node and edge record list exchanged with
// the store, the renderer and export files
type GraphData struct {
	Nodes []entities.NodeDocument `json:"nodes"`
	Edges []entities.EdgeDocument `json:"edges"`
}

// Empty reports whether no nodes were supplied
func (d GraphData) Empty() bool {
	return len(d.Nodes) == 0
}
