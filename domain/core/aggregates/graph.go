package aggregates

import (
	"fmt"

	"mindmap-backend/domain/config"
	"mindmap-backend/domain/core/entities"
	"mindmap-backend/domain/core/validators"
	"mindmap-backend/domain/core/valueobjects"
	pkgerrors "mindmap-backend/pkg/errors"
)

// ParentIndex marks the expanded node in an ExpansionLink
const ParentIndex = -1

// Graph is the in-memory mind map: nodes and edges in insertion order.
// It enforces identity and edge invariants; history and persistence are
// the caller's business.
type Graph struct {
	cfg       *config.DomainConfig
	validator *validators.NodeValidator

	nodes     []entities.Node
	nodeIndex map[valueobjects.NodeID]int
	edges     []entities.Edge
	edgeIndex map[valueobjects.EdgeID]int
	pairs     map[string]valueobjects.EdgeID

	// nextID only moves forward, also across Restore
	nextID int
}

// NodeSpec describes a node to be created
type NodeSpec struct {
	Label    string
	Position valueobjects.Position
	Size     float64
	Color    string
}

// NodePatch is a partial node update; nil fields are left alone
type NodePatch struct {
	Label    *string
	Position *valueobjects.Position
	Size     *float64
	Color    *string
}

// IsEmpty reports whether the patch changes nothing
func (p NodePatch) IsEmpty() bool {
	return p.Label == nil && p.Position == nil && p.Size == nil && p.Color == nil
}

// ExpansionLink connects two nodes of an expansion batch by index;
// ParentIndex refers to the expanded node
type ExpansionLink struct {
	From int
	To   int
}

// NewGraph creates an empty graph
func NewGraph(cfg *config.DomainConfig) *Graph {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Graph{
		cfg:       cfg,
		validator: validators.NewNodeValidator(cfg),
		nodeIndex: make(map[valueobjects.NodeID]int),
		edgeIndex: make(map[valueobjects.EdgeID]int),
		pairs:     make(map[string]valueobjects.EdgeID),
		nextID:    1,
	}
}

// NewGraphWithCentralNode creates a graph holding the default central node
func NewGraphWithCentralNode(cfg *config.DomainConfig) *Graph {
	g := NewGraph(cfg)
	g.appendNode(CentralNode(g.cfg, g.allocateID()))
	return g
}

// CentralNode builds the default node new maps start with
func CentralNode(cfg *config.DomainConfig, id valueobjects.NodeID) entities.Node {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return entities.NewNode(id, cfg.CentralNodeLabel, valueobjects.Origin, cfg.CentralNodeSize, valueobjects.Color(cfg.CentralNodeColor))
}

// ReconstructGraph rebuilds a graph from stored or imported records.
// Values are kept exactly as given; structural invariants are checked.
func ReconstructGraph(cfg *config.DomainConfig, data GraphData) (*Graph, error) {
	g := NewGraph(cfg)
	if err := g.load(data); err != nil {
		return nil, err
	}
	return g, nil
}

// AddNode validates spec and appends a node with a fresh id
func (g *Graph) AddNode(spec NodeSpec) (valueobjects.NodeID, error) {
	node, err := g.buildNode(spec)
	if err != nil {
		return "", err
	}
	if len(g.nodes) >= g.cfg.MaxNodesPerMap {
		return "", pkgerrors.NewValidationError("maximum nodes reached")
	}

	node = node.WithID(g.allocateID())
	g.appendNode(node)
	return node.ID(), nil
}

// UpdateNode applies a partial update; nothing changes if any field is invalid
func (g *Graph) UpdateNode(id valueobjects.NodeID, patch NodePatch) error {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return nodeNotFound(id)
	}

	updated := g.nodes[idx]
	if patch.Label != nil {
		label, err := g.validator.NormalizeLabel(*patch.Label)
		if err != nil {
			return err
		}
		updated = updated.WithLabel(label)
	}
	if patch.Position != nil {
		p := *patch.Position
		if _, err := valueobjects.NewPosition3D(p.X(), p.Y(), p.Z()); err != nil {
			return err
		}
		updated = updated.WithPosition(p)
	}
	if patch.Size != nil {
		if err := g.validator.ValidateSize(*patch.Size); err != nil {
			return err
		}
		updated = updated.WithSize(*patch.Size)
	}
	if patch.Color != nil {
		color, err := valueobjects.NewColor(*patch.Color)
		if err != nil {
			return err
		}
		updated = updated.WithColor(color)
	}

	g.nodes[idx] = updated
	return nil
}

// RemoveNode deletes a node and every edge referencing it
func (g *Graph) RemoveNode(id valueobjects.NodeID) error {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return nodeNotFound(id)
	}

	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Touches(id) {
			delete(g.pairs, e.PairKey())
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept

	g.reindex()
	return nil
}

// AddEdge connects two distinct existing nodes that are not yet connected
// in either direction
func (g *Graph) AddEdge(source, target valueobjects.NodeID) (valueobjects.EdgeID, error) {
	if err := g.checkEdge(source, target); err != nil {
		return "", err
	}
	if len(g.edges) >= g.cfg.MaxEdgesPerMap {
		return "", pkgerrors.NewValidationError("maximum edges reached")
	}

	edge := entities.NewEdge(g.edgeIDFor(source, target), source, target)
	g.appendEdge(edge)
	return edge.ID(), nil
}

// RemoveEdge deletes an edge by id
func (g *Graph) RemoveEdge(id valueobjects.EdgeID) error {
	idx, ok := g.edgeIndex[id]
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("edge %s", id))
	}

	delete(g.pairs, g.edges[idx].PairKey())
	g.edges = append(g.edges[:idx], g.edges[idx+1:]...)
	g.reindex()
	return nil
}

// ApplyExpansion inserts child nodes and their links in one step.
// Either every node and edge lands or the graph is left untouched.
func (g *Graph) ApplyExpansion(parent valueobjects.NodeID, children []NodeSpec, links []ExpansionLink) ([]valueobjects.NodeID, []valueobjects.EdgeID, error) {
	if _, ok := g.nodeIndex[parent]; !ok {
		return nil, nil, nodeNotFound(parent)
	}
	if len(g.nodes)+len(children) > g.cfg.MaxNodesPerMap {
		return nil, nil, pkgerrors.NewValidationError("maximum nodes reached")
	}
	if len(g.edges)+len(links) > g.cfg.MaxEdgesPerMap {
		return nil, nil, pkgerrors.NewValidationError("maximum edges reached")
	}

	built := make([]entities.Node, len(children))
	for i, spec := range children {
		node, err := g.buildNode(spec)
		if err != nil {
			return nil, nil, pkgerrors.Wrapf(err, "child %d", i)
		}
		built[i] = node
	}

	// ids are reserved only after validation passed
	counter := g.nextID
	ids := make([]valueobjects.NodeID, len(built))
	for i := range built {
		ids[i] = valueobjects.NewNodeIDFromInt(counter)
		for g.hasNode(ids[i]) {
			counter++
			ids[i] = valueobjects.NewNodeIDFromInt(counter)
		}
		counter++
	}

	resolve := func(idx int) (valueobjects.NodeID, error) {
		if idx == ParentIndex {
			return parent, nil
		}
		if idx < 0 || idx >= len(ids) {
			return "", pkgerrors.NewValidationError(fmt.Sprintf("expansion link index %d out of range", idx))
		}
		return ids[idx], nil
	}

	seen := make(map[string]bool, len(links))
	newEdges := make([]entities.Edge, 0, len(links))
	for _, link := range links {
		from, err := resolve(link.From)
		if err != nil {
			return nil, nil, err
		}
		to, err := resolve(link.To)
		if err != nil {
			return nil, nil, err
		}
		if from == to {
			return nil, nil, pkgerrors.NewSelfLoopError(from.String())
		}
		key := entities.PairKey(from, to)
		if seen[key] {
			return nil, nil, pkgerrors.NewDuplicateEdgeError(from.String(), to.String())
		}
		seen[key] = true
		newEdges = append(newEdges, entities.NewEdge("", from, to))
	}

	g.nextID = counter
	for i, node := range built {
		g.appendNode(node.WithID(ids[i]))
	}
	edgeIDs := make([]valueobjects.EdgeID, 0, len(newEdges))
	for _, e := range newEdges {
		edge := entities.NewEdge(g.edgeIDFor(e.Source(), e.Target()), e.Source(), e.Target())
		g.appendEdge(edge)
		edgeIDs = append(edgeIDs, edge.ID())
	}
	return ids, edgeIDs, nil
}

// Restore replaces the whole state with a snapshot
func (g *Graph) Restore(s Snapshot) error {
	return g.load(s.Data())
}

// Replace swaps in imported records after validating them; on error the
// graph is unchanged
func (g *Graph) Replace(data GraphData) error {
	return g.load(data)
}

// Snapshot captures the current state
func (g *Graph) Snapshot() Snapshot {
	return NewSnapshot(g.nodes, g.edges)
}

// Data returns the current state in document form
func (g *Graph) Data() GraphData {
	return g.Snapshot().Data()
}

// Node returns a node by id
func (g *Graph) Node(id valueobjects.NodeID) (entities.Node, error) {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return entities.Node{}, nodeNotFound(id)
	}
	return g.nodes[idx], nil
}

// Edge returns an edge by id
func (g *Graph) Edge(id valueobjects.EdgeID) (entities.Edge, error) {
	idx, ok := g.edgeIndex[id]
	if !ok {
		return entities.Edge{}, pkgerrors.NewNotFoundError(fmt.Sprintf("edge %s", id))
	}
	return g.edges[idx], nil
}

// Nodes returns the nodes in insertion order
func (g *Graph) Nodes() []entities.Node {
	return append([]entities.Node(nil), g.nodes...)
}

// Edges returns the edges in insertion order
func (g *Graph) Edges() []entities.Edge {
	return append([]entities.Edge(nil), g.edges...)
}

// Labels returns every node label in insertion order
func (g *Graph) Labels() []string {
	labels := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		labels = append(labels, n.Label())
	}
	return labels
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// HasEdgeBetween reports whether a and b are connected in either direction
func (g *Graph) HasEdgeBetween(a, b valueobjects.NodeID) bool {
	_, ok := g.pairs[entities.PairKey(a, b)]
	return ok
}

// EdgesOf returns the edges touching a node
func (g *Graph) EdgesOf(id valueobjects.NodeID) []entities.Edge {
	var out []entities.Edge
	for _, e := range g.edges {
		if e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

// Validate re-checks the structural invariants
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if !g.hasNode(e.Source()) || !g.hasNode(e.Target()) {
			return pkgerrors.NewValidationError(fmt.Sprintf("edge %s references a missing node", e.ID()))
		}
		if e.Source() == e.Target() {
			return pkgerrors.NewSelfLoopError(e.Source().String())
		}
	}
	if len(g.pairs) != len(g.edges) {
		return pkgerrors.NewValidationError("edge pair index out of sync")
	}
	return nil
}

func (g *Graph) buildNode(spec NodeSpec) (entities.Node, error) {
	label, err := g.validator.NormalizeLabel(spec.Label)
	if err != nil {
		return entities.Node{}, err
	}
	if err := g.validator.ValidateSize(spec.Size); err != nil {
		return entities.Node{}, err
	}
	color, err := valueobjects.NewColor(spec.Color)
	if err != nil {
		return entities.Node{}, err
	}
	p := spec.Position
	if _, err := valueobjects.NewPosition3D(p.X(), p.Y(), p.Z()); err != nil {
		return entities.Node{}, err
	}
	return entities.NewNode("", label, p, spec.Size, color), nil
}

func (g *Graph) checkEdge(source, target valueobjects.NodeID) error {
	if !g.hasNode(source) {
		return nodeNotFound(source)
	}
	if !g.hasNode(target) {
		return nodeNotFound(target)
	}
	if source == target {
		return pkgerrors.NewSelfLoopError(source.String())
	}
	if g.HasEdgeBetween(source, target) {
		return pkgerrors.NewDuplicateEdgeError(source.String(), target.String())
	}
	return nil
}

func (g *Graph) edgeIDFor(source, target valueobjects.NodeID) valueobjects.EdgeID {
	id := valueobjects.DeriveEdgeID(source, target)
	if _, taken := g.edgeIndex[id]; taken {
		return valueobjects.NewRandomEdgeID()
	}
	return id
}

func (g *Graph) allocateID() valueobjects.NodeID {
	for {
		id := valueobjects.NewNodeIDFromInt(g.nextID)
		g.nextID++
		if !g.hasNode(id) {
			return id
		}
	}
}

func (g *Graph) hasNode(id valueobjects.NodeID) bool {
	_, ok := g.nodeIndex[id]
	return ok
}

func (g *Graph) appendNode(n entities.Node) {
	g.nodeIndex[n.ID()] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

func (g *Graph) appendEdge(e entities.Edge) {
	g.edgeIndex[e.ID()] = len(g.edges)
	g.pairs[e.PairKey()] = e.ID()
	g.edges = append(g.edges, e)
}

func (g *Graph) reindex() {
	g.nodeIndex = make(map[valueobjects.NodeID]int, len(g.nodes))
	for i, n := range g.nodes {
		g.nodeIndex[n.ID()] = i
	}
	g.edgeIndex = make(map[valueobjects.EdgeID]int, len(g.edges))
	for i, e := range g.edges {
		g.edgeIndex[e.ID()] = i
	}
}

// load swaps in the given records after checking them on a scratch graph
func (g *Graph) load(data GraphData) error {
	scratch := &Graph{
		cfg:       g.cfg,
		validator: g.validator,
		nodeIndex: make(map[valueobjects.NodeID]int, len(data.Nodes)),
		edgeIndex: make(map[valueobjects.EdgeID]int, len(data.Edges)),
		pairs:     make(map[string]valueobjects.EdgeID, len(data.Edges)),
		nextID:    g.nextID,
	}

	for _, doc := range data.Nodes {
		id, ok := valueobjects.ParseNodeID(doc.ID)
		if !ok || id.String() != doc.ID {
			return pkgerrors.NewValidationError(fmt.Sprintf("invalid node id %q", doc.ID))
		}
		if scratch.hasNode(id) {
			return pkgerrors.NewConflictError(fmt.Sprintf("duplicate node id %s", id))
		}
		pos, err := valueobjects.NewPosition3D(doc.X, doc.Y, doc.Z)
		if err != nil {
			return pkgerrors.Wrapf(err, "node %s", id)
		}
		label, err := g.validator.NormalizeLabel(doc.Label)
		if err != nil {
			return pkgerrors.Wrapf(err, "node %s", id)
		}
		if err := g.validator.ValidateSize(doc.Size); err != nil {
			return pkgerrors.Wrapf(err, "node %s", id)
		}
		color, err := valueobjects.NewColor(doc.Color)
		if err != nil {
			return pkgerrors.Wrapf(err, "node %s", id)
		}
		scratch.appendNode(entities.NewNode(id, label, pos, doc.Size, color))
		if n, numeric := id.Numeric(); numeric && n >= scratch.nextID {
			scratch.nextID = n + 1
		}
	}

	for _, doc := range data.Edges {
		source := valueobjects.NodeID(doc.Source)
		target := valueobjects.NodeID(doc.Target)
		if err := scratch.checkEdge(source, target); err != nil {
			return pkgerrors.Wrapf(err, "edge %s", doc.ID)
		}
		id := valueobjects.EdgeID(doc.ID)
		if id == "" {
			id = scratch.edgeIDFor(source, target)
		} else if _, taken := scratch.edgeIndex[id]; taken {
			return pkgerrors.NewConflictError(fmt.Sprintf("duplicate edge id %s", id))
		}
		scratch.appendEdge(entities.NewEdge(id, source, target))
	}

	if len(scratch.nodes) > g.cfg.MaxNodesPerMap || len(scratch.edges) > g.cfg.MaxEdgesPerMap {
		return pkgerrors.NewValidationError("graph exceeds size limits")
	}

	g.nodes = scratch.nodes
	g.nodeIndex = scratch.nodeIndex
	g.edges = scratch.edges
	g.edgeIndex = scratch.edgeIndex
	g.pairs = scratch.pairs
	g.nextID = scratch.nextID
	return nil
}

func nodeNotFound(id valueobjects.NodeID) error {
	return pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", id))
}
