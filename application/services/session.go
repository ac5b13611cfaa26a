package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mindmap-backend/domain/config"
	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/entities"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/domain/history"
	"mindmap-backend/domain/layout"
	"mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"

	"go.uber.org/zap"
)

// SessionOptions configures a Session
type SessionOptions struct {
	MapID   valueobjects.MapID
	OwnerID string
	Title   string
	Version int

	// Graph defaults to a fresh graph with the central node
	Graph *aggregates.Graph

	Config       *config.DomainConfig
	Layout       *layout.Engine
	HistoryLimit int

	// Persistence enables autosave; owners without an id stay local-only
	Persistence   *PersistenceAdapter
	AutosaveDelay time.Duration
	SaveTimeout   time.Duration

	Metrics *observability.Collector
	Logger  *zap.Logger
}

// Session is one open mind map: its graph, its history and its autosaver.
// All mutations are serialized by the session lock, which is never held
// across store or suggestion calls.
type Session struct {
	mapID   valueobjects.MapID
	ownerID string

	cfg         *config.DomainConfig
	layout      *layout.Engine
	persistence *PersistenceAdapter
	autosaver   *Autosaver
	metrics     *observability.Collector
	logger      *zap.Logger

	mu        sync.Mutex
	title     string
	version   int
	graph     *aggregates.Graph
	history   *history.Manager
	expanding map[valueobjects.NodeID]bool
}

// SessionState is a read-only view of a session
type SessionState struct {
	MapID         valueobjects.MapID      `json:"mapId"`
	Title         string                  `json:"title"`
	Version       int                     `json:"version"`
	Nodes         []entities.NodeDocument `json:"nodes"`
	Edges         []entities.EdgeDocument `json:"edges"`
	CanUndo       bool                    `json:"canUndo"`
	CanRedo       bool                    `json:"canRedo"`
	HistoryLength int                     `json:"historyLength"`
	LocalOnly     bool                    `json:"localOnly"`
	SavePending   bool                    `json:"savePending"`
	LastSaveError string                  `json:"lastSaveError,omitempty"`
}

// NewSession opens a session and records its initial state
func NewSession(opts SessionOptions) *Session {
	if opts.Config == nil {
		opts.Config = config.DefaultDomainConfig()
	}
	if opts.Layout == nil {
		opts.Layout = layout.NewEngine()
	}
	if opts.Graph == nil {
		opts.Graph = aggregates.NewGraphWithCentralNode(opts.Config)
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = opts.Config.HistoryLimit
	}
	if opts.Title == "" {
		opts.Title = opts.Config.DefaultMapTitle
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		mapID:       opts.MapID,
		ownerID:     opts.OwnerID,
		cfg:         opts.Config,
		layout:      opts.Layout,
		persistence: opts.Persistence,
		metrics:     opts.Metrics,
		logger:      opts.Logger.With(zap.String("mapID", opts.MapID.String())),
		title:       opts.Title,
		version:     opts.Version,
		graph:       opts.Graph,
		history:     history.NewManager(opts.HistoryLimit),
		expanding:   make(map[valueobjects.NodeID]bool),
	}
	s.history.Reset(s.graph.Snapshot())

	if opts.Persistence != nil && opts.OwnerID != "" {
		delay := opts.AutosaveDelay
		if delay == 0 {
			delay = opts.Config.AutosaveDebounce
		}
		s.autosaver = NewAutosaver(delay, opts.SaveTimeout, s.saveNow, s.logger)
	}
	return s
}

func (s *Session) MapID() valueobjects.MapID { return s.mapID }
func (s *Session) OwnerID() string           { return s.ownerID }

// LocalOnly reports whether the session is never persisted
func (s *Session) LocalOnly() bool {
	return s.autosaver == nil
}

// AddNode adds a manual node at a random spot near the origin. An empty
// label uses the default one. A non-empty connectTo links the new node to
// that node in the same undo step.
func (s *Session) AddNode(label string, connectTo valueobjects.NodeID) (valueobjects.NodeID, valueobjects.EdgeID, error) {
	if label == "" {
		label = s.cfg.ManualNodeLabel
	}
	spec := aggregates.NodeSpec{
		Label:    label,
		Position: s.layout.ManualPosition(),
		Size:     s.cfg.ManualNodeSize,
		Color:    s.layout.RandomColor().String(),
	}

	var (
		nodeID valueobjects.NodeID
		edgeID valueobjects.EdgeID
	)
	err := s.mutate(func(g *aggregates.Graph) error {
		if !connectTo.IsZero() {
			if _, err := g.Node(connectTo); err != nil {
				return err
			}
		}
		id, err := g.AddNode(spec)
		if err != nil {
			return err
		}
		if !connectTo.IsZero() {
			eid, err := g.AddEdge(connectTo, id)
			if err != nil {
				_ = g.RemoveNode(id)
				return err
			}
			edgeID = eid
		}
		nodeID = id
		return nil
	})
	return nodeID, edgeID, err
}

// UpdateNode applies a partial node update
func (s *Session) UpdateNode(id valueobjects.NodeID, patch aggregates.NodePatch) error {
	if patch.IsEmpty() {
		return errors.NewValidationError("nothing to update")
	}
	return s.mutate(func(g *aggregates.Graph) error {
		return g.UpdateNode(id, patch)
	})
}

// Drag moves a node by a delta and keeps it inside the scene bounds
func (s *Session) Drag(id valueobjects.NodeID, dx, dy, dz float64) (valueobjects.Position, error) {
	var moved valueobjects.Position
	err := s.mutate(func(g *aggregates.Graph) error {
		node, err := g.Node(id)
		if err != nil {
			return err
		}
		moved, err = s.layout.Drag(node.Position(), dx, dy, dz)
		if err != nil {
			return err
		}
		return g.UpdateNode(id, aggregates.NodePatch{Position: &moved})
	})
	return moved, err
}

// DragTo moves a node to an absolute target, clamped to the scene bounds
func (s *Session) DragTo(id valueobjects.NodeID, target valueobjects.Position) (valueobjects.Position, error) {
	clamped := s.layout.Clamp(target)
	err := s.mutate(func(g *aggregates.Graph) error {
		return g.UpdateNode(id, aggregates.NodePatch{Position: &clamped})
	})
	return clamped, err
}

// RemoveNode deletes a node and its edges
func (s *Session) RemoveNode(id valueobjects.NodeID) error {
	return s.mutate(func(g *aggregates.Graph) error {
		return g.RemoveNode(id)
	})
}

// Connect adds an edge between two nodes
func (s *Session) Connect(source, target valueobjects.NodeID) (valueobjects.EdgeID, error) {
	var id valueobjects.EdgeID
	err := s.mutate(func(g *aggregates.Graph) error {
		var err error
		id, err = g.AddEdge(source, target)
		return err
	})
	return id, err
}

// RemoveEdge deletes an edge
func (s *Session) RemoveEdge(id valueobjects.EdgeID) error {
	return s.mutate(func(g *aggregates.Graph) error {
		return g.RemoveEdge(id)
	})
}

// Import replaces the graph with an exported document as one undo step
func (s *Session) Import(data aggregates.GraphData) error {
	return s.mutate(func(g *aggregates.Graph) error {
		return g.Replace(data)
	})
}

// Undo restores the previous state. It reports false when there is none.
func (s *Session) Undo() (bool, error) {
	return s.step((*history.Manager).Undo)
}

// Redo restores the next state. It reports false when there is none.
func (s *Session) Redo() (bool, error) {
	return s.step((*history.Manager).Redo)
}

func (s *Session) step(move func(*history.Manager) (aggregates.Snapshot, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := move(s.history)
	if !ok {
		return false, nil
	}
	if err := s.graph.Restore(snap); err != nil {
		return false, errors.Wrap(err, "restore history state")
	}
	s.scheduleSave()
	return true, nil
}

// State returns a view of the current graph and history flags
func (s *Session) State() SessionState {
	s.mu.Lock()
	data := s.graph.Data()
	state := SessionState{
		MapID:         s.mapID,
		Title:         s.title,
		Version:       s.version,
		Nodes:         data.Nodes,
		Edges:         data.Edges,
		CanUndo:       s.history.CanUndo(),
		CanRedo:       s.history.CanRedo(),
		HistoryLength: s.history.Len(),
		LocalOnly:     s.autosaver == nil,
	}
	s.mu.Unlock()

	if s.autosaver != nil {
		state.SavePending = s.autosaver.Pending()
		if err := s.autosaver.LastSaveError(); err != nil {
			state.LastSaveError = err.Error()
		}
	}
	return state
}

// Data returns the current node and edge records
func (s *Session) Data() aggregates.GraphData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Data()
}

// Node returns one node
func (s *Session) Node(id valueobjects.NodeID) (entities.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Node(id)
}

// Export renders the map as an export document
func (s *Session) Export(at time.Time) aggregates.ExportDocument {
	return aggregates.NewExportDocument(s.mapID, s.Data(), at)
}

// Save stores the current state now, replacing any pending autosave
func (s *Session) Save(ctx context.Context) error {
	if s.autosaver == nil {
		return errors.NewValidationError("local-only maps are not persisted").WithCode(errors.CodeLocalOnly)
	}
	s.autosaver.Schedule()
	return s.autosaver.Flush(ctx)
}

// Flush runs a pending autosave now
func (s *Session) Flush(ctx context.Context) error {
	if s.autosaver == nil {
		return nil
	}
	return s.autosaver.Flush(ctx)
}

// Close flushes pending work and stops autosaving
func (s *Session) Close(ctx context.Context) error {
	if s.autosaver == nil {
		return nil
	}
	err := s.autosaver.Flush(ctx)
	s.autosaver.Stop()
	return err
}

// Discard stops autosaving without saving
func (s *Session) Discard() {
	if s.autosaver != nil {
		s.autosaver.Stop()
	}
}

// LastSaveError returns the outcome of the most recent save
func (s *Session) LastSaveError() error {
	if s.autosaver == nil {
		return nil
	}
	return s.autosaver.LastSaveError()
}

// Configure applies a new history limit and autosave delay
func (s *Session) Configure(historyLimit int, autosaveDelay time.Duration) {
	s.mu.Lock()
	s.history.SetLimit(historyLimit)
	s.mu.Unlock()
	if s.autosaver != nil && autosaveDelay > 0 {
		s.autosaver.SetDelay(autosaveDelay)
	}
}

// mutate runs fn on the graph; on success the new state becomes one
// history entry and an autosave is scheduled
func (s *Session) mutate(fn func(g *aggregates.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.graph); err != nil {
		return err
	}
	s.recordLocked()
	return nil
}

func (s *Session) recordLocked() {
	s.history.Record(s.graph.Snapshot())
	s.metrics.ObserveHistoryDepth(s.history.Len())
	s.scheduleSave()
}

func (s *Session) scheduleSave() {
	if s.autosaver != nil {
		s.autosaver.Schedule()
	}
}

func (s *Session) saveNow(ctx context.Context) (*aggregates.MindMap, error) {
	data := s.Data()
	m, err := s.persistence.Save(ctx, s.mapID, s.ownerID, data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.version = m.Version
	s.title = m.Title
	s.mu.Unlock()
	return m, nil
}

// beginExpansion marks a node as expanding and returns its label together
// with every label in the map
func (s *Session) beginExpansion(id valueobjects.NodeID) (string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.graph.Node(id)
	if err != nil {
		return "", nil, err
	}
	if s.expanding[id] {
		return "", nil, errors.NewConflictError(fmt.Sprintf("node %s is already being expanded", id)).
			WithCode(errors.CodeExpansionInProgress)
	}
	s.expanding[id] = true
	return node.Label(), s.graph.Labels(), nil
}

func (s *Session) endExpansion(id valueobjects.NodeID) {
	s.mu.Lock()
	delete(s.expanding, id)
	s.mu.Unlock()
}

// Expanding reports whether an expansion of the node is in flight
func (s *Session) Expanding(id valueobjects.NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanding[id]
}

// integrateExpansion places children around the parent and inserts them
// with their edges as one undo step
func (s *Session) integrateExpansion(parent valueobjects.NodeID, labels []string) ([]valueobjects.NodeID, []valueobjects.EdgeID, error) {
	var (
		nodeIDs []valueobjects.NodeID
		edgeIDs []valueobjects.EdgeID
	)
	err := s.mutate(func(g *aggregates.Graph) error {
		p, err := g.Node(parent)
		if err != nil {
			return err
		}

		placements := s.layout.Radial(p.Position(), len(labels))
		children := make([]aggregates.NodeSpec, len(labels))
		for i, label := range labels {
			children[i] = aggregates.NodeSpec{
				Label:    label,
				Position: placements[i],
				Size:     s.cfg.ExpansionNodeSize,
				Color:    s.layout.RandomColor().String(),
			}
		}

		nodeIDs, edgeIDs, err = g.ApplyExpansion(parent, children, s.layout.Connect(len(labels)))
		return err
	})
	return nodeIDs, edgeIDs, err
}
