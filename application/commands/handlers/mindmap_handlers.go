package handlers

import (
	"context"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/commands/bus"
	"mindmap-backend/application/services"
	"mindmap-backend/domain/core/valueobjects"

	"go.uber.org/zap"
)

// HistoryResult reports whether an undo or redo moved, plus the new state
type HistoryResult struct {
	Applied bool                  `json:"applied"`
	State   services.SessionState `json:"state"`
}

// DragResult is the clamped position after a drag
type DragResult struct {
	NodeID valueobjects.NodeID `json:"nodeId"`
	X      float64             `json:"x"`
	Y      float64             `json:"y"`
	Z      float64             `json:"z"`
}

// ConnectResult names the new edge
type ConnectResult struct {
	EdgeID valueobjects.EdgeID `json:"edgeId"`
}

// MindMapHandlers executes map commands against the workspace
type MindMapHandlers struct {
	workspace *services.Workspace
	logger    *zap.Logger
}

// NewMindMapHandlers creates the handler set
func NewMindMapHandlers(workspace *services.Workspace, logger *zap.Logger) *MindMapHandlers {
	return &MindMapHandlers{
		workspace: workspace,
		logger:    logger,
	}
}

// Register binds every map command to the bus
func (h *MindMapHandlers) Register(b *bus.CommandBus) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.CreateMapCommand{}, bus.TypedHandler(h.CreateMap)},
		{commands.DeleteMapCommand{}, bus.TypedHandler(h.DeleteMap)},
		{commands.SaveMapCommand{}, bus.TypedHandler(h.SaveMap)},
		{commands.ImportMapCommand{}, bus.TypedHandler(h.ImportMap)},
		{commands.AddNodeCommand{}, bus.TypedHandler(h.AddNode)},
		{commands.UpdateNodeCommand{}, bus.TypedHandler(h.UpdateNode)},
		{commands.DragNodeCommand{}, bus.TypedHandler(h.DragNode)},
		{commands.DeleteNodeCommand{}, bus.TypedHandler(h.DeleteNode)},
		{commands.ExpandNodeCommand{}, bus.TypedHandler(h.ExpandNode)},
		{commands.ConnectNodesCommand{}, bus.TypedHandler(h.ConnectNodes)},
		{commands.DeleteEdgeCommand{}, bus.TypedHandler(h.DeleteEdge)},
		{commands.UndoCommand{}, bus.TypedHandler(h.Undo)},
		{commands.RedoCommand{}, bus.TypedHandler(h.Redo)},
	}
	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// CreateMap stores and opens a new map
func (h *MindMapHandlers) CreateMap(ctx context.Context, cmd commands.CreateMapCommand) (interface{}, error) {
	s, err := h.workspace.CreateMap(ctx, cmd.OwnerID, cmd.Title, cmd.Description)
	if err != nil {
		return nil, err
	}
	h.logger.Info("Mind map created",
		zap.String("mapID", s.MapID().String()),
		zap.String("ownerID", cmd.OwnerID),
	)
	return s.State(), nil
}

// DeleteMap discards the open session and deletes the stored map
func (h *MindMapHandlers) DeleteMap(ctx context.Context, cmd commands.DeleteMapCommand) (interface{}, error) {
	return nil, h.workspace.DeleteMap(ctx, cmd.OwnerID, cmd.MapID)
}

// SaveMap stores the current state now
func (h *MindMapHandlers) SaveMap(ctx context.Context, cmd commands.SaveMapCommand) (interface{}, error) {
	s, err := h.workspace.OpenOrNew(ctx, cmd.OwnerID, cmd.MapID)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx); err != nil {
		return nil, err
	}
	return s.State(), nil
}

// ImportMap replaces the graph with the document's nodes and edges
func (h *MindMapHandlers) ImportMap(ctx context.Context, cmd commands.ImportMapCommand) (interface{}, error) {
	s, err := h.workspace.OpenOrNew(ctx, cmd.OwnerID, cmd.MapID)
	if err != nil {
		return nil, err
	}
	if err := s.Import(cmd.Document.GraphData); err != nil {
		return nil, err
	}
	return s.State(), nil
}

// AddNode adds a manual node
func (h *MindMapHandlers) AddNode(ctx context.Context, cmd commands.AddNodeCommand) (interface{}, error) {
	s, err := h.workspace.OpenOrNew(ctx, cmd.OwnerID, cmd.MapID)
	if err != nil {
		return nil, err
	}
	nodeID, edgeID, err := s.AddNode(cmd.Label, cmd.ConnectTo)
	if err != nil {
		return nil, err
	}
	return commands.AddNodeResult{NodeID: nodeID, EdgeID: edgeID}, nil
}

// UpdateNode applies a partial node update
func (h *MindMapHandlers) UpdateNode(ctx context.Context, cmd commands.UpdateNodeCommand) (interface{}, error) {
	patch, err := cmd.Patch()
	if err != nil {
		return nil, err
	}
	s, err := h.workspace.Open(ctx, cmd.OwnerID, cmd.MapID)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateNode(cmd.NodeID, patch); err != nil {
		return nil, err
	}
	node, err := s.Node(cmd.NodeID)
	if err != nil {
		return nil, err
	}
	return node.Document(), nil
}

// DragNode moves a node by a delta
func (h *MindMapHandlers) DragNode(ctx context.Context, cmd commands.DragNodeCommand) (interface{}, error) {
	s, err := h.workspace.Open(ctx, cmd.OwnerID, cmd.MapID)
	if err != nil {
		return nil, err
	}
	p, err := s.Drag(cmd.NodeID, cmd.DX, cmd.DY, cmd.DZ)
	if err != nil {
		return nil, err
	}
	return DragResult{NodeID: cmd.NodeID, X: p.X(), Y: p.Y(), Z: p.Z()}, nil
}

// DeleteNode removes a node and its edges
func (h *MindMapHandlers) DeleteNode(ctx context.Context, cmd commands.DeleteNodeCommand) (interface{}, error) {
	s, err := h.workspace.Open(ctx, cmd.OwnerID, cmd.MapID)
	if err != nil {
		return nil, err
	}
	return nil, s.RemoveNode(cmd.NodeID)
}

// ExpandNode runs the expansion pipeline
func (h *MindMapHandlers) ExpandNode(ctx context.Context, cmd commands.ExpandNodeCommand) (interface{}, error) {
	return h.workspace.Expand(ctx, cmd.OwnerID, cmd.MapID, cmd.NodeID)
}

// ConnectNodes adds an edge
func (h *MindMapHandlers) ConnectNodes(ctx context.Context, cmd commands.ConnectNodesCommand) (interface{}, error) {
	s, err := h.workspace.Open(ctx, cmd.OwnerID, cmd.MapID)
	if err != nil {
		return nil, err
	}
	id, err := s.Connect(cmd.Source, cmd.Target)
	if err != nil {
		return nil, err
	}
	return ConnectResult{EdgeID: id}, nil
}

// DeleteEdge removes an edge
func (h *MindMapHandlers) DeleteEdge(ctx context.Context, cmd commands.DeleteEdgeCommand) (interface{}, error) {
	s, err := h.workspace.Open(ctx, cmd.OwnerID, cmd.MapID)
	if err != nil {
		return nil, err
	}
	return nil, s.RemoveEdge(cmd.EdgeID)
}

// Undo steps back
func (h *MindMapHandlers) Undo(ctx context.Context, cmd commands.UndoCommand) (interface{}, error) {
	return h.history(ctx, cmd.MapRef, (*services.Session).Undo)
}

// Redo steps forward
func (h *MindMapHandlers) Redo(ctx context.Context, cmd commands.RedoCommand) (interface{}, error) {
	return h.history(ctx, cmd.MapRef, (*services.Session).Redo)
}

func (h *MindMapHandlers) history(ctx context.Context, ref commands.MapRef, move func(*services.Session) (bool, error)) (interface{}, error) {
	s, err := h.workspace.Open(ctx, ref.OwnerID, ref.MapID)
	if err != nil {
		return nil, err
	}
	applied, err := move(s)
	if err != nil {
		return nil, err
	}
	return HistoryResult{Applied: applied, State: s.State()}, nil
}
