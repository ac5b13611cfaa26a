package handlers

import (
	"net/http"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/commands/bus"
	"mindmap-backend/application/queries"
	querybus "mindmap-backend/application/queries/bus"
	"mindmap-backend/domain/core/valueobjects"
	pkgerrors "mindmap-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	base
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{base: newBase(commandBus, queryBus, errs, logger)}
}

func nodeID(r *http.Request) valueobjects.NodeID {
	return valueobjects.NodeID(chi.URLParam(r, "nodeID"))
}

// AddNode handles POST /maps/{mapID}/nodes
func (h *NodeHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	cmd := commands.AddNodeCommand{MapRef: ref}
	if !h.decode(w, r, &cmd, true) {
		return
	}
	h.send(w, r, cmd, http.StatusCreated)
}

// GetNode handles GET /maps/{mapID}/nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	h.ask(w, r, queries.GetNodeQuery{OwnerID: ref.OwnerID, MapID: ref.MapID, NodeID: nodeID(r)})
}

// UpdateNode handles PATCH /maps/{mapID}/nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	cmd := commands.UpdateNodeCommand{MapRef: ref}
	if !h.decode(w, r, &cmd, false) {
		return
	}
	cmd.NodeID = nodeID(r)
	h.send(w, r, cmd, http.StatusOK)
}

// DragNode handles POST /maps/{mapID}/nodes/{nodeID}/drag
func (h *NodeHandler) DragNode(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	cmd := commands.DragNodeCommand{MapRef: ref}
	if !h.decode(w, r, &cmd, false) {
		return
	}
	cmd.NodeID = nodeID(r)
	h.send(w, r, cmd, http.StatusOK)
}

// DeleteNode handles DELETE /maps/{mapID}/nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.DeleteNodeCommand{MapRef: ref, NodeID: nodeID(r)}, http.StatusNoContent)
}

// ExpandNode handles POST /maps/{mapID}/nodes/{nodeID}/expand
func (h *NodeHandler) ExpandNode(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.ExpandNodeCommand{MapRef: ref, NodeID: nodeID(r)}, http.StatusOK)
}
