package handlers

import (
	"net/http"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/commands/bus"
	"mindmap-backend/domain/core/valueobjects"
	pkgerrors "mindmap-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EdgeHandler handles edge-related HTTP requests
type EdgeHandler struct {
	base
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(commandBus *bus.CommandBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{base: newBase(commandBus, nil, errs, logger)}
}

// CreateEdge handles POST /maps/{mapID}/edges
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	cmd := commands.ConnectNodesCommand{MapRef: ref}
	if !h.decode(w, r, &cmd, false) {
		return
	}
	h.send(w, r, cmd, http.StatusCreated)
}

// DeleteEdge handles DELETE /maps/{mapID}/edges/{edgeID}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.DeleteEdgeCommand{
		MapRef: ref,
		EdgeID: valueobjects.EdgeID(chi.URLParam(r, "edgeID")),
	}, http.StatusNoContent)
}
