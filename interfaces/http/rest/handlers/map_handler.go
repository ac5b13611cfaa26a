package handlers

import (
	"fmt"
	"net/http"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/commands/bus"
	"mindmap-backend/application/queries"
	querybus "mindmap-backend/application/queries/bus"
	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/pkg/common"
	pkgerrors "mindmap-backend/pkg/errors"

	"go.uber.org/zap"
)

// MapHandler handles map-level HTTP requests
type MapHandler struct {
	base
}

// NewMapHandler creates a new map handler
func NewMapHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *MapHandler {
	return &MapHandler{base: newBase(commandBus, queryBus, errs, logger)}
}

// ListMaps handles GET /maps
func (h *MapHandler) ListMaps(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	params := common.ExtractPaginationParams(r)
	h.ask(w, r, queries.ListMapsQuery{
		OwnerID:  ownerID,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
}

// CreateMap handles POST /maps
func (h *MapHandler) CreateMap(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var cmd commands.CreateMapCommand
	if !h.decode(w, r, &cmd, true) {
		return
	}
	cmd.OwnerID = ownerID
	h.send(w, r, cmd, http.StatusCreated)
}

// GetMap handles GET /maps/{mapID}
func (h *MapHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	h.ask(w, r, queries.GetMapQuery{OwnerID: ref.OwnerID, MapID: ref.MapID})
}

// DeleteMap handles DELETE /maps/{mapID}
func (h *MapHandler) DeleteMap(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.DeleteMapCommand{MapRef: ref}, http.StatusNoContent)
}

// SaveMap handles POST /maps/{mapID}/save
func (h *MapHandler) SaveMap(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.SaveMapCommand{MapRef: ref}, http.StatusOK)
}

// ExportMap handles GET /maps/{mapID}/export. The body is the bare document
// so it can be posted back to the import route unchanged.
func (h *MapHandler) ExportMap(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	result, err := h.queryBus.Ask(r.Context(), queries.ExportMapQuery{OwnerID: ref.OwnerID, MapID: ref.MapID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	doc, ok := result.(aggregates.ExportDocument)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewInternalError(fmt.Sprintf("unexpected export result %T", result)))
		return
	}
	body, err := doc.Encode()
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("encode export").WithCause(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="mindmap-%s.json"`, ref.MapID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("Failed to write export", zap.Error(err))
	}
}

// ImportMap handles POST /maps/{mapID}/import with an exported document
func (h *MapHandler) ImportMap(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	cmd := commands.ImportMapCommand{MapRef: ref}
	if !h.decode(w, r, &cmd.Document, false) {
		return
	}
	h.send(w, r, cmd, http.StatusOK)
}

// Undo handles POST /maps/{mapID}/undo
func (h *MapHandler) Undo(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.UndoCommand{MapRef: ref}, http.StatusOK)
}

// Redo handles POST /maps/{mapID}/redo
func (h *MapHandler) Redo(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.mapRef(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.RedoCommand{MapRef: ref}, http.StatusOK)
}
