// Package handlers maps the REST surface onto the command and query buses.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/commands/bus"
	querybus "mindmap-backend/application/queries/bus"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/pkg/common"
	pkgerrors "mindmap-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; exported maps are the largest
const maxBodyBytes = 4 << 20

// base carries what every handler needs
type base struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func newBase(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) base {
	return base{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errs,
		logger:     logger,
	}
}

// owner returns the authenticated user id
func (b base) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		b.errors.Handle(w, r, pkgerrors.NewUnauthorizedError(""))
		return "", false
	}
	return userID, true
}

// mapRef addresses the map named in the route for the authenticated user
func (b base) mapRef(w http.ResponseWriter, r *http.Request) (commands.MapRef, bool) {
	ownerID, ok := b.owner(w, r)
	if !ok {
		return commands.MapRef{}, false
	}
	return commands.MapRef{
		OwnerID: ownerID,
		MapID:   valueobjects.MapID(chi.URLParam(r, "mapID")),
	}, true
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func (b base) decode(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	b.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
	return false
}

// send dispatches a command and writes its result
func (b base) send(w http.ResponseWriter, r *http.Request, cmd bus.Command, status int) {
	result, err := b.commandBus.Send(r.Context(), cmd)
	if err != nil {
		b.errors.Handle(w, r, err)
		return
	}
	if status == http.StatusNoContent || result == nil {
		common.RespondNoContent(w)
		return
	}
	common.RespondJSON(w, status, result)
}

// ask dispatches a query and writes its result
func (b base) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := b.queryBus.Ask(r.Context(), query)
	if err != nil {
		b.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
