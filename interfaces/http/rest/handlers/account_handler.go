package handlers

import (
	"net/http"

	"mindmap-backend/application/queries"
	querybus "mindmap-backend/application/queries/bus"
	pkgerrors "mindmap-backend/pkg/errors"

	"go.uber.org/zap"
)

// AccountHandler serves plan status and label classification
type AccountHandler struct {
	base
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{base: newBase(nil, queryBus, errs, logger)}
}

// ClassifyRequest is the body of POST /classify
type ClassifyRequest struct {
	Label string `json:"label"`
}

// GetPlan handles GET /plan
func (h *AccountHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	h.ask(w, r, queries.GetPlanQuery{OwnerID: ownerID})
}

// Classify handles POST /classify
func (h *AccountHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	h.ask(w, r, queries.ClassifyQuery{Label: req.Label})
}
