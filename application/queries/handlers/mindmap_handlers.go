package handlers

import (
	"context"
	"time"

	"mindmap-backend/application/queries"
	"mindmap-backend/application/queries/bus"
	"mindmap-backend/application/services"
	"mindmap-backend/domain/classifier"
	"mindmap-backend/pkg/common"
)

// MindMapQueryHandlers answers map queries from the workspace
type MindMapQueryHandlers struct {
	workspace  *services.Workspace
	classifier *classifier.Classifier
	now        func() time.Time
}

// NewMindMapQueryHandlers creates the handler set
func NewMindMapQueryHandlers(workspace *services.Workspace, cls *classifier.Classifier) *MindMapQueryHandlers {
	if cls == nil {
		cls = classifier.Default()
	}
	return &MindMapQueryHandlers{
		workspace:  workspace,
		classifier: cls,
		now:        time.Now,
	}
}

// Register binds every map query to the bus. Classification is
// deterministic, so its handler goes through the cache when one is given.
func (h *MindMapQueryHandlers) Register(b *bus.QueryBus, cache *bus.CachingMiddleware, metrics *bus.MetricsMiddleware) error {
	wrap := func(handler bus.QueryHandler) bus.QueryHandler {
		if metrics != nil {
			handler = metrics.Wrap(handler)
		}
		return handler
	}

	classify := bus.TypedHandler(h.Classify)
	if cache != nil {
		classify = cache.Wrap(classify)
	}

	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandler
	}{
		{queries.GetMapQuery{}, bus.TypedHandler(h.GetMap)},
		{queries.ListMapsQuery{}, bus.TypedHandler(h.ListMaps)},
		{queries.ExportMapQuery{}, bus.TypedHandler(h.ExportMap)},
		{queries.GetNodeQuery{}, bus.TypedHandler(h.GetNode)},
		{queries.GetPlanQuery{}, bus.TypedHandler(h.GetPlan)},
		{queries.ClassifyQuery{}, classify},
	}
	for _, r := range registrations {
		if err := b.Register(r.query, wrap(r.handler)); err != nil {
			return err
		}
	}
	return nil
}

// GetMap returns the session state of a map
func (h *MindMapQueryHandlers) GetMap(ctx context.Context, q queries.GetMapQuery) (interface{}, error) {
	s, err := h.workspace.Open(ctx, q.OwnerID, q.MapID)
	if err != nil {
		return nil, err
	}
	return s.State(), nil
}

// ListMaps returns one page of the owner's map summaries
func (h *MindMapQueryHandlers) ListMaps(ctx context.Context, q queries.ListMapsQuery) (interface{}, error) {
	summaries, err := h.workspace.ListMaps(ctx, q.OwnerID)
	if err != nil {
		return nil, err
	}

	params := common.DefaultPaginationParams()
	if q.Page > 0 {
		params.Page = q.Page
	}
	if q.PageSize > 0 {
		params.PageSize = q.PageSize
	}

	start := params.CalculateOffset()
	if start > len(summaries) {
		start = len(summaries)
	}
	end := start + params.PageSize
	if end > len(summaries) {
		end = len(summaries)
	}

	return queries.ListMapsResult{
		Maps:       summaries[start:end],
		Pagination: common.BuildPaginationMeta(params.Page, params.PageSize, len(summaries)),
	}, nil
}

// ExportMap renders the map as an export document
func (h *MindMapQueryHandlers) ExportMap(ctx context.Context, q queries.ExportMapQuery) (interface{}, error) {
	s, err := h.workspace.Open(ctx, q.OwnerID, q.MapID)
	if err != nil {
		return nil, err
	}
	return s.Export(h.now()), nil
}

// GetNode returns one node record
func (h *MindMapQueryHandlers) GetNode(ctx context.Context, q queries.GetNodeQuery) (interface{}, error) {
	s, err := h.workspace.Open(ctx, q.OwnerID, q.MapID)
	if err != nil {
		return nil, err
	}
	node, err := s.Node(q.NodeID)
	if err != nil {
		return nil, err
	}
	return node.Document(), nil
}

// GetPlan returns the owner's plan status
func (h *MindMapQueryHandlers) GetPlan(ctx context.Context, q queries.GetPlanQuery) (interface{}, error) {
	return h.workspace.Plan(ctx, q.OwnerID)
}

// Classify returns the category of a label
func (h *MindMapQueryHandlers) Classify(ctx context.Context, q queries.ClassifyQuery) (interface{}, error) {
	return h.classifier.Classify(q.Label), nil
}
