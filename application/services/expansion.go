package services

import (
	"context"
	"fmt"
	"time"

	"mindmap-backend/application/ports"
	"mindmap-backend/domain/classifier"
	"mindmap-backend/domain/config"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/domain/events"
	"mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"

	"go.uber.org/zap"
)

// ExpansionState is a step of one expansion
type ExpansionState string

const (
	ExpansionIdle        ExpansionState = "idle"
	ExpansionClassifying ExpansionState = "classifying"
	ExpansionRequesting  ExpansionState = "requesting"
	ExpansionIntegrating ExpansionState = "integrating"
	ExpansionErrored     ExpansionState = "errored"
)

// ExpansionResult describes what an expansion added
type ExpansionResult struct {
	NodeIDs      []valueobjects.NodeID `json:"nodeIds"`
	EdgeIDs      []valueobjects.EdgeID `json:"edgeIds"`
	Suggestions  []string              `json:"suggestions"`
	UsedFallback bool                  `json:"usedFallback"`
	// State is idle after a clean run and errored when suggestions failed
	// and placeholders were used instead
	State ExpansionState `json:"state"`
}

// ExpansionOptions tune the pipeline
type ExpansionOptions struct {
	StrictDedup bool
	Timeout     time.Duration
}

// ExpansionPipeline asks the suggestion service for related concepts and
// merges them into a session
type ExpansionPipeline struct {
	suggestions ports.SuggestionService
	classifier  *classifier.Classifier
	limiter     ports.ExpansionLimiter
	publisher   ports.EventPublisher
	cfg         *config.DomainConfig
	opts        ExpansionOptions
	metrics     *observability.Collector
	tracer      *observability.Tracer
	logger      *zap.Logger
}

// NewExpansionPipeline creates the pipeline. limiter, publisher, metrics and
// tracer may be nil.
func NewExpansionPipeline(
	suggestions ports.SuggestionService,
	cls *classifier.Classifier,
	limiter ports.ExpansionLimiter,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	opts ExpansionOptions,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *ExpansionPipeline {
	if cls == nil {
		cls = classifier.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpansionPipeline{
		suggestions: suggestions,
		classifier:  cls.WithOptions(classifier.Options{StrictDedup: opts.StrictDedup}),
		limiter:     limiter,
		publisher:   publisher,
		cfg:         cfg,
		opts:        opts,
		metrics:     metrics,
		tracer:      tracer,
		logger:      logger,
	}
}

// Expand adds suggested children to a node. Suggestion failures degrade to
// placeholder labels. A missing node, a concurrent expansion of the same
// node or an owner over the expansion rate limit is an error and leaves the
// graph untouched.
func (p *ExpansionPipeline) Expand(ctx context.Context, s *Session, nodeID valueobjects.NodeID) (*ExpansionResult, error) {
	log := p.logger.With(zap.String("mapID", s.MapID().String()), zap.String("nodeID", nodeID.String()))

	label, labels, err := s.beginExpansion(nodeID)
	if err != nil {
		return nil, err
	}
	defer s.endExpansion(nodeID)

	if p.limiter != nil && !p.limiter.Allow(s.OwnerID()) {
		p.metrics.RecordExpansion("throttled")
		log.Warn("Expansion rate limit exceeded", zap.String("ownerID", s.OwnerID()))
		return nil, errors.NewThrottledError("expansion rate limit exceeded").WithDetail("owner", s.OwnerID())
	}

	log.Debug("Expansion state", zap.String("state", string(ExpansionClassifying)))
	related := p.classifier.FilterContext(label, labels)

	log.Debug("Expansion state", zap.String("state", string(ExpansionRequesting)), zap.Int("context", len(related)))
	state := ExpansionIdle
	suggestions, reqErr := p.request(ctx, label, related)
	if reqErr == nil {
		suggestions = p.normalize(label, suggestions)
		if len(suggestions) == 0 {
			reqErr = errors.NewMalformedResponseError("suggestions", "no usable suggestions")
		}
	}
	usedFallback := false
	if reqErr != nil {
		state = ExpansionErrored
		usedFallback = true
		suggestions = p.fallback(label)
		log.Warn("Expansion degraded to placeholders",
			zap.String("state", string(ExpansionErrored)),
			zap.Error(reqErr),
		)
	}

	log.Debug("Expansion state", zap.String("state", string(ExpansionIntegrating)), zap.Int("children", len(suggestions)))
	nodeIDs, edgeIDs, err := s.integrateExpansion(nodeID, suggestions)
	if err != nil {
		p.metrics.RecordExpansion("failed")
		log.Warn("Expansion could not be integrated", zap.Error(err))
		return nil, err
	}

	outcome := "suggested"
	if usedFallback {
		outcome = "fallback"
	}
	p.metrics.RecordExpansion(outcome)
	p.publish(ctx, events.NewMindMapExpanded(s.MapID(), nodeID, len(nodeIDs), usedFallback, time.Now()))

	log.Info("Node expanded",
		zap.Int("nodes", len(nodeIDs)),
		zap.Int("edges", len(edgeIDs)),
		zap.Bool("fallback", usedFallback),
	)
	return &ExpansionResult{
		NodeIDs:      nodeIDs,
		EdgeIDs:      edgeIDs,
		Suggestions:  suggestions,
		UsedFallback: usedFallback,
		State:        state,
	}, nil
}

func (p *ExpansionPipeline) request(ctx context.Context, label string, related []string) ([]string, error) {
	if p.suggestions == nil {
		return nil, errors.NewUnavailableError("suggestions")
	}
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	var out []string
	start := time.Now()
	err := p.tracer.TraceFunction(ctx, "suggestions.request", func(ctx context.Context) error {
		var err error
		out, err = p.suggestions.Suggest(ctx, label, related)
		return err
	})
	p.metrics.ObserveSuggestionLatency(time.Since(start))
	return out, err
}

// normalize trims, deduplicates against the parent and each other, and caps
func (p *ExpansionPipeline) normalize(label string, suggestions []string) []string {
	out := p.classifier.FilterSuggestions(label, suggestions)
	if limit := p.cfg.MaxSuggestions; limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (p *ExpansionPipeline) fallback(label string) []string {
	n := p.cfg.FallbackSuggestions
	if n <= 0 {
		n = 3
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s - Related Concept %d", label, i+1)
	}
	return out
}

func (p *ExpansionPipeline) publish(ctx context.Context, event events.DomainEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("Failed to publish event", zap.String("type", event.GetEventType()), zap.Error(err))
	}
}
