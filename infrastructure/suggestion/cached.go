package suggestion

import (
	"context"
	"strings"
	"time"

	"mindmap-backend/application/ports"

	"go.uber.org/zap"
)

// CachedService remembers successful answers per label and context
type CachedService struct {
	next   ports.SuggestionService
	cache  ports.Cache
	ttl    time.Duration
	logger *zap.Logger
}

var _ ports.SuggestionService = (*CachedService)(nil)

// NewCachedService wraps next with a result cache
func NewCachedService(next ports.SuggestionService, cache ports.Cache, ttl time.Duration, logger *zap.Logger) *CachedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedService{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Suggest serves from the cache when it can
func (c *CachedService) Suggest(ctx context.Context, label string, existing []string) ([]string, error) {
	key := cacheKey(label, existing)
	if cached, ok := c.cache.Get(ctx, key); ok {
		if suggestions, ok := cached.([]string); ok {
			c.logger.Debug("Suggestion cache hit", zap.String("label", label))
			return append([]string(nil), suggestions...), nil
		}
	}

	suggestions, err := c.next.Suggest(ctx, label, existing)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, append([]string(nil), suggestions...), c.ttl); err != nil {
		c.logger.Warn("Failed to cache suggestions", zap.Error(err))
	}
	return suggestions, nil
}

func cacheKey(label string, existing []string) string {
	return "suggest:" + strings.ToLower(strings.TrimSpace(label)) + "|" + strings.Join(existing, "\x1f")
}
