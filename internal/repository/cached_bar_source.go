package repository

import (
	"context"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/models"
	domrepo "github.com/AtashM95/tradebot/internal/domain/repository"
	"github.com/AtashM95/tradebot/pkg/cache"
)

// CachedBarSource memoises DailyBars per (symbol, limit).
type CachedBarSource struct {
	next  domrepo.BarSource
	cache cache.Service
	ttl   time.Duration
}

func NewCachedBarSource(next domrepo.BarSource, c cache.Service, ttl time.Duration) *CachedBarSource {
	return &CachedBarSource{next: next, cache: c, ttl: ttl}
}

func (s *CachedBarSource) DailyBars(ctx context.Context, symbol string, limit int) ([]models.Bar, error) {
	key := cache.GenerateKeyWithParams("bars", symbol, limit)
	return cache.GetOrLoad(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]models.Bar, error) {
		return s.next.DailyBars(ctx, symbol, limit)
	})
}
