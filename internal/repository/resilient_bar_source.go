package repository

import (
	"context"
	"errors"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	domrepo "github.com/AtashM95/tradebot/internal/domain/repository"
	"github.com/AtashM95/tradebot/pkg/resilience"
)

// ResilientBarSource retries transient fetch failures behind a circuit
// breaker. Every failure surfaces as errs.ErrUnavailable.
type ResilientBarSource struct {
	next    domrepo.BarSource
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

func NewResilientBarSource(next domrepo.BarSource, retry resilience.RetryConfig, breaker *resilience.Breaker) *ResilientBarSource {
	return &ResilientBarSource{next: next, retry: retry, breaker: breaker}
}

func (s *ResilientBarSource) DailyBars(ctx context.Context, symbol string, limit int) ([]models.Bar, error) {
	var out []models.Bar
	err := s.breaker.Execute(func() error {
		return resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
			bars, err := s.next.DailyBars(ctx, symbol, limit)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return resilience.Permanent(err)
				}
				return err
			}
			out = bars
			return nil
		})
	})
	if err != nil {
		return nil, errs.Unavailable(err, "fetch bars for %s", symbol)
	}
	return out, nil
}
