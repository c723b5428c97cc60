package middleware

import (
	"github.com/labstack/echo/v4"
)

// Allower decides whether one more request for key may proceed.
type Allower interface {
	Allow(key string) bool
}

// RateLimit budgets requests per client IP. Requests over budget are answered
// by reject and never reach the handler.
func RateLimit(limiter Allower, reject echo.HandlerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow(c.RealIP()) {
				return reject(c)
			}
			return next(c)
		}
	}
}
