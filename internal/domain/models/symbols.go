package models

import (
	"regexp"
	"strings"

	"github.com/AtashM95/tradebot/internal/domain/errs"
)

// MaxWatchlistSize caps the number of symbols analysed per cycle.
const MaxWatchlistSize = 200

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// ParseSymbols splits a space or comma separated list and normalises it.
func ParseSymbols(raw string) ([]string, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	return NormalizeSymbols(fields)
}

// NormalizeSymbols upper-cases, validates and de-duplicates symbols,
// preserving first-seen order.
func NormalizeSymbols(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !symbolPattern.MatchString(s) {
			return nil, errs.InvalidInput("invalid symbol %q", s)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) > MaxWatchlistSize {
		return nil, errs.InvalidInput("at most %d symbols allowed, got %d", MaxWatchlistSize, len(out))
	}
	return out, nil
}
