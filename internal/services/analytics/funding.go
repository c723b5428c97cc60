package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/models"
	domsvc "github.com/AtashM95/tradebot/internal/domain/service"
)

// ErrRiskVeto rejects a signal outright; it is neither funded nor queued.
var ErrRiskVeto = errors.New("risk veto")

// RiskLimits sizes positions against the account's cash.
type RiskLimits struct {
	// Equity sizes positions; Cash is what is free to spend. Equity
	// defaults to Cash.
	Equity            float64
	Cash              float64
	CashBuffer        float64
	RiskPerTrade      float64
	MaxPositionWeight float64
}

// RiskManager sizes a signal by risk-per-trade and max position weight and
// raises a funding alert when the position needs more cash than is free
// after the buffer.
type RiskManager struct {
	limits RiskLimits
	now    func() time.Time
}

func NewRiskManager(limits RiskLimits) *RiskManager {
	return &RiskManager{limits: limits, now: time.Now}
}

func (m *RiskManager) Check(_ context.Context, s models.Signal) (*models.FundingAlert, error) {
	if s.Entry <= 0 || s.Stop <= 0 || s.Entry <= s.Stop {
		return nil, fmt.Errorf("%w: invalid entry/stop for %s", ErrRiskVeto, s.Symbol)
	}
	equity := m.limits.Equity
	if equity <= 0 {
		equity = m.limits.Cash
	}
	maxCash := equity * m.limits.MaxPositionWeight
	riskCash := equity * m.limits.RiskPerTrade
	shares := math.Floor(math.Min(maxCash/s.Entry, riskCash/(s.Entry-s.Stop)))
	if shares <= 0 {
		return nil, fmt.Errorf("%w: position size below minimum for %s", ErrRiskVeto, s.Symbol)
	}

	required := shares * s.Entry
	available := m.limits.Cash * (1 - m.limits.CashBuffer)
	if required > available {
		return &models.FundingAlert{
			Symbol:          s.Symbol,
			MissingCash:     required - available,
			ProposedActions: []string{"swap", "trim", "partial_entry", "trade_queue"},
			Details: map[string]float64{
				"cash_required":  required,
				"available_cash": available,
				"shares":         shares,
			},
			CreatedAt: m.now().UTC(),
		}, nil
	}
	return nil, nil
}

var _ domsvc.FundingCheck = (*RiskManager)(nil)
