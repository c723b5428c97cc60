package models

import (
	"fmt"
	"testing"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymbols(t *testing.T) {
	got, err := ParseSymbols("spy  qqq,BRK.B spy")
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "QQQ", "BRK.B"}, got)

	_, err = ParseSymbols("SPY BAD$")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	got, err = ParseSymbols("   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNormalizeSymbolsCapsSize(t *testing.T) {
	in := make([]string, MaxWatchlistSize+1)
	for i := range in {
		in[i] = fmt.Sprintf("S%d", i)
	}
	_, err := NormalizeSymbols(in)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestBacktestRequestParams(t *testing.T) {
	zero, five := 0, 5
	p := BacktestRequest{Years: &five, StepDays: &zero}.Params()
	assert.Equal(t, 5, p.Years)
	assert.Equal(t, 0, p.StepDays)
	assert.Equal(t, 0, p.TrainDays)
}
