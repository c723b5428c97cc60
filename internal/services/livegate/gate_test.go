package livegate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtashM95/tradebot/internal/domain/errs"
)

const (
	testPIN    = "4711"
	testPhrase = "I_UNDERSTAND_LIVE_TRADING_RISK"
)

func newTestGate(t *testing.T) (*Gate, *time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := New(Config{PIN: testPIN, Phrase: testPhrase, SessionTTL: 10 * time.Minute}, nil, nil)
	g.now = func() time.Time { return now }
	return g, &now
}

func TestUnlock_Success(t *testing.T) {
	g, now := newTestGate(t)

	s, err := g.Unlock(true, testPIN, testPhrase)
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), s.ExpiresAt)
	assert.NotEmpty(t, s.Token)
	assert.True(t, g.Active())
	assert.True(t, g.Verify(s.Token))
	assert.False(t, g.Verify("forged"))

	active, exp := g.Status()
	assert.True(t, active)
	assert.Equal(t, s.ExpiresAt, exp)
}

func TestUnlock_AnyWrongFactorGivesSameError(t *testing.T) {
	cases := map[string]struct {
		checkbox    bool
		pin, phrase string
	}{
		"checkbox": {false, testPIN, testPhrase},
		"pin":      {true, "0000", testPhrase},
		"phrase":   {true, testPIN, "yes please"},
		"all":      {false, "", ""},
	}
	var messages []string
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			g, _ := newTestGate(t)
			_, err := g.Unlock(tc.checkbox, tc.pin, tc.phrase)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrUnauthorized)
			assert.False(t, g.Active())
			messages = append(messages, err.Error())
		})
	}
	for _, m := range messages {
		assert.Equal(t, ErrUnlockRejected.Error(), m)
	}
}

func TestUnlock_NoPINConfiguredAlwaysFails(t *testing.T) {
	g := New(Config{Phrase: testPhrase}, nil, nil)
	_, err := g.Unlock(true, "", testPhrase)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestSession_Expires(t *testing.T) {
	g, now := newTestGate(t)
	s, err := g.Unlock(true, testPIN, testPhrase)
	require.NoError(t, err)

	*now = now.Add(9 * time.Minute)
	assert.True(t, g.Active())

	*now = now.Add(time.Minute)
	assert.False(t, g.Active())
	assert.False(t, g.Verify(s.Token))
	active, _ := g.Status()
	assert.False(t, active)
}

func TestUnlock_ReplacesPreviousSession(t *testing.T) {
	g, _ := newTestGate(t)
	first, err := g.Unlock(true, testPIN, testPhrase)
	require.NoError(t, err)
	second, err := g.Unlock(true, testPIN, testPhrase)
	require.NoError(t, err)

	assert.False(t, g.Verify(first.Token))
	assert.True(t, g.Verify(second.Token))
}

func TestLock(t *testing.T) {
	g, _ := newTestGate(t)
	assert.False(t, g.Lock())

	_, err := g.Unlock(true, testPIN, testPhrase)
	require.NoError(t, err)
	assert.True(t, g.Lock())
	assert.False(t, g.Active())
}

type unlockCounter struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *unlockCounter) RecordCycle(bool, int, int, float64) {}
func (c *unlockCounter) RecordSignal(string, string) {}
func (c *unlockCounter) RecordBacktest(string, int, float64) {}
func (c *unlockCounter) RecordDriftCheck(bool) {}
func (c *unlockCounter) RecordShadowTest(string) {}
func (c *unlockCounter) RecordTransition(string, string) {}
func (c *unlockCounter) RecordError(string) {}
func (c *unlockCounter) RecordUnlock(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[outcome]++
}

func TestUnlock_RecordsOutcomes(t *testing.T) {
	m := &unlockCounter{outcomes: map[string]int{}}
	g := New(Config{PIN: testPIN, Phrase: testPhrase}, m, nil)

	_, _ = g.Unlock(true, testPIN, testPhrase)
	_, _ = g.Unlock(true, "bad", testPhrase)
	_, _ = g.Unlock(false, testPIN, testPhrase)
	assert.Equal(t, map[string]int{"granted": 1, "rejected": 2}, m.outcomes)
}
