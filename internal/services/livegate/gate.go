package livegate

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	domrepo "github.com/AtashM95/tradebot/internal/domain/repository"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
)

// ErrUnlockRejected is the only failure Unlock ever returns, whichever factor
// was wrong.
var ErrUnlockRejected = errs.Unauthorized("live trading unlock rejected")

const DefaultSessionTTL = 15 * time.Minute

type Config struct {
	PIN        string
	Phrase     string
	SessionTTL time.Duration
}

type session struct {
	tokenHash [blake2b.Size256]byte
	expiresAt time.Time
}

// Gate authorises live order flow for a bounded time. Secrets and session
// tokens are held only as BLAKE2b digests; comparisons run over fixed-size
// digests so their duration does not depend on the input.
type Gate struct {
	pinHash    [blake2b.Size256]byte
	phraseHash [blake2b.Size256]byte
	pinSet     bool
	ttl        time.Duration

	metrics domrepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time

	mu      sync.RWMutex
	current *session
}

func New(cfg Config, m domrepo.Metrics, l *applogger.Logger) *Gate {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Gate{
		pinHash:    blake2b.Sum256([]byte(cfg.PIN)),
		phraseHash: blake2b.Sum256([]byte(cfg.Phrase)),
		pinSet:     cfg.PIN != "",
		ttl:        cfg.SessionTTL,
		metrics:    m,
		logger:     l,
		now:        time.Now,
	}
}

// Unlock checks all three factors and, when every one passes, replaces any
// existing session with a fresh one.
func (g *Gate) Unlock(checkbox bool, pin, phrase string) (models.LiveSession, error) {
	pinDigest := blake2b.Sum256([]byte(pin))
	phraseDigest := blake2b.Sum256([]byte(phrase))

	ok := 1
	if !checkbox {
		ok = 0
	}
	if !g.pinSet {
		ok = 0
	}
	// Both comparisons always run; results are combined without branching.
	ok &= subtle.ConstantTimeCompare(pinDigest[:], g.pinHash[:])
	ok &= subtle.ConstantTimeCompare(phraseDigest[:], g.phraseHash[:])

	if ok != 1 {
		g.record("rejected")
		g.logger.Warn("Live unlock rejected")
		return models.LiveSession{}, ErrUnlockRejected
	}

	token := uuid.NewString()
	s := &session{
		tokenHash: blake2b.Sum256([]byte(token)),
		expiresAt: g.now().Add(g.ttl).UTC(),
	}
	g.mu.Lock()
	g.current = s
	g.mu.Unlock()

	g.record("granted")
	g.logger.Info("Live trading unlocked", applogger.Time("expires_at", s.expiresAt))
	return models.LiveSession{Token: token, ExpiresAt: s.expiresAt}, nil
}

// Valid reports whether a session exists and has not expired at t.
func (g *Gate) Valid(t time.Time) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current != nil && t.Before(g.current.expiresAt)
}

// Active is Valid at the gate's current time.
func (g *Gate) Active() bool { return g.Valid(g.now()) }

// Verify reports whether token belongs to the current, unexpired session.
func (g *Gate) Verify(token string) bool {
	digest := blake2b.Sum256([]byte(token))
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil || !g.now().Before(g.current.expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare(digest[:], g.current.tokenHash[:]) == 1
}

// Status returns whether live trading is authorised and until when.
func (g *Gate) Status() (bool, time.Time) {
	now := g.now()
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil || !now.Before(g.current.expiresAt) {
		return false, time.Time{}
	}
	return true, g.current.expiresAt
}

// Lock releases the session, if any. It reports whether one was active.
func (g *Gate) Lock() bool {
	g.mu.Lock()
	had := g.current != nil && g.now().Before(g.current.expiresAt)
	g.current = nil
	g.mu.Unlock()
	if had {
		g.logger.Info("Live session released")
	}
	return had
}

func (g *Gate) record(outcome string) {
	if g.metrics != nil {
		g.metrics.RecordUnlock(outcome)
	}
}
