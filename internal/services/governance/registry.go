package governance

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	domrepo "github.com/AtashM95/tradebot/internal/domain/repository"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
)

// Registry tracks immutable model versions and the single active pointer.
// Readers of the active model take one atomic load per decision, so a
// concurrent SetActive is observed either entirely or not at all.
type Registry struct {
	store  domrepo.ModelStore
	logger *applogger.Logger
	now    func() time.Time

	mu     sync.RWMutex // guards models; also serialises SetActive/Register
	models map[string]*models.Model
	active atomic.Pointer[models.Model]
}

// NewRegistry creates a registry. store may be nil for a purely in-memory registry.
func NewRegistry(store domrepo.ModelStore, l *applogger.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: l,
		now:    time.Now,
		models: make(map[string]*models.Model),
	}
}

// Load restores models and the active pointer from the store.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	list, err := r.store.ListModels(ctx)
	if err != nil {
		return errs.Unavailable(err, "load models")
	}
	activeID, err := r.store.ActiveModelID(ctx)
	if err != nil {
		return errs.Unavailable(err, "load active model")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range list {
		m := list[i].Clone()
		r.models[m.ID] = &m
	}
	if m, ok := r.models[activeID]; ok {
		r.active.Store(m)
	}
	r.logger.Info("model registry loaded",
		applogger.Int("models", len(r.models)),
		applogger.String("active", activeID),
	)
	return nil
}

// Register adds a new model. IDs are unique; models are never replaced.
func (r *Registry) Register(ctx context.Context, m models.Model) (models.Model, error) {
	if m.ID == "" {
		return models.Model{}, errs.InvalidInput("model id is required")
	}
	if m.Algorithm == "" {
		m.Algorithm = AlgorithmThreshold
	}
	if err := ValidateParameters(m); err != nil {
		return models.Model{}, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now().UTC()
	}
	m = m.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[m.ID]; exists {
		return models.Model{}, errs.InvalidInput("model %q already registered", m.ID)
	}
	if r.store != nil {
		if err := r.store.SaveModel(ctx, m); err != nil {
			return models.Model{}, errs.Unavailable(err, "save model %s", m.ID)
		}
	}
	r.models[m.ID] = &m
	r.logger.Info("model registered", applogger.String("model_id", m.ID), applogger.String("algorithm", m.Algorithm))
	return m.Clone(), nil
}

// List returns model summaries ordered by creation time, then id.
func (r *Registry) List() []models.ModelSummary {
	active := r.active.Load()

	r.mu.RLock()
	out := make([]models.ModelSummary, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m.Summary(active != nil && active.ID == m.ID))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Registry) Get(id string) (models.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	if !ok {
		return models.Model{}, errs.NotFound("model %q not found", id)
	}
	return m.Clone(), nil
}

// Active returns a copy of the active model.
func (r *Registry) Active() (models.Model, error) {
	m := r.active.Load()
	if m == nil {
		return models.Model{}, errs.NotFound("no active model")
	}
	return m.Clone(), nil
}

// SetActive swaps the active pointer to id. The previous model is retained.
// On any failure the pointer is left unchanged.
func (r *Registry) SetActive(ctx context.Context, id string) (models.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.models[id]
	if !ok {
		return models.Model{}, errs.NotFound("model %q not found", id)
	}
	if r.store != nil {
		if err := r.store.SetActiveModel(ctx, id); err != nil {
			return models.Model{}, errs.Unavailable(err, "persist active model %s", id)
		}
	}
	prev := r.active.Swap(m)

	prevID := ""
	if prev != nil {
		prevID = prev.ID
	}
	r.logger.Info("active model changed", applogger.String("from", prevID), applogger.String("to", id))
	return m.Clone(), nil
}
