// Package activity exposes the per-user log of character mutations.
package activity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/apperr"
	"github.com/Luffy852/dnd5e-character-manager/internal/auth"
	"github.com/Luffy852/dnd5e-character-manager/internal/respond"
	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

// Limit is the maximum number of entries returned by List.
const Limit = 50

// Store records and lists activity entries.
type Store interface {
	Record(ctx context.Context, a models.Activity) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Activity, error)
}

// Discard is the Store used when no activity backend is configured.
type Discard struct{}

func (Discard) Record(context.Context, models.Activity) error { return nil }

func (Discard) ListByUser(context.Context, int64, int) ([]models.Activity, error) {
	return []models.Activity{}, nil
}

// Memory keeps activity in process. Only the newest Limit entries per user
// are retained, which is all List ever returns.
type Memory struct {
	mu     sync.Mutex
	byUser map[int64][]models.Activity
}

func (m *Memory) Record(_ context.Context, a models.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byUser == nil {
		m.byUser = make(map[int64][]models.Activity)
	}
	entries := append(m.byUser[a.UserID], a)
	if len(entries) > Limit {
		entries = append([]models.Activity(nil), entries[len(entries)-Limit:]...)
	}
	m.byUser[a.UserID] = entries
	return nil
}

func (m *Memory) ListByUser(_ context.Context, userID int64, limit int) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.byUser[userID]
	out := make([]models.Activity, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

type Handler struct {
	store  Store
	logger *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	if store == nil {
		store = Discard{}
	}
	return &Handler{store: store, logger: logger}
}

// List returns the caller's most recent activity, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.Auth("not authenticated"))
		return
	}
	list, err := h.store.ListByUser(r.Context(), userID, Limit)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}
