package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/auth"
	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

func TestMemoryListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := &Memory{}
	for i := int64(1); i <= Limit+5; i++ {
		_ = m.Record(ctx, models.Activity{UserID: 1, CharacterID: i, Action: models.ActionCreated})
	}
	_ = m.Record(ctx, models.Activity{UserID: 2, CharacterID: 999, Action: models.ActionDeleted})

	list, err := m.ListByUser(ctx, 1, Limit)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != Limit {
		t.Fatalf("entries = %d, want %d", len(list), Limit)
	}
	if list[0].CharacterID != Limit+5 {
		t.Fatalf("first entry = %d, want newest", list[0].CharacterID)
	}
	for _, a := range list {
		if a.UserID != 1 {
			t.Fatalf("foreign entry leaked: %+v", a)
		}
	}
}

func TestMemoryRetainsOnlyRecentEntries(t *testing.T) {
	ctx := context.Background()
	m := &Memory{}
	for i := int64(1); i <= 10*Limit; i++ {
		_ = m.Record(ctx, models.Activity{UserID: 3, CharacterID: i, Action: models.ActionUpdated})
	}

	m.mu.Lock()
	stored := len(m.byUser[3])
	m.mu.Unlock()
	if stored != Limit {
		t.Fatalf("stored entries = %d, want %d", stored, Limit)
	}

	list, _ := m.ListByUser(ctx, 3, 1000)
	if len(list) != Limit || list[0].CharacterID != 10*Limit || list[Limit-1].CharacterID != 9*Limit+1 {
		t.Fatalf("list = %d entries, first %d", len(list), list[0].CharacterID)
	}
	if list[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be stamped")
	}
}

func TestListHandler(t *testing.T) {
	m := &Memory{}
	_ = m.Record(context.Background(), models.Activity{UserID: 4, CharacterID: 1, CharacterName: "Wyll", Action: models.ActionExported})
	h := NewHandler(m, zap.NewNop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/users/me/activity", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me/activity", nil)
	rec = httptest.NewRecorder()
	h.List(rec, req.WithContext(auth.WithUserID(req.Context(), 4)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []models.Activity
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].CharacterName != "Wyll" || list[0].Action != models.ActionExported {
		t.Fatalf("list = %+v", list)
	}
}

func TestDiscardListsEmptyArray(t *testing.T) {
	h := NewHandler(nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/api/users/me/activity", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req.WithContext(auth.WithUserID(req.Context(), 1)))

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("body = %s, want []", got)
	}
}
