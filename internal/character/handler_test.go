package character

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/auth"
	"github.com/Luffy852/dnd5e-character-manager/internal/store"
	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

type memorySheets struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memorySheets) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memorySheets) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func (m *memorySheets) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type recorded struct {
	mu      sync.Mutex
	actions []string
}

func (r *recorded) Record(_ context.Context, a models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a.Action)
	return nil
}

type fixture struct {
	router http.Handler
	db     *store.SQLiteStore
	sheets *memorySheets
	log    *recorded
	owner  int64
	other  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "dnd5e.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{db: db, sheets: &memorySheets{}, log: &recorded{}}
	for i, email := range []string{"owner@example.com", "other@example.com"} {
		u, err := db.CreateUser(context.Background(), models.User{Username: "u" + strconv.Itoa(i), Email: email, PasswordHash: "x"})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		if i == 0 {
			f.owner = u.ID
		} else {
			f.other = u.ID
		}
	}

	h := NewHandler(db, db, f.log, f.sheets, zap.NewNop())
	r := chi.NewRouter()
	// Tests pick the caller with the X-User header.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := strconv.ParseInt(r.Header.Get("X-User"), 10, 64); err == nil {
				r = r.WithContext(auth.WithUserID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Post("/characters", h.Create)
	r.Get("/characters/user", h.ListByUser)
	r.Get("/characters/{id}", h.Get)
	r.Put("/characters/{id}", h.Update)
	r.Delete("/characters/{id}", h.Delete)
	r.Post("/characters/{id}/sheet", h.ExportSheet)
	r.Get("/characters/{id}/sheet", h.GetSheet)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, user int64, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != 0 {
		req.Header.Set("X-User", strconv.FormatInt(user, 10))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) create(t *testing.T, in models.CharacterInput) int64 {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/characters", f.owner, in)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.CreateCharacterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if !resp.Success || resp.CharacterID == 0 {
		t.Fatalf("create response = %+v", resp)
	}
	return resp.CharacterID
}

func fighter() models.CharacterInput {
	return models.CharacterInput{
		Name:         "Lae'zel",
		Race:         "Githyanki",
		Class:        "Fighter",
		Level:        4,
		Background:   "Soldier",
		Alignment:    "Lawful Evil",
		Experience:   2700,
		Strength:     15,
		Dexterity:    8,
		Constitution: 14,
		Intelligence: 10,
		Wisdom:       12,
		Charisma:     9,
		HitPoints:    40,
		HitDice:      "4d10",
		ArmorClass:   17,
		Speed:        30,
		Skills:       []int64{4, 1, 18},
		Features:     "Second Wind",
		Equipment:    "Greatsword",
	}
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, fighter())

	rec := f.do(t, http.MethodGet, "/characters/"+strconv.FormatInt(id, 10), f.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["skills"] != "[4,1,18]" {
		t.Fatalf("skills = %#v, want text form", raw["skills"])
	}
	if raw["hit_points"] != float64(40) || raw["user_id"] != float64(f.owner) {
		t.Fatalf("row = %v", raw)
	}
	if got := f.log.actions; len(got) != 1 || got[0] != models.ActionCreated {
		t.Fatalf("activity = %v", got)
	}
}

func TestCreateForAnotherUser(t *testing.T) {
	f := newFixture(t)
	in := fighter()
	in.UserID = f.other

	if rec := f.do(t, http.MethodPost, "/characters", f.owner, in); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/characters", 0, fighter()); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
}

func TestOwnershipIsEnforced(t *testing.T) {
	f := newFixture(t)
	path := "/characters/" + strconv.FormatInt(f.create(t, fighter()), 10)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		var body any
		if method == http.MethodPut {
			body = fighter()
		}
		if rec := f.do(t, method, path, f.other, body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s by other user: status = %d, want 401", method, rec.Code)
		}
	}
	if rec := f.do(t, http.MethodGet, path, f.owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("character should survive foreign delete, status = %d", rec.Code)
	}
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(t, http.MethodGet, "/characters/999", f.owner, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/characters/abc", f.owner, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}
}

func TestListByUser(t *testing.T) {
	f := newFixture(t)
	owner := strconv.FormatInt(f.owner, 10)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "missing userId", query: "", status: http.StatusBadRequest},
		{name: "non numeric", query: "?userId=abc", status: http.StatusBadRequest},
		{name: "other user", query: "?userId=" + strconv.FormatInt(f.other, 10), status: http.StatusUnauthorized},
		{name: "own list", query: "?userId=" + owner, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/characters/user"+tt.query, f.owner, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}

	rec := f.do(t, http.MethodGet, "/characters/user?userId="+owner, f.owner, nil)
	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Fatalf("empty list body = %s, want []", body)
	}

	first := fighter()
	second := fighter()
	second.Name = "Karlach"
	f.create(t, first)
	f.create(t, second)

	rec = f.do(t, http.MethodGet, "/characters/user?userId="+owner, f.owner, nil)
	var list []models.Character
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].Name != first.Name || list[1].Name != "Karlach" {
		t.Fatalf("list = %+v", list)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, fighter())
	path := "/characters/" + strconv.FormatInt(id, 10)

	before, err := f.db.GetCharacter(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	in := fighter()
	in.Level = 5
	in.Skills = []int64{12}
	if rec := f.do(t, http.MethodPut, path, f.owner, in); rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}

	after, err := f.db.GetCharacter(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.Level != 5 || after.Skills.Text() != "[12]" || after.UserID != f.owner {
		t.Fatalf("updated = %+v", after)
	}
	if after.UpdatedAt.Before(before.UpdatedAt) {
		t.Fatalf("updated_at moved backwards: %v < %v", after.UpdatedAt, before.UpdatedAt)
	}

	if rec := f.do(t, http.MethodPut, "/characters/999", f.owner, in); rec.Code != http.StatusNotFound {
		t.Fatalf("update missing status = %d, want 404", rec.Code)
	}
	if rec := f.do(t, http.MethodPut, path, f.owner, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("update without body status = %d, want 400", rec.Code)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, fighter())
	path := "/characters/" + strconv.FormatInt(id, 10)

	if rec := f.do(t, http.MethodPost, path+"/sheet", f.owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodDelete, path, f.owner, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("delete #%d status = %d", i+1, rec.Code)
		}
		if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != `{"success":true}` {
			t.Fatalf("delete body = %s", body)
		}
	}
	if len(f.sheets.objects) != 0 {
		t.Fatalf("sheet export left behind: %v", f.sheets.objects)
	}
	if rec := f.do(t, http.MethodGet, path, f.owner, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestExportSheet(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, fighter())
	path := "/characters/" + strconv.FormatInt(id, 10) + "/sheet"

	if rec := f.do(t, http.MethodGet, path, f.owner, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("download before export status = %d, want 404", rec.Code)
	}

	rec := f.do(t, http.MethodPost, path, f.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.ExportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := SheetKey(f.owner, id); resp.Key != want {
		t.Fatalf("key = %q, want %q", resp.Key, want)
	}

	rec = f.do(t, http.MethodGet, path, f.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	var sheet models.Sheet
	if err := json.Unmarshal(rec.Body.Bytes(), &sheet); err != nil {
		t.Fatalf("decode sheet: %v", err)
	}
	if sheet.Character.ID != id || len(sheet.Abilities) != 6 {
		t.Fatalf("sheet = %+v", sheet)
	}
	if rec := f.do(t, http.MethodGet, path, f.other, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign download status = %d, want 401", rec.Code)
	}
}

func TestBuildSheet(t *testing.T) {
	c := fighter().Character()
	c.ID = 3
	skills := []models.Skill{
		{ID: 1, Name: "Acrobatics", AbilityScore: "dexterity"},
		{ID: 4, Name: "Athletics", AbilityScore: "strength"},
		{ID: 18, Name: "Survival", AbilityScore: "wisdom"},
		{ID: 50, Name: "Dicing", AbilityScore: "luck"},
	}
	c.Skills = models.SkillList{4, 1, 99, 50, 18}
	now := time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC)

	sheet := BuildSheet(c, skills, now)

	abilities := map[string]models.AbilityLine{}
	for _, a := range sheet.Abilities {
		abilities[a.Name] = a
	}
	if got := abilities["strength"]; got.Modifier != 2 || got.Formatted != "+2" || got.Label != "STR" {
		t.Fatalf("strength = %+v", got)
	}
	if got := abilities["dexterity"]; got.Modifier != -1 || got.Formatted != "-1" {
		t.Fatalf("dexterity = %+v", got)
	}
	if got := abilities["charisma"]; got.Modifier != -1 {
		t.Fatalf("charisma = %+v", got)
	}

	if len(sheet.Skills) != 3 {
		t.Fatalf("skills = %+v, unknown ids should be skipped", sheet.Skills)
	}
	want := []struct {
		name      string
		formatted string
	}{
		{"Athletics", "+2"},
		{"Acrobatics", "-1"},
		{"Survival", "+1"},
	}
	for i, w := range want {
		if sheet.Skills[i].Name != w.name || sheet.Skills[i].Formatted != w.formatted {
			t.Fatalf("skill %d = %+v, want %s %s", i, sheet.Skills[i], w.name, w.formatted)
		}
	}
	if !sheet.GeneratedAt.Equal(now) {
		t.Fatalf("generated_at = %v", sheet.GeneratedAt)
	}
}
