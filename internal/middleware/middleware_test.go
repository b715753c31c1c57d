package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Luffy852/dnd5e-character-manager/internal/auth"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int64{"id": id})
}

func TestRequireAuth(t *testing.T) {
	sessions := auth.NewMemorySessions(time.Hour)
	sid, err := sessions.Create(context.Background(), 11)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	h := RequireAuth(sessions, zap.NewNop())(http.HandlerFunc(echoUser))

	tests := []struct {
		name   string
		cookie string
		status int
		errMsg string
	}{
		{name: "no cookie", status: http.StatusUnauthorized, errMsg: "not authenticated"},
		{name: "unknown session", cookie: "nope", status: http.StatusUnauthorized, errMsg: "session expired"},
		{name: "valid session", cookie: sid, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.errMsg != "" {
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body["error"] != tt.errMsg {
					t.Fatalf("error = %q, want %q", body["error"], tt.errMsg)
				}
				return
			}
			var body map[string]int64
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["id"] != 11 {
				t.Fatalf("user id = %d, want 11", body["id"])
			}
		})
	}
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := chimw.RequestID(Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/characters", nil))

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusCreated) {
		t.Fatalf("status field = %v", fields["status"])
	}
	if fields["path"] != "/api/characters" || fields["method"] != http.MethodPost {
		t.Fatalf("fields = %v", fields)
	}
	if fields["bytes"] != int64(2) {
		t.Fatalf("bytes field = %v", fields["bytes"])
	}
	if id, _ := fields["request_id"].(string); id == "" {
		t.Fatal("expected request id")
	}
}

func TestOptions(t *testing.T) {
	called := false
	h := Options(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/anything", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("options: status %d, called %v", rec.Code, called)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	if !called {
		t.Fatal("GET should reach the next handler")
	}
}
