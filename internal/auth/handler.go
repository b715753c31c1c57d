package auth

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/apperr"
	"github.com/Luffy852/dnd5e-character-manager/internal/respond"
	"github.com/Luffy852/dnd5e-character-manager/internal/store"
	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// Handler holds the user account HTTP handlers.
type Handler struct {
	users    UserStore
	sessions Sessions
	logger   *zap.Logger
	validate *validator.Validate
	ttl      time.Duration
}

func NewHandler(users UserStore, sessions Sessions, logger *zap.Logger, ttl time.Duration) *Handler {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &Handler{users: users, sessions: sessions, logger: logger, validate: v, ttl: ttl}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func (h *Handler) check(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return apperr.Validation("missing required fields: " + strings.Join(fields, ", "))
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.check(req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	// Fast path only; the unique index on users.email is authoritative.
	if _, err := h.users.GetUserByEmail(r.Context(), req.Email); err == nil {
		respond.Error(w, r, h.logger, apperr.Conflict("email already registered"))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		respond.Error(w, r, h.logger, err)
		return
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			respond.Error(w, r, h.logger, apperr.Conflict("email already registered"))
			return
		}
		respond.Error(w, r, h.logger, err)
		return
	}

	h.logger.Info("user registered", zap.Int64("user_id", user.ID))
	respond.JSON(w, http.StatusOK, models.RegisterResponse{Success: true, UserID: user.ID})
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.check(req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(w, r, h.logger, apperr.Auth("invalid email or password"))
			return
		}
		respond.Error(w, r, h.logger, err)
		return
	}
	if !CheckPassword(user.PasswordHash, req.Password) {
		respond.Error(w, r, h.logger, apperr.Auth("invalid email or password"))
		return
	}

	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(h.ttl / time.Second),
	})

	respond.JSON(w, http.StatusOK, models.LoginResponse{Success: true, User: user})
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("delete session", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	respond.OK(w)
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.Auth("not authenticated"))
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(w, r, h.logger, apperr.Auth("not authenticated"))
			return
		}
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}
