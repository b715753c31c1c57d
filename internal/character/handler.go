package character

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/apperr"
	"github.com/Luffy852/dnd5e-character-manager/internal/auth"
	"github.com/Luffy852/dnd5e-character-manager/internal/respond"
	"github.com/Luffy852/dnd5e-character-manager/internal/store"
	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

// CharacterStore defines the interface for character persistence.
type CharacterStore interface {
	CreateCharacter(ctx context.Context, c models.Character) (int64, error)
	GetCharacter(ctx context.Context, id int64) (models.Character, error)
	ListCharactersByUser(ctx context.Context, userID int64) ([]models.Character, error)
	UpdateCharacter(ctx context.Context, c models.Character) error
	DeleteCharacter(ctx context.Context, id int64) error
}

// SkillStore is the read side of the skills table used when rendering sheets.
type SkillStore interface {
	ListSkills(ctx context.Context) ([]models.Skill, error)
}

// Recorder receives one entry per character mutation.
type Recorder interface {
	Record(ctx context.Context, a models.Activity) error
}

// SheetStore defines the interface for exported sheet storage.
type SheetStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

// Handler holds character HTTP handlers.
type Handler struct {
	characters CharacterStore
	skills     SkillStore
	activity   Recorder
	sheets     SheetStore
	logger     *zap.Logger
}

// NewHandler wires the character handlers. activity and sheets may be nil.
func NewHandler(characters CharacterStore, skills SkillStore, activity Recorder, sheets SheetStore, logger *zap.Logger) *Handler {
	return &Handler{characters: characters, skills: skills, activity: activity, sheets: sheets, logger: logger}
}

func principal(r *http.Request) (int64, error) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		return 0, apperr.Auth("not authenticated")
	}
	return id, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid character id")
	}
	return id, nil
}

// owned loads the character named in the path and checks it belongs to the caller.
func (h *Handler) owned(r *http.Request) (models.Character, error) {
	userID, err := principal(r)
	if err != nil {
		return models.Character{}, err
	}
	id, err := pathID(r)
	if err != nil {
		return models.Character{}, err
	}
	c, err := h.characters.GetCharacter(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Character{}, apperr.NotFound("character not found")
		}
		return models.Character{}, err
	}
	if c.UserID != userID {
		return models.Character{}, apperr.Auth("not authorized for this character")
	}
	return c, nil
}

func (h *Handler) record(ctx context.Context, c models.Character, action string) {
	if h.activity == nil {
		return
	}
	err := h.activity.Record(ctx, models.Activity{
		UserID:        c.UserID,
		CharacterID:   c.ID,
		CharacterName: c.Name,
		Action:        action,
	})
	if err != nil {
		h.logger.Warn("record activity",
			zap.String("action", action),
			zap.Int64("character_id", c.ID),
			zap.Error(err),
		)
	}
}

// Create inserts a character owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	var in models.CharacterInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if in.UserID == 0 {
		in.UserID = userID
	}
	if in.UserID != userID {
		respond.Error(w, r, h.logger, apperr.Auth("cannot create characters for another user"))
		return
	}

	c := in.Character()
	id, err := h.characters.CreateCharacter(r.Context(), c)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	c.ID = id
	h.record(r.Context(), c, models.ActionCreated)

	respond.JSON(w, http.StatusOK, models.CreateCharacterResponse{Success: true, CharacterID: id})
}

// Get returns a single character.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.owned(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

// ListByUser returns the characters of the user named by the userId query parameter.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := principal(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	raw := r.URL.Query().Get("userId")
	if raw == "" {
		respond.Error(w, r, h.logger, apperr.Validation("userId is required"))
		return
	}
	requested, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respond.Error(w, r, h.logger, apperr.Validation("userId must be an integer"))
		return
	}
	if requested != userID {
		respond.Error(w, r, h.logger, apperr.Auth("not authorized for this user"))
		return
	}

	list, err := h.characters.ListCharactersByUser(r.Context(), userID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// Update replaces every editable field of a character.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.owned(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	var in models.CharacterInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if in.UserID != 0 && in.UserID != existing.UserID {
		respond.Error(w, r, h.logger, apperr.Auth("cannot move a character to another user"))
		return
	}

	c := in.Character()
	c.ID = existing.ID
	c.UserID = existing.UserID
	if err := h.characters.UpdateCharacter(r.Context(), c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(w, r, h.logger, apperr.NotFound("character not found"))
			return
		}
		respond.Error(w, r, h.logger, err)
		return
	}
	h.record(r.Context(), c, models.ActionUpdated)

	respond.OK(w)
}

// Delete removes a character. Deleting an id that does not exist succeeds.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c, err := h.owned(r)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			respond.OK(w)
			return
		}
		respond.Error(w, r, h.logger, err)
		return
	}

	if err := h.characters.DeleteCharacter(r.Context(), c.ID); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if h.sheets != nil {
		if err := h.sheets.Remove(r.Context(), SheetKey(c.UserID, c.ID)); err != nil {
			h.logger.Warn("remove sheet export", zap.Int64("character_id", c.ID), zap.Error(err))
		}
	}
	h.record(r.Context(), c, models.ActionDeleted)

	respond.OK(w)
}
