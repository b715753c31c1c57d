package character

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/ability"
	"github.com/Luffy852/dnd5e-character-manager/internal/apperr"
	"github.com/Luffy852/dnd5e-character-manager/internal/respond"
	"github.com/Luffy852/dnd5e-character-manager/internal/store"
	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

// SheetKey is the object key of a character's exported sheet.
func SheetKey(userID, characterID int64) string {
	return fmt.Sprintf("users/%d/characters/%d.json", userID, characterID)
}

// BuildSheet renders the ability block and the selected skills of c.
// Skill ids without a matching skill, or whose skill names an unknown ability, are skipped.
func BuildSheet(c models.Character, skills []models.Skill, now time.Time) models.Sheet {
	scores := c.Scores()

	abilities := make([]models.AbilityLine, 0, len(ability.Names))
	for _, name := range ability.Names {
		abilities = append(abilities, models.AbilityLine{
			Name:      name,
			Label:     ability.Abbrev(name),
			Score:     scores[name],
			Modifier:  ability.Modifier(scores[name]),
			Formatted: ability.FormatScore(scores[name]),
		})
	}

	byID := make(map[int64]models.Skill, len(skills))
	for _, sk := range skills {
		byID[sk.ID] = sk
	}
	lines := make([]models.SkillLine, 0, len(c.Skills))
	for _, id := range c.Skills {
		sk, ok := byID[id]
		if !ok || !ability.Valid(sk.AbilityScore) {
			continue
		}
		mod := ability.Modifier(scores[sk.AbilityScore])
		lines = append(lines, models.SkillLine{
			ID:        sk.ID,
			Name:      sk.Name,
			Ability:   sk.AbilityScore,
			Label:     ability.Abbrev(sk.AbilityScore),
			Modifier:  mod,
			Formatted: ability.Format(mod),
		})
	}

	return models.Sheet{
		Character:   c,
		Abilities:   abilities,
		Skills:      lines,
		GeneratedAt: now.UTC(),
	}
}

// ExportSheet renders the character sheet and uploads it to object storage.
func (h *Handler) ExportSheet(w http.ResponseWriter, r *http.Request) {
	if h.sheets == nil {
		respond.Error(w, r, h.logger, apperr.NotFound("sheet export is not configured"))
		return
	}
	c, err := h.owned(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	skills, err := h.skills.ListSkills(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	data, err := json.Marshal(BuildSheet(c, skills, time.Now()))
	if err != nil {
		respond.Error(w, r, h.logger, fmt.Errorf("encode sheet: %w", err))
		return
	}

	key := SheetKey(c.UserID, c.ID)
	if err := h.sheets.Put(r.Context(), key, data, "application/json"); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	h.logger.Info("sheet exported", zap.Int64("character_id", c.ID), zap.String("key", key))
	h.record(r.Context(), c, models.ActionExported)

	respond.JSON(w, http.StatusOK, models.ExportResponse{Success: true, Key: key})
}

// GetSheet streams a previously exported sheet.
func (h *Handler) GetSheet(w http.ResponseWriter, r *http.Request) {
	if h.sheets == nil {
		respond.Error(w, r, h.logger, apperr.NotFound("sheet export is not configured"))
		return
	}
	c, err := h.owned(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	data, err := h.sheets.Get(r.Context(), SheetKey(c.UserID, c.ID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(w, r, h.logger, apperr.NotFound("sheet has not been exported"))
			return
		}
		respond.Error(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
