package skills

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/respond"
	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

// SkillStore defines the interface for reading the skill reference table.
type SkillStore interface {
	ListSkills(ctx context.Context) ([]models.Skill, error)
}

type Handler struct {
	skills SkillStore
	logger *zap.Logger
}

func NewHandler(skills SkillStore, logger *zap.Logger) *Handler {
	return &Handler{skills: skills, logger: logger}
}

// List returns every skill ordered by name.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.skills.ListSkills(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}
