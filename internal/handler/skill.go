package handler

import (
	"log/slog"
	"net/http"

	"github.com/joshijoe05/records-backend/internal/service"
)

// SkillHandler serves the skill taxonomy.
type SkillHandler struct {
	skills *service.SkillService
	logger *slog.Logger
}

func NewSkillHandler(skills *service.SkillService, logger *slog.Logger) *SkillHandler {
	return &SkillHandler{skills: skills, logger: logger}
}

type categoryRequest struct {
	Name string `json:"name"`
}

// HandleCreateCategory adds a skill category.
//
// HTTP: POST /skill-category  {"name"}
func (h *SkillHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleCreateSkillCategory", err)
		return
	}

	category, err := h.skills.CreateCategory(r.Context(), in.Name)
	if err != nil {
		writeError(w, h.logger, "handleCreateSkillCategory", err)
		return
	}
	respond(w, http.StatusCreated, "", category)
}

// HandleListCategories returns every skill category.
//
// HTTP: GET /skill-category
func (h *SkillHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.skills.ListCategories(r.Context())
	if err != nil {
		writeError(w, h.logger, "handleGetSkillCategories", err)
		return
	}
	respond(w, http.StatusOK, "", categories)
}

// HandleCreateSkill adds a skill to an existing category.
//
// HTTP: POST /skill  {"name", "skillCategoryId", "imageUrl"}
func (h *SkillHandler) HandleCreateSkill(w http.ResponseWriter, r *http.Request) {
	var in service.CreateSkillInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, "handleCreateSkill", err)
		return
	}

	skill, err := h.skills.CreateSkill(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, "handleCreateSkill", err)
		return
	}
	respond(w, http.StatusCreated, "", skill)
}

// HandleListSkills returns all skills, or one category's with
// ?skillCategoryId=.
//
// HTTP: GET /skill
func (h *SkillHandler) HandleListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.skills.ListSkills(r.Context(), r.URL.Query().Get("skillCategoryId"))
	if err != nil {
		writeError(w, h.logger, "handleGetSkills", err)
		return
	}
	respond(w, http.StatusOK, "", skills)
}
