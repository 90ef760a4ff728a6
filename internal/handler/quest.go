package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/progression"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/quest"
)

// QuestHandler handles quest endpoints.
type QuestHandler struct {
	engine  *progression.Engine
	catalog *quest.Catalog
}

// NewQuestHandler creates a new QuestHandler.
func NewQuestHandler(engine *progression.Engine, catalog *quest.Catalog) *QuestHandler {
	return &QuestHandler{engine: engine, catalog: catalog}
}

// Catalog handles GET /quests/catalog.
func (h *QuestHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": h.catalog.ListTemplates(),
	})
}

// Template handles GET /quests/catalog/{questID}.
func (h *QuestHandler) Template(w http.ResponseWriter, r *http.Request) {
	questID := chi.URLParam(r, "questID")
	tmpl, ok := h.catalog.Get(questID)
	if !ok {
		RespondError(w, domain.ErrQuestNotFound(questID))
		return
	}
	RespondJSON(w, http.StatusOK, tmpl)
}

// Reroll handles POST /quests/{questID}/reroll.
func (h *QuestHandler) Reroll(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	res, err := h.engine.RerollQuest(r.Context(), userID, chi.URLParam(r, "questID"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, res)
}
