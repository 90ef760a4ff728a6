package handler

import (
	"net/http"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/auth"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/progression"
)

// GamificationHandler serves the caller's own progression record.
type GamificationHandler struct {
	engine *progression.Engine
}

// NewGamificationHandler creates a new GamificationHandler.
func NewGamificationHandler(engine *progression.Engine) *GamificationHandler {
	return &GamificationHandler{engine: engine}
}

type gamificationView struct {
	XP                 int                       `json:"xp"`
	Level              int                       `json:"level"`
	DailyQuestProgress domain.DailyQuestProgress `json:"dailyQuestProgress"`
}

// Me handles GET /me/gamification. A due daily reset is applied first so a new
// day shows the new quest set.
func (h *GamificationHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	st, err := h.engine.CheckDailyReset(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, newGamificationView(st))
}

func newGamificationView(st *domain.UserGamificationState) gamificationView {
	p := st.DailyQuestProgress
	if p.Quests == nil {
		p.Quests = []domain.QuestInstance{}
	}
	return gamificationView{XP: st.XP, Level: st.Level, DailyQuestProgress: p}
}

func userIDFromContext(r *http.Request) (string, error) {
	sub := auth.SubjectFromContext(r.Context())
	if sub == "" {
		return "", domain.ErrUnauthorized("no subject in context")
	}
	if err := domain.ValidateUserID(sub); err != nil {
		return "", domain.ErrUnauthorized("invalid subject")
	}
	return sub, nil
}
