package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/progression"
)

// UserHandler provisions gamification records for users created elsewhere.
type UserHandler struct {
	engine *progression.Engine
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(engine *progression.Engine) *UserHandler {
	return &UserHandler{engine: engine}
}

// Ensure handles PUT /internal/users/{userID}. Returns 201 when the record was
// created and 200 when it already existed.
func (h *UserHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	st, created, err := h.engine.EnsureUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		RespondError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	RespondJSON(w, status, newGamificationView(st))
}
