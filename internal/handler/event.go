package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/progression"
)

// resultCache is the part of guard.IdempotencyGuard the handler uses.
type resultCache interface {
	Check(ctx context.Context, key string) domain.GuardResult
	Result(key string) (interface{}, bool)
	Complete(key string, result interface{})
	Remove(key string)
}

// EventHandler ingests domain actions reported by collaborator backends.
type EventHandler struct {
	engine *progression.Engine
	dedupe resultCache
	logger *slog.Logger
}

// NewEventHandler creates a new EventHandler. dedupe may be nil to disable
// Idempotency-Key handling.
func NewEventHandler(engine *progression.Engine, dedupe *guard.IdempotencyGuard, logger *slog.Logger) *EventHandler {
	h := &EventHandler{engine: engine, logger: logger}
	if dedupe != nil {
		h.dedupe = dedupe
	}
	return h
}

type recordEventRequest struct {
	UserID  string `json:"userId"`
	Trigger string `json:"trigger"`
}

// Record handles POST /internal/events.
//
// A replayed Idempotency-Key returns the stored result without touching
// progress; a key that is still being processed gets 409.
func (h *EventHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := domain.ValidateUserID(req.UserID); err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}
	trigger, err := domain.ParseEventTrigger(req.Trigger)
	if err != nil {
		RespondError(w, err)
		return
	}

	key := ""
	if h.dedupe != nil {
		key = r.Header.Get("Idempotency-Key")
	}
	if key != "" {
		key = req.UserID + ":" + key
		// claim first; a rejected claim is either finished (replay) or in flight
		if res := h.dedupe.Check(r.Context(), key); !res.Allowed {
			if prior, ok := h.dedupe.Result(key); ok {
				w.Header().Set("Idempotent-Replayed", "true")
				RespondJSON(w, http.StatusOK, prior)
				return
			}
			RespondError(w, domain.ErrConflict("event with this idempotency key is already being processed"))
			return
		}
	}

	result, err := h.engine.RecordEvent(r.Context(), req.UserID, trigger)
	if err != nil {
		if key != "" {
			h.dedupe.Remove(key)
		}
		h.logger.Warn("record event failed",
			"user_id", req.UserID,
			"trigger", trigger,
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
		RespondError(w, err)
		return
	}

	if key != "" {
		h.dedupe.Complete(key, result)
	}
	RespondJSON(w, http.StatusOK, result)
}
