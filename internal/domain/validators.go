package domain

import (
	"fmt"
	"regexp"
)

var (
	userIDRegex  = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)
	questIDRegex = regexp.MustCompile(`^[a-z0-9_\-]{1,64}$`)
)

// ValidateUserID checks an opaque user identifier (Mongo ObjectID hex, uuid, ...).
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user id is required")
	}
	if !userIDRegex.MatchString(id) {
		return fmt.Errorf("invalid user id format")
	}
	return nil
}

// ValidateQuestTemplate checks a catalog entry.
func ValidateQuestTemplate(t QuestTemplate) error {
	if !questIDRegex.MatchString(t.ID) {
		return fmt.Errorf("quest id %q must be 1-64 lowercase alphanumerics, '-' or '_'", t.ID)
	}
	if !t.EventTrigger.Valid() {
		return fmt.Errorf("quest %s: unknown event trigger %q", t.ID, t.EventTrigger)
	}
	if t.TargetCount <= 0 {
		return fmt.Errorf("quest %s: target count must be positive, got %d", t.ID, t.TargetCount)
	}
	if t.XPReward < 0 {
		return fmt.Errorf("quest %s: xp reward must be non-negative, got %d", t.ID, t.XPReward)
	}
	return nil
}
