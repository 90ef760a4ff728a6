// Package quest holds the quest catalog and the daily quest selector.
package quest

import (
	"fmt"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

// Catalog is the process-wide, read-only table of quest templates.
// Safe for concurrent use without locking.
type Catalog struct {
	templates []domain.QuestTemplate
	byID      map[string]int
}

// NewCatalog validates templates and builds a catalog preserving their order.
func NewCatalog(templates []domain.QuestTemplate) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("quest catalog is empty")
	}

	c := &Catalog{
		templates: make([]domain.QuestTemplate, 0, len(templates)),
		byID:      make(map[string]int, len(templates)),
	}
	for _, t := range templates {
		if err := domain.ValidateQuestTemplate(t); err != nil {
			return nil, fmt.Errorf("invalid quest template: %w", err)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate quest id %q", t.ID)
		}
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// MustDefaultCatalog returns the built-in catalog. Panics only if the built-in
// table is itself invalid.
func MustDefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultTemplates())
	if err != nil {
		panic(err)
	}
	return c
}

// ListTemplates returns the templates in catalog order. The slice is a copy.
func (c *Catalog) ListTemplates() []domain.QuestTemplate {
	out := make([]domain.QuestTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

// Get looks up a template by id.
func (c *Catalog) Get(id string) (domain.QuestTemplate, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.QuestTemplate{}, false
	}
	return c.templates[i], true
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.templates)
}

// DefaultTemplates is the reference quest table.
func DefaultTemplates() []domain.QuestTemplate {
	return []domain.QuestTemplate{
		{ID: "upload_note_1", Label: "Share the Knowledge", Description: "Upload 1 note", EventTrigger: domain.TriggerNoteUpload, TargetCount: 1, XPReward: 50},
		{ID: "upload_note_3", Label: "Prolific Scribe", Description: "Upload 3 notes", EventTrigger: domain.TriggerNoteUpload, TargetCount: 3, XPReward: 120},
		{ID: "upload_video_1", Label: "Lights, Camera", Description: "Share 1 video link", EventTrigger: domain.TriggerVideoUpload, TargetCount: 1, XPReward: 60},
		{ID: "view_note_3", Label: "Curious Mind", Description: "View 3 notes", EventTrigger: domain.TriggerNoteView, TargetCount: 3, XPReward: 30},
		{ID: "view_note_10", Label: "Bookworm", Description: "View 10 notes", EventTrigger: domain.TriggerNoteView, TargetCount: 10, XPReward: 80},
		{ID: "download_note_1", Label: "Take It Offline", Description: "Download 1 note", EventTrigger: domain.TriggerNoteDownload, TargetCount: 1, XPReward: 20},
		{ID: "download_note_5", Label: "Study Pack", Description: "Download 5 notes", EventTrigger: domain.TriggerNoteDownload, TargetCount: 5, XPReward: 70},
		{ID: "update_profile_1", Label: "Fresh Look", Description: "Update your profile", EventTrigger: domain.TriggerProfileUpdate, TargetCount: 1, XPReward: 25},
	}
}
