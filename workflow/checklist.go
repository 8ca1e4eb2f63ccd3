package workflow

import (
	"encoding/json"
	"strings"

	"bug-tracker/backend/bugs-service/models"
)

// ChecklistEntry is the boundary form of a checklist item. Clients send
// either a bare string ("verify fix on staging") or an object with text and
// an optional completed flag; both decode into this one shape.
type ChecklistEntry struct {
	Text      string
	Completed bool
}

func (c *ChecklistEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Completed = false
		return nil
	}

	var obj struct {
		Text      string `json:"text"`
		Completed bool   `json:"completed"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Text = obj.Text
	c.Completed = obj.Completed
	return nil
}

// NormalizeChecklist validates and trims boundary entries into stored items.
// When seed is true the completed flags are discarded: a freshly created bug
// starts with every step outstanding.
func NormalizeChecklist(entries []ChecklistEntry, seed bool) ([]models.ChecklistItem, error) {
	items := make([]models.ChecklistItem, 0, len(entries))
	for i, entry := range entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			return nil, Invalid("checklist item %d has no text", i)
		}
		completed := entry.Completed
		if seed {
			completed = false
		}
		items = append(items, models.ChecklistItem{Text: text, Completed: completed})
	}
	return items, nil
}

func checklistComplete(items []models.ChecklistItem) bool {
	for _, item := range items {
		if !item.Completed {
			return false
		}
	}
	return true
}

func checklistStarted(items []models.ChecklistItem) bool {
	for _, item := range items {
		if item.Completed {
			return true
		}
	}
	return false
}
