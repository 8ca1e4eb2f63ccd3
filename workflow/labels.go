package workflow

import (
	"fmt"
	"strings"

	"bug-tracker/backend/bugs-service/models"
)

// LabelTable translates between the canonical status enum and the labels a
// deployment shows on the wire. Some installations relabel the workflow
// Pending/In Progress/Resolved without changing its semantics; the engine
// only ever sees the canonical values.
type LabelTable struct {
	byStatus map[models.BugStatus]string
	byLabel  map[string]models.BugStatus
}

// DefaultLabels returns the original deployment's labels.
func DefaultLabels() *LabelTable {
	t, _ := newLabelTable(map[models.BugStatus]string{
		models.StatusOpen:       "Open",
		models.StatusInProgress: "In Progress",
		models.StatusClosed:     "Closed",
	})
	return t
}

// ParseLabelTable builds a table from a "Status=Label" comma list, e.g.
// "Open=Pending,InProgress=In Progress,Closed=Resolved". Statuses left out
// keep their default label.
func ParseLabelTable(mapping string) (*LabelTable, error) {
	labels := map[models.BugStatus]string{
		models.StatusOpen:       "Open",
		models.StatusInProgress: "In Progress",
		models.StatusClosed:     "Closed",
	}
	for _, pair := range strings.Split(mapping, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid status label mapping: %q", pair)
		}
		status := models.BugStatus(strings.TrimSpace(key))
		if !status.IsValid() {
			return nil, fmt.Errorf("unknown status in label mapping: %q", key)
		}
		label := strings.TrimSpace(value)
		if label == "" {
			return nil, fmt.Errorf("empty label for status %q", key)
		}
		labels[status] = label
	}
	return newLabelTable(labels)
}

func newLabelTable(labels map[models.BugStatus]string) (*LabelTable, error) {
	t := &LabelTable{
		byStatus: labels,
		byLabel:  make(map[string]models.BugStatus, len(labels)*2),
	}
	for status, label := range labels {
		if existing, ok := t.byLabel[label]; ok && existing != status {
			return nil, fmt.Errorf("label %q maps to both %s and %s", label, existing, status)
		}
		t.byLabel[label] = status
		// Canonical names stay parseable even when relabeled.
		if _, ok := t.byLabel[string(status)]; !ok {
			t.byLabel[string(status)] = status
		}
	}
	return t, nil
}

// Format renders a status with the deployment's label. Unknown stored values
// (e.g. Rejected) pass through unchanged.
func (t *LabelTable) Format(s models.BugStatus) string {
	if label, ok := t.byStatus[s]; ok {
		return label
	}
	return string(s)
}

// Parse resolves a wire label (or canonical name) to a status.
func (t *LabelTable) Parse(label string) (models.BugStatus, bool) {
	status, ok := t.byLabel[strings.TrimSpace(label)]
	return status, ok
}

// ChartKey is the bucket key a status contributes to dashboard charts:
// the display label with spaces removed, so chart renderers get stable
// identifier-like keys.
func (t *LabelTable) ChartKey(s models.BugStatus) string {
	return strings.ReplaceAll(t.Format(s), " ", "")
}
