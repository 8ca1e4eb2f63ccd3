package workflow

import (
	"strings"
	"time"

	"bug-tracker/backend/bugs-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Config carries the deployment policy knobs the bug-tracker versions
// disagree on.
type Config struct {
	// RequireAssignees rejects bug creation with an empty assignee set.
	RequireAssignees bool
}

// Engine decides whether a requested change to a bug is allowed and applies
// it. It holds no state beyond configuration and touches no storage; the
// service layer loads the bug, calls in, and persists the result.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

type CreateInput struct {
	Title       string
	Description string
	Priority    models.Priority
	Severity    models.Severity
	Module      string
	DueDate     *time.Time
	AssignedTo  []primitive.ObjectID
	Checklist   []ChecklistEntry
	Attachments []string
}

// NewBug validates and normalizes creation input into a persistable bug.
// Only testers may report bugs; status is forced to Open regardless of input.
func (e *Engine) NewBug(p models.Principal, in CreateInput) (*models.Bug, error) {
	if err := Authorize(p, nil, ActionCreate); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, Invalid("title and description are required")
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, Invalid("invalid priority value: %s", in.Priority)
	}

	severity := in.Severity
	if severity == "" {
		severity = models.SeverityMinor
	}
	if !severity.IsValid() {
		return nil, Invalid("invalid severity value: %s", in.Severity)
	}

	if e.cfg.RequireAssignees && len(in.AssignedTo) == 0 {
		return nil, Invalid("at least one developer must be assigned")
	}

	checklist, err := NormalizeChecklist(in.Checklist, true)
	if err != nil {
		return nil, err
	}

	attachments := make([]string, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		if trimmed := strings.TrimSpace(a); trimmed != "" {
			attachments = append(attachments, trimmed)
		}
	}

	assignedTo := in.AssignedTo
	if assignedTo == nil {
		assignedTo = []primitive.ObjectID{}
	}

	return &models.Bug{
		Title:       title,
		Description: description,
		Priority:    priority,
		Severity:    severity,
		Status:      models.StatusOpen,
		DueDate:     in.DueDate,
		Module:      strings.TrimSpace(in.Module),
		CreatedBy:   p.ID,
		AssignedTo:  assignedTo,
		Attachments: attachments,
		Checklist:   checklist,
		Version:     1,
	}, nil
}

// ApplyStatus runs the direct status transition. Guard order matches the
// operation contract: enum check, actor check, per-transition rules,
// checklist gate on entering Closed.
func (e *Engine) ApplyStatus(p models.Principal, bug *models.Bug, requested models.BugStatus) error {
	if !requested.IsValid() {
		return Invalid("invalid status value: %s", requested)
	}
	if err := Authorize(p, bug, ActionTransition); err != nil {
		return err
	}

	// Only an assigned developer works a bug; an admin cannot move it to
	// InProgress on their behalf.
	if requested == models.StatusInProgress &&
		!(p.Role == models.RoleDeveloper && bug.IsAssigned(p.ID)) {
		return ErrForbidden
	}

	// Closed is quasi-terminal: only an admin may move a bug out of it.
	if bug.Status == models.StatusClosed && requested != models.StatusClosed &&
		p.Role != models.RoleAdmin {
		return ErrForbidden
	}

	// Quality gate: no bug closes with outstanding checklist items,
	// regardless of who asks.
	if requested == models.StatusClosed && !checklistComplete(bug.Checklist) {
		return Invalid("cannot close bug unless all checklist items are completed")
	}

	bug.Status = requested
	if requested != models.StatusClosed {
		bug.ClosedByChecklist = false
	}
	return nil
}

// ApplyChecklist replaces the bug's checklist wholesale and derives the
// status from completion state, unless the bug already sits in a terminal
// status (which only an admin transition can relax).
func (e *Engine) ApplyChecklist(p models.Principal, bug *models.Bug, items []models.ChecklistItem) error {
	if err := Authorize(p, bug, ActionEditChecklist); err != nil {
		return err
	}

	if items == nil {
		items = []models.ChecklistItem{}
	}
	bug.Checklist = items

	if bug.Status.IsTerminal() {
		return nil
	}

	switch {
	case checklistComplete(items):
		bug.Status = models.StatusClosed
		bug.ClosedByChecklist = true
	case checklistStarted(items):
		bug.Status = models.StatusInProgress
	default:
		bug.Status = models.StatusOpen
	}
	return nil
}

// UpdateInput is the general field update: nil pointers leave the stored
// value untouched, everything provided replaces it.
type UpdateInput struct {
	Title       *string
	Description *string
	Priority    *models.Priority
	Severity    *models.Severity
	Status      *models.BugStatus
	DueDate     *time.Time
	Module      *string
	AssignedTo  []primitive.ObjectID
	Checklist   []ChecklistEntry
	Attachments []string
}

// ApplyUpdate is the admin/reporter full-field update. It bypasses the state
// machine on purpose: the privileged edit path carries no checklist gate.
func (e *Engine) ApplyUpdate(p models.Principal, bug *models.Bug, in UpdateInput) error {
	if err := Authorize(p, bug, ActionUpdate); err != nil {
		return err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return Invalid("title cannot be empty")
		}
		bug.Title = title
	}
	if in.Description != nil {
		bug.Description = strings.TrimSpace(*in.Description)
	}
	if in.Priority != nil {
		if !in.Priority.IsValid() {
			return Invalid("invalid priority value: %s", *in.Priority)
		}
		bug.Priority = *in.Priority
	}
	if in.Severity != nil {
		if !in.Severity.IsValid() {
			return Invalid("invalid severity value: %s", *in.Severity)
		}
		bug.Severity = *in.Severity
	}
	if in.Status != nil {
		if !in.Status.IsValid() {
			return Invalid("invalid status value: %s", *in.Status)
		}
		bug.Status = *in.Status
		if *in.Status != models.StatusClosed {
			bug.ClosedByChecklist = false
		}
	}
	if in.DueDate != nil {
		bug.DueDate = in.DueDate
	}
	if in.Module != nil {
		bug.Module = strings.TrimSpace(*in.Module)
	}
	if in.AssignedTo != nil {
		if e.cfg.RequireAssignees && len(in.AssignedTo) == 0 {
			return Invalid("at least one developer must be assigned")
		}
		bug.AssignedTo = in.AssignedTo
	}
	if in.Checklist != nil {
		items, err := NormalizeChecklist(in.Checklist, false)
		if err != nil {
			return err
		}
		bug.Checklist = items
	}
	if in.Attachments != nil {
		attachments := make([]string, 0, len(in.Attachments))
		for _, a := range in.Attachments {
			if trimmed := strings.TrimSpace(a); trimmed != "" {
				attachments = append(attachments, trimmed)
			}
		}
		bug.Attachments = attachments
	}
	return nil
}

// AuthorizeDelete gates the hard delete: admin, or the reporter on their own
// bug.
func (e *Engine) AuthorizeDelete(p models.Principal, bug *models.Bug) error {
	return Authorize(p, bug, ActionDelete)
}

// AuthorizeView gates single-record reads.
func (e *Engine) AuthorizeView(p models.Principal, bug *models.Bug) error {
	return Authorize(p, bug, ActionView)
}
