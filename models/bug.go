package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BugStatus string

const (
	StatusOpen       BugStatus = "Open"
	StatusInProgress BugStatus = "InProgress"
	StatusClosed     BugStatus = "Closed"
	// StatusRejected is written by deployments that added a second terminal
	// state. It is never a valid transition target here, but stored bugs
	// carrying it must be treated as terminal.
	StatusRejected BugStatus = "Rejected"
)

// IsValid reports whether s is a status a client may request.
func (s BugStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether s blocks checklist-driven status derivation.
func (s BugStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusRejected
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Severity string

const (
	SeverityMinor    Severity = "Minor"
	SeverityMajor    Severity = "Major"
	SeverityCritical Severity = "Critical"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

type ChecklistItem struct {
	Text      string `json:"text" bson:"text"`
	Completed bool   `json:"completed" bson:"completed"`
}

type Bug struct {
	ID                primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Title             string               `json:"title" bson:"title"`
	Description       string               `json:"description" bson:"description"`
	Priority          Priority             `json:"priority" bson:"priority"`
	Severity          Severity             `json:"severity" bson:"severity"`
	Status            BugStatus            `json:"status" bson:"status"`
	DueDate           *time.Time           `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	Module            string               `json:"module,omitempty" bson:"module,omitempty"`
	CreatedBy         primitive.ObjectID   `json:"createdBy" bson:"createdBy"`
	AssignedTo        []primitive.ObjectID `json:"assignedTo" bson:"assignedTo"`
	Attachments       []string             `json:"attachments" bson:"attachments"`
	Checklist         []ChecklistItem      `json:"checklist" bson:"checklist"`
	ClosedByChecklist bool                 `json:"closedByChecklist" bson:"closedByChecklist"`
	Version           int64                `json:"version" bson:"version"`
	CreatedAt         time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// IsAssigned reports whether the given user is in the bug's assignee set.
func (b *Bug) IsAssigned(userID primitive.ObjectID) bool {
	for _, id := range b.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}
