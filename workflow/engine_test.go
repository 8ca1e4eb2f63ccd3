package workflow

import (
	"testing"

	"bug-tracker/backend/bugs-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	admin     = models.Principal{ID: primitive.NewObjectID(), Username: "ana", Role: models.RoleAdmin}
	tester    = models.Principal{ID: primitive.NewObjectID(), Username: "toma", Role: models.RoleTester}
	developer = models.Principal{ID: primitive.NewObjectID(), Username: "dejan", Role: models.RoleDeveloper}
	outsider  = models.Principal{ID: primitive.NewObjectID(), Username: "olga", Role: models.RoleDeveloper}
)

func testBug(status models.BugStatus, checklist ...models.ChecklistItem) *models.Bug {
	return &models.Bug{
		ID:         primitive.NewObjectID(),
		Title:      "login fails on empty password",
		Status:     status,
		CreatedBy:  tester.ID,
		AssignedTo: []primitive.ObjectID{developer.ID},
		Checklist:  checklist,
		Version:    1,
	}
}

func TestNewBug_TesterOnly(t *testing.T) {
	engine := NewEngine(Config{})

	for _, p := range []models.Principal{admin, developer} {
		_, err := engine.NewBug(p, CreateInput{Title: "t", Description: "d"})
		assert.ErrorIs(t, err, ErrForbidden, "role %s must not create bugs", p.Role)
	}
}

func TestNewBug_Validation(t *testing.T) {
	engine := NewEngine(Config{})

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing title", CreateInput{Description: "d"}},
		{"missing description", CreateInput{Title: "t"}},
		{"whitespace title", CreateInput{Title: "   ", Description: "d"}},
		{"bad priority", CreateInput{Title: "t", Description: "d", Priority: "Urgent"}},
		{"bad severity", CreateInput{Title: "t", Description: "d", Severity: "Blocker"}},
		{"empty checklist text", CreateInput{Title: "t", Description: "d", Checklist: []ChecklistEntry{{Text: "  "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.NewBug(tester, tt.in)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestNewBug_RequireAssignees(t *testing.T) {
	strict := NewEngine(Config{RequireAssignees: true})
	_, err := strict.NewBug(tester, CreateInput{Title: "t", Description: "d"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	lenient := NewEngine(Config{RequireAssignees: false})
	bug, err := lenient.NewBug(tester, CreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	assert.Empty(t, bug.AssignedTo)
}

func TestNewBug_Normalization(t *testing.T) {
	engine := NewEngine(Config{RequireAssignees: true})

	devID := primitive.NewObjectID()
	bug, err := engine.NewBug(tester, CreateInput{
		Title:       "  crash on save  ",
		Description: " editor crashes ",
		Priority:    "", // defaults
		Severity:    "",
		Module:      " editor ",
		AssignedTo:  []primitive.ObjectID{devID},
		Checklist: []ChecklistEntry{
			{Text: " reproduce "},
			{Text: "fix", Completed: true}, // completion is discarded on creation
		},
		Attachments: []string{" stack.txt ", "", "  "},
	})
	require.NoError(t, err)

	assert.Equal(t, "crash on save", bug.Title)
	assert.Equal(t, "editor crashes", bug.Description)
	assert.Equal(t, models.PriorityMedium, bug.Priority)
	assert.Equal(t, models.SeverityMinor, bug.Severity)
	assert.Equal(t, models.StatusOpen, bug.Status)
	assert.Equal(t, "editor", bug.Module)
	assert.Equal(t, tester.ID, bug.CreatedBy)
	assert.Equal(t, []string{"stack.txt"}, bug.Attachments)
	assert.Equal(t, int64(1), bug.Version)

	require.Len(t, bug.Checklist, 2)
	assert.Equal(t, "reproduce", bug.Checklist[0].Text)
	assert.False(t, bug.Checklist[0].Completed)
	assert.False(t, bug.Checklist[1].Completed)
}

func TestNewBug_StatusForcedOpen(t *testing.T) {
	engine := NewEngine(Config{})
	bug, err := engine.NewBug(tester, CreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, bug.Status)
}

func TestApplyStatus_InvalidStatus(t *testing.T) {
	engine := NewEngine(Config{})
	bug := testBug(models.StatusOpen)

	var validationErr *ValidationError
	assert.ErrorAs(t, engine.ApplyStatus(admin, bug, "Archived"), &validationErr)
	assert.ErrorAs(t, engine.ApplyStatus(admin, bug, models.StatusRejected), &validationErr,
		"Rejected is a stored terminal value, not a requestable transition")
}

func TestApplyStatus_UnrelatedPrincipalsForbidden(t *testing.T) {
	engine := NewEngine(Config{})
	bug := testBug(models.StatusOpen)

	assert.ErrorIs(t, engine.ApplyStatus(tester, bug, models.StatusInProgress), ErrForbidden)
	assert.ErrorIs(t, engine.ApplyStatus(outsider, bug, models.StatusInProgress), ErrForbidden)
	assert.Equal(t, models.StatusOpen, bug.Status, "rejected transition must not mutate")
}

func TestApplyStatus_OnlyAssignedDeveloperStartsWork(t *testing.T) {
	engine := NewEngine(Config{})
	bug := testBug(models.StatusOpen)

	// Even an admin cannot move a bug to InProgress on the developer's behalf.
	assert.ErrorIs(t, engine.ApplyStatus(admin, bug, models.StatusInProgress), ErrForbidden)

	require.NoError(t, engine.ApplyStatus(developer, bug, models.StatusInProgress))
	assert.Equal(t, models.StatusInProgress, bug.Status)
}

func TestApplyStatus_CloseRequiresCompleteChecklist(t *testing.T) {
	engine := NewEngine(Config{})
	bug := testBug(models.StatusInProgress,
		models.ChecklistItem{Text: "step1", Completed: true},
		models.ChecklistItem{Text: "step2", Completed: false},
	)

	var validationErr *ValidationError
	require.ErrorAs(t, engine.ApplyStatus(developer, bug, models.StatusClosed), &validationErr)
	assert.Equal(t, models.StatusInProgress, bug.Status)

	bug.Checklist[1].Completed = true
	require.NoError(t, engine.ApplyStatus(developer, bug, models.StatusClosed))
	assert.Equal(t, models.StatusClosed, bug.Status)
}

func TestApplyStatus_ReopenRequiresAdmin(t *testing.T) {
	engine := NewEngine(Config{})
	bug := testBug(models.StatusClosed, models.ChecklistItem{Text: "step1", Completed: true})

	assert.ErrorIs(t, engine.ApplyStatus(developer, bug, models.StatusOpen), ErrForbidden)
	assert.Equal(t, models.StatusClosed, bug.Status)

	require.NoError(t, engine.ApplyStatus(admin, bug, models.StatusOpen))
	assert.Equal(t, models.StatusOpen, bug.Status)
}

func TestApplyStatus_ManualReopenClearsChecklistMarker(t *testing.T) {
	engine := NewEngine(Config{})
	bug := testBug(models.StatusClosed, models.ChecklistItem{Text: "step1", Completed: true})
	bug.ClosedByChecklist = true

	require.NoError(t, engine.ApplyStatus(admin, bug, models.StatusOpen))
	assert.False(t, bug.ClosedByChecklist)
}

// Full walkthrough: checklist-driven close, admin reopen, developer redo.
func TestWorkflow_ChecklistLifecycle(t *testing.T) {
	engine := NewEngine(Config{RequireAssignees: true})

	bug, err := engine.NewBug(tester, CreateInput{
		Title:       "payment fails",
		Description: "card declined message for valid cards",
		AssignedTo:  []primitive.ObjectID{developer.ID},
		Checklist:   []ChecklistEntry{{Text: "step1"}, {Text: "step2"}},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusOpen, bug.Status)

	// D marks only item 1 complete -> InProgress.
	require.NoError(t, engine.ApplyChecklist(developer, bug, []models.ChecklistItem{
		{Text: "step1", Completed: true},
		{Text: "step2", Completed: false},
	}))
	assert.Equal(t, models.StatusInProgress, bug.Status)
	assert.False(t, bug.ClosedByChecklist)

	// D marks item 2 complete too -> Closed via checklist.
	require.NoError(t, engine.ApplyChecklist(developer, bug, []models.ChecklistItem{
		{Text: "step1", Completed: true},
		{Text: "step2", Completed: true},
	}))
	assert.Equal(t, models.StatusClosed, bug.Status)
	assert.True(t, bug.ClosedByChecklist)

	// Admin reopens; developer could not have.
	require.ErrorIs(t, engine.ApplyStatus(developer, bug, models.StatusOpen), ErrForbidden)
	require.NoError(t, engine.ApplyStatus(admin, bug, models.StatusOpen))
	assert.Equal(t, models.StatusOpen, bug.Status)
	assert.False(t, bug.ClosedByChecklist)

	// With the checklist still complete the developer may close directly.
	require.NoError(t, engine.ApplyStatus(developer, bug, models.StatusClosed))
	assert.Equal(t, models.StatusClosed, bug.Status)
}

func TestApplyUpdate_AdminAndReporterOnly(t *testing.T) {
	engine := NewEngine(Config{})
	title := "renamed"

	bug := testBug(models.StatusOpen)
	assert.ErrorIs(t, engine.ApplyUpdate(developer, bug, UpdateInput{Title: &title}), ErrForbidden)
	assert.ErrorIs(t, engine.ApplyUpdate(outsider, bug, UpdateInput{Title: &title}), ErrForbidden)

	require.NoError(t, engine.ApplyUpdate(tester, bug, UpdateInput{Title: &title}))
	assert.Equal(t, "renamed", bug.Title)

	otherReporter := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleTester}
	assert.ErrorIs(t, engine.ApplyUpdate(otherReporter, bug, UpdateInput{Title: &title}), ErrForbidden)

	require.NoError(t, engine.ApplyUpdate(admin, bug, UpdateInput{Title: &title}))
}

func TestApplyUpdate_NoStateMachineGuard(t *testing.T) {
	engine := NewEngine(Config{})
	bug := testBug(models.StatusOpen, models.ChecklistItem{Text: "step1", Completed: false})

	// The privileged edit path may set Closed despite the incomplete checklist.
	status := models.StatusClosed
	require.NoError(t, engine.ApplyUpdate(admin, bug, UpdateInput{Status: &status}))
	assert.Equal(t, models.StatusClosed, bug.Status)
}

func TestApplyUpdate_Validation(t *testing.T) {
	engine := NewEngine(Config{})
	bug := testBug(models.StatusOpen)

	empty := "   "
	var validationErr *ValidationError
	assert.ErrorAs(t, engine.ApplyUpdate(admin, bug, UpdateInput{Title: &empty}), &validationErr)

	badPriority := models.Priority("Urgent")
	assert.ErrorAs(t, engine.ApplyUpdate(admin, bug, UpdateInput{Priority: &badPriority}), &validationErr)

	badStatus := models.BugStatus("Archived")
	assert.ErrorAs(t, engine.ApplyUpdate(admin, bug, UpdateInput{Status: &badStatus}), &validationErr)
}

func TestAuthorizeDelete(t *testing.T) {
	engine := NewEngine(Config{})
	bug := testBug(models.StatusOpen)

	assert.NoError(t, engine.AuthorizeDelete(admin, bug))
	assert.NoError(t, engine.AuthorizeDelete(tester, bug))
	assert.ErrorIs(t, engine.AuthorizeDelete(developer, bug), ErrForbidden)

	otherReporter := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleTester}
	assert.ErrorIs(t, engine.AuthorizeDelete(otherReporter, bug), ErrForbidden)
}
