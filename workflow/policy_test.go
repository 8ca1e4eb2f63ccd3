package workflow

import (
	"testing"

	"bug-tracker/backend/bugs-service/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuthorize(t *testing.T) {
	reporter := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleTester}
	assignee := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleDeveloper}
	otherDev := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleDeveloper}
	otherTester := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleTester}
	adminUser := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	bug := &models.Bug{
		ID:         primitive.NewObjectID(),
		CreatedBy:  reporter.ID,
		AssignedTo: []primitive.ObjectID{assignee.ID},
	}

	tests := []struct {
		name      string
		principal models.Principal
		action    Action
		allowed   bool
	}{
		{"admin cannot create", adminUser, ActionCreate, false},
		{"tester creates", reporter, ActionCreate, true},
		{"developer cannot create", assignee, ActionCreate, false},

		{"admin views", adminUser, ActionView, true},
		{"reporter views own", reporter, ActionView, true},
		{"other tester cannot view", otherTester, ActionView, false},
		{"assignee views", assignee, ActionView, true},
		{"unassigned developer cannot view", otherDev, ActionView, false},

		{"admin updates", adminUser, ActionUpdate, true},
		{"reporter updates own", reporter, ActionUpdate, true},
		{"assignee cannot general-update", assignee, ActionUpdate, false},

		{"admin deletes", adminUser, ActionDelete, true},
		{"reporter deletes own", reporter, ActionDelete, true},
		{"other tester cannot delete", otherTester, ActionDelete, false},
		{"assignee cannot delete", assignee, ActionDelete, false},

		{"admin transitions", adminUser, ActionTransition, true},
		{"assignee transitions", assignee, ActionTransition, true},
		{"unassigned developer cannot transition", otherDev, ActionTransition, false},
		{"reporter cannot transition", reporter, ActionTransition, false},

		{"assignee edits checklist", assignee, ActionEditChecklist, true},
		{"reporter cannot edit checklist", reporter, ActionEditChecklist, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.principal, bug, tt.action)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}
