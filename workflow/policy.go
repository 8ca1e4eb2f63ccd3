package workflow

import (
	"bug-tracker/backend/bugs-service/models"
)

// Action names an operation a principal may request on a bug.
type Action string

const (
	ActionCreate        Action = "create"
	ActionView          Action = "view"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionTransition    Action = "transition"
	ActionEditChecklist Action = "edit-checklist"
)

// Authorize is the single authorization decision point: every role and
// assignment check goes through here instead of ad-hoc comparisons at call
// sites. bug may be nil only for ActionCreate.
func Authorize(p models.Principal, bug *models.Bug, action Action) error {
	if p.Role == models.RoleAdmin && action != ActionCreate {
		return nil
	}

	switch action {
	case ActionCreate:
		if p.Role != models.RoleTester {
			return ErrForbidden
		}
		return nil
	case ActionView:
		if p.Role == models.RoleTester && bug.CreatedBy == p.ID {
			return nil
		}
		if p.Role == models.RoleDeveloper && bug.IsAssigned(p.ID) {
			return nil
		}
	case ActionUpdate, ActionDelete:
		if p.Role == models.RoleTester && bug.CreatedBy == p.ID {
			return nil
		}
	case ActionTransition, ActionEditChecklist:
		if p.Role == models.RoleDeveloper && bug.IsAssigned(p.ID) {
			return nil
		}
	}
	return ErrForbidden
}
