package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTester    Role = "tester"
	RoleDeveloper Role = "developer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTester, RoleDeveloper:
		return true
	}
	return false
}

// Principal is the acting user as extracted from a validated JWT.
type Principal struct {
	ID       primitive.ObjectID `json:"id"`
	Username string             `json:"username"`
	Role     Role               `json:"role"`
}
