// Package policy decides who may see and change a task. Every function takes
// the role as a pointer: a nil role is a user without a profile and is denied
// everything.
package policy

import "github.com/yukikurage/task-tracker/internal/models"

// Field names a task attribute an update may touch.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldAssignedTo  Field = "assigned_to"
	FieldStatus      Field = "status"
	FieldDueDate     Field = "due_date"
)

// FieldSet is the set of fields a role may change.
type FieldSet map[Field]struct{}

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

func newFieldSet(fields ...Field) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// CanEdit reports whether a user with role may edit a task assigned to assignedTo.
// Managers edit any task; everyone else only their own.
func CanEdit(role *models.Role, assignedTo, username string) bool {
	if role == nil {
		return false
	}
	if *role == models.RoleManager {
		return true
	}
	return username != "" && username == assignedTo
}

// CanView gates the task detail page and its comments.
func CanView(role *models.Role, assignedTo, username string) bool {
	return CanEdit(role, assignedTo, username)
}

// MutableFields returns the fields an update by role may change.
func MutableFields(role *models.Role) FieldSet {
	if role == nil {
		return FieldSet{}
	}
	if *role == models.RoleManager {
		return newFieldSet(FieldTitle, FieldDescription, FieldAssignedTo, FieldStatus, FieldDueDate)
	}
	return newFieldSet(FieldStatus, FieldDueDate)
}

// HasRole reports whether role is one of allowed.
func HasRole(role *models.Role, allowed ...models.Role) bool {
	if role == nil {
		return false
	}
	for _, r := range allowed {
		if *role == r {
			return true
		}
	}
	return false
}
