package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/task-tracker/internal/models"
)

func role(r models.Role) *models.Role { return &r }

func TestCanEdit(t *testing.T) {
	tests := []struct {
		name       string
		role       *models.Role
		assignedTo string
		username   string
		want       bool
	}{
		{"manager on someone else's task", role(models.RoleManager), "bob", "alice", true},
		{"manager on own task", role(models.RoleManager), "alice", "alice", true},
		{"employee on own task", role(models.RoleEmployee), "bob", "bob", true},
		{"employee on other task", role(models.RoleEmployee), "bob", "carol", false},
		{"admin on other task", role(models.RoleAdmin), "bob", "root", false},
		{"admin on own task", role(models.RoleAdmin), "root", "root", true},
		{"no role on own task", nil, "bob", "bob", false},
		{"no role on other task", nil, "bob", "carol", false},
		{"empty username never matches", role(models.RoleEmployee), "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanEdit(tt.role, tt.assignedTo, tt.username))
			assert.Equal(t, tt.want, CanView(tt.role, tt.assignedTo, tt.username))
		})
	}
}

func TestMutableFields(t *testing.T) {
	manager := MutableFields(role(models.RoleManager))
	assert.Len(t, manager, 5)
	for _, f := range []Field{FieldTitle, FieldDescription, FieldAssignedTo, FieldStatus, FieldDueDate} {
		assert.True(t, manager.Has(f), f)
	}

	for _, r := range []models.Role{models.RoleEmployee, models.RoleAdmin} {
		fields := MutableFields(role(r))
		assert.Len(t, fields, 2, r)
		assert.True(t, fields.Has(FieldStatus))
		assert.True(t, fields.Has(FieldDueDate))
		assert.False(t, fields.Has(FieldTitle))
	}

	assert.Empty(t, MutableFields(nil))
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole(role(models.RoleAdmin), models.RoleAdmin))
	assert.True(t, HasRole(role(models.RoleManager), models.RoleAdmin, models.RoleManager))
	assert.False(t, HasRole(role(models.RoleEmployee), models.RoleManager))
	assert.False(t, HasRole(nil, models.RoleAdmin, models.RoleManager, models.RoleEmployee))
	assert.False(t, HasRole(role(models.RoleAdmin)))
}
