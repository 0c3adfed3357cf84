package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/qaforum/models"
)

func TestAppErrorMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load post: %w", NewNotFoundError("post"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)

	ae, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, "post not found", ae.Message)
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, IsStaff([]models.Role{models.RoleUser, models.RoleModerator}))
	assert.False(t, IsStaff([]models.Role{models.RoleUser}))
	assert.False(t, HasAny([]models.Role{models.RoleAdmin}, nil))

	assert.Equal(t, []models.Role{models.RoleAdmin, models.RoleModerator},
		ParseRoles([]string{" admin", "nobody", "Moderator"}))
}

func TestUniqueUint(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, UniqueUint([]uint{3, 1, 3, 2, 1}))
}
