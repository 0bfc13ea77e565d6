package identity_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	identity "github.com/mentorhub/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserView(t *testing.T) {
	t.Run("Nil user", func(t *testing.T) {
		assert.Nil(t, identity.NewUserView(nil))
	})

	t.Run("Full record", func(t *testing.T) {
		user := newTestUser(identity.RoleMentor, true, true)
		user.Profile = &identity.UserProfile{
			ID:              uuid.New(),
			UserID:          user.ID,
			Bio:             "teaches distributed systems",
			Expertise:       "backend",
			ExperienceYears: 9,
		}

		view := identity.NewUserView(user)
		require.NotNil(t, view)

		assert.Equal(t, user.ID, view.ID)
		assert.Equal(t, user.Email, view.Email)
		assert.Equal(t, identity.RoleMentor, view.Role.Key)
		require.Len(t, view.Role.Permissions, 1)
		assert.Equal(t, "course:read", view.Role.Permissions[0].Key)

		require.NotNil(t, view.Profile)
		assert.Equal(t, "teaches distributed systems", view.Profile.Bio)
		assert.Equal(t, 9, view.Profile.ExperienceYears)

		assert.Equal(t, []string{"course:read"}, view.PermissionKeys())
	})

	t.Run("Role not loaded", func(t *testing.T) {
		user := newTestUser(identity.RoleStudent, true, true)
		user.Role = nil

		view := identity.NewUserView(user)
		require.NotNil(t, view)
		assert.Empty(t, view.Role.Key)
		assert.Empty(t, view.PermissionKeys())
	})
}

func TestUserSerializationHidesSecrets(t *testing.T) {
	user := newTestUser(identity.RoleStudent, true, false)
	token := "pending-verification-token"
	user.VerificationToken = &token

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), user.PasswordHash)
	assert.NotContains(t, string(raw), token)
	assert.Contains(t, string(raw), user.Email)
}
