package identity_test

import (
	"context"
	"testing"

	identity "github.com/mentorhub/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://app.example.com"

func TestVerificationIssue(t *testing.T) {
	user := newTestUser(identity.RoleStudent, true, false)

	users := new(MockUserDirectory)
	users.On("SetVerificationToken", mock.Anything, user.ID, mock.AnythingOfType("string")).Return(nil)

	queue := identity.NewMemoryQueue()
	flow := identity.NewVerificationFlow(users, queue, testBaseURL)

	err := flow.Issue(context.Background(), user)
	require.NoError(t, err)

	require.Equal(t, 1, queue.Len())

	env, err := queue.Dequeue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{user.Email}, env.Job.To)
	assert.Equal(t, identity.VerificationEmailTemplate, env.Job.Template)
	assert.Equal(t, user.Name, env.Job.TemplateData["name"])

	link, _ := env.Job.TemplateData["verification_link"].(string)
	assert.Contains(t, link, testBaseURL+"/auth/verify-email?token=")

	// the enqueued token must be the one stored on the account
	storedToken := users.Calls[0].Arguments.String(2)
	assert.Contains(t, link, storedToken)

	users.AssertExpectations(t)
}

func TestVerificationVerify(t *testing.T) {
	t.Run("Unknown token", func(t *testing.T) {
		users := new(MockUserDirectory)
		users.On("GetByVerificationToken", mock.Anything, "missing").Return(nil, notFoundErr())

		flow := identity.NewVerificationFlow(users, identity.NewMemoryQueue(), testBaseURL)

		_, err := flow.Verify(context.Background(), "missing")
		assert.ErrorIs(t, err, identity.ErrVerificationTokenNotFound)
	})

	t.Run("Empty token", func(t *testing.T) {
		users := new(MockUserDirectory)
		flow := identity.NewVerificationFlow(users, identity.NewMemoryQueue(), testBaseURL)

		_, err := flow.Verify(context.Background(), "")
		assert.ErrorIs(t, err, identity.ErrVerificationTokenNotFound)
	})

	t.Run("First verification marks the account", func(t *testing.T) {
		user := newTestUser(identity.RoleStudent, true, false)
		token := "pending-token"
		user.VerificationToken = &token

		users := new(MockUserDirectory)
		users.On("GetByVerificationToken", mock.Anything, token).Return(user, nil)
		users.On("MarkVerified", mock.Anything, user.ID).Return(nil)

		flow := identity.NewVerificationFlow(users, identity.NewMemoryQueue(), testBaseURL)

		view, err := flow.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, view.IsVerified)

		users.AssertExpectations(t)
	})

	t.Run("Already verified is a no-op", func(t *testing.T) {
		user := newTestUser(identity.RoleStudent, true, true)
		token := "stale-token"

		users := new(MockUserDirectory)
		users.On("GetByVerificationToken", mock.Anything, token).Return(user, nil)

		queue := identity.NewMemoryQueue()
		flow := identity.NewVerificationFlow(users, queue, testBaseURL)

		view, err := flow.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, view.IsVerified)

		// no mutation, no new token, no new email
		users.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "SetVerificationToken", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 0, queue.Len())
	})
}

func TestVerificationResend(t *testing.T) {
	t.Run("Unknown email", func(t *testing.T) {
		users := new(MockUserDirectory)
		users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, notFoundErr())

		flow := identity.NewVerificationFlow(users, identity.NewMemoryQueue(), testBaseURL)

		err := flow.Resend(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})

	t.Run("Already verified is a no-op", func(t *testing.T) {
		user := newTestUser(identity.RoleStudent, true, true)

		users := new(MockUserDirectory)
		users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

		queue := identity.NewMemoryQueue()
		flow := identity.NewVerificationFlow(users, queue, testBaseURL)

		err := flow.Resend(context.Background(), user.Email)
		require.NoError(t, err)

		users.AssertNotCalled(t, "SetVerificationToken", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 0, queue.Len())
	})

	t.Run("Unverified rotates the token and re-enqueues", func(t *testing.T) {
		user := newTestUser(identity.RoleStudent, true, false)
		oldToken := "old-token"
		user.VerificationToken = &oldToken

		users := new(MockUserDirectory)
		users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		users.On("SetVerificationToken", mock.Anything, user.ID, mock.AnythingOfType("string")).Return(nil)

		queue := identity.NewMemoryQueue()
		flow := identity.NewVerificationFlow(users, queue, testBaseURL)

		err := flow.Resend(context.Background(), user.Email)
		require.NoError(t, err)

		require.Equal(t, 1, queue.Len())

		var newToken string
		for _, call := range users.Calls {
			if call.Method == "SetVerificationToken" {
				newToken = call.Arguments.String(2)
			}
		}
		require.NotEmpty(t, newToken)
		assert.NotEqual(t, oldToken, newToken)

		env, err := queue.Dequeue(context.Background())
		require.NoError(t, err)
		link, _ := env.Job.TemplateData["verification_link"].(string)
		assert.Contains(t, link, newToken)
	})
}
