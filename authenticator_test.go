package identity_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/mentorhub/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAuther(users identity.UserDirectory) *identity.Auther {
	tokens := identity.NewTokenService(testSigningKey, time.Hour, "identity-test")
	return identity.NewAuthenticator(users, tokens)
}

func notFoundErr() error {
	return goerrors.New("record not found", goerrors.CategoryNotFound)
}

func TestLoginSuccess(t *testing.T) {
	user := newTestUser(identity.RoleStudent, true, true)

	users := new(MockUserDirectory)
	users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	auther := newTestAuther(users)

	result, err := auther.Login(context.Background(), user.Email, "Sup3r$ecret")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, user.Email, result.User.Email)
	assert.Equal(t, identity.RoleStudent, result.User.Role.Key)

	claims, err := auther.TokenService().Validate(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
	assert.True(t, claims.HasPermission("course:read"))
}

func TestLoginUnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	user := newTestUser(identity.RoleStudent, true, true)

	users := new(MockUserDirectory)
	users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, notFoundErr())
	users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	auther := newTestAuther(users)

	_, errUnknown := auther.Login(context.Background(), "nobody@example.com", "whatever")
	_, errWrongPass := auther.Login(context.Background(), user.Email, "wrong-password")

	require.Error(t, errUnknown)
	require.Error(t, errWrongPass)

	// the two failures must be indistinguishable to a caller
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
	assert.ErrorIs(t, errUnknown, identity.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPass, identity.ErrInvalidCredentials)
}

func TestLoginBlockedAccounts(t *testing.T) {
	tests := []struct {
		name     string
		active   bool
		verified bool
		wantErr  error
	}{
		{"Inactive account", false, true, identity.ErrAccountInactive},
		{"Inactive and unverified reports inactive first", false, false, identity.ErrAccountInactive},
		{"Unverified account", true, false, identity.ErrAccountUnverified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := newTestUser(identity.RoleStudent, tt.active, tt.verified)

			users := new(MockUserDirectory)
			users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

			auther := newTestAuther(users)

			_, err := auther.Login(context.Background(), user.Email, "Sup3r$ecret")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoginBlockedBeforePasswordCheck(t *testing.T) {
	// An inactive account is reported as inactive even when the password is
	// wrong; the password never gets checked.
	user := newTestUser(identity.RoleStudent, false, true)

	users := new(MockUserDirectory)
	users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	auther := newTestAuther(users)

	_, err := auther.Login(context.Background(), user.Email, "totally-wrong")
	assert.ErrorIs(t, err, identity.ErrAccountInactive)
}

func TestLoginMentorStatistics(t *testing.T) {
	user := newTestUser(identity.RoleMentor, true, true)

	users := new(MockUserDirectory)
	users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	stats := new(MockStatsProvider)
	stats.On("CountCoursesByMentor", mock.Anything, user.ID).Return(4, nil)
	stats.On("SumCourseStudents", mock.Anything, user.ID).Return(117, nil)

	auther := newTestAuther(users).WithStatsProvider(stats)

	result, err := auther.Login(context.Background(), user.Email, "Sup3r$ecret")
	require.NoError(t, err)

	require.NotNil(t, result.User.TotalCourses)
	require.NotNil(t, result.User.TotalStudents)
	assert.Equal(t, 4, *result.User.TotalCourses)
	assert.Equal(t, 117, *result.User.TotalStudents)
	assert.Nil(t, result.User.TotalEnrolledCourses)

	stats.AssertNotCalled(t, "CountEnrollmentsByStudent", mock.Anything, mock.Anything)
}

func TestLoginStudentStatistics(t *testing.T) {
	user := newTestUser(identity.RoleStudent, true, true)

	users := new(MockUserDirectory)
	users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	stats := new(MockStatsProvider)
	stats.On("CountEnrollmentsByStudent", mock.Anything, user.ID).Return(2, nil)

	auther := newTestAuther(users).WithStatsProvider(stats)

	result, err := auther.Login(context.Background(), user.Email, "Sup3r$ecret")
	require.NoError(t, err)

	require.NotNil(t, result.User.TotalEnrolledCourses)
	assert.Equal(t, 2, *result.User.TotalEnrolledCourses)
	assert.Nil(t, result.User.TotalCourses)
	assert.Nil(t, result.User.TotalStudents)
}

func TestLoginWithoutStatsProvider(t *testing.T) {
	user := newTestUser(identity.RoleMentor, true, true)

	users := new(MockUserDirectory)
	users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	auther := newTestAuther(users)

	result, err := auther.Login(context.Background(), user.Email, "Sup3r$ecret")
	require.NoError(t, err)

	assert.Nil(t, result.User.TotalCourses)
	assert.Nil(t, result.User.TotalStudents)
}
