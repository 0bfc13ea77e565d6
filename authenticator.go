package identity

import (
	"context"

	"github.com/goliatone/go-errors"
)

// LoginResult carries the signed token and the view the client renders after
// a successful login.
type LoginResult struct {
	AccessToken string    `json:"accessToken"`
	User        *UserView `json:"user"`
}

type Auther struct {
	users  UserDirectory
	hasher PasswordAuthenticator
	tokens TokenService
	stats  StatsProvider
	logger Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users UserDirectory, tokens TokenService) *Auther {
	return &Auther{
		users:  users,
		hasher: bcryptHasher{},
		tokens: tokens,
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithStatsProvider attaches the aggregate counters source. Without one the
// view's statistics stay nil.
func (s *Auther) WithStatsProvider(stats StatsProvider) *Auther {
	s.stats = stats
	return s
}

func (s *Auther) WithPasswordAuthenticator(hasher PasswordAuthenticator) *Auther {
	s.hasher = hasher
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login authenticates an email and password pair. An unknown email and a bad
// password are indistinguishable to the caller, but inactive and unverified
// accounts are reported as such since the account holder already proved they
// exist by registering.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("Login unknown email")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Login user lookup error", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "user lookup failed")
	}

	if !user.IsActive {
		s.logger.Warn("Login blocked, account inactive", "user_id", user.ID)
		return nil, ErrAccountInactive
	}

	if !user.IsVerified {
		s.logger.Warn("Login blocked, account unverified", "user_id", user.ID)
		return nil, ErrAccountUnverified
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Warn("Login password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	view := NewUserView(user)

	if err := s.attachStatistics(ctx, view); err != nil {
		s.logger.Error("Login statistics error", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "statistics lookup failed")
	}

	token, err := s.tokens.Generate(view)
	if err != nil {
		s.logger.Error("Login token generation error", "error", err)
		return nil, err
	}

	return &LoginResult{
		AccessToken: token,
		User:        view,
	}, nil
}

// attachStatistics fills the role-conditional counters: course aggregates for
// mentors, enrollment counts for students. Managers carry none.
func (s *Auther) attachStatistics(ctx context.Context, view *UserView) error {
	if s.stats == nil || view == nil {
		return nil
	}

	switch view.Role.Key {
	case RoleMentor:
		courses, err := s.stats.CountCoursesByMentor(ctx, view.ID)
		if err != nil {
			return err
		}
		students, err := s.stats.SumCourseStudents(ctx, view.ID)
		if err != nil {
			return err
		}
		view.TotalCourses = &courses
		view.TotalStudents = &students
	case RoleStudent:
		enrolled, err := s.stats.CountEnrollmentsByStudent(ctx, view.ID)
		if err != nil {
			return err
		}
		view.TotalEnrolledCourses = &enrolled
	}

	return nil
}

// bcryptHasher adapts the package-level bcrypt helpers to the
// PasswordAuthenticator interface.
type bcryptHasher struct{}

func (bcryptHasher) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

func (bcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}
