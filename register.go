package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Role            string `json:"role"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`

	Bio             string `json:"bio"`
	Avatar          string `json:"avatar"`
	Gender          string `json:"gender"`
	Expertise       string `json:"expertise"`
	ExperienceYears int    `json:"experience_years"`
	LinkedInURL     string `json:"linkedin_url"`
	GithubURL       string `json:"github_url"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// hasProfile reports whether the message carries any profile field worth a
// profile row of its own.
func (e RegisterUserMessage) hasProfile() bool {
	return e.Bio != "" || e.Avatar != "" || e.Gender != "" ||
		e.Expertise != "" || e.ExperienceYears != 0 ||
		e.LinkedInURL != "" || e.GithubURL != ""
}

type RegisterUserHandler struct {
	repo         RepositoryManager
	verification *VerificationFlow
	logger       Logger
}

func NewRegisterUserHandler(repo RepositoryManager, verification *VerificationFlow) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:         repo,
		verification: verification,
		logger:       defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	h.logger = logger
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*UserView, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*UserView, error) {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if existing, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil && existing != nil {
			return ErrEmailTaken
		} else if err != nil && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "email lookup failed")
		}

		role, err := h.repo.Roles().GetByKeyTx(ctx, tx, event.Role)
		if err != nil {
			return err
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.Name = event.Name
		user.RoleID = role.ID
		user.IsActive = true
		user.IsVerified = false

		var profile *UserProfile
		if event.hasProfile() {
			profile = &UserProfile{
				Bio:             event.Bio,
				Avatar:          event.Avatar,
				Gender:          event.Gender,
				Expertise:       event.Expertise,
				ExperienceYears: event.ExperienceYears,
				LinkedInURL:     event.LinkedInURL,
				GithubURL:       event.GithubURL,
			}
		}

		if user, err = h.repo.Users().CreateWithProfileTx(ctx, tx, user, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user").
				WithCode(goerrors.CodeConflict)
		}

		user.Role = role
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	// The account row is durable at this point. Issuance runs outside the
	// transaction; a failure here surfaces to the caller but does not undo
	// the registration.
	if h.verification != nil {
		if err := h.verification.Issue(ctx, user); err != nil {
			h.logger.Error("register verification issue error", "error", err)
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue verification email")
		}
	}

	return NewUserView(user), nil
}
