package identity

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// VerificationEmailTemplate names the template rendered for verification mail.
const VerificationEmailTemplate = "verify-email"

// VerificationFlow drives the email verification lifecycle: a token is issued
// and stored at registration, delivered out of band, and consumed exactly once.
// Verify and Resend are idempotent for already verified accounts.
type VerificationFlow struct {
	users   UserDirectory
	queue   Queue
	baseURL string
	logger  Logger
}

func NewVerificationFlow(users UserDirectory, queue Queue, baseURL string) *VerificationFlow {
	return &VerificationFlow{
		users:   users,
		queue:   queue,
		baseURL: baseURL,
		logger:  defLogger{},
	}
}

func (f *VerificationFlow) WithLogger(logger Logger) *VerificationFlow {
	f.logger = logger
	return f
}

// Issue generates a fresh token, stores it on the account, and enqueues the
// delivery job. Calling it again replaces the pending token.
func (f *VerificationFlow) Issue(ctx context.Context, user *User) error {
	if user == nil {
		return goerrors.New("cannot issue verification for nil user", goerrors.CategoryBadInput)
	}

	token, err := NewVerificationToken()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not generate verification token")
	}

	if err := f.users.SetVerificationToken(ctx, user.ID, token); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not store verification token")
	}

	if _, err := f.queue.Enqueue(ctx, f.newVerificationJob(user, token)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not enqueue verification email")
	}

	f.logger.Info("verification issued", "user_id", user.ID)

	return nil
}

// Verify consumes a token. An account that is already verified returns
// success without mutating anything, so replayed links are harmless.
func (f *VerificationFlow) Verify(ctx context.Context, token string) (*UserView, error) {
	if token == "" {
		return nil, ErrVerificationTokenNotFound
	}

	user, err := f.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrVerificationTokenNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "verification lookup failed")
	}

	if user.IsVerified {
		return NewUserView(user), nil
	}

	if err := f.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not mark user verified")
	}

	user.IsVerified = true
	user.VerificationToken = nil

	f.logger.Info("account verified", "user_id", user.ID)

	return NewUserView(user), nil
}

// Resend rotates the pending token and re-enqueues delivery. Verified
// accounts are a no-op so the endpoint cannot be used to spam them.
func (f *VerificationFlow) Resend(ctx context.Context, email string) error {
	user, err := f.users.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrUserNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user lookup failed")
	}

	if user.IsVerified {
		return nil
	}

	return f.Issue(ctx, user)
}

func (f *VerificationFlow) newVerificationJob(user *User, token string) EmailJob {
	link := fmt.Sprintf("%s/auth/verify-email?token=%s", f.baseURL, token)

	return EmailJob{
		To:       []string{user.Email},
		Subject:  "Verify your email address",
		Template: VerificationEmailTemplate,
		TemplateData: map[string]any{
			"name":              user.Name,
			"verification_link": link,
		},
	}
}
