package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password so
// the two cases are indistinguishable to a caller probing for accounts.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(errors.CodeUnauthorized)

// ErrAccountInactive is returned when the account exists but has been deactivated.
var ErrAccountInactive = errors.New("user is not active", errors.CategoryAuth).
	WithTextCode("ACCOUNT_INACTIVE").
	WithCode(errors.CodeUnauthorized)

// ErrAccountUnverified is returned when the account has not confirmed its email.
var ErrAccountUnverified = errors.New("user is not verified", errors.CategoryAuth).
	WithTextCode("ACCOUNT_UNVERIFIED").
	WithCode(errors.CodeUnauthorized)

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("email already taken", errors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(errors.CodeConflict)

// ErrRoleNotFound is returned when a registration names an unknown role key.
var ErrRoleNotFound = errors.New("role not found", errors.CategoryNotFound).
	WithTextCode("ROLE_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrUserNotFound is returned by resend-verification for an unknown email.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrVerificationTokenNotFound is returned when no user carries the token.
var ErrVerificationTokenNotFound = errors.New("verification token not found", errors.CategoryNotFound).
	WithTextCode("VERIFICATION_TOKEN_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrTokenExpired is returned for structurally valid tokens past their expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse or verify.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is the generic guard rejection. The guard deliberately
// collapses every failure reason into the same outward message; the reason
// survives only as a TextCode on the wrapped error.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode("UNAUTHORIZED").
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the hasher-level mismatch. The credential
// manager translates it to ErrInvalidCredentials before it leaves the core.
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password", errors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty input where a value is mandatory.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode("EMPTY_VALUE").
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
