package identity

import (
	"strconv"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// AuthControllerRoutes holds the paths the controller mounts.
type AuthControllerRoutes struct {
	Login          string
	Register       string
	VerifyEmail    string
	ResendVerify   string
	Profile        string
	PermissionList string
}

type AuthController struct {
	Logger       Logger
	Repo         RepositoryManager
	Auther       *Auther
	Verification *VerificationFlow
	Register     *RegisterUserHandler
	Routes       *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:          "/auth/login",
			Register:       "/auth/register",
			VerifyEmail:    "/auth/verify-email",
			ResendVerify:   "/auth/resend-verification",
			Profile:        "/profile",
			PermissionList: "/permissions",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Verification == nil {
		panic("Missing VerificationFlow in auth controller...")
	}

	if c.Register == nil {
		panic("Missing RegisterUserHandler in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerVerification(flow *VerificationFlow) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Verification = flow
		return c
	}
}

func WithControllerRegister(handler *RegisterUserHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Register = handler
		return c
	}
}

// RegisterRoutes mounts the public endpoints and the guarded profile and
// permission listing.
func (a *AuthController) RegisterRoutes(app *fiber.App, guard fiber.Handler) {
	app.Post(a.Routes.Login, a.LoginPost)
	app.Post(a.Routes.Register, a.RegistrationCreate)
	app.Get(a.Routes.VerifyEmail, a.VerifyEmail)
	app.Post(a.Routes.ResendVerify, a.ResendVerification)

	app.Get(a.Routes.Profile, guard, a.ProfileShow)
	app.Get(a.Routes.PermissionList, guard, a.PermissionIndex)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(c, err)
	}

	result, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "login successful",
		"data":    result,
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone" json:"phone"`
	Role            string `form:"role" json:"role"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`

	Bio             string `form:"bio" json:"bio"`
	Avatar          string `form:"avatar" json:"avatar"`
	Gender          string `form:"gender" json:"gender"`
	Expertise       string `form:"expertise" json:"expertise"`
	ExperienceYears string `form:"experienceYears" json:"experienceYears"`
	LinkedInURL     string `form:"linkedInUrl" json:"linkedInUrl"`
	GithubURL       string `form:"githubUrl" json:"githubUrl"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.Length(10, 15)),
		validation.Field(&r.Role, validation.Required, validation.By(ValidateRoleKey)),
		validation.Field(&r.Password, validation.Required, validation.By(ValidatePasswordStrength)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
		validation.Field(&r.LinkedInURL, is.URL),
		validation.Field(&r.GithubURL, is.URL),
	)
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(c, err)
	}

	years := 0
	if payload.ExperienceYears != "" {
		parsed, err := strconv.Atoi(payload.ExperienceYears)
		if err != nil || parsed < 0 {
			return a.renderValidation(c, goerrors.New("experienceYears must be a non-negative number", goerrors.CategoryValidation))
		}
		years = parsed
	}

	view, err := a.Register.Execute(c.UserContext(), RegisterUserMessage{
		Name:            payload.Name,
		Email:           payload.Email,
		Phone:           payload.Phone,
		Role:            payload.Role,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		Bio:             payload.Bio,
		Avatar:          payload.Avatar,
		Gender:          payload.Gender,
		Expertise:       payload.Expertise,
		ExperienceYears: years,
		LinkedInURL:     payload.LinkedInURL,
		GithubURL:       payload.GithubURL,
	})
	if err != nil {
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "registration successful, please verify your email",
		"data":    view,
	})
}

func (a *AuthController) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return a.renderValidation(c, goerrors.New("token is required", goerrors.CategoryValidation))
	}

	view, err := a.Verification.Verify(c.UserContext(), token)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "email verified",
		"data":    view,
	})
}

// ResendVerificationRequest payload
type ResendVerificationRequest struct {
	Email string `form:"email" json:"email"`
}

func (r ResendVerificationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ResendVerification(c *fiber.Ctx) error {
	payload := new(ResendVerificationRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(c, err)
	}

	if err := a.Verification.Resend(c.UserContext(), payload.Email); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "verification email sent",
		"data":    nil,
	})
}

// ProfileShow returns the guard-loaded view of the caller.
func (a *AuthController) ProfileShow(c *fiber.Ctx) error {
	view := CurrentUser(c)
	if view == nil {
		return rejectUnauthorized(c, "AUTH_NO_TOKEN")
	}

	return c.JSON(fiber.Map{
		"message": "profile",
		"data":    view,
	})
}

// PermissionIndex lists the permission catalog.
func (a *AuthController) PermissionIndex(c *fiber.Ctx) error {
	records, err := a.Repo.Permissions().ListAll(c.UserContext())
	if err != nil {
		return a.renderError(c, err)
	}

	views := make([]PermissionView, 0, len(records))
	for _, p := range records {
		views = append(views, PermissionView{
			ID:       p.ID,
			Key:      p.Key,
			Name:     p.Name,
			Resource: p.Resource,
		})
	}

	return c.JSON(fiber.Map{
		"message": "permissions",
		"data":    views,
	})
}

func (a *AuthController) renderValidation(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message":    "validation failed",
		"validation": flattenValidationErrors(err),
	})
}

// flattenValidationErrors turns an ozzo error set into per-field messages so
// clients can attach them to the offending inputs.
func flattenValidationErrors(err error) any {
	if verrs, ok := err.(validation.Errors); ok {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		return fields
	}
	return err.Error()
}

// renderError maps domain errors onto HTTP statuses. Unrecognized errors are
// answered with a generic 500 so internals never leak.
func (a *AuthController) renderError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := statusForError(richErr)
		body := fiber.Map{
			"message": richErr.Message,
		}
		if richErr.TextCode != "" {
			body["text_code"] = richErr.TextCode
		}
		if status >= fiber.StatusInternalServerError {
			a.Logger.Error("request failed", "error", err)
			body["message"] = "internal server error"
		}
		return c.Status(status).JSON(body)
	}

	a.Logger.Error("request failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}

func statusForError(err *goerrors.Error) int {
	if code := int(err.Code); code >= 400 && code < 600 {
		return code
	}

	switch err.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return fiber.StatusUnauthorized
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ValidateStringEquals returns a rule asserting equality with a fixed value.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return goerrors.New("value does not match", goerrors.CategoryValidation)
		}
		return nil
	}
}

// ValidatePasswordStrength requires 8+ characters with at least one lower,
// one upper, one digit and one symbol.
func ValidatePasswordStrength(value interface{}) error {
	s, _ := value.(string)
	if len(s) < 8 {
		return goerrors.New("password must be at least 8 characters", goerrors.CategoryValidation)
	}

	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || r == '_':
			symbol = true
		}
	}

	if !lower || !upper || !digit || !symbol {
		return goerrors.New("password needs upper, lower, digit and symbol characters", goerrors.CategoryValidation)
	}

	return nil
}

// ValidateRoleKey accepts only the predefined registration roles.
func ValidateRoleKey(value interface{}) error {
	s, _ := value.(string)
	if _, ok := ParseRoleKey(s); !ok {
		return goerrors.New("role must be one of student, mentor or manager", goerrors.CategoryValidation)
	}
	return nil
}
