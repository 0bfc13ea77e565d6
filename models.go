package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleKey is a stable role identifier
type RoleKey = string

const (
	// RoleStudent can browse courses and manage their own enrollments
	RoleStudent RoleKey = "student"
	// RoleMentor owns courses and sees their enrollment aggregates
	RoleMentor RoleKey = "mentor"
	// RoleManager administers the platform
	RoleManager RoleKey = "manager"
)

// RegistrationRoles are the role keys accepted by the register endpoint.
var RegistrationRoles = []RoleKey{RoleStudent, RoleMentor, RoleManager}

// User is the user model
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email             string       `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string       `bun:"password_hash,notnull" json:"-"`
	Name              string       `bun:"name,notnull" json:"name,omitempty"`
	Phone             string       `bun:"phone" json:"phone,omitempty"`
	RoleID            uuid.UUID    `bun:"role_id,notnull,type:uuid" json:"role_id,omitempty"`
	Role              *Role        `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	IsActive          bool         `bun:"is_active,notnull,default:true" json:"is_active"`
	IsVerified        bool         `bun:"is_verified,notnull,default:false" json:"is_verified"`
	VerificationToken *string      `bun:"verification_token,nullzero,unique" json:"-"`
	Profile           *UserProfile `bun:"rel:has-one,join:id=user_id" json:"profile,omitempty"`
	CreatedAt         *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Role is a named bucket of permissions. Roles are bootstrapped once and
// referenced, never duplicated, by users.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Key           string        `bun:"key,notnull,unique" json:"key,omitempty"`
	Name          string        `bun:"name,notnull" json:"name,omitempty"`
	Permissions   []*Permission `bun:"m2m:role_permissions,join:Role=Permission" json:"permissions,omitempty"`
}

// Permission is an atomic capability key tied to a resource.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:per"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Key           string    `bun:"key,notnull,unique" json:"key,omitempty"`
	Name          string    `bun:"name,notnull" json:"name,omitempty"`
	Resource      string    `bun:"resource,notnull" json:"resource,omitempty"`
}

// RolePermission is the role/permission junction. No payload.
type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`
	RoleID        uuid.UUID   `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	Role          *Role       `bun:"rel:belongs-to,join:role_id=id" json:"-"`
	PermissionID  uuid.UUID   `bun:"permission_id,pk,type:uuid" json:"permission_id,omitempty"`
	Permission    *Permission `bun:"rel:belongs-to,join:permission_id=id" json:"-"`
}

// UserProfile is the optional one-to-one extension of User. It is created in
// the same transaction as its owner and only ever deleted with it.
type UserProfile struct {
	bun.BaseModel   `bun:"table:user_profiles,alias:prf"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID          uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	Bio             string     `bun:"bio" json:"bio,omitempty"`
	Avatar          string     `bun:"avatar" json:"avatar,omitempty"`
	Gender          string     `bun:"gender" json:"gender,omitempty"`
	Expertise       string     `bun:"expertise" json:"expertise,omitempty"`
	ExperienceYears int        `bun:"experience_years" json:"experience_years,omitempty"`
	LinkedInURL     string     `bun:"linkedin_url" json:"linkedin_url,omitempty"`
	GithubURL       string     `bun:"github_url" json:"github_url,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RoleView is the role portion of a user view, with the flattened permission set.
type RoleView struct {
	ID          uuid.UUID        `json:"id"`
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Permissions []PermissionView `json:"permissions"`
}

// PermissionView mirrors Permission for output.
type PermissionView struct {
	ID       uuid.UUID `json:"id"`
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Resource string    `json:"resource"`
}

// ProfileView mirrors UserProfile for output.
type ProfileView struct {
	ID              uuid.UUID `json:"id"`
	Bio             string    `json:"bio,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	Expertise       string    `json:"expertise,omitempty"`
	ExperienceYears int       `json:"experience_years,omitempty"`
	LinkedInURL     string    `json:"linkedin_url,omitempty"`
	GithubURL       string    `json:"github_url,omitempty"`
}

// UserView is the outward representation of a user. The password hash never
// appears here; statistics are nil unless the role makes them meaningful.
type UserView struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone,omitempty"`
	IsActive   bool         `json:"is_active"`
	IsVerified bool         `json:"is_verified"`
	Role       RoleView     `json:"role"`
	Profile    *ProfileView `json:"profile,omitempty"`

	TotalCourses         *int `json:"total_courses"`
	TotalStudents        *int `json:"total_students"`
	TotalEnrolledCourses *int `json:"total_enrolled_courses"`
}

// NewUserView builds a UserView from a user record with its Role (and the
// role's permissions) loaded.
func NewUserView(user *User) *UserView {
	if user == nil {
		return nil
	}

	view := &UserView{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Phone:      user.Phone,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
	}

	if user.Role != nil {
		view.Role = RoleView{
			ID:          user.Role.ID,
			Key:         user.Role.Key,
			Name:        user.Role.Name,
			Permissions: make([]PermissionView, 0, len(user.Role.Permissions)),
		}
		for _, p := range user.Role.Permissions {
			view.Role.Permissions = append(view.Role.Permissions, PermissionView{
				ID:       p.ID,
				Key:      p.Key,
				Name:     p.Name,
				Resource: p.Resource,
			})
		}
	}

	if user.Profile != nil {
		view.Profile = &ProfileView{
			ID:              user.Profile.ID,
			Bio:             user.Profile.Bio,
			Avatar:          user.Profile.Avatar,
			Gender:          user.Profile.Gender,
			Expertise:       user.Profile.Expertise,
			ExperienceYears: user.Profile.ExperienceYears,
			LinkedInURL:     user.Profile.LinkedInURL,
			GithubURL:       user.Profile.GithubURL,
		}
	}

	return view
}

// PermissionKeys returns the flattened permission keys of the view's role.
func (v *UserView) PermissionKeys() []string {
	keys := make([]string, 0, len(v.Role.Permissions))
	for _, p := range v.Role.Permissions {
		keys = append(keys, p.Key)
	}
	return keys
}
