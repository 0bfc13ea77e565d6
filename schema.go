package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PermissionGrant pairs a permission definition with the roles it is granted
// to. The catalog below covers the learning platform's resources.
type PermissionGrant struct {
	Key      string
	Name     string
	Resource string
	Roles    []RoleKey
}

var DefaultRoles = []Role{
	{Key: RoleStudent, Name: "Student"},
	{Key: RoleMentor, Name: "Mentor"},
	{Key: RoleManager, Name: "Manager"},
}

var DefaultPermissions = []PermissionGrant{
	{Key: "course:create", Name: "Create courses", Resource: "course", Roles: []RoleKey{RoleMentor, RoleManager}},
	{Key: "course:read", Name: "Read courses", Resource: "course", Roles: []RoleKey{RoleStudent, RoleMentor, RoleManager}},
	{Key: "course:update", Name: "Update courses", Resource: "course", Roles: []RoleKey{RoleMentor, RoleManager}},
	{Key: "course:delete", Name: "Delete courses", Resource: "course", Roles: []RoleKey{RoleManager}},
	{Key: "enrollment:create", Name: "Enroll in courses", Resource: "enrollment", Roles: []RoleKey{RoleStudent}},
	{Key: "enrollment:read", Name: "Read enrollments", Resource: "enrollment", Roles: []RoleKey{RoleStudent, RoleMentor, RoleManager}},
	{Key: "review:create", Name: "Write reviews", Resource: "review", Roles: []RoleKey{RoleStudent}},
	{Key: "review:moderate", Name: "Moderate reviews", Resource: "review", Roles: []RoleKey{RoleManager}},
	{Key: "user:read", Name: "Read users", Resource: "user", Roles: []RoleKey{RoleMentor, RoleManager}},
	{Key: "user:manage", Name: "Manage users", Resource: "user", Roles: []RoleKey{RoleManager}},
}

// RegisterSchemaModels wires the m2m junction into bun's model registry.
// Call it once per bun.DB before any query touches Role.Permissions.
func RegisterSchemaModels(db *bun.DB) {
	db.RegisterModel((*RolePermission)(nil))
}

// CreateSchema creates all tables if they do not exist.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	RegisterSchemaModels(db)

	models := []any{
		(*Role)(nil),
		(*Permission)(nil),
		(*RolePermission)(nil),
		(*User)(nil),
		(*UserProfile)(nil),
		(*Course)(nil),
		(*Enrollment)(nil),
	}

	for _, model := range models {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	return nil
}

// SeedAccessControl inserts the default roles, the permission catalog, and
// the role grants. Safe to run on every boot; existing rows are left alone.
func SeedAccessControl(ctx context.Context, db *bun.DB) error {
	roleIDs := map[RoleKey]uuid.UUID{}

	for _, role := range DefaultRoles {
		record := &Role{ID: uuid.New(), Key: role.Key, Name: role.Name}
		_, err := db.NewInsert().
			Model(record).
			On("CONFLICT (key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}

		existing := &Role{}
		err = db.NewSelect().
			Model(existing).
			Where("key = ?", role.Key).
			Limit(1).
			Scan(ctx)
		if err != nil {
			return err
		}
		roleIDs[role.Key] = existing.ID
	}

	for _, grant := range DefaultPermissions {
		record := &Permission{
			ID:       uuid.New(),
			Key:      grant.Key,
			Name:     grant.Name,
			Resource: grant.Resource,
		}
		_, err := db.NewInsert().
			Model(record).
			On("CONFLICT (key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}

		existing := &Permission{}
		err = db.NewSelect().
			Model(existing).
			Where("key = ?", grant.Key).
			Limit(1).
			Scan(ctx)
		if err != nil {
			return err
		}

		for _, roleKey := range grant.Roles {
			junction := &RolePermission{
				RoleID:       roleIDs[roleKey],
				PermissionID: existing.ID,
			}
			_, err := db.NewInsert().
				Model(junction).
				On("CONFLICT (role_id, permission_id) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
