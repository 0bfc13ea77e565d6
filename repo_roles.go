package identity

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles resolves role keys to records and flattened permission sets.
type Roles interface {
	repository.Repository[*Role]
	RoleResolver

	GetByKeyTx(ctx context.Context, tx bun.IDB, key RoleKey) (*Role, error)
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var (
	_ Roles                        = (*roles)(nil)
	_ repository.Repository[*Role] = (*roles)(nil)
)

func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "key"
		},
	})

	return &roles{
		Repository: repo,
		db:         db,
	}
}

func (a *roles) GetByKey(ctx context.Context, key RoleKey) (*Role, error) {
	return a.GetByKeyTx(ctx, a.db, key)
}

func (a *roles) GetByKeyTx(ctx context.Context, tx bun.IDB, key RoleKey) (*Role, error) {
	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Relation("Permissions").
		Where("?TableAlias.key = ?", string(key)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Wrap(ErrRoleNotFound, errors.CategoryNotFound, "unknown role").
				WithMetadata(map[string]any{"role": string(key)})
		}
		return nil, err
	}

	return record, nil
}

// ResolvePermissions returns the permission set granted to a role, walking the
// role_permissions junction.
func (a *roles) ResolvePermissions(ctx context.Context, roleID uuid.UUID) ([]*Permission, error) {
	var records []*Permission
	err := a.db.NewSelect().
		Model(&records).
		Join("JOIN role_permissions AS rp ON rp.permission_id = ?TableAlias.id").
		Where("rp.role_id = ?", roleID).
		Order("key ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Permissions lists the full permission catalog.
type Permissions interface {
	repository.Repository[*Permission]

	ListAll(ctx context.Context) ([]*Permission, error)
}

type permissions struct {
	repository.Repository[*Permission]
	db *bun.DB
}

var _ Permissions = (*permissions)(nil)

func NewPermissionsRepository(db *bun.DB) Permissions {
	repo := repository.NewRepository[*Permission](db, repository.ModelHandlers[*Permission]{
		NewRecord: func() *Permission { return &Permission{} },
		GetID: func(p *Permission) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Permission, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "key"
		},
	})

	return &permissions{
		Repository: repo,
		db:         db,
	}
}

func (a *permissions) ListAll(ctx context.Context) ([]*Permission, error) {
	var records []*Permission
	err := a.db.NewSelect().
		Model(&records).
		Order("resource ASC", "key ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
