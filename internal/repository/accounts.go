package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/microsites/internal/db"
	"github.com/debemdeboas/microsites/internal/model"
)

type DBProfileRepository struct { // implements ProfileRepository
	db db.DB
}

func NewDBProfileRepository(db db.DB) *DBProfileRepository {
	return &DBProfileRepository{db: db}
}

func (r *DBProfileRepository) Get(ctx context.Context, user model.UserID) (*model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRow(ctx, `SELECT name FROM profiles WHERE user_id = ?`, user).Scan(&p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading profile: %w", err)
	}
	return &p, nil
}

func (r *DBProfileRepository) Save(ctx context.Context, user model.UserID, profile model.Profile) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO profiles (user_id, name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		user, profile.Name, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving profile: %w", err)
	}
	return nil
}

type DBRoleRepository struct { // implements RoleRepository
	db db.DB
}

func NewDBRoleRepository(db db.DB) *DBRoleRepository {
	return &DBRoleRepository{db: db}
}

func (r *DBRoleRepository) Get(ctx context.Context, user model.UserID) (model.Role, bool, error) {
	var role model.Role
	err := r.db.QueryRow(ctx, `SELECT role FROM roles WHERE user_id = ?`, user).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error reading role: %w", err)
	}
	return role, true, nil
}

func (r *DBRoleRepository) Set(ctx context.Context, user model.UserID, role model.Role) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO roles (user_id, role) VALUES (?, ?) ON CONFLICT(user_id) DO UPDATE SET role = excluded.role`,
		user, role,
	)
	if err != nil {
		return fmt.Errorf("error saving role: %w", err)
	}
	return nil
}

var (
	_ ProfileRepository = (*DBProfileRepository)(nil)
	_ RoleRepository    = (*DBRoleRepository)(nil)
)
