package postgres

import (
	"context"
	"time"

	"eventregistry/internal/domain"
)

type userRepository struct {
	DB querier
}

func NewUserRepository(db querier) domain.UserRepository {
	return &userRepository{
		DB: db,
	}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, name, created_at
		FROM users
		WHERE id = $1
	`
	u := &domain.User{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		return nil, mapError("get user", err)
	}
	return u, nil
}

type roleRepository struct {
	DB querier
}

func NewRoleRepository(db querier) domain.RoleRepository {
	return &roleRepository{DB: db}
}

func (r *roleRepository) ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]string, error) {
	query := `
		SELECT role
		FROM user_roles
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY role
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, mapError("list user roles", err)
	}
	defer rows.Close()

	roles := make([]string, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, mapError("scan user role", err)
		}
		roles = append(roles, role)
	}
	return roles, mapError("list user roles", rows.Err())
}
