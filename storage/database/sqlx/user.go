package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/user"
)

const userColumns = `
	id, first_name, last_name, email, role, COALESCE(union_id::text, '') AS union_id,
	is_active, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "building email uniqueness query")
	}

	var exists bool
	if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), inArgs...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	query := `
	INSERT INTO users (id, first_name, last_name, email, role, union_id, is_active, password_hash, created_at, updated_at, last_login)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, COALESCE($7, true), $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, query,
		usr.ID, usr.FirstName, usr.LastName, usr.Email, usr.Role, usr.UnionID,
		usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err, "users_email") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	query := `SELECT` + userColumns + ` FROM users ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &users, query); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) QueryUsersByUnion(ctx context.Context, unionID string) ([]user.User, error) {
	users := make([]user.User, 0)
	query := `SELECT` + userColumns + ` FROM users WHERE union_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &users, query, unionID); err != nil {
		return nil, errors.Wrap(err, "querying union users")
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	if err := repo.db.GetContext(ctx, &usr, query, id); err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`
	if err := repo.db.GetContext(ctx, &usr, query, email); err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by email")
	}
	return usr, nil
}

// UpdateUser only saves set fields; zero values leave the column untouched.
func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	query := `
	UPDATE users SET
		first_name    = COALESCE(NULLIF($2, ''), first_name),
		last_name     = COALESCE(NULLIF($3, ''), last_name),
		email         = COALESCE(NULLIF($4, ''), email),
		role          = COALESCE(NULLIF($5, ''), role),
		union_id      = COALESCE(NULLIF($6, '')::uuid, union_id),
		password_hash = COALESCE($7, password_hash),
		last_login    = CASE WHEN $8::timestamptz > '0001-01-01T00:00:00Z'::timestamptz THEN $8 ELSE last_login END,
		is_active     = COALESCE($9, is_active),
		updated_at    = $10
	WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		usr.ID, usr.FirstName, usr.LastName, usr.Email, usr.Role, usr.UnionID,
		usr.PasswordHash, usr.LastLogin, isActive, usr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users_email") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building user delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
