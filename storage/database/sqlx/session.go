package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/session"
)

const sessionColumns = `
	token, user_id, email, name, role, COALESCE(union_id::text, '') AS union_id,
	union_name, expires_at, created_at`

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	query := `
	INSERT INTO sessions (token, user_id, email, name, role, union_id, union_name, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		sess.Token, sess.UserID, sess.Email, sess.Name, sess.Role,
		sess.UnionID, sess.UnionName, sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "creating session")
	}
	return sess, nil
}

func (repo sessionRepository) GetSessionByToken(ctx context.Context, token string) (session.Session, error) {
	var sess session.Session
	query := `SELECT` + sessionColumns + ` FROM sessions WHERE token = $1`
	if err := repo.db.GetContext(ctx, &sess, query, token); err != nil {
		if isNoRows(err) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "getting session")
	}
	return sess, nil
}

func (repo sessionRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}

func (repo sessionRepository) DeleteUserSessions(ctx context.Context, userID string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "deleting user sessions")
	}
	return nil
}

func (repo sessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted sessions")
	}
	return int(n), nil
}
