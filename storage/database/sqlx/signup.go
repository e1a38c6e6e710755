package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/signup"
)

const requestColumns = `
	id, union_name, contact_name, contact_email, contact_phone,
	admin_first_name, admin_last_name, admin_email, status, notes, processed_at, created_at`

type signupRepository struct {
	db *sqlx.DB
}

var _ signup.Repository = (*signupRepository)(nil) // interface compliance check

func NewSignupRepository(db *sqlx.DB) *signupRepository {
	return &signupRepository{db: db}
}

func (repo signupRepository) CreateRequest(ctx context.Context, req signup.Request) (signup.Request, error) {
	req.ID = uuid.New().String()
	query := `
	INSERT INTO signup_requests (id, union_name, contact_name, contact_email, contact_phone,
		admin_first_name, admin_last_name, admin_email, status, notes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, query,
		req.ID, req.UnionName, req.ContactName, req.ContactEmail, req.ContactPhone,
		req.AdminFirstName, req.AdminLastName, req.AdminEmail, req.Status, req.Notes, req.CreatedAt,
	)
	if err != nil {
		return signup.Request{}, errors.Wrap(err, "creating signup request")
	}
	return req, nil
}

func (repo signupRepository) GetRequestByID(ctx context.Context, id string) (signup.Request, error) {
	var req signup.Request
	query := `SELECT` + requestColumns + ` FROM signup_requests WHERE id = $1`
	if err := repo.db.GetContext(ctx, &req, query, id); err != nil {
		if isNoRows(err) {
			return signup.Request{}, signup.ErrNotFound
		}
		return signup.Request{}, errors.Wrap(err, "getting signup request")
	}
	return req, nil
}

func (repo signupRepository) QueryAllRequests(ctx context.Context) ([]signup.Request, error) {
	reqs := make([]signup.Request, 0)
	query := `SELECT` + requestColumns + ` FROM signup_requests ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &reqs, query); err != nil {
		return nil, errors.Wrap(err, "querying signup requests")
	}
	return reqs, nil
}

func (repo signupRepository) QueryRequestsByStatus(ctx context.Context, status string) ([]signup.Request, error) {
	reqs := make([]signup.Request, 0)
	query := `SELECT` + requestColumns + ` FROM signup_requests WHERE status = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &reqs, query, status); err != nil {
		return nil, errors.Wrap(err, "querying signup requests by status")
	}
	return reqs, nil
}

func (repo signupRepository) UpdateRequest(ctx context.Context, req signup.Request) (signup.Request, error) {
	query := `
	UPDATE signup_requests SET status = $2, notes = $3, processed_at = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, req.ID, req.Status, req.Notes, req.ProcessedAt)
	if err != nil {
		return signup.Request{}, errors.Wrap(err, "updating signup request")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return signup.Request{}, signup.ErrNotFound
	}
	return repo.GetRequestByID(ctx, req.ID)
}

func (repo signupRepository) DeleteRequest(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM signup_requests WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting signup request")
	}
	return nil
}
