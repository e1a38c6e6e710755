package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/union"
)

const unionColumns = `
	u.id, u.name, u.contact_name, u.contact_email, u.contact_phone, u.status, u.payment_status,
	u.subscription_start, u.subscription_end, u.payment_reference, u.payment_date,
	u.trial_reminder_15_sent_at, u.trial_reminder_5_sent_at, u.created_at, u.updated_at`

type unionRepository struct {
	db *sqlx.DB
}

var _ union.Repository = (*unionRepository)(nil) // interface compliance check

func NewUnionRepository(db *sqlx.DB) *unionRepository {
	return &unionRepository{db: db}
}

func (repo unionRepository) CreateUnion(ctx context.Context, u union.Union) (union.Union, error) {
	u.ID = uuid.New().String()
	query := `
	INSERT INTO unions (id, name, contact_name, contact_email, contact_phone, status, payment_status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		u.ID, u.Name, u.ContactName, u.ContactEmail, u.ContactPhone,
		u.Status, u.PaymentStatus, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "unions_name") {
			return union.Union{}, union.ErrNameExists
		}
		return union.Union{}, errors.Wrap(err, "creating union")
	}
	return repo.GetUnionByID(ctx, u.ID)
}

func (repo unionRepository) GetUnionByID(ctx context.Context, id string) (union.Union, error) {
	var u union.Union
	query := `SELECT` + unionColumns + ` FROM unions u WHERE u.id = $1`
	if err := repo.db.GetContext(ctx, &u, query, id); err != nil {
		if isNoRows(err) {
			return union.Union{}, union.ErrNotFound
		}
		return union.Union{}, errors.Wrap(err, "getting union")
	}
	return u, nil
}

func (repo unionRepository) QueryAllUnions(ctx context.Context) ([]union.Union, error) {
	unions := make([]union.Union, 0)
	query := `
	SELECT` + unionColumns + `,
		(SELECT COUNT(*) FROM buckets b WHERE b.union_id = u.id AND b.deleted_at IS NULL) AS bucket_count,
		(SELECT COUNT(*) FROM members m
			JOIN buckets b ON b.id = m.bucket_id
			WHERE b.union_id = u.id AND b.deleted_at IS NULL AND m.retired_at IS NULL) AS member_count
	FROM unions u
	ORDER BY u.name`
	if err := repo.db.SelectContext(ctx, &unions, query); err != nil {
		return nil, errors.Wrap(err, "querying unions")
	}
	return unions, nil
}

func (repo unionRepository) QueryUnionsByStatus(ctx context.Context, status string) ([]union.Union, error) {
	unions := make([]union.Union, 0)
	query := `SELECT` + unionColumns + ` FROM unions u WHERE u.status = $1 ORDER BY u.name`
	if err := repo.db.SelectContext(ctx, &unions, query, status); err != nil {
		return nil, errors.Wrap(err, "querying unions by status")
	}
	return unions, nil
}

func (repo unionRepository) QueryTrialUnions(ctx context.Context) ([]union.Union, error) {
	unions := make([]union.Union, 0)
	query := `SELECT` + unionColumns + ` FROM unions u WHERE u.status = $1 AND u.payment_status = $2 ORDER BY u.name`
	if err := repo.db.SelectContext(ctx, &unions, query, union.StatusActive, union.PaymentTrial); err != nil {
		return nil, errors.Wrap(err, "querying trial unions")
	}
	return unions, nil
}

func (repo unionRepository) UpdateUnion(ctx context.Context, u union.Union) (union.Union, error) {
	query := `
	UPDATE unions SET
		name = $2, contact_name = $3, contact_email = $4, contact_phone = $5,
		status = $6, payment_status = $7, subscription_start = $8, subscription_end = $9,
		payment_reference = $10, payment_date = $11,
		trial_reminder_15_sent_at = $12, trial_reminder_5_sent_at = $13, updated_at = $14
	WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		u.ID, u.Name, u.ContactName, u.ContactEmail, u.ContactPhone,
		u.Status, u.PaymentStatus, u.SubscriptionStart, u.SubscriptionEnd,
		u.PaymentReference, u.PaymentDate,
		u.TrialReminder15SentAt, u.TrialReminder5SentAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "unions_name") {
			return union.Union{}, union.ErrNameExists
		}
		return union.Union{}, errors.Wrap(err, "updating union")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return union.Union{}, union.ErrNotFound
	}
	return repo.GetUnionByID(ctx, u.ID)
}

func (repo unionRepository) DeleteUnion(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM unions WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting union")
	}
	return nil
}

func (repo unionRepository) GetUnionStats(ctx context.Context, id string) (union.Stats, error) {
	if _, err := repo.GetUnionByID(ctx, id); err != nil {
		return union.Stats{}, err
	}

	stats := union.Stats{UnionID: id}
	query := `
	SELECT
		(SELECT COUNT(*) FROM buckets b WHERE b.union_id = $1 AND b.deleted_at IS NULL) AS bucket_count,
		(SELECT COUNT(*) FROM members m
			JOIN buckets b ON b.id = m.bucket_id
			WHERE b.union_id = $1 AND b.deleted_at IS NULL AND m.retired_at IS NULL) AS member_count,
		(SELECT COUNT(*) FROM members m
			JOIN buckets b ON b.id = m.bucket_id
			WHERE b.union_id = $1 AND b.deleted_at IS NULL AND m.retired_at IS NULL AND m.pdf_filename <> '') AS good_standing_count`
	row := repo.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&stats.BucketCount, &stats.MemberCount, &stats.GoodStandingCount); err != nil {
		return union.Stats{}, errors.Wrap(err, "getting union stats")
	}
	return stats, nil
}

func (repo unionRepository) SetTrialReminderSent(ctx context.Context, id string, days int, at time.Time) error {
	column := "trial_reminder_15_sent_at"
	if days == 5 {
		column = "trial_reminder_5_sent_at"
	}
	res, err := repo.db.ExecContext(ctx, `UPDATE unions SET `+column+` = $2 WHERE id = $1`, id, at)
	if err != nil {
		return errors.Wrap(err, "marking trial reminder sent")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return union.ErrNotFound
	}
	return nil
}
