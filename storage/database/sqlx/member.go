package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/member"
)

const memberColumns = `
	m.id, m.bucket_id, m.first_name, m.last_name, m.email, m.phone,
	m.address_line1, m.address_line2, m.city, m.state, m.zip,
	m.pdf_filename, m.pdf_uploaded_at, m.retired_at, m.retired_reason, m.created_at, m.updated_at,
	b.name AS bucket_name, b.number AS bucket_number, b.union_id AS union_id`

type memberRepository struct {
	db *sqlx.DB
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *sqlx.DB) *memberRepository {
	return &memberRepository{db: db}
}

func (repo memberRepository) CreateMember(ctx context.Context, m member.Member) (member.Member, error) {
	m.ID = uuid.New().String()
	query := `
	INSERT INTO members (id, bucket_id, first_name, last_name, email, phone,
		address_line1, address_line2, city, state, zip, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := repo.db.ExecContext(ctx, query,
		m.ID, m.BucketID, m.FirstName, m.LastName, m.Email, m.Phone,
		m.AddressLine1, m.AddressLine2, m.City, m.State, m.Zip, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "creating member")
	}
	return repo.GetMemberByID(ctx, m.ID)
}

func (repo memberRepository) GetMemberByID(ctx context.Context, id string) (member.Member, error) {
	var m member.Member
	query := `SELECT` + memberColumns + ` FROM members m JOIN buckets b ON b.id = m.bucket_id WHERE m.id = $1`
	if err := repo.db.GetContext(ctx, &m, query, id); err != nil {
		if isNoRows(err) {
			return member.Member{}, member.ErrNotFound
		}
		return member.Member{}, errors.Wrap(err, "getting member")
	}
	return m, nil
}

func (repo memberRepository) QueryMembersByBucket(ctx context.Context, bucketID string) ([]member.Member, error) {
	members := make([]member.Member, 0)
	query := `
	SELECT` + memberColumns + `
	FROM members m JOIN buckets b ON b.id = m.bucket_id
	WHERE m.bucket_id = $1 AND m.retired_at IS NULL
	ORDER BY m.last_name, m.first_name`
	if err := repo.db.SelectContext(ctx, &members, query, bucketID); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	return members, nil
}

func (repo memberRepository) QueryRetiredMembersByBucket(ctx context.Context, bucketID string) ([]member.Member, error) {
	members := make([]member.Member, 0)
	query := `
	SELECT` + memberColumns + `
	FROM members m JOIN buckets b ON b.id = m.bucket_id
	WHERE m.bucket_id = $1 AND m.retired_at IS NOT NULL
	ORDER BY m.last_name, m.first_name`
	if err := repo.db.SelectContext(ctx, &members, query, bucketID); err != nil {
		return nil, errors.Wrap(err, "querying retired members")
	}
	return members, nil
}

func (repo memberRepository) QueryMembersByUnion(ctx context.Context, unionID string) ([]member.Member, error) {
	members := make([]member.Member, 0)
	query := `
	SELECT` + memberColumns + `
	FROM members m JOIN buckets b ON b.id = m.bucket_id
	WHERE b.union_id = $1 AND b.deleted_at IS NULL AND m.retired_at IS NULL
	ORDER BY b.number, m.last_name, m.first_name`
	if err := repo.db.SelectContext(ctx, &members, query, unionID); err != nil {
		return nil, errors.Wrap(err, "querying union members")
	}
	return members, nil
}

func (repo memberRepository) SearchMembers(ctx context.Context, unionID, q string, limit int) ([]member.Member, error) {
	members := make([]member.Member, 0)
	query := `
	SELECT` + memberColumns + `
	FROM members m JOIN buckets b ON b.id = m.bucket_id
	WHERE b.union_id = $1 AND b.deleted_at IS NULL
		AND (m.first_name ILIKE '%' || $2 || '%' OR m.last_name ILIKE '%' || $2 || '%')
	ORDER BY m.last_name, m.first_name
	LIMIT $3`
	if err := repo.db.SelectContext(ctx, &members, query, unionID, q, limit); err != nil {
		return nil, errors.Wrap(err, "searching members")
	}
	return members, nil
}

func (repo memberRepository) UpdateMember(ctx context.Context, m member.Member) (member.Member, error) {
	query := `
	UPDATE members SET
		first_name = $2, last_name = $3, email = $4, phone = $5,
		address_line1 = $6, address_line2 = $7, city = $8, state = $9, zip = $10,
		pdf_filename = $11, pdf_uploaded_at = $12, retired_at = $13, retired_reason = $14, updated_at = $15
	WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		m.ID, m.FirstName, m.LastName, m.Email, m.Phone,
		m.AddressLine1, m.AddressLine2, m.City, m.State, m.Zip,
		m.PDFFilename, m.PDFUploadedAt, m.RetiredAt, m.RetiredReason, m.UpdatedAt,
	)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "updating member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return member.Member{}, member.ErrNotFound
	}
	return repo.GetMemberByID(ctx, m.ID)
}

func (repo memberRepository) DeleteMember(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return nil
}
