package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/bucket"
)

const bucketColumns = `
	b.id, b.union_id, b.number, b.name, b.master_pdf_filename, b.deleted_at, b.created_at, b.updated_at,
	(SELECT COUNT(*) FROM members m WHERE m.bucket_id = b.id AND m.retired_at IS NULL) AS member_count,
	(SELECT COUNT(*) FROM members m WHERE m.bucket_id = b.id AND m.retired_at IS NULL AND m.pdf_filename <> '') AS good_standing_count,
	(SELECT u.name FROM unions u WHERE u.id = b.union_id) AS union_name`

type bucketRepository struct {
	db *sqlx.DB
}

var _ bucket.Repository = (*bucketRepository)(nil) // interface compliance check

func NewBucketRepository(db *sqlx.DB) *bucketRepository {
	return &bucketRepository{db: db}
}

func (repo bucketRepository) CreateBucket(ctx context.Context, b bucket.Bucket) (bucket.Bucket, error) {
	b.ID = uuid.New().String()
	query := `
	INSERT INTO buckets (id, union_id, number, name, master_pdf_filename, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, query,
		b.ID, b.UnionID, b.Number, b.Name, b.MasterPDFFilename, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "buckets_union_number") {
			return bucket.Bucket{}, bucket.ErrNumberExists
		}
		return bucket.Bucket{}, errors.Wrap(err, "creating bucket")
	}
	return repo.GetBucketByID(ctx, b.ID)
}

func (repo bucketRepository) GetBucketByID(ctx context.Context, id string) (bucket.Bucket, error) {
	var b bucket.Bucket
	query := `SELECT` + bucketColumns + ` FROM buckets b WHERE b.id = $1`
	if err := repo.db.GetContext(ctx, &b, query, id); err != nil {
		if isNoRows(err) {
			return bucket.Bucket{}, bucket.ErrNotFound
		}
		return bucket.Bucket{}, errors.Wrap(err, "getting bucket")
	}
	return b, nil
}

func (repo bucketRepository) QueryBucketsByUnion(ctx context.Context, unionID string) ([]bucket.Bucket, error) {
	buckets := make([]bucket.Bucket, 0)
	query := `SELECT` + bucketColumns + ` FROM buckets b WHERE b.union_id = $1 AND b.deleted_at IS NULL ORDER BY b.number`
	if err := repo.db.SelectContext(ctx, &buckets, query, unionID); err != nil {
		return nil, errors.Wrap(err, "querying buckets")
	}
	return buckets, nil
}

func (repo bucketRepository) QueryDeletedBucketsByUnion(ctx context.Context, unionID string) ([]bucket.Bucket, error) {
	buckets := make([]bucket.Bucket, 0)
	query := `SELECT` + bucketColumns + ` FROM buckets b WHERE b.union_id = $1 AND b.deleted_at IS NOT NULL ORDER BY b.number`
	if err := repo.db.SelectContext(ctx, &buckets, query, unionID); err != nil {
		return nil, errors.Wrap(err, "querying deleted buckets")
	}
	return buckets, nil
}

func (repo bucketRepository) UpdateBucket(ctx context.Context, b bucket.Bucket) (bucket.Bucket, error) {
	query := `
	UPDATE buckets SET
		number = $2, name = $3, master_pdf_filename = $4, deleted_at = $5, updated_at = $6
	WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		b.ID, b.Number, b.Name, b.MasterPDFFilename, b.DeletedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "buckets_union_number") {
			return bucket.Bucket{}, bucket.ErrNumberExists
		}
		return bucket.Bucket{}, errors.Wrap(err, "updating bucket")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return bucket.Bucket{}, bucket.ErrNotFound
	}
	return repo.GetBucketByID(ctx, b.ID)
}

func (repo bucketRepository) HardDeleteBucket(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM buckets WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting bucket")
	}
	return nil
}

func (repo bucketRepository) CountOrphanedMembers(ctx context.Context) (int, error) {
	var n int
	query := `
	SELECT COUNT(*) FROM members m
	LEFT JOIN buckets b ON b.id = m.bucket_id
	WHERE b.id IS NULL OR b.deleted_at IS NOT NULL`
	if err := repo.db.GetContext(ctx, &n, query); err != nil {
		return 0, errors.Wrap(err, "counting orphaned members")
	}
	return n, nil
}

func (repo bucketRepository) DeleteOrphanedMembers(ctx context.Context) (int, error) {
	query := `
	DELETE FROM members m
	USING buckets b
	WHERE b.id = m.bucket_id AND b.deleted_at IS NOT NULL`
	res, err := repo.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errors.Wrap(err, "deleting orphaned members")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted members")
	}
	return int(n), nil
}

func (repo bucketRepository) DeleteSoftDeletedBuckets(ctx context.Context) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM buckets WHERE deleted_at IS NOT NULL`)
	if err != nil {
		return 0, errors.Wrap(err, "deleting soft deleted buckets")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted buckets")
	}
	return int(n), nil
}
