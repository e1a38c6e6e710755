package bucket

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
)

var (
	// errors
	ErrNotFound     = errors.New("bucket not found")
	ErrNumberExists = errors.New("a bucket with this number already exists in this union")
)

type (
	Repository interface {
		CreateBucket(ctx context.Context, b Bucket) (Bucket, error)
		// GetBucketByID returns the bucket whether or not it is soft deleted;
		// callers that only want live buckets go through the service.
		GetBucketByID(ctx context.Context, id string) (Bucket, error)
		// QueryBucketsByUnion returns live buckets ordered by number, with
		// member and good standing counts.
		QueryBucketsByUnion(ctx context.Context, unionID string) ([]Bucket, error)
		QueryDeletedBucketsByUnion(ctx context.Context, unionID string) ([]Bucket, error)
		UpdateBucket(ctx context.Context, b Bucket) (Bucket, error)
		HardDeleteBucket(ctx context.Context, id string) error
		// CountOrphanedMembers counts members whose bucket is soft deleted or gone.
		CountOrphanedMembers(ctx context.Context) (int, error)
		DeleteOrphanedMembers(ctx context.Context) (int, error)
		DeleteSoftDeletedBuckets(ctx context.Context) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, unionID string, nb NewBucket) (Bucket, error)
		Get(ctx context.Context, id string) (Bucket, error)
		GetAny(ctx context.Context, id string) (Bucket, error)
		QueryByUnion(ctx context.Context, unionID string) ([]Bucket, error)
		QueryDeleted(ctx context.Context, unionID string) ([]Bucket, error)
		Update(ctx context.Context, id string, ub UpdateBucket) (Bucket, error)
		SoftDelete(ctx context.Context, id string) error
		HardDelete(ctx context.Context, id string) error
		Restore(ctx context.Context, id string) (Bucket, error)
		SetMasterPDF(ctx context.Context, id, filename string) (Bucket, error)
		RemoveMasterPDF(ctx context.Context, id string) (Bucket, error)
		CleanupOrphans(ctx context.Context) (members, buckets int, err error)
		CountOrphanedMembers(ctx context.Context) (int, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, unionID string, nb NewBucket) (Bucket, error) {
	now := time.Now().UTC()
	b := Bucket{
		UnionID:   unionID,
		Number:    nb.Number,
		Name:      nb.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b, err := svc.repo.CreateBucket(ctx, b)
	if err != nil {
		if errors.Cause(err) == ErrNumberExists {
			return Bucket{}, core.NewValidationError(err, core.FieldError{Field: "number", Error: err.Error()})
		}
		return Bucket{}, err
	}
	return b, nil
}

// Get returns a live bucket; soft deleted buckets read as not found.
func (svc *Service) Get(ctx context.Context, id string) (Bucket, error) {
	b, err := svc.repo.GetBucketByID(ctx, id)
	if err != nil {
		return Bucket{}, err
	}
	if b.IsDeleted() {
		return Bucket{}, ErrNotFound
	}
	return b, nil
}

// GetAny returns a bucket regardless of its soft deletion state.
func (svc *Service) GetAny(ctx context.Context, id string) (Bucket, error) {
	return svc.repo.GetBucketByID(ctx, id)
}

func (svc *Service) QueryByUnion(ctx context.Context, unionID string) ([]Bucket, error) {
	return svc.repo.QueryBucketsByUnion(ctx, unionID)
}

func (svc *Service) QueryDeleted(ctx context.Context, unionID string) ([]Bucket, error) {
	return svc.repo.QueryDeletedBucketsByUnion(ctx, unionID)
}

func (svc *Service) Update(ctx context.Context, id string, ub UpdateBucket) (Bucket, error) {
	b, err := svc.Get(ctx, id)
	if err != nil {
		return Bucket{}, err
	}
	b.Number = ub.Number
	b.Name = ub.Name
	b.UpdatedAt = time.Now().UTC()

	b, err = svc.repo.UpdateBucket(ctx, b)
	if err != nil {
		if errors.Cause(err) == ErrNumberExists {
			return Bucket{}, core.NewValidationError(err, core.FieldError{Field: "number", Error: err.Error()})
		}
		return Bucket{}, err
	}
	return b, nil
}

// SoftDelete hides the bucket from listings; its members stay behind as
// orphans until CleanupOrphans runs, so a restore brings them back intact.
func (svc *Service) SoftDelete(ctx context.Context, id string) error {
	b, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	b.DeletedAt = &now
	b.UpdatedAt = now
	_, err = svc.repo.UpdateBucket(ctx, b)
	return err
}

func (svc *Service) HardDelete(ctx context.Context, id string) error {
	return svc.repo.HardDeleteBucket(ctx, id)
}

func (svc *Service) Restore(ctx context.Context, id string) (Bucket, error) {
	b, err := svc.repo.GetBucketByID(ctx, id)
	if err != nil {
		return Bucket{}, err
	}
	if !b.IsDeleted() {
		return b, nil
	}
	b.DeletedAt = nil
	b.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateBucket(ctx, b)
}

func (svc *Service) SetMasterPDF(ctx context.Context, id, filename string) (Bucket, error) {
	b, err := svc.Get(ctx, id)
	if err != nil {
		return Bucket{}, err
	}
	b.MasterPDFFilename = filename
	b.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateBucket(ctx, b)
}

func (svc *Service) RemoveMasterPDF(ctx context.Context, id string) (Bucket, error) {
	return svc.SetMasterPDF(ctx, id, "")
}

func (svc *Service) CountOrphanedMembers(ctx context.Context) (int, error) {
	return svc.repo.CountOrphanedMembers(ctx)
}

// CleanupOrphans permanently removes members stranded by soft deleted
// buckets, then the soft deleted buckets themselves.
func (svc *Service) CleanupOrphans(ctx context.Context) (members, buckets int, err error) {
	if members, err = svc.repo.DeleteOrphanedMembers(ctx); err != nil {
		return 0, 0, errors.Wrap(err, "deleting orphaned members")
	}
	if buckets, err = svc.repo.DeleteSoftDeletedBuckets(ctx); err != nil {
		return members, 0, errors.Wrap(err, "deleting soft deleted buckets")
	}
	return members, buckets, nil
}
