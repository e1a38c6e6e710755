package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/waynerigley/migslist/core/bucket"
)

type bucketRepository struct {
	db *DB
}

var _ bucket.Repository = (*bucketRepository)(nil)

func NewBucketRepository(db *DB) *bucketRepository {
	return &bucketRepository{db: db}
}

// numberTaken expects bucket.mutex held. Soft deleted buckets release their number.
func (repo *bucketRepository) numberTaken(unionID string, number int, excludedID string) bool {
	for _, b := range repo.db.bucket.table {
		if b.UnionID == unionID && b.Number == number && !b.IsDeleted() && b.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *bucketRepository) CreateBucket(_ context.Context, b bucket.Bucket) (bucket.Bucket, error) {
	repo.db.bucket.mutex.Lock()
	defer repo.db.bucket.mutex.Unlock()

	if repo.numberTaken(b.UnionID, b.Number, "") {
		return bucket.Bucket{}, bucket.ErrNumberExists
	}
	b.ID = uuid.New().String()
	repo.db.bucket.table[b.ID] = &b
	return b, nil
}

func (repo *bucketRepository) GetBucketByID(_ context.Context, id string) (bucket.Bucket, error) {
	repo.db.bucket.mutex.RLock()
	defer repo.db.bucket.mutex.RUnlock()

	b, ok := repo.db.bucket.table[id]
	if !ok {
		return bucket.Bucket{}, bucket.ErrNotFound
	}
	return repo.annotate(*b), nil
}

func (repo *bucketRepository) QueryBucketsByUnion(_ context.Context, unionID string) ([]bucket.Bucket, error) {
	repo.db.bucket.mutex.RLock()
	defer repo.db.bucket.mutex.RUnlock()

	buckets := make([]bucket.Bucket, 0)
	for _, b := range repo.db.bucket.table {
		if b.UnionID == unionID && !b.IsDeleted() {
			buckets = append(buckets, repo.annotate(*b))
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Number < buckets[j].Number })
	return buckets, nil
}

func (repo *bucketRepository) QueryDeletedBucketsByUnion(_ context.Context, unionID string) ([]bucket.Bucket, error) {
	repo.db.bucket.mutex.RLock()
	defer repo.db.bucket.mutex.RUnlock()

	buckets := make([]bucket.Bucket, 0)
	for _, b := range repo.db.bucket.table {
		if b.UnionID == unionID && b.IsDeleted() {
			buckets = append(buckets, repo.annotate(*b))
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Number < buckets[j].Number })
	return buckets, nil
}

func (repo *bucketRepository) UpdateBucket(_ context.Context, b bucket.Bucket) (bucket.Bucket, error) {
	repo.db.bucket.mutex.Lock()
	defer repo.db.bucket.mutex.Unlock()

	orig, ok := repo.db.bucket.table[b.ID]
	if !ok {
		return bucket.Bucket{}, bucket.ErrNotFound
	}
	if !b.IsDeleted() && repo.numberTaken(b.UnionID, b.Number, b.ID) {
		return bucket.Bucket{}, bucket.ErrNumberExists
	}
	*orig = b
	return *orig, nil
}

func (repo *bucketRepository) HardDeleteBucket(_ context.Context, id string) error {
	repo.db.bucket.mutex.Lock()
	defer repo.db.bucket.mutex.Unlock()
	delete(repo.db.bucket.table, id)
	return nil
}

func (repo *bucketRepository) CountOrphanedMembers(_ context.Context) (int, error) {
	repo.db.bucket.mutex.RLock()
	defer repo.db.bucket.mutex.RUnlock()
	repo.db.member.mutex.RLock()
	defer repo.db.member.mutex.RUnlock()

	var n int
	for _, m := range repo.db.member.table {
		if repo.orphaned(m.BucketID) {
			n++
		}
	}
	return n, nil
}

func (repo *bucketRepository) DeleteOrphanedMembers(_ context.Context) (int, error) {
	repo.db.bucket.mutex.RLock()
	defer repo.db.bucket.mutex.RUnlock()
	repo.db.member.mutex.Lock()
	defer repo.db.member.mutex.Unlock()

	var n int
	for id, m := range repo.db.member.table {
		if repo.orphaned(m.BucketID) {
			delete(repo.db.member.table, id)
			n++
		}
	}
	return n, nil
}

func (repo *bucketRepository) DeleteSoftDeletedBuckets(_ context.Context) (int, error) {
	repo.db.bucket.mutex.Lock()
	defer repo.db.bucket.mutex.Unlock()

	var n int
	for id, b := range repo.db.bucket.table {
		if b.IsDeleted() {
			delete(repo.db.bucket.table, id)
			n++
		}
	}
	return n, nil
}

// orphaned expects bucket.mutex held.
func (repo *bucketRepository) orphaned(bucketID string) bool {
	b, ok := repo.db.bucket.table[bucketID]
	return !ok || b.IsDeleted()
}

// annotate expects bucket.mutex held.
func (repo *bucketRepository) annotate(b bucket.Bucket) bucket.Bucket {
	repo.db.union.mutex.RLock()
	if u, ok := repo.db.union.table[b.UnionID]; ok {
		b.UnionName = u.Name
	}
	repo.db.union.mutex.RUnlock()

	repo.db.member.mutex.RLock()
	for _, m := range repo.db.member.table {
		if m.BucketID == b.ID && !m.IsRetired() {
			b.MemberCount++
			if m.InGoodStanding() {
				b.GoodStandingCount++
			}
		}
	}
	repo.db.member.mutex.RUnlock()
	return b
}
