package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/waynerigley/migslist/core/member"
)

type memberRepository struct {
	db *DB
}

var _ member.Repository = (*memberRepository)(nil)

func NewMemberRepository(db *DB) *memberRepository {
	return &memberRepository{db: db}
}

func (repo *memberRepository) CreateMember(_ context.Context, m member.Member) (member.Member, error) {
	repo.db.member.mutex.Lock()
	defer repo.db.member.mutex.Unlock()

	m.ID = uuid.New().String()
	repo.db.member.table[m.ID] = &m
	return m, nil
}

func (repo *memberRepository) GetMemberByID(_ context.Context, id string) (member.Member, error) {
	repo.db.member.mutex.RLock()
	defer repo.db.member.mutex.RUnlock()

	m, ok := repo.db.member.table[id]
	if !ok {
		return member.Member{}, member.ErrNotFound
	}
	return repo.annotate(*m), nil
}

func (repo *memberRepository) QueryMembersByBucket(_ context.Context, bucketID string) ([]member.Member, error) {
	repo.db.member.mutex.RLock()
	defer repo.db.member.mutex.RUnlock()

	members := make([]member.Member, 0)
	for _, m := range repo.db.member.table {
		if m.BucketID == bucketID && !m.IsRetired() {
			members = append(members, repo.annotate(*m))
		}
	}
	sortByName(members)
	return members, nil
}

func (repo *memberRepository) QueryRetiredMembersByBucket(_ context.Context, bucketID string) ([]member.Member, error) {
	repo.db.member.mutex.RLock()
	defer repo.db.member.mutex.RUnlock()

	members := make([]member.Member, 0)
	for _, m := range repo.db.member.table {
		if m.BucketID == bucketID && m.IsRetired() {
			members = append(members, repo.annotate(*m))
		}
	}
	sortByName(members)
	return members, nil
}

func (repo *memberRepository) QueryMembersByUnion(_ context.Context, unionID string) ([]member.Member, error) {
	repo.db.member.mutex.RLock()
	defer repo.db.member.mutex.RUnlock()

	members := make([]member.Member, 0)
	for _, m := range repo.db.member.table {
		am := repo.annotate(*m)
		if am.UnionID == unionID && !am.IsRetired() && repo.bucketLive(am.BucketID) {
			members = append(members, am)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].BucketNumber != members[j].BucketNumber {
			return members[i].BucketNumber < members[j].BucketNumber
		}
		if members[i].LastName != members[j].LastName {
			return members[i].LastName < members[j].LastName
		}
		return members[i].FirstName < members[j].FirstName
	})
	return members, nil
}

func (repo *memberRepository) SearchMembers(_ context.Context, unionID, q string, limit int) ([]member.Member, error) {
	repo.db.member.mutex.RLock()
	defer repo.db.member.mutex.RUnlock()

	q = strings.ToLower(q)
	members := make([]member.Member, 0)
	for _, m := range repo.db.member.table {
		am := repo.annotate(*m)
		if am.UnionID != unionID || !repo.bucketLive(am.BucketID) {
			continue
		}
		if strings.Contains(strings.ToLower(am.FirstName), q) || strings.Contains(strings.ToLower(am.LastName), q) {
			members = append(members, am)
		}
	}
	sortByName(members)
	if len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

func (repo *memberRepository) UpdateMember(_ context.Context, m member.Member) (member.Member, error) {
	repo.db.member.mutex.Lock()
	defer repo.db.member.mutex.Unlock()

	orig, ok := repo.db.member.table[m.ID]
	if !ok {
		return member.Member{}, member.ErrNotFound
	}
	// annotations are read-only, keep the stored row clean
	m.BucketName, m.BucketNumber, m.UnionID = "", 0, ""
	*orig = m
	return repo.annotate(*orig), nil
}

func (repo *memberRepository) DeleteMember(_ context.Context, id string) error {
	repo.db.member.mutex.Lock()
	defer repo.db.member.mutex.Unlock()
	delete(repo.db.member.table, id)
	return nil
}

// annotate expects member.mutex held.
func (repo *memberRepository) annotate(m member.Member) member.Member {
	repo.db.bucket.mutex.RLock()
	defer repo.db.bucket.mutex.RUnlock()
	if b, ok := repo.db.bucket.table[m.BucketID]; ok {
		m.BucketName = b.Name
		m.BucketNumber = b.Number
		m.UnionID = b.UnionID
	}
	return m
}

func (repo *memberRepository) bucketLive(bucketID string) bool {
	repo.db.bucket.mutex.RLock()
	defer repo.db.bucket.mutex.RUnlock()
	b, ok := repo.db.bucket.table[bucketID]
	return ok && !b.IsDeleted()
}

func sortByName(members []member.Member) {
	sort.Slice(members, func(i, j int) bool {
		if members[i].LastName != members[j].LastName {
			return members[i].LastName < members[j].LastName
		}
		return members[i].FirstName < members[j].FirstName
	})
}
