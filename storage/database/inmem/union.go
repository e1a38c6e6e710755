package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/waynerigley/migslist/core/union"
)

type unionRepository struct {
	db *DB
}

var _ union.Repository = (*unionRepository)(nil)

func NewUnionRepository(db *DB) *unionRepository {
	return &unionRepository{db: db}
}

func (repo *unionRepository) query() []union.Union {
	unions := make([]union.Union, 0, len(repo.db.union.table))
	for _, u := range repo.db.union.table {
		unions = append(unions, *u)
	}
	sort.Slice(unions, func(i, j int) bool { return unions[i].Name < unions[j].Name })
	return unions
}

func (repo *unionRepository) CreateUnion(_ context.Context, u union.Union) (union.Union, error) {
	repo.db.union.mutex.Lock()
	defer repo.db.union.mutex.Unlock()

	for _, existing := range repo.db.union.table {
		if existing.Name == u.Name {
			return union.Union{}, union.ErrNameExists
		}
	}
	u.ID = uuid.New().String()
	repo.db.union.table[u.ID] = &u
	return u, nil
}

func (repo *unionRepository) GetUnionByID(_ context.Context, id string) (union.Union, error) {
	repo.db.union.mutex.RLock()
	defer repo.db.union.mutex.RUnlock()
	if u, ok := repo.db.union.table[id]; ok {
		return *u, nil
	}
	return union.Union{}, union.ErrNotFound
}

func (repo *unionRepository) QueryAllUnions(_ context.Context) ([]union.Union, error) {
	repo.db.union.mutex.RLock()
	defer repo.db.union.mutex.RUnlock()

	unions := repo.query()
	for i := range unions {
		stats := repo.stats(unions[i].ID)
		unions[i].BucketCount = stats.BucketCount
		unions[i].MemberCount = stats.MemberCount
	}
	return unions, nil
}

func (repo *unionRepository) QueryUnionsByStatus(_ context.Context, status string) ([]union.Union, error) {
	repo.db.union.mutex.RLock()
	defer repo.db.union.mutex.RUnlock()

	unions := make([]union.Union, 0)
	for _, u := range repo.query() {
		if u.Status == status {
			unions = append(unions, u)
		}
	}
	return unions, nil
}

func (repo *unionRepository) QueryTrialUnions(_ context.Context) ([]union.Union, error) {
	repo.db.union.mutex.RLock()
	defer repo.db.union.mutex.RUnlock()

	unions := make([]union.Union, 0)
	for _, u := range repo.query() {
		if u.Status == union.StatusActive && u.PaymentStatus == union.PaymentTrial {
			unions = append(unions, u)
		}
	}
	return unions, nil
}

func (repo *unionRepository) UpdateUnion(_ context.Context, u union.Union) (union.Union, error) {
	repo.db.union.mutex.Lock()
	defer repo.db.union.mutex.Unlock()

	orig, ok := repo.db.union.table[u.ID]
	if !ok {
		return union.Union{}, union.ErrNotFound
	}
	for _, existing := range repo.db.union.table {
		if existing.ID != u.ID && existing.Name == u.Name {
			return union.Union{}, union.ErrNameExists
		}
	}
	*orig = u
	return *orig, nil
}

func (repo *unionRepository) DeleteUnion(_ context.Context, id string) error {
	repo.db.union.mutex.Lock()
	defer repo.db.union.mutex.Unlock()
	delete(repo.db.union.table, id)
	return nil
}

func (repo *unionRepository) GetUnionStats(_ context.Context, id string) (union.Stats, error) {
	repo.db.union.mutex.RLock()
	defer repo.db.union.mutex.RUnlock()
	if _, ok := repo.db.union.table[id]; !ok {
		return union.Stats{}, union.ErrNotFound
	}
	return repo.stats(id), nil
}

func (repo *unionRepository) SetTrialReminderSent(_ context.Context, id string, days int, at time.Time) error {
	repo.db.union.mutex.Lock()
	defer repo.db.union.mutex.Unlock()

	u, ok := repo.db.union.table[id]
	if !ok {
		return union.ErrNotFound
	}
	switch days {
	case 15:
		u.TrialReminder15SentAt = &at
	case 5:
		u.TrialReminder5SentAt = &at
	}
	return nil
}

// stats expects union.mutex held.
func (repo *unionRepository) stats(unionID string) union.Stats {
	repo.db.bucket.mutex.RLock()
	defer repo.db.bucket.mutex.RUnlock()
	repo.db.member.mutex.RLock()
	defer repo.db.member.mutex.RUnlock()

	stats := union.Stats{UnionID: unionID}
	liveBuckets := make(map[string]bool)
	for _, b := range repo.db.bucket.table {
		if b.UnionID == unionID && !b.IsDeleted() {
			liveBuckets[b.ID] = true
			stats.BucketCount++
		}
	}
	for _, m := range repo.db.member.table {
		if liveBuckets[m.BucketID] && !m.IsRetired() {
			stats.MemberCount++
			if m.InGoodStanding() {
				stats.GoodStandingCount++
			}
		}
	}
	return stats
}
