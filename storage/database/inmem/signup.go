package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/waynerigley/migslist/core/signup"
)

type signupRepository struct {
	db *signupTable
}

var _ signup.Repository = (*signupRepository)(nil)

func NewSignupRepository(db *DB) *signupRepository {
	return &signupRepository{db: db.signup}
}

func (repo *signupRepository) query() []signup.Request {
	reqs := make([]signup.Request, 0, len(repo.db.table))
	for _, req := range repo.db.table {
		reqs = append(reqs, *req)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs
}

func (repo *signupRepository) CreateRequest(_ context.Context, req signup.Request) (signup.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	req.ID = uuid.New().String()
	repo.db.table[req.ID] = &req
	return req, nil
}

func (repo *signupRepository) GetRequestByID(_ context.Context, id string) (signup.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if req, ok := repo.db.table[id]; ok {
		return *req, nil
	}
	return signup.Request{}, signup.ErrNotFound
}

func (repo *signupRepository) QueryAllRequests(_ context.Context) ([]signup.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *signupRepository) QueryRequestsByStatus(_ context.Context, status string) ([]signup.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reqs := make([]signup.Request, 0)
	for _, req := range repo.query() {
		if req.Status == status {
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

func (repo *signupRepository) UpdateRequest(_ context.Context, req signup.Request) (signup.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[req.ID]
	if !ok {
		return signup.Request{}, signup.ErrNotFound
	}
	*orig = req
	return *orig, nil
}

func (repo *signupRepository) DeleteRequest(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.table, id)
	return nil
}
