package inmemdb

import (
	"context"
	"time"

	"github.com/waynerigley/migslist/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) CreateSession(_ context.Context, sess session.Session) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.table[sess.Token] = &sess
	return sess, nil
}

func (repo *sessionRepository) GetSessionByToken(_ context.Context, token string) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if sess, ok := repo.db.table[token]; ok {
		return *sess, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) DeleteSession(_ context.Context, token string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.table, token)
	return nil
}

func (repo *sessionRepository) DeleteUserSessions(_ context.Context, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for token, sess := range repo.db.table {
		if sess.UserID == userID {
			delete(repo.db.table, token)
		}
	}
	return nil
}

func (repo *sessionRepository) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int
	for token, sess := range repo.db.table {
		if sess.Expired(now) {
			delete(repo.db.table, token)
			n++
		}
	}
	return n, nil
}
