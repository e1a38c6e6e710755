package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/user"
)

var ErrNotFound = errors.New("session not found")

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSessionByToken(ctx context.Context, token string) (Session, error)
		DeleteSession(ctx context.Context, token string) error
		DeleteUserSessions(ctx context.Context, userID string) error
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, usr user.User, unionName string) (Session, error)
		Get(ctx context.Context, token string) (Session, error)
		Delete(ctx context.Context, token string) error
		DeleteForUser(ctx context.Context, userID string) error
		DeleteExpired(ctx context.Context) (int, error)
	}

	Service struct {
		conf *core.Config
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(conf *core.Config, repo Repository) *Service {
	return &Service{conf: conf, repo: repo}
}

func (svc *Service) Create(ctx context.Context, usr user.User, unionName string) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		Token:     uuid.New().String(),
		UserID:    usr.ID,
		Email:     usr.Email,
		Name:      usr.FullName(),
		Role:      user.NormalizeRole(usr.Role),
		UnionID:   usr.UnionID,
		UnionName: unionName,
		ExpiresAt: now.Add(svc.conf.SessionTTL),
		CreatedAt: now,
	}
	return svc.repo.CreateSession(ctx, sess)
}

// Get returns the session for the given token. Expired sessions are deleted
// on sight and reported as not found.
func (svc *Service) Get(ctx context.Context, token string) (Session, error) {
	if _, err := uuid.Parse(token); err != nil {
		return Session{}, ErrNotFound
	}
	sess, err := svc.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if sess.Expired(time.Now().UTC()) {
		_ = svc.repo.DeleteSession(ctx, token)
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (svc *Service) Delete(ctx context.Context, token string) error {
	return svc.repo.DeleteSession(ctx, token)
}

func (svc *Service) DeleteForUser(ctx context.Context, userID string) error {
	return svc.repo.DeleteUserSessions(ctx, userID)
}

func (svc *Service) DeleteExpired(ctx context.Context) (int, error) {
	return svc.repo.DeleteExpiredSessions(ctx, time.Now().UTC())
}
