package member

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
)

const defaultRetiredReason = "Retired"

var ErrNotFound = errors.New("member not found")

type (
	Repository interface {
		CreateMember(ctx context.Context, m Member) (Member, error)
		// GetMemberByID annotates the member with its bucket name/number and union.
		GetMemberByID(ctx context.Context, id string) (Member, error)
		// QueryMembersByBucket returns active members ordered by last then first name.
		QueryMembersByBucket(ctx context.Context, bucketID string) ([]Member, error)
		QueryRetiredMembersByBucket(ctx context.Context, bucketID string) ([]Member, error)
		// QueryMembersByUnion returns active members of live buckets across the
		// union, ordered by bucket number, last name, first name.
		QueryMembersByUnion(ctx context.Context, unionID string) ([]Member, error)
		// SearchMembers does a case-insensitive match on first or last name
		// within a union, limited to `limit` rows.
		SearchMembers(ctx context.Context, unionID, q string, limit int) ([]Member, error)
		UpdateMember(ctx context.Context, m Member) (Member, error)
		DeleteMember(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, bucketID string, nm NewMember) (Member, error)
		Get(ctx context.Context, id string) (Member, error)
		QueryByBucket(ctx context.Context, bucketID string) ([]Member, error)
		QueryGoodStanding(ctx context.Context, bucketID string) ([]Member, error)
		QueryRetired(ctx context.Context, bucketID string) ([]Member, error)
		QueryByUnion(ctx context.Context, unionID string) ([]Member, error)
		Search(ctx context.Context, unionID, q string) ([]Member, error)
		Update(ctx context.Context, id string, um UpdateMember) (Member, error)
		Delete(ctx context.Context, id string) error
		Retire(ctx context.Context, id, reason string) (Member, error)
		Restore(ctx context.Context, id string) (Member, error)
		SetPDF(ctx context.Context, id, filename string) (Member, error)
		RemovePDF(ctx context.Context, id string) (Member, error)
		Import(ctx context.Context, bucketID string, data []byte) (ImportResult, error)
	}

	Service struct {
		repo Repository
	}
)

const searchLimit = 50

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, bucketID string, nm NewMember) (Member, error) {
	now := time.Now().UTC()
	m := Member{
		BucketID:     bucketID,
		FirstName:    nm.FirstName,
		LastName:     nm.LastName,
		Email:        nm.Email,
		Phone:        nm.Phone,
		AddressLine1: nm.AddressLine1,
		AddressLine2: nm.AddressLine2,
		City:         nm.City,
		State:        nm.State,
		Zip:          nm.Zip,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateMember(ctx, m)
}

func (svc *Service) Get(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMemberByID(ctx, id)
}

func (svc *Service) QueryByBucket(ctx context.Context, bucketID string) ([]Member, error) {
	return svc.repo.QueryMembersByBucket(ctx, bucketID)
}

// QueryGoodStanding returns active members of the bucket with a PDF on file.
func (svc *Service) QueryGoodStanding(ctx context.Context, bucketID string) ([]Member, error) {
	members, err := svc.repo.QueryMembersByBucket(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	inGood := make([]Member, 0, len(members))
	for _, m := range members {
		if m.InGoodStanding() {
			inGood = append(inGood, m)
		}
	}
	return inGood, nil
}

func (svc *Service) QueryRetired(ctx context.Context, bucketID string) ([]Member, error) {
	return svc.repo.QueryRetiredMembersByBucket(ctx, bucketID)
}

func (svc *Service) QueryByUnion(ctx context.Context, unionID string) ([]Member, error) {
	return svc.repo.QueryMembersByUnion(ctx, unionID)
}

func (svc *Service) Search(ctx context.Context, unionID, q string) ([]Member, error) {
	q = core.CleanString(q)
	if q == "" {
		return []Member{}, nil
	}
	return svc.repo.SearchMembers(ctx, unionID, q, searchLimit)
}

func (svc *Service) Update(ctx context.Context, id string, um UpdateMember) (Member, error) {
	m, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}
	m.FirstName = um.FirstName
	m.LastName = um.LastName
	m.Email = um.Email
	m.Phone = um.Phone
	m.AddressLine1 = um.AddressLine1
	m.AddressLine2 = um.AddressLine2
	m.City = um.City
	m.State = um.State
	m.Zip = um.Zip
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteMember(ctx, id)
}

func (svc *Service) Retire(ctx context.Context, id, reason string) (Member, error) {
	m, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}
	now := time.Now().UTC()
	reason = core.CleanString(reason)
	if reason == "" {
		reason = defaultRetiredReason
	}
	m.RetiredAt = &now
	m.RetiredReason = reason
	m.UpdatedAt = now
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *Service) Restore(ctx context.Context, id string) (Member, error) {
	m, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}
	m.RetiredAt = nil
	m.RetiredReason = ""
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *Service) SetPDF(ctx context.Context, id, filename string) (Member, error) {
	m, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}
	now := time.Now().UTC()
	m.PDFFilename = filename
	m.PDFUploadedAt = &now
	m.UpdatedAt = now
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *Service) RemovePDF(ctx context.Context, id string) (Member, error) {
	m, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}
	m.PDFFilename = ""
	m.PDFUploadedAt = nil
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMember(ctx, m)
}
