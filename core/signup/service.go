package signup

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("signup request not found")
	ErrAlreadyProcessed = errors.New("signup request has already been processed")
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequestByID(ctx context.Context, id string) (Request, error)
		QueryAllRequests(ctx context.Context) ([]Request, error)
		QueryRequestsByStatus(ctx context.Context, status string) ([]Request, error)
		UpdateRequest(ctx context.Context, req Request) (Request, error)
		DeleteRequest(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, nr NewRequest) (Request, error)
		GetByID(ctx context.Context, id string) (Request, error)
		QueryAll(ctx context.Context) ([]Request, error)
		QueryPending(ctx context.Context) ([]Request, error)
		Approve(ctx context.Context, id string) (Request, union.Union, error)
		Reject(ctx context.Context, id, notes string) (Request, error)
		Delete(ctx context.Context, id string) error
	}

	Service struct {
		conf     *core.Config
		repo     Repository
		unionSvc union.ServiceInterface
		userSvc  user.ServiceInterface
		mailSvc  core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	conf *core.Config,
	repo Repository,
	unionSvc union.ServiceInterface,
	userSvc user.ServiceInterface,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		conf:     conf,
		repo:     repo,
		unionSvc: unionSvc,
		userSvc:  userSvc,
		mailSvc:  mailSvc,
	}
}

// Create files the request and notifies the operator.
func (svc *Service) Create(ctx context.Context, nr NewRequest) (Request, error) {
	req := Request{
		UnionName:      nr.UnionName,
		ContactName:    nr.ContactName,
		ContactEmail:   nr.ContactEmail,
		ContactPhone:   nr.ContactPhone,
		AdminFirstName: nr.AdminFirstName,
		AdminLastName:  nr.AdminLastName,
		AdminEmail:     nr.AdminEmail,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	req, err := svc.repo.CreateRequest(ctx, req)
	if err != nil {
		return Request{}, err
	}
	svc.mailSvc.SendMessages(svc.operatorNotification(req))
	return req, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Request, error) {
	return svc.repo.GetRequestByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Request, error) {
	return svc.repo.QueryAllRequests(ctx)
}

func (svc *Service) QueryPending(ctx context.Context) ([]Request, error) {
	return svc.repo.QueryRequestsByStatus(ctx, StatusPending)
}

// Approve creates the union, opens its trial and creates the president
// account with emailed temporary credentials. A duplicate admin email aborts
// before any union is created.
func (svc *Service) Approve(ctx context.Context, id string) (Request, union.Union, error) {
	req, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, union.Union{}, err
	}
	if req.Status != StatusPending {
		return Request{}, union.Union{}, ErrAlreadyProcessed
	}

	if err = svc.userSvc.CheckEmailUniqueness(req.AdminEmail); err != nil {
		return Request{}, union.Union{}, err
	}

	un, err := svc.unionSvc.Create(ctx, union.NewUnion{
		Name:         req.UnionName,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		return Request{}, union.Union{}, errors.Wrap(err, "creating union")
	}

	if un, err = svc.unionSvc.StartTrial(ctx, un.ID); err != nil {
		return Request{}, union.Union{}, errors.Wrap(err, "starting trial")
	}

	if _, _, err = svc.userSvc.CreateWithTempPassword(
		ctx, req.AdminFirstName, req.AdminLastName, req.AdminEmail, user.RolePresident, un.ID,
	); err != nil {
		return Request{}, union.Union{}, errors.Wrap(err, "creating president account")
	}

	now := time.Now().UTC()
	req.Status = StatusApproved
	req.ProcessedAt = &now
	if req, err = svc.repo.UpdateRequest(ctx, req); err != nil {
		return Request{}, union.Union{}, errors.Wrap(err, "marking request approved")
	}
	return req, un, nil
}

func (svc *Service) Reject(ctx context.Context, id, notes string) (Request, error) {
	req, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyProcessed
	}
	now := time.Now().UTC()
	req.Status = StatusRejected
	req.Notes = core.CleanString(notes)
	req.ProcessedAt = &now
	return svc.repo.UpdateRequest(ctx, req)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRequest(ctx, id)
}

func (svc *Service) operatorNotification(req Request) *core.EmailMessage {
	text := fmt.Sprintf(
		"A new union signed up.\n\n"+
			"Union: %s\nContact: %s <%s> %s\nAdmin: %s %s <%s>\n\n"+
			"Review it in the admin dashboard: %s/admin/signups\n",
		req.UnionName, req.ContactName, req.ContactEmail, req.ContactPhone,
		req.AdminFirstName, req.AdminLastName, req.AdminEmail,
		svc.conf.FrontendBaseURL,
	)
	return &core.EmailMessage{
		To:          []mail.Address{{Address: svc.conf.OperatorEmail}},
		Subject:     "New Signup Request: " + req.UnionName,
		TextContent: text,
	}
}
