package user

import (
	"context"

	"github.com/waynerigley/migslist/core"
)

type serviceMock struct {
	Service
}

func NewServiceMock(conf *core.Config, repo Repository, mailSvc core.EmailService) ServiceInterface {
	return &serviceMock{Service: *NewService(conf, repo, mailSvc)}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
