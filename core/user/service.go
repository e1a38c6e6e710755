package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		QueryUsersByUnion(ctx context.Context, unionID string) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		CreateWithTempPassword(ctx context.Context, firstName, lastName, email, role, unionID string) (User, string, error)
		QueryAll(ctx context.Context) ([]User, error)
		QueryByUnion(ctx context.Context, unionID string) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		Delete(ctx context.Context, ids ...string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		ChangePassword(ctx context.Context, usr User, cp ChangePassword) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) *Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &Service{
		conf:    conf,
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func (svc *Service) CheckEmailUniqueness(email string, excludedUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excludedUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	active := true
	usr := User{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		Role:      NormalizeRole(nu.Role),
		UnionID:   nu.UnionID,
		IsActive:  &active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// CreateWithTempPassword creates an active user with a generated password and
// emails them their credentials. Used by signup approval and team management.
func (svc *Service) CreateWithTempPassword(ctx context.Context, firstName, lastName, email, role, unionID string) (User, string, error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.CheckEmailUniqueness(email); err != nil {
		return User{}, "", err
	}

	tempPwd, err := generateTempPassword()
	if err != nil {
		return User{}, "", errors.Wrap(err, "generating password")
	}

	now := time.Now().UTC()
	active := true
	usr := User{
		FirstName: core.CleanString(firstName),
		LastName:  core.CleanString(lastName),
		Email:     email,
		Role:      NormalizeRole(role),
		UnionID:   unionID,
		IsActive:  &active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = usr.SetPassword(tempPwd); err != nil {
		return User{}, "", errors.Wrap(err, "hashing password")
	}

	usr, err = svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, "", err
	}

	svc.mailSvc.SendMessages(svc.credentialsEmail(usr, tempPwd))
	return usr, tempPwd, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) QueryByUnion(ctx context.Context, unionID string) ([]User, error) {
	return svc.repo.QueryUsersByUnion(ctx, unionID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		FirstName: uu.FirstName,
		LastName:  uu.LastName,
		Email:     uu.Email,
		Role:      NormalizeRole(uu.Role),
		UnionID:   uu.UnionID,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, User{ID: usr.ID, LastLogin: usr.LastLogin, UpdatedAt: usr.LastLogin}, nil)
}

func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "incorrect password"})
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err := svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	return err
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	return err
}

// Emails

func (svc *Service) sendPasswordResetMail(usr User) {
	link := fmt.Sprintf("%s/reset-password?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), makeToken(usr))
	text := fmt.Sprintf(
		"Hi %s,\n\n"+
			"You requested a password reset for your %s account.\n"+
			"Follow the link below to choose a new password. The link expires in %d minutes.\n\n%s\n\n"+
			"If you did not request this, you can safely ignore this email.\n",
		usr.FirstName, svc.conf.AppName, int(svc.conf.PasswordResetTimeoutDelta/time.Minute), link,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>You requested a password reset for your %s account.</p>"+
			"<p><a href=%q>Reset your password</a> (the link expires in %d minutes).</p>"+
			"<p>If you did not request this, you can safely ignore this email.</p>",
		usr.FirstName, svc.conf.AppName, link, int(svc.conf.PasswordResetTimeoutDelta/time.Minute),
	)

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:     "Password Reset",
		TextContent: text,
		HTMLContent: html,
	})
}

func (svc *Service) credentialsEmail(usr User, tempPwd string) *core.EmailMessage {
	text := fmt.Sprintf(
		"Hi %s,\n\n"+
			"An account has been created for you on %s.\n\n"+
			"Email: %s\nTemporary password: %s\n\n"+
			"Sign in at %s and change your password right away.\n",
		usr.FirstName, svc.conf.AppName, usr.Email, tempPwd, svc.conf.FrontendBaseURL,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>An account has been created for you on %s.</p>"+
			"<p>Email: <b>%s</b><br>Temporary password: <b>%s</b></p>"+
			"<p><a href=%q>Sign in</a> and change your password right away.</p>",
		usr.FirstName, svc.conf.AppName, usr.Email, tempPwd, svc.conf.FrontendBaseURL,
	)
	return &core.EmailMessage{
		To:          []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:     "Your Account Credentials",
		TextContent: text,
		HTMLContent: html,
	}
}

func generateTempPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
