package union

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
)

var (
	// errors
	ErrNotFound   = errors.New("union not found")
	ErrNameExists = errors.New("a union with this name already exists")
)

type (
	Repository interface {
		CreateUnion(ctx context.Context, u Union) (Union, error)
		GetUnionByID(ctx context.Context, id string) (Union, error)
		// QueryAllUnions returns unions annotated with bucket and member counts.
		QueryAllUnions(ctx context.Context) ([]Union, error)
		QueryUnionsByStatus(ctx context.Context, status string) ([]Union, error)
		// QueryTrialUnions returns active unions on a trial payment status.
		QueryTrialUnions(ctx context.Context) ([]Union, error)
		UpdateUnion(ctx context.Context, u Union) (Union, error)
		DeleteUnion(ctx context.Context, id string) error
		GetUnionStats(ctx context.Context, id string) (Stats, error)
		SetTrialReminderSent(ctx context.Context, id string, days int, at time.Time) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, nu NewUnion) (Union, error)
		GetByID(ctx context.Context, id string) (Union, error)
		QueryAll(ctx context.Context) ([]Union, error)
		QueryActive(ctx context.Context) ([]Union, error)
		QueryPending(ctx context.Context) ([]Union, error)
		QueryTrials(ctx context.Context) ([]TrialInfo, error)
		Update(ctx context.Context, id string, uu UpdateUnion) (Union, error)
		Delete(ctx context.Context, id string) error
		GetStats(ctx context.Context, id string) (Stats, error)

		ReconcileSubscriptionStatus(ctx context.Context, id string, now time.Time) (Union, error)
		Activate(ctx context.Context, id, paymentRef string) (Union, error)
		StartTrial(ctx context.Context, id string) (Union, error)
		Deactivate(ctx context.Context, id string) (Union, error)
		ExtendSubscription(ctx context.Context, id string, days int) (Union, error)
		GrantFreeYear(ctx context.Context, id string) (Union, error)

		QueryTrialsNeedingReminder(ctx context.Context, now time.Time) (fifteenDay, fiveDay []TrialInfo, err error)
		MarkTrialReminderSent(ctx context.Context, id string, days int) error
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

func (svc *Service) Create(ctx context.Context, nu NewUnion) (Union, error) {
	now := time.Now().UTC()
	u := Union{
		Name:          nu.Name,
		ContactName:   nu.ContactName,
		ContactEmail:  nu.ContactEmail,
		ContactPhone:  nu.ContactPhone,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	u, err := svc.repo.CreateUnion(ctx, u)
	if err != nil {
		if errors.Cause(err) == ErrNameExists {
			return Union{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return Union{}, err
	}
	return u, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Union, error) {
	return svc.repo.GetUnionByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Union, error) {
	return svc.repo.QueryAllUnions(ctx)
}

func (svc *Service) QueryActive(ctx context.Context) ([]Union, error) {
	return svc.repo.QueryUnionsByStatus(ctx, StatusActive)
}

func (svc *Service) QueryPending(ctx context.Context) ([]Union, error) {
	return svc.repo.QueryUnionsByStatus(ctx, StatusPending)
}

func (svc *Service) QueryTrials(ctx context.Context) ([]TrialInfo, error) {
	unions, err := svc.repo.QueryTrialUnions(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	trials := make([]TrialInfo, 0, len(unions))
	for _, u := range unions {
		info := TrialInfo{Union: u}
		if state := Evaluate(u, now); state.DaysRemaining != nil {
			info.DaysRemaining = *state.DaysRemaining
		}
		trials = append(trials, info)
	}
	return trials, nil
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUnion) (Union, error) {
	u, err := svc.repo.GetUnionByID(ctx, id)
	if err != nil {
		return Union{}, err
	}
	u.Name = uu.Name
	u.ContactName = uu.ContactName
	u.ContactEmail = uu.ContactEmail
	u.ContactPhone = uu.ContactPhone
	u.UpdatedAt = time.Now().UTC()

	u, err = svc.repo.UpdateUnion(ctx, u)
	if err != nil {
		if errors.Cause(err) == ErrNameExists {
			return Union{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return Union{}, err
	}
	return u, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteUnion(ctx, id)
}

func (svc *Service) GetStats(ctx context.Context, id string) (Stats, error) {
	return svc.repo.GetUnionStats(ctx, id)
}

// Subscription lifecycle

// ReconcileSubscriptionStatus demotes an active union whose subscription end
// has passed to expired/expired. It is idempotent and is the only write path
// for lapse demotion; reads never mutate.
func (svc *Service) ReconcileSubscriptionStatus(ctx context.Context, id string, now time.Time) (Union, error) {
	u, err := svc.repo.GetUnionByID(ctx, id)
	if err != nil {
		return Union{}, err
	}
	if u.Status != StatusActive || u.SubscriptionEnd == nil || !u.SubscriptionEnd.Before(now) {
		return u, nil
	}
	u.Status = StatusExpired
	u.PaymentStatus = PaymentExpired
	u.UpdatedAt = now.UTC()
	return svc.repo.UpdateUnion(ctx, u)
}

// Activate marks a union paid with a fresh one-year subscription window.
func (svc *Service) Activate(ctx context.Context, id, paymentRef string) (Union, error) {
	u, err := svc.repo.GetUnionByID(ctx, id)
	if err != nil {
		return Union{}, err
	}
	now := time.Now().UTC()
	end := now.AddDate(1, 0, 0)
	u.Status = StatusActive
	u.PaymentStatus = PaymentPaid
	u.SubscriptionStart = &now
	u.SubscriptionEnd = &end
	u.PaymentReference = core.CleanString(paymentRef)
	u.PaymentDate = &now
	u.UpdatedAt = now
	return svc.repo.UpdateUnion(ctx, u)
}

// StartTrial opens a trial window; its length comes from config.
func (svc *Service) StartTrial(ctx context.Context, id string) (Union, error) {
	u, err := svc.repo.GetUnionByID(ctx, id)
	if err != nil {
		return Union{}, err
	}
	now := time.Now().UTC()
	end := now.AddDate(0, 0, svc.conf.TrialPeriodDays)
	u.Status = StatusActive
	u.PaymentStatus = PaymentTrial
	u.SubscriptionStart = &now
	u.SubscriptionEnd = &end
	u.TrialReminder15SentAt = nil
	u.TrialReminder5SentAt = nil
	u.UpdatedAt = now
	return svc.repo.UpdateUnion(ctx, u)
}

func (svc *Service) Deactivate(ctx context.Context, id string) (Union, error) {
	u, err := svc.repo.GetUnionByID(ctx, id)
	if err != nil {
		return Union{}, err
	}
	now := time.Now().UTC()
	u.Status = StatusExpired
	u.PaymentStatus = PaymentExpired
	u.UpdatedAt = now
	return svc.repo.UpdateUnion(ctx, u)
}

// ExtendSubscription pushes the subscription end out by the given number of
// days, from now if the union has lapsed or has no end date.
func (svc *Service) ExtendSubscription(ctx context.Context, id string, days int) (Union, error) {
	u, err := svc.repo.GetUnionByID(ctx, id)
	if err != nil {
		return Union{}, err
	}
	now := time.Now().UTC()
	base := now
	if u.SubscriptionEnd != nil && u.SubscriptionEnd.After(now) {
		base = *u.SubscriptionEnd
	}
	end := base.AddDate(0, 0, days)
	u.Status = StatusActive
	if u.PaymentStatus == PaymentExpired || u.PaymentStatus == PaymentUnpaid {
		u.PaymentStatus = PaymentTrial
	}
	u.SubscriptionEnd = &end
	u.UpdatedAt = now
	return svc.repo.UpdateUnion(ctx, u)
}

// GrantFreeYear activates the union free of charge for one year.
func (svc *Service) GrantFreeYear(ctx context.Context, id string) (Union, error) {
	u, err := svc.repo.GetUnionByID(ctx, id)
	if err != nil {
		return Union{}, err
	}
	now := time.Now().UTC()
	end := now.AddDate(1, 0, 0)
	u.Status = StatusActive
	u.PaymentStatus = PaymentFree
	u.SubscriptionStart = &now
	u.SubscriptionEnd = &end
	u.UpdatedAt = now
	return svc.repo.UpdateUnion(ctx, u)
}

// Trial reminders

// QueryTrialsNeedingReminder selects trial unions due a reminder at `now`:
// 15 days or less (but more than 5) remaining with the 15-day mark unset,
// and 5 days or less remaining with the 5-day mark unset.
func (svc *Service) QueryTrialsNeedingReminder(ctx context.Context, now time.Time) (fifteenDay, fiveDay []TrialInfo, err error) {
	unions, err := svc.repo.QueryTrialUnions(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, u := range unions {
		state := Evaluate(u, now)
		if !state.Usable || state.DaysRemaining == nil {
			continue
		}
		days := *state.DaysRemaining
		info := TrialInfo{Union: u, DaysRemaining: days}
		switch {
		case days <= 5 && u.TrialReminder5SentAt == nil:
			fiveDay = append(fiveDay, info)
		case days <= 15 && days > 5 && u.TrialReminder15SentAt == nil:
			fifteenDay = append(fifteenDay, info)
		}
	}
	return fifteenDay, fiveDay, nil
}

func (svc *Service) MarkTrialReminderSent(ctx context.Context, id string, days int) error {
	return svc.repo.SetTrialReminderSent(ctx, id, days, time.Now().UTC())
}
