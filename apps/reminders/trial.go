package main

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/union"
)

// runTrialReminders demotes lapsed unions, flips overdue invoices and sends
// the 15 and 5 day trial expiry warnings to each trial union's team. Each
// reminder is sent once; the sent mark is what makes the daily run idempotent.
func (j *job) runTrialReminders() error {
	ctx := context.Background()
	now := time.Now().UTC()

	// lapse demotion first so lapsed trials drop out of the reminder set
	trials, err := j.unionSvc.QueryTrials(ctx)
	if err != nil {
		return errors.Wrap(err, "querying trial unions")
	}
	for _, info := range trials {
		if _, err = j.unionSvc.ReconcileSubscriptionStatus(ctx, info.ID, now); err != nil {
			j.logger.Error(fmt.Sprintf("reconciling union %s: %v", info.ID, err), err)
		}
	}

	if n, err := j.financeSvc.SweepOverdue(ctx, now); err != nil {
		j.logger.Error(fmt.Sprintf("sweeping overdue invoices: %v", err), err)
	} else if n > 0 {
		j.logger.Info(fmt.Sprintf("%d invoice(s) marked overdue", n))
	}

	fifteenDay, fiveDay, err := j.unionSvc.QueryTrialsNeedingReminder(ctx, now)
	if err != nil {
		return errors.Wrap(err, "querying trials needing reminders")
	}
	for _, info := range fifteenDay {
		j.sendTrialReminder(ctx, info, 15)
	}
	for _, info := range fiveDay {
		j.sendTrialReminder(ctx, info, 5)
	}
	j.logger.Info(fmt.Sprintf("trial reminders: %d at 15 days, %d at 5 days", len(fifteenDay), len(fiveDay)))
	return nil
}

func (j *job) sendTrialReminder(ctx context.Context, info union.TrialInfo, days int) {
	users, err := j.userSvc.QueryByUnion(ctx, info.ID)
	if err != nil {
		j.logger.Error(fmt.Sprintf("querying users of union %s: %v", info.ID, err), err)
		return
	}
	var recipients []mail.Address
	for _, usr := range users {
		recipients = append(recipients, mail.Address{Name: usr.FullName(), Address: usr.Email})
	}
	if info.ContactEmail != "" {
		recipients = append(recipients, mail.Address{Name: info.ContactName, Address: info.ContactEmail})
	}
	if len(recipients) == 0 {
		return
	}

	j.mailSvc.SendMessages(&core.EmailMessage{
		To:      recipients,
		Subject: fmt.Sprintf("Your %s trial ends in %d days", j.conf.AppName, info.DaysRemaining),
		TextContent: fmt.Sprintf(
			"Hello,\n\nThe %s trial for %s ends in %d day(s).\n\n"+
				"To keep access to your member lists, renew your subscription: %s/billing\n\n"+
				"Questions? Reply to this email or reach us at %s.\n",
			j.conf.AppName, info.Name, info.DaysRemaining, j.conf.FrontendBaseURL, j.conf.SupportEmail,
		),
	})

	if err = j.unionSvc.MarkTrialReminderSent(ctx, info.ID, days); err != nil {
		j.logger.Error(fmt.Sprintf("marking %d-day reminder sent for union %s: %v", days, info.ID, err), err)
	}
}
