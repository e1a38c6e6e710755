package main

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
)

// runMonthlyDigest emails the operator a digest of expenses that have
// expired or will expire within the warning window (domains, licenses).
func (j *job) runMonthlyDigest() error {
	ctx := context.Background()
	now := time.Now().UTC()

	expiring, err := j.financeSvc.QueryExpiringExpenses(ctx, now)
	if err != nil {
		return errors.Wrap(err, "querying expiring expenses")
	}
	if len(expiring) == 0 {
		j.logger.Info("no expiring expenses, nothing to send")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d expense(s) need attention:\n\n", len(expiring))
	for _, ex := range expiring {
		status := "expires"
		if ex.ExpiresAt.Before(now) {
			status = "expired"
		}
		fmt.Fprintf(&b, "- %s (%s) %s %s, $%.2f\n",
			ex.Description, ex.Vendor, status, ex.ExpiresAt.Format("Jan 2, 2006"), ex.Amount)
	}
	fmt.Fprintf(&b, "\nReview them in the finance dashboard: %s/finance/expenses\n", j.conf.FrontendBaseURL)

	j.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Address: j.conf.OperatorEmail}},
		Subject:     fmt.Sprintf("%s: %d expense(s) expiring soon", j.conf.AppName, len(expiring)),
		TextContent: b.String(),
	})
	j.logger.Info(fmt.Sprintf("expiring expense digest sent for %d expense(s)", len(expiring)))
	return nil
}
