package union

import "time"

// SubscriptionState is the derived view of a union's subscription at a
// point in time. It never mutates the union; demotion of lapsed unions
// happens only through Service.ReconcileSubscriptionStatus.
type SubscriptionState struct {
	Usable        bool `json:"usable"`
	DaysRemaining *int `json:"days_remaining,omitempty"`
}

// Evaluate computes the subscription state of a union at `now`.
// A union is usable while its status is active and `now` has not passed
// SubscriptionEnd; the last day (now == end) is still usable. DaysRemaining
// is only reported for trial unions with an end date and is never negative.
func Evaluate(u Union, now time.Time) SubscriptionState {
	state := SubscriptionState{}

	if u.Status != StatusActive {
		return state
	}
	if u.SubscriptionEnd == nil {
		state.Usable = true
		return state
	}

	state.Usable = !u.SubscriptionEnd.Before(now)

	if u.PaymentStatus == PaymentTrial {
		days := int(u.SubscriptionEnd.Sub(now).Hours() / 24)
		if days < 0 {
			days = 0
		}
		state.DaysRemaining = &days
	}
	return state
}
