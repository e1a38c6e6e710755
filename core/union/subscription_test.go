package union

import (
	"testing"
	"time"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	tPtr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name     string
		union    Union
		want     bool
		wantDays *int
	}{
		{
			name:  "pending union not usable",
			union: Union{Status: StatusPending, PaymentStatus: PaymentUnpaid},
		},
		{
			name:  "expired status not usable even with future end",
			union: Union{Status: StatusExpired, PaymentStatus: PaymentExpired, SubscriptionEnd: tPtr(now.AddDate(0, 1, 0))},
		},
		{
			name:  "active without end date usable",
			union: Union{Status: StatusActive, PaymentStatus: PaymentFree},
			want:  true,
		},
		{
			name:  "active paid within window usable",
			union: Union{Status: StatusActive, PaymentStatus: PaymentPaid, SubscriptionEnd: tPtr(now.AddDate(0, 6, 0))},
			want:  true,
		},
		{
			name:  "end exactly now still usable",
			union: Union{Status: StatusActive, PaymentStatus: PaymentPaid, SubscriptionEnd: tPtr(now)},
			want:  true,
		},
		{
			name:  "end just past not usable",
			union: Union{Status: StatusActive, PaymentStatus: PaymentPaid, SubscriptionEnd: tPtr(now.Add(-time.Second))},
		},
		{
			name:     "trial reports days remaining",
			union:    Union{Status: StatusActive, PaymentStatus: PaymentTrial, SubscriptionEnd: tPtr(now.AddDate(0, 0, 10))},
			want:     true,
			wantDays: intPtr(10),
		},
		{
			name:     "trial on last day reports zero days",
			union:    Union{Status: StatusActive, PaymentStatus: PaymentTrial, SubscriptionEnd: tPtr(now.Add(2 * time.Hour))},
			want:     true,
			wantDays: intPtr(0),
		},
		{
			name:  "paid union reports no days remaining",
			union: Union{Status: StatusActive, PaymentStatus: PaymentPaid, SubscriptionEnd: tPtr(now.AddDate(0, 0, 10))},
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Evaluate(tt.union, now)
			if state.Usable != tt.want {
				t.Errorf("Evaluate().Usable = %v, want %v", state.Usable, tt.want)
			}
			if (state.DaysRemaining == nil) != (tt.wantDays == nil) {
				t.Fatalf("Evaluate().DaysRemaining = %v, want %v", state.DaysRemaining, tt.wantDays)
			}
			if tt.wantDays != nil && *state.DaysRemaining != *tt.wantDays {
				t.Errorf("Evaluate().DaysRemaining = %d, want %d", *state.DaysRemaining, *tt.wantDays)
			}
		})
	}
}

func intPtr(i int) *int { return &i }
