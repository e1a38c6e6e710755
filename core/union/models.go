package union

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/waynerigley/migslist/core"
)

// Statuses
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Payment statuses
const (
	PaymentUnpaid  = "unpaid"
	PaymentTrial   = "trial"
	PaymentPaid    = "paid"
	PaymentFree    = "free"
	PaymentExpired = "expired"
)

type Union struct {
	ID                    string     `json:"id" db:"id"`
	Name                  string     `json:"name" db:"name"`
	ContactName           string     `json:"contact_name" db:"contact_name"`
	ContactEmail          string     `json:"contact_email" db:"contact_email"`
	ContactPhone          string     `json:"contact_phone" db:"contact_phone"`
	Status                string     `json:"status" db:"status"`
	PaymentStatus         string     `json:"payment_status" db:"payment_status"`
	SubscriptionStart     *time.Time `json:"subscription_start" db:"subscription_start"` // UTC
	SubscriptionEnd       *time.Time `json:"subscription_end" db:"subscription_end"`     // UTC
	PaymentReference      string     `json:"payment_reference" db:"payment_reference"`
	PaymentDate           *time.Time `json:"payment_date" db:"payment_date"`
	TrialReminder15SentAt *time.Time `json:"-" db:"trial_reminder_15_sent_at"`
	TrialReminder5SentAt  *time.Time `json:"-" db:"trial_reminder_5_sent_at"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"` // UTC
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"` // UTC

	// listing annotations, not persisted on the union row
	BucketCount int `json:"bucket_count,omitempty" db:"bucket_count"`
	MemberCount int `json:"member_count,omitempty" db:"member_count"`
}

// Stats summarizes a union for the admin dashboard.
type Stats struct {
	UnionID           string `json:"union_id"`
	BucketCount       int    `json:"bucket_count"`
	MemberCount       int    `json:"member_count"`
	GoodStandingCount int    `json:"good_standing_count"`
}

// TrialInfo is a trial union annotated with its remaining days.
type TrialInfo struct {
	Union
	DaysRemaining int `json:"days_remaining"`
}

// NewUnion contains information needed to register a new Union.
type NewUnion struct {
	Name         string `json:"name" validate:"required"`
	ContactName  string `json:"contact_name" validate:"required"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	ContactPhone string `json:"contact_phone" validate:"omitempty,phone"`
}

func (nu *NewUnion) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.ContactName = core.CleanString(nu.ContactName)
	nu.ContactEmail = core.CleanString(nu.ContactEmail, true /* lower */)
	nu.ContactPhone = core.CleanString(nu.ContactPhone)
	return validate.Struct(nu)
}

// UpdateUnion defines what information may be provided to modify an existing Union.
type UpdateUnion struct {
	Name         string `json:"name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"omitempty,phone"`
}

func (uu *UpdateUnion) Validate(orig Union, validate *validator.Validate) error {
	uu.Name = core.CleanString(uu.Name)
	if uu.Name == "" {
		uu.Name = orig.Name
	}
	uu.ContactName = core.CleanString(uu.ContactName)
	if uu.ContactName == "" {
		uu.ContactName = orig.ContactName
	}
	email := core.CleanString(uu.ContactEmail, true /* lower */)
	if email != "" {
		uu.ContactEmail = email
	} else {
		uu.ContactEmail = orig.ContactEmail
	}
	uu.ContactPhone = core.CleanString(uu.ContactPhone)
	if uu.ContactPhone == "" {
		uu.ContactPhone = orig.ContactPhone
	}
	return validate.Struct(uu)
}
