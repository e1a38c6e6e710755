package signup

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/waynerigley/migslist/core"
)

// Statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Request is a prospective union's application, filed from the public site
// and reviewed by the operator.
type Request struct {
	ID             string     `json:"id" db:"id"`
	UnionName      string     `json:"union_name" db:"union_name"`
	ContactName    string     `json:"contact_name" db:"contact_name"`
	ContactEmail   string     `json:"contact_email" db:"contact_email"`
	ContactPhone   string     `json:"contact_phone" db:"contact_phone"`
	AdminFirstName string     `json:"admin_first_name" db:"admin_first_name"`
	AdminLastName  string     `json:"admin_last_name" db:"admin_last_name"`
	AdminEmail     string     `json:"admin_email" db:"admin_email"`
	Status         string     `json:"status" db:"status"`
	Notes          string     `json:"notes,omitempty" db:"notes"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty" db:"processed_at"` // UTC
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`               // UTC
}

// NewRequest contains information needed to file a signup Request.
type NewRequest struct {
	UnionName      string `json:"union_name" validate:"required"`
	ContactName    string `json:"contact_name" validate:"required"`
	ContactEmail   string `json:"contact_email" validate:"required,email"`
	ContactPhone   string `json:"contact_phone" validate:"omitempty,phone"`
	AdminFirstName string `json:"admin_first_name" validate:"required"`
	AdminLastName  string `json:"admin_last_name" validate:"required"`
	AdminEmail     string `json:"admin_email" validate:"required,email"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.UnionName = core.CleanString(nr.UnionName)
	nr.ContactName = core.CleanString(nr.ContactName)
	nr.ContactEmail = core.CleanString(nr.ContactEmail, true /* lower */)
	nr.ContactPhone = core.CleanString(nr.ContactPhone)
	nr.AdminFirstName = core.CleanString(nr.AdminFirstName)
	nr.AdminLastName = core.CleanString(nr.AdminLastName)
	nr.AdminEmail = core.CleanString(nr.AdminEmail, true /* lower */)
	return validate.Struct(nr)
}
