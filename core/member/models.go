package member

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/waynerigley/migslist/core"
)

// Member is a rank-and-file union member within a bucket. A member is in
// good standing exactly while a signed membership PDF is on file.
type Member struct {
	ID            string     `json:"id" db:"id"`
	BucketID      string     `json:"bucket_id" db:"bucket_id"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Email         string     `json:"email" db:"email"`
	Phone         string     `json:"phone" db:"phone"`
	AddressLine1  string     `json:"address_line1" db:"address_line1"`
	AddressLine2  string     `json:"address_line2" db:"address_line2"`
	City          string     `json:"city" db:"city"`
	State         string     `json:"state" db:"state"`
	Zip           string     `json:"zip" db:"zip"`
	PDFFilename   string     `json:"pdf_filename,omitempty" db:"pdf_filename"`
	PDFUploadedAt *time.Time `json:"pdf_uploaded_at,omitempty" db:"pdf_uploaded_at"` // UTC
	RetiredAt     *time.Time `json:"retired_at,omitempty" db:"retired_at"`           // UTC; nil = active
	RetiredReason string     `json:"retired_reason,omitempty" db:"retired_reason"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"` // UTC

	// annotations from joins
	BucketName   string `json:"bucket_name,omitempty" db:"bucket_name"`
	BucketNumber int    `json:"bucket_number,omitempty" db:"bucket_number"`
	UnionID      string `json:"union_id,omitempty" db:"union_id"`
}

func (m Member) FullName() string {
	if m.FirstName == "" {
		return m.LastName
	}
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

func (m Member) InGoodStanding() bool { return m.PDFFilename != "" }
func (m Member) IsRetired() bool      { return m.RetiredAt != nil }

// NewMember contains information needed to create a new Member.
type NewMember struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
}

func (nm *NewMember) Validate(validate *validator.Validate) error {
	nm.FirstName = core.CleanString(nm.FirstName)
	nm.LastName = core.CleanString(nm.LastName)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Phone = core.CleanString(nm.Phone)
	nm.AddressLine1 = core.CleanString(nm.AddressLine1)
	nm.AddressLine2 = core.CleanString(nm.AddressLine2)
	nm.City = core.CleanString(nm.City)
	nm.State = core.CleanString(nm.State)
	nm.Zip = core.CleanString(nm.Zip)
	return validate.Struct(nm)
}

// UpdateMember defines what information may be provided to modify an existing Member.
type UpdateMember struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
}

func (um *UpdateMember) Validate(orig Member, validate *validator.Validate) error {
	um.FirstName = core.CleanString(um.FirstName)
	if um.FirstName == "" {
		um.FirstName = orig.FirstName
	}
	um.LastName = core.CleanString(um.LastName)
	if um.LastName == "" {
		um.LastName = orig.LastName
	}
	um.Email = core.CleanString(um.Email, true /* lower */)
	um.Phone = core.CleanString(um.Phone)
	um.AddressLine1 = core.CleanString(um.AddressLine1)
	um.AddressLine2 = core.CleanString(um.AddressLine2)
	um.City = core.CleanString(um.City)
	um.State = core.CleanString(um.State)
	um.Zip = core.CleanString(um.Zip)
	return validate.Struct(um)
}
