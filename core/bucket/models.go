package bucket

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/waynerigley/migslist/core"
)

// Bucket is a numbered grouping of members within a union (a local, a
// chapter, a shop floor). The union's master agreement PDF can be attached
// to it for distribution.
type Bucket struct {
	ID                string     `json:"id" db:"id"`
	UnionID           string     `json:"union_id" db:"union_id"`
	Number            int        `json:"number" db:"number"`
	Name              string     `json:"name" db:"name"`
	MasterPDFFilename string     `json:"master_pdf_filename,omitempty" db:"master_pdf_filename"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty" db:"deleted_at"` // UTC; nil = live
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`           // UTC
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`           // UTC

	// listing annotations
	MemberCount       int    `json:"member_count,omitempty" db:"member_count"`
	GoodStandingCount int    `json:"good_standing_count,omitempty" db:"good_standing_count"`
	UnionName         string `json:"union_name,omitempty" db:"union_name"`
}

func (b Bucket) IsDeleted() bool { return b.DeletedAt != nil }

// NewBucket contains information needed to create a new Bucket.
type NewBucket struct {
	Number int    `json:"number" validate:"required,min=1"`
	Name   string `json:"name" validate:"required"`
}

func (nb *NewBucket) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	return validate.Struct(nb)
}

// UpdateBucket defines what information may be provided to modify an existing Bucket.
type UpdateBucket struct {
	Number int    `json:"number" validate:"omitempty,min=1"`
	Name   string `json:"name"`
}

func (ub *UpdateBucket) Validate(orig Bucket, validate *validator.Validate) error {
	if ub.Number == 0 {
		ub.Number = orig.Number
	}
	ub.Name = core.CleanString(ub.Name)
	if ub.Name == "" {
		ub.Name = orig.Name
	}
	return validate.Struct(ub)
}
