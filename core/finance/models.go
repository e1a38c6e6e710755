package finance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/waynerigley/migslist/core"
)

// Payment methods
const (
	PaymentMethodETransfer = "etransfer"
	PaymentMethodCheque    = "cheque"
	PaymentMethodCash      = "cash"
	PaymentMethodOther     = "other"
)

// Expense categories
const (
	CategoryHosting      = "hosting"
	CategorySoftware     = "software"
	CategoryMarketing    = "marketing"
	CategoryOffice       = "office"
	CategoryTravel       = "travel"
	CategoryProfessional = "professional_services"
	CategoryOther        = "other"
)

// Invoice statuses
const (
	InvoiceDraft   = "draft"
	InvoiceSent    = "sent"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
)

type Category struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var Categories = []Category{
	{Value: CategoryHosting, Label: "Hosting & Infrastructure"},
	{Value: CategorySoftware, Label: "Software & Subscriptions"},
	{Value: CategoryMarketing, Label: "Marketing"},
	{Value: CategoryOffice, Label: "Office"},
	{Value: CategoryTravel, Label: "Travel"},
	{Value: CategoryProfessional, Label: "Professional Services"},
	{Value: CategoryOther, Label: "Other"},
}

func validCategory(cat string) bool {
	for _, c := range Categories {
		if c.Value == cat {
			return true
		}
	}
	return false
}

// Income is money received by the operator, usually a union's subscription
// payment.
type Income struct {
	ID            string    `json:"id" db:"id"`
	Description   string    `json:"description" db:"description"`
	Amount        float64   `json:"amount" db:"amount"`
	PaymentMethod string    `json:"payment_method" db:"payment_method"`
	UnionID       string    `json:"union_id,omitempty" db:"union_id"`
	InvoiceID     string    `json:"invoice_id,omitempty" db:"invoice_id"`
	Date          time.Time `json:"date" db:"date"` // UTC
	Notes         string    `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"` // UTC

	UnionName string `json:"union_name,omitempty" db:"union_name"`
}

// Expense is an operator cost. ExpiresAt tracks renewals for recurring
// purchases (domains, licenses) so the monthly reminder can flag them.
type Expense struct {
	ID              string     `json:"id" db:"id"`
	Description     string     `json:"description" db:"description"`
	Amount          float64    `json:"amount" db:"amount"`
	Category        string     `json:"category" db:"category"`
	Vendor          string     `json:"vendor" db:"vendor"`
	Date            time.Time  `json:"date" db:"date"`                       // UTC
	ExpiresAt       *time.Time `json:"expires_at,omitempty" db:"expires_at"` // UTC
	ReceiptFilename string     `json:"receipt_filename,omitempty" db:"receipt_filename"`
	Notes           string     `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"` // UTC
}

// Invoice bills a union. Number is assigned once, transactionally, on
// creation and never reused.
type Invoice struct {
	ID          string     `json:"id" db:"id"`
	Number      string     `json:"number" db:"number"`
	UnionID     string     `json:"union_id" db:"union_id"`
	Amount      float64    `json:"amount" db:"amount"`
	Description string     `json:"description" db:"description"`
	Status      string     `json:"status" db:"status"`
	IssuedDate  time.Time  `json:"issued_date" db:"issued_date"` // UTC
	DueDate     time.Time  `json:"due_date" db:"due_date"`       // UTC
	SentAt      *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	Notes       string     `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"` // UTC

	UnionName string `json:"union_name,omitempty" db:"union_name"`
}

// Outstanding reports whether money is still owed on the invoice.
func (inv Invoice) Outstanding() bool {
	return inv.Status == InvoiceSent || inv.Status == InvoiceOverdue
}

// MonthlyTotal is one month's aggregate for yearly report charts.
type MonthlyTotal struct {
	Month int     `json:"month"` // 1 - 12
	Total float64 `json:"total"`
}

// YearlySummary aggregates a calendar year of operator bookkeeping.
type YearlySummary struct {
	Year            int                `json:"year"`
	TotalIncome     float64            `json:"total_income"`
	TotalExpenses   float64            `json:"total_expenses"`
	Net             float64            `json:"net"`
	IncomeByMonth   []MonthlyTotal     `json:"income_by_month"`
	ExpensesByMonth []MonthlyTotal     `json:"expenses_by_month"`
	ByCategory      map[string]float64 `json:"by_category"`
}

// InvoiceStats summarizes invoices for the finance dashboard.
type InvoiceStats struct {
	DraftCount        int     `json:"draft_count"`
	SentCount         int     `json:"sent_count"`
	PaidCount         int     `json:"paid_count"`
	OverdueCount      int     `json:"overdue_count"`
	OutstandingAmount float64 `json:"outstanding_amount"`
}

// Inputs

type NewIncome struct {
	Description   string    `json:"description" validate:"required"`
	Amount        float64   `json:"amount" validate:"required,gt=0"`
	PaymentMethod string    `json:"payment_method"`
	UnionID       string    `json:"union_id"`
	InvoiceID     string    `json:"invoice_id"`
	Date          time.Time `json:"date"`
	Notes         string    `json:"notes"`
}

func (ni *NewIncome) Validate(validate *validator.Validate) error {
	ni.Description = core.CleanString(ni.Description)
	ni.PaymentMethod = core.CleanString(ni.PaymentMethod, true /* lower */)
	if ni.PaymentMethod == "" {
		ni.PaymentMethod = PaymentMethodETransfer
	}
	if ni.Date.IsZero() {
		ni.Date = time.Now().UTC()
	}
	ni.Notes = core.CleanString(ni.Notes)
	return validate.Struct(ni)
}

type NewExpense struct {
	Description string     `json:"description" validate:"required"`
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	Category    string     `json:"category" validate:"required,expensecategory"`
	Vendor      string     `json:"vendor"`
	Date        time.Time  `json:"date"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Notes       string     `json:"notes"`
}

func (ne *NewExpense) Validate(validate *validator.Validate) error {
	ne.Description = core.CleanString(ne.Description)
	ne.Category = core.CleanString(ne.Category, true /* lower */)
	ne.Vendor = core.CleanString(ne.Vendor)
	if ne.Date.IsZero() {
		ne.Date = time.Now().UTC()
	}
	ne.Notes = core.CleanString(ne.Notes)
	return validate.Struct(ne)
}

type NewInvoice struct {
	UnionID     string    `json:"union_id" validate:"required"`
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	Description string    `json:"description" validate:"required"`
	DueDate     time.Time `json:"due_date"`
	Notes       string    `json:"notes"`
}

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.Description = core.CleanString(ni.Description)
	ni.Notes = core.CleanString(ni.Notes)
	return validate.Struct(ni)
}

type UpdateInvoice struct {
	Amount      float64   `json:"amount" validate:"omitempty,gt=0"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	Notes       string    `json:"notes"`
}
