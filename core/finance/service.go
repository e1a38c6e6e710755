package finance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
)

const expiryWarningWindow = 30 * 24 * time.Hour

var (
	// errors
	ErrIncomeNotFound  = errors.New("income record not found")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrInvalidStatus   = errors.New("invalid invoice status transition")
)

type (
	Repository interface {
		// incomes
		CreateIncome(ctx context.Context, in Income) (Income, error)
		GetIncomeByID(ctx context.Context, id string) (Income, error)
		QueryIncomesByYear(ctx context.Context, year int) ([]Income, error)
		QueryRecentIncomes(ctx context.Context, limit int) ([]Income, error)
		UpdateIncome(ctx context.Context, in Income) (Income, error)
		DeleteIncome(ctx context.Context, id string) error

		// expenses
		CreateExpense(ctx context.Context, ex Expense) (Expense, error)
		GetExpenseByID(ctx context.Context, id string) (Expense, error)
		QueryExpensesByYear(ctx context.Context, year int) ([]Expense, error)
		QueryRecentExpenses(ctx context.Context, limit int) ([]Expense, error)
		// QueryExpensesExpiringBy returns expenses with an expiry date between
		// now and the deadline, oldest expiry first.
		QueryExpensesExpiringBy(ctx context.Context, now, deadline time.Time) ([]Expense, error)
		QueryExpenseVendors(ctx context.Context) ([]string, error)
		UpdateExpense(ctx context.Context, ex Expense) (Expense, error)
		DeleteExpense(ctx context.Context, id string) error

		// invoices
		// CreateInvoice assigns the next INV-<year>-NNN number from the
		// per-year counter in the same transaction as the insert.
		CreateInvoice(ctx context.Context, inv Invoice, year int) (Invoice, error)
		GetInvoiceByID(ctx context.Context, id string) (Invoice, error)
		QueryAllInvoices(ctx context.Context) ([]Invoice, error)
		QueryInvoicesByStatus(ctx context.Context, status string) ([]Invoice, error)
		QueryInvoicesByYear(ctx context.Context, year int) ([]Invoice, error)
		QueryInvoicesByUnion(ctx context.Context, unionID string) ([]Invoice, error)
		UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		DeleteInvoice(ctx context.Context, id string) error
		// MarkInvoicesOverdue flips sent invoices whose due date has passed.
		MarkInvoicesOverdue(ctx context.Context, now time.Time) (int, error)
	}

	ServiceInterface interface {
		// incomes
		CreateIncome(ctx context.Context, ni NewIncome) (Income, error)
		GetIncome(ctx context.Context, id string) (Income, error)
		QueryIncomesByYear(ctx context.Context, year int) ([]Income, error)
		QueryRecentIncomes(ctx context.Context, limit int) ([]Income, error)
		UpdateIncome(ctx context.Context, id string, ni NewIncome) (Income, error)
		DeleteIncome(ctx context.Context, id string) error

		// expenses
		CreateExpense(ctx context.Context, ne NewExpense) (Expense, error)
		GetExpense(ctx context.Context, id string) (Expense, error)
		QueryExpensesByYear(ctx context.Context, year int) ([]Expense, error)
		QueryRecentExpenses(ctx context.Context, limit int) ([]Expense, error)
		QueryExpiringExpenses(ctx context.Context, now time.Time) ([]Expense, error)
		Vendors(ctx context.Context) ([]string, error)
		UpdateExpense(ctx context.Context, id string, ne NewExpense) (Expense, error)
		SetExpenseReceipt(ctx context.Context, id, filename string) (Expense, error)
		DeleteExpense(ctx context.Context, id string) error

		// invoices
		CreateInvoice(ctx context.Context, ni NewInvoice) (Invoice, error)
		GetInvoice(ctx context.Context, id string) (Invoice, error)
		QueryInvoices(ctx context.Context) ([]Invoice, error)
		QueryInvoicesByStatus(ctx context.Context, status string) ([]Invoice, error)
		QueryInvoicesByYear(ctx context.Context, year int) ([]Invoice, error)
		QueryInvoicesByUnion(ctx context.Context, unionID string) ([]Invoice, error)
		QueryOutstandingInvoices(ctx context.Context) ([]Invoice, error)
		UpdateInvoice(ctx context.Context, id string, ui UpdateInvoice) (Invoice, error)
		MarkInvoiceSent(ctx context.Context, id string) (Invoice, error)
		MarkInvoicePaid(ctx context.Context, id string) (Invoice, error)
		DeleteInvoice(ctx context.Context, id string) error
		SweepOverdue(ctx context.Context, now time.Time) (int, error)
		InvoiceStats(ctx context.Context) (InvoiceStats, error)

		// reports
		YearlySummary(ctx context.Context, year int) (YearlySummary, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Incomes

func (svc *Service) CreateIncome(ctx context.Context, ni NewIncome) (Income, error) {
	now := time.Now().UTC()
	in := Income{
		Description:   ni.Description,
		Amount:        ni.Amount,
		PaymentMethod: ni.PaymentMethod,
		UnionID:       ni.UnionID,
		InvoiceID:     ni.InvoiceID,
		Date:          ni.Date.UTC(),
		Notes:         ni.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateIncome(ctx, in)
}

func (svc *Service) GetIncome(ctx context.Context, id string) (Income, error) {
	return svc.repo.GetIncomeByID(ctx, id)
}

func (svc *Service) QueryIncomesByYear(ctx context.Context, year int) ([]Income, error) {
	return svc.repo.QueryIncomesByYear(ctx, year)
}

func (svc *Service) QueryRecentIncomes(ctx context.Context, limit int) ([]Income, error) {
	return svc.repo.QueryRecentIncomes(ctx, limit)
}

func (svc *Service) UpdateIncome(ctx context.Context, id string, ni NewIncome) (Income, error) {
	in, err := svc.repo.GetIncomeByID(ctx, id)
	if err != nil {
		return Income{}, err
	}
	in.Description = ni.Description
	in.Amount = ni.Amount
	in.PaymentMethod = ni.PaymentMethod
	in.UnionID = ni.UnionID
	in.InvoiceID = ni.InvoiceID
	in.Date = ni.Date.UTC()
	in.Notes = ni.Notes
	in.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateIncome(ctx, in)
}

func (svc *Service) DeleteIncome(ctx context.Context, id string) error {
	return svc.repo.DeleteIncome(ctx, id)
}

// Expenses

func (svc *Service) CreateExpense(ctx context.Context, ne NewExpense) (Expense, error) {
	now := time.Now().UTC()
	ex := Expense{
		Description: ne.Description,
		Amount:      ne.Amount,
		Category:    ne.Category,
		Vendor:      ne.Vendor,
		Date:        ne.Date.UTC(),
		ExpiresAt:   ne.ExpiresAt,
		Notes:       ne.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateExpense(ctx, ex)
}

func (svc *Service) GetExpense(ctx context.Context, id string) (Expense, error) {
	return svc.repo.GetExpenseByID(ctx, id)
}

func (svc *Service) QueryExpensesByYear(ctx context.Context, year int) ([]Expense, error) {
	return svc.repo.QueryExpensesByYear(ctx, year)
}

func (svc *Service) QueryRecentExpenses(ctx context.Context, limit int) ([]Expense, error) {
	return svc.repo.QueryRecentExpenses(ctx, limit)
}

// QueryExpiringExpenses returns expenses expiring within the warning window,
// already-expired ones included.
func (svc *Service) QueryExpiringExpenses(ctx context.Context, now time.Time) ([]Expense, error) {
	return svc.repo.QueryExpensesExpiringBy(ctx, time.Time{}, now.Add(expiryWarningWindow))
}

func (svc *Service) Vendors(ctx context.Context) ([]string, error) {
	return svc.repo.QueryExpenseVendors(ctx)
}

func (svc *Service) UpdateExpense(ctx context.Context, id string, ne NewExpense) (Expense, error) {
	ex, err := svc.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	ex.Description = ne.Description
	ex.Amount = ne.Amount
	ex.Category = ne.Category
	ex.Vendor = ne.Vendor
	ex.Date = ne.Date.UTC()
	ex.ExpiresAt = ne.ExpiresAt
	ex.Notes = ne.Notes
	ex.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateExpense(ctx, ex)
}

func (svc *Service) SetExpenseReceipt(ctx context.Context, id, filename string) (Expense, error) {
	ex, err := svc.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	ex.ReceiptFilename = filename
	ex.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateExpense(ctx, ex)
}

func (svc *Service) DeleteExpense(ctx context.Context, id string) error {
	return svc.repo.DeleteExpense(ctx, id)
}

// Invoices

func (svc *Service) CreateInvoice(ctx context.Context, ni NewInvoice) (Invoice, error) {
	now := time.Now().UTC()
	due := ni.DueDate
	if due.IsZero() {
		due = now.AddDate(0, 1, 0)
	}
	inv := Invoice{
		UnionID:     ni.UnionID,
		Amount:      ni.Amount,
		Description: ni.Description,
		Status:      InvoiceDraft,
		IssuedDate:  now,
		DueDate:     due.UTC(),
		Notes:       ni.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateInvoice(ctx, inv, now.Year())
}

func (svc *Service) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoiceByID(ctx, id)
}

func (svc *Service) QueryInvoices(ctx context.Context) ([]Invoice, error) {
	return svc.repo.QueryAllInvoices(ctx)
}

func (svc *Service) QueryInvoicesByStatus(ctx context.Context, status string) ([]Invoice, error) {
	return svc.repo.QueryInvoicesByStatus(ctx, status)
}

func (svc *Service) QueryInvoicesByYear(ctx context.Context, year int) ([]Invoice, error) {
	return svc.repo.QueryInvoicesByYear(ctx, year)
}

func (svc *Service) QueryInvoicesByUnion(ctx context.Context, unionID string) ([]Invoice, error) {
	return svc.repo.QueryInvoicesByUnion(ctx, unionID)
}

func (svc *Service) QueryOutstandingInvoices(ctx context.Context) ([]Invoice, error) {
	all, err := svc.repo.QueryAllInvoices(ctx)
	if err != nil {
		return nil, err
	}
	outstanding := make([]Invoice, 0, len(all))
	for _, inv := range all {
		if inv.Outstanding() {
			outstanding = append(outstanding, inv)
		}
	}
	return outstanding, nil
}

// UpdateInvoice edits a draft invoice's details. The number and status are
// not editable here.
func (svc *Service) UpdateInvoice(ctx context.Context, id string, ui UpdateInvoice) (Invoice, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if ui.Amount > 0 {
		inv.Amount = ui.Amount
	}
	if desc := core.CleanString(ui.Description); desc != "" {
		inv.Description = desc
	}
	if !ui.DueDate.IsZero() {
		inv.DueDate = ui.DueDate.UTC()
	}
	if notes := core.CleanString(ui.Notes); notes != "" {
		inv.Notes = notes
	}
	inv.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *Service) MarkInvoiceSent(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != InvoiceDraft {
		return Invoice{}, ErrInvalidStatus
	}
	now := time.Now().UTC()
	inv.Status = InvoiceSent
	inv.SentAt = &now
	inv.UpdatedAt = now
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *Service) MarkInvoicePaid(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if !inv.Outstanding() {
		return Invoice{}, ErrInvalidStatus
	}
	now := time.Now().UTC()
	inv.Status = InvoicePaid
	inv.PaidAt = &now
	inv.UpdatedAt = now
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *Service) DeleteInvoice(ctx context.Context, id string) error {
	return svc.repo.DeleteInvoice(ctx, id)
}

// SweepOverdue flips sent invoices past their due date to overdue. It runs
// before invoice listings and from the reminders job; overdue is derived
// from dates, never set by hand.
func (svc *Service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	return svc.repo.MarkInvoicesOverdue(ctx, now)
}

func (svc *Service) InvoiceStats(ctx context.Context) (InvoiceStats, error) {
	all, err := svc.repo.QueryAllInvoices(ctx)
	if err != nil {
		return InvoiceStats{}, err
	}
	var stats InvoiceStats
	for _, inv := range all {
		switch inv.Status {
		case InvoiceDraft:
			stats.DraftCount++
		case InvoiceSent:
			stats.SentCount++
		case InvoicePaid:
			stats.PaidCount++
		case InvoiceOverdue:
			stats.OverdueCount++
		}
		if inv.Outstanding() {
			stats.OutstandingAmount += inv.Amount
		}
	}
	return stats, nil
}

// Reports

func (svc *Service) YearlySummary(ctx context.Context, year int) (YearlySummary, error) {
	incomes, err := svc.repo.QueryIncomesByYear(ctx, year)
	if err != nil {
		return YearlySummary{}, err
	}
	expenses, err := svc.repo.QueryExpensesByYear(ctx, year)
	if err != nil {
		return YearlySummary{}, err
	}

	sum := YearlySummary{
		Year:            year,
		IncomeByMonth:   make([]MonthlyTotal, 12),
		ExpensesByMonth: make([]MonthlyTotal, 12),
		ByCategory:      make(map[string]float64),
	}
	for i := range sum.IncomeByMonth {
		sum.IncomeByMonth[i].Month = i + 1
		sum.ExpensesByMonth[i].Month = i + 1
	}
	for _, in := range incomes {
		sum.TotalIncome += in.Amount
		sum.IncomeByMonth[in.Date.UTC().Month()-1].Total += in.Amount
	}
	for _, ex := range expenses {
		sum.TotalExpenses += ex.Amount
		sum.ExpensesByMonth[ex.Date.UTC().Month()-1].Total += ex.Amount
		sum.ByCategory[ex.Category] += ex.Amount
	}
	sum.Net = sum.TotalIncome - sum.TotalExpenses
	return sum, nil
}
