package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core/finance"
)

const (
	incomeColumns = `
	i.id, i.description, i.amount, i.payment_method,
	COALESCE(i.union_id::text, '') AS union_id, COALESCE(i.invoice_id::text, '') AS invoice_id,
	i.date, i.notes, i.created_at, i.updated_at,
	COALESCE((SELECT u.name FROM unions u WHERE u.id = i.union_id), '') AS union_name`

	expenseColumns = `
	e.id, e.description, e.amount, e.category, e.vendor, e.date, e.expires_at,
	e.receipt_filename, e.notes, e.created_at, e.updated_at`

	invoiceColumns = `
	v.id, v.number, v.union_id, v.amount, v.description, v.status, v.issued_date, v.due_date,
	v.sent_at, v.paid_at, v.notes, v.created_at, v.updated_at,
	COALESCE((SELECT u.name FROM unions u WHERE u.id = v.union_id), '') AS union_name`
)

type financeRepository struct {
	db *sqlx.DB
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *sqlx.DB) *financeRepository {
	return &financeRepository{db: db}
}

// Incomes

func (repo financeRepository) CreateIncome(ctx context.Context, in finance.Income) (finance.Income, error) {
	in.ID = uuid.New().String()
	query := `
	INSERT INTO incomes (id, description, amount, payment_method, union_id, invoice_id, date, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, NULLIF($6, '')::uuid, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, query,
		in.ID, in.Description, in.Amount, in.PaymentMethod, in.UnionID, in.InvoiceID,
		in.Date, in.Notes, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return finance.Income{}, errors.Wrap(err, "creating income")
	}
	return repo.GetIncomeByID(ctx, in.ID)
}

func (repo financeRepository) GetIncomeByID(ctx context.Context, id string) (finance.Income, error) {
	var in finance.Income
	query := `SELECT` + incomeColumns + ` FROM incomes i WHERE i.id = $1`
	if err := repo.db.GetContext(ctx, &in, query, id); err != nil {
		if isNoRows(err) {
			return finance.Income{}, finance.ErrIncomeNotFound
		}
		return finance.Income{}, errors.Wrap(err, "getting income")
	}
	return in, nil
}

func (repo financeRepository) QueryIncomesByYear(ctx context.Context, year int) ([]finance.Income, error) {
	incomes := make([]finance.Income, 0)
	query := `SELECT` + incomeColumns + ` FROM incomes i WHERE EXTRACT(YEAR FROM i.date AT TIME ZONE 'UTC') = $1 ORDER BY i.date DESC`
	if err := repo.db.SelectContext(ctx, &incomes, query, year); err != nil {
		return nil, errors.Wrap(err, "querying incomes")
	}
	return incomes, nil
}

func (repo financeRepository) QueryRecentIncomes(ctx context.Context, limit int) ([]finance.Income, error) {
	incomes := make([]finance.Income, 0)
	query := `SELECT` + incomeColumns + ` FROM incomes i ORDER BY i.date DESC LIMIT $1`
	if err := repo.db.SelectContext(ctx, &incomes, query, limit); err != nil {
		return nil, errors.Wrap(err, "querying recent incomes")
	}
	return incomes, nil
}

func (repo financeRepository) UpdateIncome(ctx context.Context, in finance.Income) (finance.Income, error) {
	query := `
	UPDATE incomes SET
		description = $2, amount = $3, payment_method = $4,
		union_id = NULLIF($5, '')::uuid, invoice_id = NULLIF($6, '')::uuid,
		date = $7, notes = $8, updated_at = $9
	WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		in.ID, in.Description, in.Amount, in.PaymentMethod, in.UnionID, in.InvoiceID,
		in.Date, in.Notes, in.UpdatedAt,
	)
	if err != nil {
		return finance.Income{}, errors.Wrap(err, "updating income")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return finance.Income{}, finance.ErrIncomeNotFound
	}
	return repo.GetIncomeByID(ctx, in.ID)
}

func (repo financeRepository) DeleteIncome(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting income")
	}
	return nil
}

// Expenses

func (repo financeRepository) CreateExpense(ctx context.Context, ex finance.Expense) (finance.Expense, error) {
	ex.ID = uuid.New().String()
	query := `
	INSERT INTO expenses (id, description, amount, category, vendor, date, expires_at, receipt_filename, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, query,
		ex.ID, ex.Description, ex.Amount, ex.Category, ex.Vendor, ex.Date, ex.ExpiresAt,
		ex.ReceiptFilename, ex.Notes, ex.CreatedAt, ex.UpdatedAt,
	)
	if err != nil {
		return finance.Expense{}, errors.Wrap(err, "creating expense")
	}
	return repo.GetExpenseByID(ctx, ex.ID)
}

func (repo financeRepository) GetExpenseByID(ctx context.Context, id string) (finance.Expense, error) {
	var ex finance.Expense
	query := `SELECT` + expenseColumns + ` FROM expenses e WHERE e.id = $1`
	if err := repo.db.GetContext(ctx, &ex, query, id); err != nil {
		if isNoRows(err) {
			return finance.Expense{}, finance.ErrExpenseNotFound
		}
		return finance.Expense{}, errors.Wrap(err, "getting expense")
	}
	return ex, nil
}

func (repo financeRepository) QueryExpensesByYear(ctx context.Context, year int) ([]finance.Expense, error) {
	expenses := make([]finance.Expense, 0)
	query := `SELECT` + expenseColumns + ` FROM expenses e WHERE EXTRACT(YEAR FROM e.date AT TIME ZONE 'UTC') = $1 ORDER BY e.date DESC`
	if err := repo.db.SelectContext(ctx, &expenses, query, year); err != nil {
		return nil, errors.Wrap(err, "querying expenses")
	}
	return expenses, nil
}

func (repo financeRepository) QueryRecentExpenses(ctx context.Context, limit int) ([]finance.Expense, error) {
	expenses := make([]finance.Expense, 0)
	query := `SELECT` + expenseColumns + ` FROM expenses e ORDER BY e.date DESC LIMIT $1`
	if err := repo.db.SelectContext(ctx, &expenses, query, limit); err != nil {
		return nil, errors.Wrap(err, "querying recent expenses")
	}
	return expenses, nil
}

func (repo financeRepository) QueryExpensesExpiringBy(ctx context.Context, now, deadline time.Time) ([]finance.Expense, error) {
	expenses := make([]finance.Expense, 0)
	query := `
	SELECT` + expenseColumns + `
	FROM expenses e
	WHERE e.expires_at IS NOT NULL AND e.expires_at >= $1 AND e.expires_at <= $2
	ORDER BY e.expires_at`
	if err := repo.db.SelectContext(ctx, &expenses, query, now, deadline); err != nil {
		return nil, errors.Wrap(err, "querying expiring expenses")
	}
	return expenses, nil
}

func (repo financeRepository) QueryExpenseVendors(ctx context.Context) ([]string, error) {
	vendors := make([]string, 0)
	query := `SELECT DISTINCT vendor FROM expenses WHERE vendor <> '' ORDER BY vendor`
	if err := repo.db.SelectContext(ctx, &vendors, query); err != nil {
		return nil, errors.Wrap(err, "querying vendors")
	}
	return vendors, nil
}

func (repo financeRepository) UpdateExpense(ctx context.Context, ex finance.Expense) (finance.Expense, error) {
	query := `
	UPDATE expenses SET
		description = $2, amount = $3, category = $4, vendor = $5, date = $6,
		expires_at = $7, receipt_filename = $8, notes = $9, updated_at = $10
	WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		ex.ID, ex.Description, ex.Amount, ex.Category, ex.Vendor, ex.Date,
		ex.ExpiresAt, ex.ReceiptFilename, ex.Notes, ex.UpdatedAt,
	)
	if err != nil {
		return finance.Expense{}, errors.Wrap(err, "updating expense")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return finance.Expense{}, finance.ErrExpenseNotFound
	}
	return repo.GetExpenseByID(ctx, ex.ID)
}

func (repo financeRepository) DeleteExpense(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	return nil
}

// Invoices

// CreateInvoice bumps the per-year counter and inserts the numbered invoice
// in one transaction, so concurrent creations never share a number.
func (repo financeRepository) CreateInvoice(ctx context.Context, inv finance.Invoice, year int) (finance.Invoice, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return finance.Invoice{}, errors.Wrap(err, "beginning invoice transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	counterQuery := `
	INSERT INTO invoice_counters (year, n) VALUES ($1, 1)
	ON CONFLICT (year) DO UPDATE SET n = invoice_counters.n + 1
	RETURNING n`
	if err = tx.GetContext(ctx, &n, counterQuery, year); err != nil {
		return finance.Invoice{}, errors.Wrap(err, "allocating invoice number")
	}

	inv.ID = uuid.New().String()
	inv.Number = fmt.Sprintf("INV-%d-%03d", year, n)
	query := `
	INSERT INTO invoices (id, number, union_id, amount, description, status, issued_date, due_date, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.ExecContext(ctx, query,
		inv.ID, inv.Number, inv.UnionID, inv.Amount, inv.Description, inv.Status,
		inv.IssuedDate, inv.DueDate, inv.Notes, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return finance.Invoice{}, errors.Wrap(err, "creating invoice")
	}
	if err = tx.Commit(); err != nil {
		return finance.Invoice{}, errors.Wrap(err, "committing invoice")
	}
	return repo.GetInvoiceByID(ctx, inv.ID)
}

func (repo financeRepository) GetInvoiceByID(ctx context.Context, id string) (finance.Invoice, error) {
	var inv finance.Invoice
	query := `SELECT` + invoiceColumns + ` FROM invoices v WHERE v.id = $1`
	if err := repo.db.GetContext(ctx, &inv, query, id); err != nil {
		if isNoRows(err) {
			return finance.Invoice{}, finance.ErrInvoiceNotFound
		}
		return finance.Invoice{}, errors.Wrap(err, "getting invoice")
	}
	return inv, nil
}

func (repo financeRepository) QueryAllInvoices(ctx context.Context) ([]finance.Invoice, error) {
	invoices := make([]finance.Invoice, 0)
	query := `SELECT` + invoiceColumns + ` FROM invoices v ORDER BY v.created_at DESC`
	if err := repo.db.SelectContext(ctx, &invoices, query); err != nil {
		return nil, errors.Wrap(err, "querying invoices")
	}
	return invoices, nil
}

func (repo financeRepository) QueryInvoicesByStatus(ctx context.Context, status string) ([]finance.Invoice, error) {
	invoices := make([]finance.Invoice, 0)
	query := `SELECT` + invoiceColumns + ` FROM invoices v WHERE v.status = $1 ORDER BY v.created_at DESC`
	if err := repo.db.SelectContext(ctx, &invoices, query, status); err != nil {
		return nil, errors.Wrap(err, "querying invoices by status")
	}
	return invoices, nil
}

func (repo financeRepository) QueryInvoicesByYear(ctx context.Context, year int) ([]finance.Invoice, error) {
	invoices := make([]finance.Invoice, 0)
	query := `SELECT` + invoiceColumns + ` FROM invoices v WHERE EXTRACT(YEAR FROM v.issued_date AT TIME ZONE 'UTC') = $1 ORDER BY v.created_at DESC`
	if err := repo.db.SelectContext(ctx, &invoices, query, year); err != nil {
		return nil, errors.Wrap(err, "querying invoices by year")
	}
	return invoices, nil
}

func (repo financeRepository) QueryInvoicesByUnion(ctx context.Context, unionID string) ([]finance.Invoice, error) {
	invoices := make([]finance.Invoice, 0)
	query := `SELECT` + invoiceColumns + ` FROM invoices v WHERE v.union_id = $1 ORDER BY v.created_at DESC`
	if err := repo.db.SelectContext(ctx, &invoices, query, unionID); err != nil {
		return nil, errors.Wrap(err, "querying union invoices")
	}
	return invoices, nil
}

func (repo financeRepository) UpdateInvoice(ctx context.Context, inv finance.Invoice) (finance.Invoice, error) {
	query := `
	UPDATE invoices SET
		amount = $2, description = $3, status = $4, due_date = $5,
		sent_at = $6, paid_at = $7, notes = $8, updated_at = $9
	WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		inv.ID, inv.Amount, inv.Description, inv.Status, inv.DueDate,
		inv.SentAt, inv.PaidAt, inv.Notes, inv.UpdatedAt,
	)
	if err != nil {
		return finance.Invoice{}, errors.Wrap(err, "updating invoice")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return finance.Invoice{}, finance.ErrInvoiceNotFound
	}
	return repo.GetInvoiceByID(ctx, inv.ID)
}

func (repo financeRepository) DeleteInvoice(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting invoice")
	}
	return nil
}

func (repo financeRepository) MarkInvoicesOverdue(ctx context.Context, now time.Time) (int, error) {
	query := `UPDATE invoices SET status = $1, updated_at = $2 WHERE status = $3 AND due_date < $2`
	res, err := repo.db.ExecContext(ctx, query, finance.InvoiceOverdue, now, finance.InvoiceSent)
	if err != nil {
		return 0, errors.Wrap(err, "marking invoices overdue")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting overdue invoices")
	}
	return int(n), nil
}
