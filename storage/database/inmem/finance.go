package inmemdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/waynerigley/migslist/core/finance"
)

type financeRepository struct {
	db *DB
}

var _ finance.Repository = (*financeRepository)(nil)

func NewFinanceRepository(db *DB) *financeRepository {
	return &financeRepository{db: db}
}

// Incomes

func (repo *financeRepository) CreateIncome(_ context.Context, in finance.Income) (finance.Income, error) {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()

	in.ID = uuid.New().String()
	repo.db.finance.incomes[in.ID] = &in
	return repo.annotateIncome(in), nil
}

func (repo *financeRepository) GetIncomeByID(_ context.Context, id string) (finance.Income, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()

	in, ok := repo.db.finance.incomes[id]
	if !ok {
		return finance.Income{}, finance.ErrIncomeNotFound
	}
	return repo.annotateIncome(*in), nil
}

func (repo *financeRepository) QueryIncomesByYear(_ context.Context, year int) ([]finance.Income, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()

	incomes := make([]finance.Income, 0)
	for _, in := range repo.db.finance.incomes {
		if in.Date.UTC().Year() == year {
			incomes = append(incomes, repo.annotateIncome(*in))
		}
	}
	sort.Slice(incomes, func(i, j int) bool { return incomes[i].Date.After(incomes[j].Date) })
	return incomes, nil
}

func (repo *financeRepository) QueryRecentIncomes(_ context.Context, limit int) ([]finance.Income, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()

	incomes := make([]finance.Income, 0, len(repo.db.finance.incomes))
	for _, in := range repo.db.finance.incomes {
		incomes = append(incomes, repo.annotateIncome(*in))
	}
	sort.Slice(incomes, func(i, j int) bool { return incomes[i].Date.After(incomes[j].Date) })
	if len(incomes) > limit {
		incomes = incomes[:limit]
	}
	return incomes, nil
}

func (repo *financeRepository) UpdateIncome(_ context.Context, in finance.Income) (finance.Income, error) {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()

	orig, ok := repo.db.finance.incomes[in.ID]
	if !ok {
		return finance.Income{}, finance.ErrIncomeNotFound
	}
	in.UnionName = ""
	*orig = in
	return repo.annotateIncome(*orig), nil
}

func (repo *financeRepository) DeleteIncome(_ context.Context, id string) error {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()
	delete(repo.db.finance.incomes, id)
	return nil
}

// Expenses

func (repo *financeRepository) CreateExpense(_ context.Context, ex finance.Expense) (finance.Expense, error) {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()

	ex.ID = uuid.New().String()
	repo.db.finance.expenses[ex.ID] = &ex
	return ex, nil
}

func (repo *financeRepository) GetExpenseByID(_ context.Context, id string) (finance.Expense, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()

	ex, ok := repo.db.finance.expenses[id]
	if !ok {
		return finance.Expense{}, finance.ErrExpenseNotFound
	}
	return *ex, nil
}

func (repo *financeRepository) QueryExpensesByYear(_ context.Context, year int) ([]finance.Expense, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()

	expenses := make([]finance.Expense, 0)
	for _, ex := range repo.db.finance.expenses {
		if ex.Date.UTC().Year() == year {
			expenses = append(expenses, *ex)
		}
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].Date.After(expenses[j].Date) })
	return expenses, nil
}

func (repo *financeRepository) QueryRecentExpenses(_ context.Context, limit int) ([]finance.Expense, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()

	expenses := make([]finance.Expense, 0, len(repo.db.finance.expenses))
	for _, ex := range repo.db.finance.expenses {
		expenses = append(expenses, *ex)
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].Date.After(expenses[j].Date) })
	if len(expenses) > limit {
		expenses = expenses[:limit]
	}
	return expenses, nil
}

func (repo *financeRepository) QueryExpensesExpiringBy(_ context.Context, now, deadline time.Time) ([]finance.Expense, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()

	expenses := make([]finance.Expense, 0)
	for _, ex := range repo.db.finance.expenses {
		if ex.ExpiresAt == nil {
			continue
		}
		if ex.ExpiresAt.Before(now) || ex.ExpiresAt.After(deadline) {
			continue
		}
		expenses = append(expenses, *ex)
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].ExpiresAt.Before(*expenses[j].ExpiresAt) })
	return expenses, nil
}

func (repo *financeRepository) QueryExpenseVendors(_ context.Context) ([]string, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()

	seen := make(map[string]bool)
	vendors := make([]string, 0)
	for _, ex := range repo.db.finance.expenses {
		if ex.Vendor != "" && !seen[ex.Vendor] {
			seen[ex.Vendor] = true
			vendors = append(vendors, ex.Vendor)
		}
	}
	sort.Strings(vendors)
	return vendors, nil
}

func (repo *financeRepository) UpdateExpense(_ context.Context, ex finance.Expense) (finance.Expense, error) {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()

	orig, ok := repo.db.finance.expenses[ex.ID]
	if !ok {
		return finance.Expense{}, finance.ErrExpenseNotFound
	}
	*orig = ex
	return *orig, nil
}

func (repo *financeRepository) DeleteExpense(_ context.Context, id string) error {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()
	delete(repo.db.finance.expenses, id)
	return nil
}

// Invoices

func (repo *financeRepository) CreateInvoice(_ context.Context, inv finance.Invoice, year int) (finance.Invoice, error) {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()

	repo.db.finance.counters[year]++
	inv.ID = uuid.New().String()
	inv.Number = fmt.Sprintf("INV-%d-%03d", year, repo.db.finance.counters[year])
	repo.db.finance.invoices[inv.ID] = &inv
	return repo.annotateInvoice(inv), nil
}

func (repo *financeRepository) GetInvoiceByID(_ context.Context, id string) (finance.Invoice, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()

	inv, ok := repo.db.finance.invoices[id]
	if !ok {
		return finance.Invoice{}, finance.ErrInvoiceNotFound
	}
	return repo.annotateInvoice(*inv), nil
}

func (repo *financeRepository) QueryAllInvoices(_ context.Context) ([]finance.Invoice, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()
	return repo.queryInvoices(func(finance.Invoice) bool { return true }), nil
}

func (repo *financeRepository) QueryInvoicesByStatus(_ context.Context, status string) ([]finance.Invoice, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()
	return repo.queryInvoices(func(inv finance.Invoice) bool { return inv.Status == status }), nil
}

func (repo *financeRepository) QueryInvoicesByYear(_ context.Context, year int) ([]finance.Invoice, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()
	return repo.queryInvoices(func(inv finance.Invoice) bool { return inv.IssuedDate.UTC().Year() == year }), nil
}

func (repo *financeRepository) QueryInvoicesByUnion(_ context.Context, unionID string) ([]finance.Invoice, error) {
	repo.db.finance.mutex.RLock()
	defer repo.db.finance.mutex.RUnlock()
	return repo.queryInvoices(func(inv finance.Invoice) bool { return inv.UnionID == unionID }), nil
}

func (repo *financeRepository) UpdateInvoice(_ context.Context, inv finance.Invoice) (finance.Invoice, error) {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()

	orig, ok := repo.db.finance.invoices[inv.ID]
	if !ok {
		return finance.Invoice{}, finance.ErrInvoiceNotFound
	}
	inv.UnionName = ""
	*orig = inv
	return repo.annotateInvoice(*orig), nil
}

func (repo *financeRepository) DeleteInvoice(_ context.Context, id string) error {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()
	delete(repo.db.finance.invoices, id)
	return nil
}

func (repo *financeRepository) MarkInvoicesOverdue(_ context.Context, now time.Time) (int, error) {
	repo.db.finance.mutex.Lock()
	defer repo.db.finance.mutex.Unlock()

	var n int
	for _, inv := range repo.db.finance.invoices {
		if inv.Status == finance.InvoiceSent && inv.DueDate.Before(now) {
			inv.Status = finance.InvoiceOverdue
			inv.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// queryInvoices expects finance.mutex held. Newest issued first.
func (repo *financeRepository) queryInvoices(keep func(finance.Invoice) bool) []finance.Invoice {
	invoices := make([]finance.Invoice, 0)
	for _, inv := range repo.db.finance.invoices {
		if keep(*inv) {
			invoices = append(invoices, repo.annotateInvoice(*inv))
		}
	}
	// newest first; never compare numbers as plain strings, INV-2026-1000
	// sorts before INV-2026-999 lexicographically
	sort.Slice(invoices, func(i, j int) bool {
		a, b := invoices[i], invoices[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if len(a.Number) != len(b.Number) {
			return len(a.Number) > len(b.Number)
		}
		return a.Number > b.Number
	})
	return invoices
}

func (repo *financeRepository) annotateIncome(in finance.Income) finance.Income {
	in.UnionName = repo.unionName(in.UnionID)
	return in
}

func (repo *financeRepository) annotateInvoice(inv finance.Invoice) finance.Invoice {
	inv.UnionName = repo.unionName(inv.UnionID)
	return inv
}

func (repo *financeRepository) unionName(unionID string) string {
	if unionID == "" {
		return ""
	}
	repo.db.union.mutex.RLock()
	defer repo.db.union.mutex.RUnlock()
	if u, ok := repo.db.union.table[unionID]; ok {
		return u.Name
	}
	return ""
}
