package finance_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/waynerigley/migslist/core/finance"
	inmemdb "github.com/waynerigley/migslist/storage/database/inmem"
)

func Test_Service_invoiceNumbersAreUniquePerYear(t *testing.T) {
	db := inmemdb.Open()
	svc := finance.NewService(inmemdb.NewFinanceRepository(db))
	ctx := context.Background()

	const n = 25
	numbers := make(chan string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv, err := svc.CreateInvoice(ctx, finance.NewInvoice{
				UnionID:     "un1",
				Amount:      500,
				Description: fmt.Sprintf("Subscription %d", i),
			})
			if err != nil {
				t.Errorf("CreateInvoice() failed: %v", err)
				return
			}
			numbers <- inv.Number
		}(i)
	}
	wg.Wait()
	close(numbers)

	got := make([]string, 0, n)
	for num := range numbers {
		got = append(got, num)
	}
	sort.Strings(got)

	year := time.Now().UTC().Year()
	for i, num := range got {
		want := fmt.Sprintf("INV-%d-%03d", year, i+1)
		if num != want {
			t.Fatalf("numbers[%d] = %s; want %s (numbers must be gapless and never reused)", i, num, want)
		}
	}
}

func Test_Service_invoiceListingOrderPast999(t *testing.T) {
	db := inmemdb.Open()
	svc := finance.NewService(inmemdb.NewFinanceRepository(db))
	ctx := context.Background()

	// push the per-year counter past the zero padding width
	const n = 1001
	for i := 0; i < n; i++ {
		if _, err := svc.CreateInvoice(ctx, finance.NewInvoice{
			UnionID: "un1", Amount: 500, Description: "Subscription",
		}); err != nil {
			t.Fatalf("CreateInvoice() failed: %v", err)
		}
	}

	invoices, err := svc.QueryInvoices(ctx)
	if err != nil {
		t.Fatalf("QueryInvoices() failed: %v", err)
	}
	if len(invoices) != n {
		t.Fatalf("QueryInvoices() returned %d invoices; want %d", len(invoices), n)
	}
	want := fmt.Sprintf("INV-%d-%d", time.Now().UTC().Year(), n)
	if invoices[0].Number != want {
		t.Errorf("invoices[0].Number = %s; want %s (listing must be newest first)", invoices[0].Number, want)
	}
}

func Test_Service_invoiceStatusTransitions(t *testing.T) {
	db := inmemdb.Open()
	svc := finance.NewService(inmemdb.NewFinanceRepository(db))
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, finance.NewInvoice{UnionID: "un1", Amount: 500, Description: "Subscription"})
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}
	if inv.Status != finance.InvoiceDraft {
		t.Fatalf("Status = %s; want %s", inv.Status, finance.InvoiceDraft)
	}

	if _, err = svc.MarkInvoicePaid(ctx, inv.ID); err != finance.ErrInvalidStatus {
		t.Errorf("MarkInvoicePaid() on a draft = %v; want %v", err, finance.ErrInvalidStatus)
	}

	if inv, err = svc.MarkInvoiceSent(ctx, inv.ID); err != nil {
		t.Fatalf("MarkInvoiceSent() failed: %v", err)
	}
	if inv.Status != finance.InvoiceSent || inv.SentAt == nil {
		t.Errorf("invoice = %+v; want %s with SentAt", inv, finance.InvoiceSent)
	}
	if _, err = svc.MarkInvoiceSent(ctx, inv.ID); err != finance.ErrInvalidStatus {
		t.Errorf("MarkInvoiceSent() twice = %v; want %v", err, finance.ErrInvalidStatus)
	}

	if inv, err = svc.MarkInvoicePaid(ctx, inv.ID); err != nil {
		t.Fatalf("MarkInvoicePaid() failed: %v", err)
	}
	if inv.Status != finance.InvoicePaid || inv.PaidAt == nil {
		t.Errorf("invoice = %+v; want %s with PaidAt", inv, finance.InvoicePaid)
	}
	if _, err = svc.MarkInvoicePaid(ctx, inv.ID); err != finance.ErrInvalidStatus {
		t.Errorf("MarkInvoicePaid() twice = %v; want %v", err, finance.ErrInvalidStatus)
	}
}

func Test_Service_sweepOverdue(t *testing.T) {
	db := inmemdb.Open()
	svc := finance.NewService(inmemdb.NewFinanceRepository(db))
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(due time.Time, send bool) finance.Invoice {
		inv, err := svc.CreateInvoice(ctx, finance.NewInvoice{
			UnionID: "un1", Amount: 500, Description: "Subscription", DueDate: due,
		})
		if err != nil {
			t.Fatalf("CreateInvoice() failed: %v", err)
		}
		if send {
			if inv, err = svc.MarkInvoiceSent(ctx, inv.ID); err != nil {
				t.Fatalf("MarkInvoiceSent() failed: %v", err)
			}
		}
		return inv
	}

	lateSent := mk(now.AddDate(0, 0, -7), true)
	onTimeSent := mk(now.AddDate(0, 0, 7), true)
	lateDraft := mk(now.AddDate(0, 0, -7), false)

	flipped, err := svc.SweepOverdue(ctx, now)
	if err != nil {
		t.Fatalf("SweepOverdue() failed: %v", err)
	}
	if flipped != 1 {
		t.Errorf("SweepOverdue() = %d; want 1", flipped)
	}

	for _, tc := range []struct {
		name string
		id   string
		want string
	}{
		{"late sent goes overdue", lateSent.ID, finance.InvoiceOverdue},
		{"on time sent stays sent", onTimeSent.ID, finance.InvoiceSent},
		{"late draft stays draft", lateDraft.ID, finance.InvoiceDraft},
	} {
		inv, err := svc.GetInvoice(ctx, tc.id)
		if err != nil {
			t.Fatalf("GetInvoice() failed: %v", err)
		}
		if inv.Status != tc.want {
			t.Errorf("%s: Status = %s; want %s", tc.name, inv.Status, tc.want)
		}
	}

	// the sweep is idempotent
	if flipped, err = svc.SweepOverdue(ctx, now); err != nil || flipped != 0 {
		t.Errorf("SweepOverdue() again = (%d, %v); want (0, nil)", flipped, err)
	}
}
