package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/waynerigley/migslist/core/finance"
	"github.com/waynerigley/migslist/core/user"
)

func Test_financeApi_superAdminOnly(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local A")
	prez := createUser(t, app, "Jane", "Prez", "jane@test.cd", "s3cret", user.RolePresident, un.ID)
	token := openSession(t, app, prez)

	paths := []string{"/v1/finance/dashboard", "/v1/finance/incomes", "/v1/finance/invoices"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			tt := httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}
			req, rec := newAuthRequest(http.MethodGet, path, token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_financeApi_incomes(t *testing.T) {
	app := setup(t)

	admin := createUser(t, app, "Root", "Admin", "root@test.cd", "s3cret", user.RoleSuperAdmin, "")
	token := openSession(t, app, admin)

	tests := []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/finance/incomes",
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "create", method: http.MethodPost, path: "/v1/finance/incomes",
			body:     []byte(`{"description":"Local 100 annual subscription","amount":500}`),
			wantCode: http.StatusCreated,
		},
		{
			name: "invalid year filter", method: http.MethodGet, path: "/v1/finance/incomes?year=lol",
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"year": "must be a four digit year"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			app.server.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.name == "create" {
				var in finance.Income
				if err := json.Unmarshal(rec.Body.Bytes(), &in); err != nil {
					t.Fatalf("unmarshalling income failed: %v", err)
				}
				// etransfer is the default method, date defaults to today
				if in.PaymentMethod != finance.PaymentMethodETransfer || in.Date.IsZero() {
					t.Errorf("income = %+v; want defaulted method and date", in)
				}
			}
		})
	}

	// the current year listing picks it up
	incomes, err := app.financeSvc.QueryIncomesByYear(context.Background(), time.Now().UTC().Year())
	if err != nil {
		t.Fatalf("QueryIncomesByYear() failed: %v", err)
	}
	tt := httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, incomes)}
	req, rec := newAuthRequest(http.MethodGet, "/v1/finance/incomes", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_financeApi_expenses(t *testing.T) {
	app := setup(t)

	admin := createUser(t, app, "Root", "Admin", "root@test.cd", "s3cret", user.RoleSuperAdmin, "")
	token := openSession(t, app, admin)

	t.Run("unknown category", func(t *testing.T) {
		body := []byte(`{"description":"Stuff","amount":10,"category":"lol"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/expenses", token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"description":"Domain renewal","amount":15.99,"category":"hosting","vendor":"Namecheap"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/expenses", token, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})

	t.Run("expiring soon shows in the warning list", func(t *testing.T) {
		soon := time.Now().UTC().Add(10 * 24 * time.Hour)
		expiring, err := app.financeSvc.CreateExpense(context.Background(), finance.NewExpense{
			Description: "SSL certificate",
			Amount:      49,
			Category:    finance.CategoryHosting,
			Vendor:      "Namecheap",
			ExpiresAt:   &soon,
		})
		if err != nil {
			t.Fatalf("CreateExpense() failed: %v", err)
		}

		req, rec := newAuthRequest(http.MethodGet, "/v1/finance/expenses/expiring", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got []finance.Expense
		if err = json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling expenses failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != expiring.ID {
			t.Errorf("expiring = %+v; want only %s", got, expiring.ID)
		}
	})

	t.Run("vendors", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, []string{"Namecheap"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/finance/vendors", token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_financeApi_invoiceLifecycle(t *testing.T) {
	app := setup(t)

	un := createTrialUnion(t, app, "Local A")
	admin := createUser(t, app, "Root", "Admin", "root@test.cd", "s3cret", user.RoleSuperAdmin, "")
	token := openSession(t, app, admin)

	year := time.Now().UTC().Year()
	var inv finance.Invoice

	t.Run("numbers are sequential per year", func(t *testing.T) {
		for i, want := range []string{
			fmt.Sprintf("INV-%d-001", year),
			fmt.Sprintf("INV-%d-002", year),
		} {
			body := marshalObj(t, finance.NewInvoice{
				UnionID:     un.ID,
				Amount:      500,
				Description: fmt.Sprintf("Annual subscription %d", i+1),
			})
			req, rec := newAuthRequest(http.MethodPost, "/v1/finance/invoices", token, body)
			app.server.ServeHTTP(rec, req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
				t.Fatalf("unmarshalling invoice failed: %v", err)
			}
			if inv.Number != want {
				t.Errorf("Number = %s; want %s", inv.Number, want)
			}
			if inv.Status != finance.InvoiceDraft {
				t.Errorf("Status = %s; want %s", inv.Status, finance.InvoiceDraft)
			}
		}
	})

	t.Run("draft cannot be marked paid", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "only outstanding invoices can be marked paid"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/invoices/"+inv.ID+"/paid", token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("send", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/invoices/"+inv.ID+"/send", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
			t.Fatalf("unmarshalling invoice failed: %v", err)
		}
		if inv.Status != finance.InvoiceSent || inv.SentAt == nil {
			t.Errorf("invoice = %+v; want status %s with SentAt set", inv, finance.InvoiceSent)
		}
	})

	t.Run("sending twice fails", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "only draft invoices can be sent"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/invoices/"+inv.ID+"/send", token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("mark paid", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/invoices/"+inv.ID+"/paid", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
			t.Fatalf("unmarshalling invoice failed: %v", err)
		}
		if inv.Status != finance.InvoicePaid || inv.PaidAt == nil {
			t.Errorf("invoice = %+v; want status %s with PaidAt set", inv, finance.InvoicePaid)
		}
	})
}

func Test_financeApi_overdueSweepOnListing(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	un := createTrialUnion(t, app, "Local A")
	admin := createUser(t, app, "Root", "Admin", "root@test.cd", "s3cret", user.RoleSuperAdmin, "")
	token := openSession(t, app, admin)

	// an invoice sent with a past due date flips to overdue on the way in
	late, err := app.financeSvc.CreateInvoice(ctx, finance.NewInvoice{
		UnionID:     un.ID,
		Amount:      500,
		Description: "Annual subscription",
		DueDate:     time.Now().UTC().AddDate(0, 0, -7),
	})
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}
	if _, err = app.financeSvc.MarkInvoiceSent(ctx, late.ID); err != nil {
		t.Fatalf("MarkInvoiceSent() failed: %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/finance/invoices", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var invoices []finance.Invoice
	if err = json.Unmarshal(rec.Body.Bytes(), &invoices); err != nil {
		t.Fatalf("unmarshalling invoices failed: %v", err)
	}
	if len(invoices) != 1 || invoices[0].Status != finance.InvoiceOverdue {
		t.Errorf("invoices = %+v; want one overdue invoice", invoices)
	}
}

func Test_financeApi_dashboard(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	admin := createUser(t, app, "Root", "Admin", "root@test.cd", "s3cret", user.RoleSuperAdmin, "")
	token := openSession(t, app, admin)

	if _, err := app.financeSvc.CreateIncome(ctx, finance.NewIncome{Description: "Subscription", Amount: 500}); err != nil {
		t.Fatalf("CreateIncome() failed: %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/finance/dashboard", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var dash struct {
		RecentIncomes  []finance.Income     `json:"recent_incomes"`
		RecentExpenses []finance.Expense    `json:"recent_expenses"`
		InvoiceStats   finance.InvoiceStats `json:"invoice_stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("unmarshalling dashboard failed: %v", err)
	}
	if len(dash.RecentIncomes) != 1 {
		t.Errorf("RecentIncomes = %+v; want the seeded income", dash.RecentIncomes)
	}
	if len(dash.RecentExpenses) != 0 {
		t.Errorf("RecentExpenses = %+v; want none", dash.RecentExpenses)
	}
}
