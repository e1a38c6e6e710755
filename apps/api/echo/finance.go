package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/core/finance"
	"github.com/waynerigley/migslist/core/report"
	"github.com/waynerigley/migslist/core/union"
	"github.com/waynerigley/migslist/storage/filestore"
)

const recentTransactionsLimit = 10

type financeApi struct {
	deps ServerDeps
}

func registerFinanceAPI(g *echo.Group, sess echo.MiddlewareFunc, deps ServerDeps) {
	api := financeApi{deps: deps}

	fg := g.Group("/finance", sess, superAdminMiddleware())

	fg.GET("/dashboard", api.dashboard)
	fg.GET("/categories", api.categories)
	fg.GET("/vendors", api.vendors)

	// incomes
	fg.GET("/incomes", api.queryIncomes)
	fg.POST("/incomes", api.createIncome)
	fg.GET("/incomes/:id", api.getIncome)
	fg.PUT("/incomes/:id", api.updateIncome)
	fg.DELETE("/incomes/:id", api.deleteIncome)
	fg.GET("/incomes/:id/receipt-pdf", api.incomeReceiptPDF)

	// expenses
	fg.GET("/expenses", api.queryExpenses)
	fg.POST("/expenses", api.createExpense)
	fg.GET("/expenses/expiring", api.queryExpiringExpenses)
	fg.GET("/expenses/:id", api.getExpense)
	fg.PUT("/expenses/:id", api.updateExpense)
	fg.DELETE("/expenses/:id", api.deleteExpense)
	fg.POST("/expenses/:id/receipt", api.uploadExpenseReceipt)
	fg.GET("/expenses/:id/receipt", api.downloadExpenseReceipt)

	// invoices
	fg.GET("/invoices", api.queryInvoices)
	fg.POST("/invoices", api.createInvoice)
	fg.GET("/invoices/stats", api.invoiceStats)
	fg.GET("/invoices/:id", api.getInvoice)
	fg.PUT("/invoices/:id", api.updateInvoice)
	fg.DELETE("/invoices/:id", api.deleteInvoice)
	fg.POST("/invoices/:id/send", api.sendInvoice)
	fg.POST("/invoices/:id/paid", api.markInvoicePaid)
	fg.GET("/invoices/:id/pdf", api.invoicePDF)

	// yearly reports
	fg.GET("/reports/:year", api.yearlyReport)
	fg.GET("/reports/:year/export", api.exportYearlyReport)
}

// Dashboard

// FinanceDashboard is the operator bookkeeping home screen payload.
type FinanceDashboard struct {
	RecentIncomes    []finance.Income     `json:"recent_incomes"`
	RecentExpenses   []finance.Expense    `json:"recent_expenses"`
	InvoiceStats     finance.InvoiceStats `json:"invoice_stats"`
	ExpiringExpenses []finance.Expense    `json:"expiring_expenses"`
}

func (api *financeApi) dashboard(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	now := time.Now().UTC()

	if _, err := api.deps.FinanceSvc.SweepOverdue(reqCtx, now); err != nil {
		return errors.Wrap(err, "sweeping overdue invoices")
	}
	incomes, err := api.deps.FinanceSvc.QueryRecentIncomes(reqCtx, recentTransactionsLimit)
	if err != nil {
		return errors.Wrap(err, "querying recent incomes")
	}
	expenses, err := api.deps.FinanceSvc.QueryRecentExpenses(reqCtx, recentTransactionsLimit)
	if err != nil {
		return errors.Wrap(err, "querying recent expenses")
	}
	stats, err := api.deps.FinanceSvc.InvoiceStats(reqCtx)
	if err != nil {
		return errors.Wrap(err, "getting invoice stats")
	}
	expiring, err := api.deps.FinanceSvc.QueryExpiringExpenses(reqCtx, now)
	if err != nil {
		return errors.Wrap(err, "querying expiring expenses")
	}

	return ctx.JSON(http.StatusOK, FinanceDashboard{
		RecentIncomes:    incomes,
		RecentExpenses:   expenses,
		InvoiceStats:     stats,
		ExpiringExpenses: expiring,
	})
}

func (api *financeApi) categories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, finance.Categories)
}

func (api *financeApi) vendors(ctx echo.Context) error {
	vendors, err := api.deps.FinanceSvc.Vendors(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying vendors")
	}
	return ctx.JSON(http.StatusOK, vendors)
}

// Incomes

func (api *financeApi) queryIncomes(ctx echo.Context) error {
	year, err := yearParam(ctx.QueryParam("year"))
	if err != nil {
		return err
	}
	incomes, err := api.deps.FinanceSvc.QueryIncomesByYear(ctx.Request().Context(), year)
	if err != nil {
		return errors.Wrap(err, "querying incomes")
	}
	return ctx.JSON(http.StatusOK, incomes)
}

func (api *financeApi) createIncome(ctx echo.Context) error {
	var data finance.NewIncome
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIncome")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	in, err := api.deps.FinanceSvc.CreateIncome(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating income")
	}
	return ctx.JSON(http.StatusCreated, in)
}

func (api *financeApi) getIncome(ctx echo.Context) error {
	in, err := api.deps.FinanceSvc.GetIncome(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == finance.ErrIncomeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting income")
	}
	return ctx.JSON(http.StatusOK, in)
}

func (api *financeApi) updateIncome(ctx echo.Context) error {
	var data finance.NewIncome
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIncome")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	in, err := api.deps.FinanceSvc.UpdateIncome(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == finance.ErrIncomeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating income")
	}
	return ctx.JSON(http.StatusOK, in)
}

func (api *financeApi) deleteIncome(ctx echo.Context) error {
	if err := api.deps.FinanceSvc.DeleteIncome(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == finance.ErrIncomeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting income")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *financeApi) incomeReceiptPDF(ctx echo.Context) error {
	in, err := api.deps.FinanceSvc.GetIncome(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == finance.ErrIncomeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting income")
	}
	data, err := report.ReceiptPDF(api.deps.Conf.AppName, api.deps.Conf.OperatorEmail, in)
	if err != nil {
		return errors.Wrap(err, "building receipt PDF")
	}
	return sendBlob(ctx, mimePDF, fmt.Sprintf("Receipt %s.pdf", in.Date.Format("2006-01-02")), data)
}

// Expenses

func (api *financeApi) queryExpenses(ctx echo.Context) error {
	year, err := yearParam(ctx.QueryParam("year"))
	if err != nil {
		return err
	}
	expenses, err := api.deps.FinanceSvc.QueryExpensesByYear(ctx.Request().Context(), year)
	if err != nil {
		return errors.Wrap(err, "querying expenses")
	}
	return ctx.JSON(http.StatusOK, expenses)
}

func (api *financeApi) createExpense(ctx echo.Context) error {
	var data finance.NewExpense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExpense")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ex, err := api.deps.FinanceSvc.CreateExpense(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating expense")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *financeApi) queryExpiringExpenses(ctx echo.Context) error {
	expenses, err := api.deps.FinanceSvc.QueryExpiringExpenses(ctx.Request().Context(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "querying expiring expenses")
	}
	return ctx.JSON(http.StatusOK, expenses)
}

func (api *financeApi) getExpense(ctx echo.Context) error {
	ex, err := api.deps.FinanceSvc.GetExpense(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == finance.ErrExpenseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting expense")
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *financeApi) updateExpense(ctx echo.Context) error {
	var data finance.NewExpense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExpense")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ex, err := api.deps.FinanceSvc.UpdateExpense(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == finance.ErrExpenseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating expense")
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *financeApi) deleteExpense(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	ex, err := api.deps.FinanceSvc.GetExpense(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == finance.ErrExpenseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting expense")
	}
	if err = api.deps.FinanceSvc.DeleteExpense(reqCtx, ex.ID); err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	if err = api.deps.Files.Remove(ex.ReceiptFilename); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "removing expense receipt"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *financeApi) uploadExpenseReceipt(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	ex, err := api.deps.FinanceSvc.GetExpense(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == finance.ErrExpenseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting expense")
	}
	filename, err := saveUpload(ctx, api.deps.Files, "file", filestore.KindReceipt)
	if err != nil {
		return err
	}

	prev := ex.ReceiptFilename
	if ex, err = api.deps.FinanceSvc.SetExpenseReceipt(reqCtx, ex.ID, filename); err != nil {
		return errors.Wrap(err, "setting expense receipt")
	}
	if err = api.deps.Files.Remove(prev); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "removing previous receipt"))
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *financeApi) downloadExpenseReceipt(ctx echo.Context) error {
	ex, err := api.deps.FinanceSvc.GetExpense(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == finance.ErrExpenseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting expense")
	}
	return streamStoredFile(ctx, api.deps.Files, ex.ReceiptFilename, "Receipt - "+ex.Description+".pdf")
}

// Invoices

func (api *financeApi) queryInvoices(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	// overdue is derived from dates on the way in, never set by hand
	if _, err := api.deps.FinanceSvc.SweepOverdue(reqCtx, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "sweeping overdue invoices")
	}

	var (
		invoices []finance.Invoice
		err      error
	)
	switch {
	case ctx.QueryParam("status") != "":
		invoices, err = api.deps.FinanceSvc.QueryInvoicesByStatus(reqCtx, ctx.QueryParam("status"))
	case ctx.QueryParam("union_id") != "":
		invoices, err = api.deps.FinanceSvc.QueryInvoicesByUnion(reqCtx, ctx.QueryParam("union_id"))
	case ctx.QueryParam("year") != "":
		var year int
		if year, err = yearParam(ctx.QueryParam("year")); err != nil {
			return err
		}
		invoices, err = api.deps.FinanceSvc.QueryInvoicesByYear(reqCtx, year)
	default:
		invoices, err = api.deps.FinanceSvc.QueryInvoices(reqCtx)
	}
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *financeApi) createInvoice(ctx echo.Context) error {
	var data finance.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	inv, err := api.deps.FinanceSvc.CreateInvoice(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating invoice")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *financeApi) invoiceStats(ctx echo.Context) error {
	stats, err := api.deps.FinanceSvc.InvoiceStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting invoice stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *financeApi) getInvoice(ctx echo.Context) error {
	inv, err := api.deps.FinanceSvc.GetInvoice(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == finance.ErrInvoiceNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *financeApi) updateInvoice(ctx echo.Context) error {
	var data finance.UpdateInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInvoice")
	}

	inv, err := api.deps.FinanceSvc.UpdateInvoice(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == finance.ErrInvoiceNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *financeApi) deleteInvoice(ctx echo.Context) error {
	if err := api.deps.FinanceSvc.DeleteInvoice(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == finance.ErrInvoiceNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting invoice")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// sendInvoice marks the invoice sent and emails the PDF to the union contact.
func (api *financeApi) sendInvoice(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	inv, err := api.deps.FinanceSvc.MarkInvoiceSent(reqCtx, ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case finance.ErrInvoiceNotFound:
			return errHttpNotFound
		case finance.ErrInvalidStatus:
			return core.NewValidationError(errors.New("only draft invoices can be sent"))
		}
		return errors.Wrap(err, "marking invoice sent")
	}

	un, err := api.deps.UnionSvc.GetByID(reqCtx, inv.UnionID)
	if err != nil && errors.Cause(err) != union.ErrNotFound {
		return errors.Wrap(err, "getting union")
	}
	if un.ContactEmail != "" {
		data, err := report.InvoicePDF(api.deps.Conf.AppName, api.deps.Conf.OperatorEmail, inv, un)
		if err != nil {
			return errors.Wrap(err, "building invoice PDF")
		}
		msg := &core.EmailMessage{
			To:      []mail.Address{{Name: un.ContactName, Address: un.ContactEmail}},
			Subject: fmt.Sprintf("Invoice %s from %s", inv.Number, api.deps.Conf.AppName),
			TextContent: fmt.Sprintf(
				"Hello %s,\n\nPlease find invoice %s for %s attached.\n\n"+
					"Amount due: $%.2f\nDue date: %s\n\nThank you,\n%s\n",
				un.ContactName, inv.Number, inv.Description,
				inv.Amount, inv.DueDate.Format("Jan 2, 2006"), api.deps.Conf.AppName,
			),
		}
		if err = msg.Attach(bytes.NewReader(data), inv.Number+".pdf", mimePDF); err != nil {
			return errors.Wrap(err, "attaching invoice PDF")
		}
		api.deps.MailSvc.SendMessages(msg)
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *financeApi) markInvoicePaid(ctx echo.Context) error {
	inv, err := api.deps.FinanceSvc.MarkInvoicePaid(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case finance.ErrInvoiceNotFound:
			return errHttpNotFound
		case finance.ErrInvalidStatus:
			return core.NewValidationError(errors.New("only outstanding invoices can be marked paid"))
		}
		return errors.Wrap(err, "marking invoice paid")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *financeApi) invoicePDF(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	inv, err := api.deps.FinanceSvc.GetInvoice(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == finance.ErrInvoiceNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting invoice")
	}
	un, err := api.deps.UnionSvc.GetByID(reqCtx, inv.UnionID)
	if err != nil && errors.Cause(err) != union.ErrNotFound {
		return errors.Wrap(err, "getting union")
	}

	data, err := report.InvoicePDF(api.deps.Conf.AppName, api.deps.Conf.OperatorEmail, inv, un)
	if err != nil {
		return errors.Wrap(err, "building invoice PDF")
	}
	return sendBlob(ctx, mimePDF, inv.Number+".pdf", data)
}

// Yearly reports

func (api *financeApi) yearlyReport(ctx echo.Context) error {
	year, err := yearParam(ctx.Param("year"))
	if err != nil {
		return err
	}
	sum, err := api.deps.FinanceSvc.YearlySummary(ctx.Request().Context(), year)
	if err != nil {
		return errors.Wrap(err, "building yearly summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *financeApi) exportYearlyReport(ctx echo.Context) error {
	year, err := yearParam(ctx.Param("year"))
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	incomes, err := api.deps.FinanceSvc.QueryIncomesByYear(reqCtx, year)
	if err != nil {
		return errors.Wrap(err, "querying incomes")
	}
	expenses, err := api.deps.FinanceSvc.QueryExpensesByYear(reqCtx, year)
	if err != nil {
		return errors.Wrap(err, "querying expenses")
	}

	data, err := report.TransactionsWorkbook(year, incomes, expenses)
	if err != nil {
		return errors.Wrap(err, "building transactions workbook")
	}
	return sendBlob(ctx, mimeXLSX, fmt.Sprintf("Yearly Report %d.xlsx", year), data)
}

// yearParam parses a year, defaulting to the current one.
func yearParam(raw string) (int, error) {
	if raw == "" {
		return time.Now().UTC().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 9999 {
		return 0, core.NewValidationError(
			errors.New("invalid year"), core.FieldError{Field: "year", Error: "must be a four digit year"})
	}
	return year, nil
}
