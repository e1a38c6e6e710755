package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/waynerigley/migslist/core/finance"
	"github.com/waynerigley/migslist/core/member"
)

var memberColumns = []struct {
	Title string
	Width float64
}{
	{"First Name", 16},
	{"Last Name", 16},
	{"Email", 28},
	{"Phone", 16},
	{"Address Line 1", 24},
	{"Address Line 2", 16},
	{"City", 16},
	{"State", 8},
	{"Zip", 10},
}

// MembersWorkbook renders a member list as an xlsx workbook. With
// includeStanding set, a trailing Good Standing column marks each member.
// An empty list still yields a valid header-only document.
func MembersWorkbook(sheetName string, members []member.Member, includeStanding bool) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2E7D32"}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	nCols := len(memberColumns)
	if includeStanding {
		nCols++
	}

	for col, c := range memberColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, c.Title)
		name, _ := excelize.ColumnNumberToName(col + 1)
		_ = f.SetColWidth(sheetName, name, name, c.Width)
	}
	if includeStanding {
		cell, _ := excelize.CoordinatesToCellName(nCols, 1)
		_ = f.SetCellValue(sheetName, cell, "Good Standing")
		name, _ := excelize.ColumnNumberToName(nCols)
		_ = f.SetColWidth(sheetName, name, name, 14)
	}
	lastHeaderCell, _ := excelize.CoordinatesToCellName(nCols, 1)
	_ = f.SetCellStyle(sheetName, "A1", lastHeaderCell, headerStyle)

	for i, m := range members {
		row := []interface{}{
			m.FirstName, m.LastName, m.Email, m.Phone,
			m.AddressLine1, m.AddressLine2, m.City, m.State, m.Zip,
		}
		if includeStanding {
			standing := "No"
			if m.InGoodStanding() {
				standing = "Yes"
			}
			row = append(row, standing)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetSheetRow(sheetName, cell, &row)
	}

	var buf bytes.Buffer
	if err = f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

// TransactionsWorkbook renders a year of operator bookkeeping: one sheet of
// incomes, one of expenses, and a summary sheet.
func TransactionsWorkbook(year int, incomes []finance.Income, expenses []finance.Expense) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1565C0"}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	// Income sheet
	incomeSheet := "Income"
	idx, err := f.NewSheet(incomeSheet)
	if err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	incomeHeader := []interface{}{"Date", "Description", "Amount", "Method", "Union", "Notes"}
	_ = f.SetSheetRow(incomeSheet, "A1", &incomeHeader)
	_ = f.SetCellStyle(incomeSheet, "A1", "F1", headerStyle)
	_ = f.SetColWidth(incomeSheet, "A", "A", 12)
	_ = f.SetColWidth(incomeSheet, "B", "B", 36)
	_ = f.SetColWidth(incomeSheet, "C", "F", 18)

	var totalIncome float64
	for i, in := range incomes {
		row := []interface{}{
			in.Date.Format("2006-01-02"), in.Description, in.Amount,
			in.PaymentMethod, in.UnionName, in.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetSheetRow(incomeSheet, cell, &row)
		totalIncome += in.Amount
	}

	// Expenses sheet
	expenseSheet := "Expenses"
	if _, err = f.NewSheet(expenseSheet); err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	expenseHeader := []interface{}{"Date", "Description", "Amount", "Category", "Vendor", "Notes"}
	_ = f.SetSheetRow(expenseSheet, "A1", &expenseHeader)
	_ = f.SetCellStyle(expenseSheet, "A1", "F1", headerStyle)
	_ = f.SetColWidth(expenseSheet, "A", "A", 12)
	_ = f.SetColWidth(expenseSheet, "B", "B", 36)
	_ = f.SetColWidth(expenseSheet, "C", "F", 18)

	var totalExpenses float64
	for i, ex := range expenses {
		row := []interface{}{
			ex.Date.Format("2006-01-02"), ex.Description, ex.Amount,
			ex.Category, ex.Vendor, ex.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetSheetRow(expenseSheet, cell, &row)
		totalExpenses += ex.Amount
	}

	// Summary sheet
	summarySheet := "Summary"
	if _, err = f.NewSheet(summarySheet); err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	rows := [][]interface{}{
		{fmt.Sprintf("Yearly Report %d", year)},
		{},
		{"Total Income", totalIncome},
		{"Total Expenses", totalExpenses},
		{"Net", totalIncome - totalExpenses},
		{},
		{"Generated", time.Now().UTC().Format("2006-01-02")},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = f.SetSheetRow(summarySheet, cell, &row)
	}
	_ = f.SetColWidth(summarySheet, "A", "B", 20)

	var buf bytes.Buffer
	if err = f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}
