package member

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/waynerigley/migslist/core"
)

const (
	importSheetName  = "Members"
	samplePrefix     = "Sample" // template sample rows are skipped on import
	maxImportColumns = 9
)

var importHeader = []string{
	"First Name", "Last Name", "Email", "Phone",
	"Address Line 1", "Address Line 2", "City", "State", "Zip",
}

// ImportResult reports the outcome of a spreadsheet import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Import reads an xlsx workbook and creates one member per data row. Rows
// are taken from the "Members" worksheet, or the first worksheet if it is
// absent. The header row, blank rows and template sample rows are skipped;
// rows that fail to create are reported, not fatal.
func (svc *Service) Import(ctx context.Context, bucketID string, data []byte) (ImportResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	sheet := importSheetName
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return ImportResult{}, errors.Wrapf(err, "reading sheet %q", sheet)
	}

	var res ImportResult
	for i, row := range rows {
		cell := func(col int) string {
			if col < len(row) {
				return core.CleanString(row[col])
			}
			return ""
		}

		first, last := cell(0), cell(1)

		// header, blank and sample rows
		if i == 0 && strings.EqualFold(first, importHeader[0]) {
			continue
		}
		if first == "" && last == "" {
			res.Skipped++
			continue
		}
		if strings.HasPrefix(first, samplePrefix) {
			res.Skipped++
			continue
		}

		nm := NewMember{
			FirstName:    first,
			LastName:     last,
			Email:        strings.ToLower(cell(2)),
			Phone:        cell(3),
			AddressLine1: cell(4),
			AddressLine2: cell(5),
			City:         cell(6),
			State:        cell(7),
			Zip:          cell(8),
		}
		if nm.LastName == "" || nm.FirstName == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: first and last name are required", i+1))
			continue
		}

		if _, err = svc.Create(ctx, bucketID, nm); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		res.Imported++
	}
	return res, nil
}

// ImportTemplate builds the xlsx workbook handed to unions for bulk member
// entry: a headered "Members" sheet with two recognizable sample rows.
func ImportTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(importSheetName)
	if err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	for col, title := range importHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(importSheetName, cell, title)
	}
	_ = f.SetCellStyle(importSheetName, "A1", "I1", headerStyle)
	_ = f.SetColWidth(importSheetName, "A", "I", 18)

	samples := [][]interface{}{
		{samplePrefix + " First", "Last", "member@example.com", "555-010-0001", "123 Main St", "Apt 4", "Springfield", "IL", "62701"},
		{samplePrefix + " Second", "Last", "", "", "", "", "", "", ""},
	}
	for i, row := range samples {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetSheetRow(importSheetName, cell, &row)
	}

	var buf bytes.Buffer
	if err = f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}
