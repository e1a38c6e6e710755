package member_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/waynerigley/migslist/core/member"
	inmemdb "github.com/waynerigley/migslist/storage/database/inmem"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet("Members")
	if err != nil {
		t.Fatalf("NewSheet() failed: %v", err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err = f.SetSheetRow("Members", cell, &row); err != nil {
			t.Fatalf("SetSheetRow() failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err = f.Write(&buf); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	return buf.Bytes()
}

func Test_Service_Import(t *testing.T) {
	db := inmemdb.Open()
	svc := member.NewService(inmemdb.NewMemberRepository(db))
	ctx := context.Background()

	data := buildWorkbook(t, [][]interface{}{
		{"First Name", "Last Name", "Email", "Phone", "Address Line 1", "Address Line 2", "City", "State", "Zip"},
		{"Sample First", "Last", "member@example.com"}, // template leftovers are skipped
		{"Alice", "Adams", "ALICE@test.cd", "555-0100", "123 Main St", "", "Windsor", "ON", "N9A"},
		{"Bob", "Brown"},
		{"", "", "stray@test.cd"}, // no names
		{"Carol", ""},             // missing last name
	})

	res, err := svc.Import(ctx, "bk1", data)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if res.Imported != 2 {
		t.Errorf("Imported = %d; want 2", res.Imported)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d; want 2", res.Skipped)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "row 6") {
		t.Errorf("Errors = %v; want one error for row 6", res.Errors)
	}

	members, err := svc.QueryByBucket(ctx, "bk1")
	if err != nil {
		t.Fatalf("QueryByBucket() failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("QueryByBucket() returned %d members; want 2", len(members))
	}
	for _, m := range members {
		if m.FirstName == "Alice" && m.Email != "alice@test.cd" {
			t.Errorf("Email = %s; want lowercased alice@test.cd", m.Email)
		}
	}
}

func Test_Service_Import_templateRoundTrip(t *testing.T) {
	db := inmemdb.Open()
	svc := member.NewService(inmemdb.NewMemberRepository(db))

	data, err := member.ImportTemplate()
	if err != nil {
		t.Fatalf("ImportTemplate() failed: %v", err)
	}

	// the untouched template imports nothing: only sample rows
	res, err := svc.Import(context.Background(), "bk1", data)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if res.Imported != 0 || res.Skipped != 2 || len(res.Errors) != 0 {
		t.Errorf("result = %+v; want 0 imported, 2 skipped, no errors", res)
	}
}

func Test_Service_Import_badFile(t *testing.T) {
	db := inmemdb.Open()
	svc := member.NewService(inmemdb.NewMemberRepository(db))

	if _, err := svc.Import(context.Background(), "bk1", []byte("not a workbook")); err == nil {
		t.Error("Import() accepted garbage input")
	}
}
