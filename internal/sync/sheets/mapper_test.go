package sheets

import (
	"strings"
	"testing"
)

func TestMapRowsResolvesHeaderAliases(t *testing.T) {
	grid := [][]string{
		{"PROPOSAL ID", "#", "STATUS", "CLIENT NAME", "CLIENT EMAIL", "GAME DETAILS", "HOTEL", "PRODUCT", "NUMBER OF ROOMS", "NUMBER OF PAX", "CHECK IN", "CHECK OUT", "TICKET CAT", "SELLER"},
		{"20250601", "1", "confirmed", " Ana Souza ", " ANA@Example.COM ", "BRA x ARG", "Hilton", "Double", "2", "4", "2026-06-14", "2026-06-16", "CAT 1", "Rafael"},
	}

	result, err := MapRows(grid)
	if err != nil {
		t.Fatalf("MapRows: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}

	row := result.Rows[0]
	if row.ProposalID != "20250601" {
		t.Fatalf("expected proposal 20250601, got %q", row.ProposalID)
	}
	if row.LineNumber != 1 {
		t.Fatalf("expected line 1, got %d", row.LineNumber)
	}
	if row.Status != "CONFIRMED" {
		t.Fatalf("expected status uppercased, got %q", row.Status)
	}
	if row.ClientName != "Ana Souza" {
		t.Fatalf("expected trimmed client name, got %q", row.ClientName)
	}
	if row.ClientEmail != "ana@example.com" {
		t.Fatalf("expected lowercased email, got %q", row.ClientEmail)
	}
	if row.RoomType != "Double" {
		t.Fatalf("expected room type from PRODUCT column, got %q", row.RoomType)
	}
	if row.Rooms != 2 || row.Pax != 4 {
		t.Fatalf("expected rooms=2 pax=4, got rooms=%d pax=%d", row.Rooms, row.Pax)
	}
}

func TestMapRowsCapturesRawCellsByHeader(t *testing.T) {
	grid := [][]string{
		{"PROPOSAL", "#", "HOTEL", "NOTES", ""},
		{"20250601", "1", "Hilton", "late checkout", "orphan"},
	}

	result, err := MapRows(grid)
	if err != nil {
		t.Fatalf("MapRows: %v", err)
	}
	raw := result.Rows[0].Raw
	if raw["PROPOSAL"] != "20250601" || raw["HOTEL"] != "Hilton" {
		t.Fatalf("raw cells must keep original header keys, got %v", raw)
	}
	if raw["NOTES"] != "late checkout" {
		t.Fatalf("unmapped columns must survive in the raw row, got %v", raw)
	}
	if len(raw) != 4 {
		t.Fatalf("headerless columns are dropped, got %v", raw)
	}
}

func TestMapRowsSkipsRowsWithoutProposal(t *testing.T) {
	grid := [][]string{
		{"PROPOSAL", "#", "NUMBER OF PAX"},
		{"", "", ""},
		{"  ", "99", "totals"},
		{"20250601", "1", "2"},
	}

	result, err := MapRows(grid)
	if err != nil {
		t.Fatalf("MapRows: %v", err)
	}
	if result.Skipped != 2 {
		t.Fatalf("expected 2 skipped separator rows, got %d", result.Skipped)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 mapped row, got %d", len(result.Rows))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no row errors, got %v", result.Errors)
	}
}

func TestMapRowsReportsBadLineNumberBySheetPosition(t *testing.T) {
	grid := [][]string{
		{"PROPOSAL", "#"},
		{"20250601", "1"},
		{"20250602", "abc"},
	}

	result, err := MapRows(grid)
	if err != nil {
		t.Fatalf("MapRows: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 row error, got %d", len(result.Errors))
	}
	if result.Errors[0].SheetRow != 3 {
		t.Fatalf("expected error at sheet row 3, got %d", result.Errors[0].SheetRow)
	}
	if !strings.Contains(result.Errors[0].Reason, "line number") {
		t.Fatalf("expected line number reason, got %q", result.Errors[0].Reason)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("bad row must not stop mapping, got %d rows", len(result.Rows))
	}
}

func TestMapRowsTreatsEmptyNumericCellsAsZero(t *testing.T) {
	grid := [][]string{
		{"PROPOSAL", "#", "ROOMS", "PAX"},
		{"20250601", "1", "", ""},
	}

	result, err := MapRows(grid)
	if err != nil {
		t.Fatalf("MapRows: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if result.Rows[0].Rooms != 0 || result.Rows[0].Pax != 0 {
		t.Fatalf("expected empty numeric cells to map to zero, got rooms=%d pax=%d",
			result.Rows[0].Rooms, result.Rows[0].Pax)
	}
}

func TestMapRowsRejectsMissingKeyColumns(t *testing.T) {
	if _, err := MapRows([][]string{{"STATUS", "#"}}); err == nil {
		t.Fatalf("expected error for missing proposal column")
	}
	if _, err := MapRows([][]string{{"PROPOSAL", "STATUS"}}); err == nil {
		t.Fatalf("expected error for missing line number column")
	}
	if _, err := MapRows(nil); err == nil {
		t.Fatalf("expected error for empty sheet")
	}
}

func TestMapRowsToleratesShortRows(t *testing.T) {
	grid := [][]string{
		{"PROPOSAL", "#", "STATUS", "HOTEL"},
		{"20250601", "1"},
	}

	result, err := MapRows(grid)
	if err != nil {
		t.Fatalf("MapRows: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if result.Rows[0].Hotel != "" {
		t.Fatalf("expected missing cell to map to empty string, got %q", result.Rows[0].Hotel)
	}
}
