package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// OrderRow is one mapped sales order line from the sheet. Raw keeps
// the original cells keyed by their header names, untouched by the
// alias mapping, so unmapped columns still count for change detection.
type OrderRow struct {
	Raw            map[string]string
	ProposalID     string
	LineNumber     int
	Status         string
	ClientName     string
	ClientEmail    string
	GameDetails    string
	Hotel          string
	RoomType       string
	Rooms          int
	Pax            int
	CheckIn        string
	CheckOut       string
	TicketCategory string
	Seller         string
}

// headerAliases maps the canonical column name to the spellings seen
// across the sales log's history. Matching is case-insensitive after
// trimming.
var headerAliases = map[string][]string{
	"proposal":       {"PROPOSAL", "PROPOSAL ID"},
	"lineNumber":     {"#"},
	"status":         {"STATUS"},
	"client":         {"CLIENT", "CLIENT NAME"},
	"email":          {"EMAIL", "CLIENT EMAIL"},
	"game":           {"GAME", "GAME DETAILS"},
	"hotel":          {"HOTEL"},
	"roomType":       {"ROOM TYPE", "ROOM_TYPE", "PRODUCT"},
	"rooms":          {"NUMBER OF ROOMS", "NUMBER OF TICKETS", "ROOMS", "TICKETS"},
	"pax":            {"NUMBER OF PAX", "PAX"},
	"checkIn":        {"CHECK IN", "CHECK_IN"},
	"checkOut":       {"CHECK OUT", "CHECK_OUT"},
	"ticketCategory": {"TICKET CAT", "TICKET CATEGORY"},
	"seller":         {"SELLER"},
}

// MapRows turns the raw grid into order rows. The first row is the
// header. Rows without a proposal id are counted as skipped, not
// errors: the sheet has separators and subtotal rows by convention.
type MapResult struct {
	Rows    []OrderRow
	Skipped int
	Errors  []RowError
}

// RowError records a row that could not be mapped, by sheet position
// (1-based, header included) so operators can find it.
type RowError struct {
	SheetRow int    `json:"sheetRow"`
	Reason   string `json:"reason"`
}

func MapRows(grid [][]string) (MapResult, error) {
	if len(grid) == 0 {
		return MapResult{}, fmt.Errorf("sheet is empty")
	}

	index, err := resolveHeader(grid[0])
	if err != nil {
		return MapResult{}, err
	}

	var result MapResult
	for i, raw := range grid[1:] {
		sheetRow := i + 2

		proposal := cell(raw, index["proposal"])
		if strings.TrimSpace(proposal) == "" {
			result.Skipped++
			continue
		}

		row, err := mapRow(raw, index)
		if err != nil {
			result.Errors = append(result.Errors, RowError{SheetRow: sheetRow, Reason: err.Error()})
			continue
		}
		row.Raw = rawCells(grid[0], raw)
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

func resolveHeader(header []string) (map[string]int, error) {
	normalized := make(map[string]int, len(header))
	for i, name := range header {
		normalized[strings.ToUpper(strings.TrimSpace(name))] = i
	}

	index := make(map[string]int, len(headerAliases))
	for canonical, aliases := range headerAliases {
		index[canonical] = -1
		for _, alias := range aliases {
			if pos, ok := normalized[alias]; ok {
				index[canonical] = pos
				break
			}
		}
	}

	if index["proposal"] < 0 {
		return nil, fmt.Errorf("header is missing the proposal column")
	}
	if index["lineNumber"] < 0 {
		return nil, fmt.Errorf("header is missing the line number column")
	}
	return index, nil
}

func mapRow(raw []string, index map[string]int) (OrderRow, error) {
	lineNumber, err := parseIntCell(cell(raw, index["lineNumber"]))
	if err != nil || lineNumber <= 0 {
		return OrderRow{}, fmt.Errorf("invalid line number %q", cell(raw, index["lineNumber"]))
	}

	rooms, err := parseOptionalInt(cell(raw, index["rooms"]))
	if err != nil {
		return OrderRow{}, fmt.Errorf("invalid rooms value %q", cell(raw, index["rooms"]))
	}
	pax, err := parseOptionalInt(cell(raw, index["pax"]))
	if err != nil {
		return OrderRow{}, fmt.Errorf("invalid pax value %q", cell(raw, index["pax"]))
	}

	return OrderRow{
		ProposalID:     strings.TrimSpace(cell(raw, index["proposal"])),
		LineNumber:     lineNumber,
		Status:         strings.ToUpper(strings.TrimSpace(cell(raw, index["status"]))),
		ClientName:     strings.TrimSpace(cell(raw, index["client"])),
		ClientEmail:    strings.ToLower(strings.TrimSpace(cell(raw, index["email"]))),
		GameDetails:    strings.TrimSpace(cell(raw, index["game"])),
		Hotel:          strings.TrimSpace(cell(raw, index["hotel"])),
		RoomType:       strings.TrimSpace(cell(raw, index["roomType"])),
		Rooms:          rooms,
		Pax:            pax,
		CheckIn:        strings.TrimSpace(cell(raw, index["checkIn"])),
		CheckOut:       strings.TrimSpace(cell(raw, index["checkOut"])),
		TicketCategory: strings.TrimSpace(cell(raw, index["ticketCategory"])),
		Seller:         strings.TrimSpace(cell(raw, index["seller"])),
	}, nil
}

// rawCells snapshots a row keyed by its trimmed header names. Columns
// without a header are dropped.
func rawCells(header, row []string) map[string]string {
	out := make(map[string]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = cell(row, i)
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseIntCell(value string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(value))
}

// parseOptionalInt treats an empty cell as zero.
func parseOptionalInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	return strconv.Atoi(trimmed)
}
