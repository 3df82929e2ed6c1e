package proposals

import (
	"context"
	"math"
	"strings"
	"time"

	"tripforms_backend/internal/fields"
	syncrepo "tripforms_backend/internal/sync/repository"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/logger"

	"github.com/google/uuid"
)

// CaptureStatus reported for proposals that were never dispatched.
const StatusNotDispatched = "NOT_DISPATCHED"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OrderReader loads a proposal's synced order lines.
type OrderReader interface {
	ListOrdersByProposal(ctx context.Context, proposalID string) ([]syncrepo.SalesOrder, error)
}

// Service builds the staff-facing proposal views.
type Service struct {
	store   Store
	orders  OrderReader
	catalog *fields.Catalog
	log     *logger.Logger
}

func NewService(store Store, orders OrderReader, catalog *fields.Catalog, log *logger.Logger) *Service {
	return &Service{store: store, orders: orders, catalog: catalog, log: log}
}

// ListQuery narrows and pages the proposal listing.
type ListQuery struct {
	Game          string
	Hotel         string
	Seller        string
	Search        string
	CaptureStatus string
	Page          int
	PageSize      int
}

// ProposalView is one proposal as the listing and detail endpoints
// present it. A proposal without a dispatch shows NOT_DISPATCHED with
// zero slots and zero percent.
type ProposalView struct {
	ProposalID       string     `json:"proposalId"`
	Status           string     `json:"status"`
	ClientName       string     `json:"clientName"`
	ClientEmail      string     `json:"clientEmail"`
	GameDetails      string     `json:"gameDetails"`
	Hotel            string     `json:"hotel"`
	Seller           string     `json:"seller"`
	CheckIn          string     `json:"checkIn"`
	CheckOut         string     `json:"checkOut"`
	LineCount        int        `json:"lineCount"`
	TotalPax         int        `json:"totalPax"`
	CaptureStatus    string     `json:"captureStatus"`
	FilledSlots      int        `json:"filledSlots"`
	TotalSlots       int        `json:"totalSlots"`
	ProgressPercent  int        `json:"progressPercent"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	DispatchCount    int        `json:"dispatchCount"`
	LastDispatchedAt *time.Time `json:"lastDispatchedAt,omitempty"`
}

// ListResult is one page of the listing.
type ListResult struct {
	Items    []ProposalView `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// List pages the proposal listing.
//
// Without a captureStatus filter the database pages the result (fast
// path). With one, the filter lives on the joined form instance and
// NOT_DISPATCHED means "no instance at all", so the full candidate set
// is materialized and filtered in memory. That slow path is deliberate
// and bounded by the total proposal count, which stays small for one
// World Cup season.
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	page, size := normalizePage(q.Page, q.PageSize)
	filter := ListFilter{Game: q.Game, Hotel: q.Hotel, Seller: q.Seller, Search: q.Search}

	status := strings.ToUpper(strings.TrimSpace(q.CaptureStatus))
	if status == "" {
		filter.Limit = size
		filter.Offset = (page - 1) * size

		summaries, err := s.store.ListSummaries(ctx, filter)
		if err != nil {
			return ListResult{}, err
		}
		total, err := s.store.CountSummaries(ctx, filter)
		if err != nil {
			return ListResult{}, err
		}
		return ListResult{Items: toViews(summaries), Total: total, Page: page, PageSize: size}, nil
	}

	summaries, err := s.store.ListSummaries(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}

	matched := make([]ProposalView, 0, len(summaries))
	for _, summary := range summaries {
		view := toView(summary)
		if view.CaptureStatus == status {
			matched = append(matched, view)
		}
	}

	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return ListResult{Items: matched[start:end], Total: len(matched), Page: page, PageSize: size}, nil
}

// LineView is one sales-order line inside the proposal detail.
type LineView struct {
	LineNumber     int    `json:"lineNumber"`
	Status         string `json:"status"`
	GameDetails    string `json:"gameDetails"`
	Hotel          string `json:"hotel"`
	RoomType       string `json:"roomType"`
	Rooms          int    `json:"rooms"`
	Pax            int    `json:"pax"`
	CheckIn        string `json:"checkIn"`
	CheckOut       string `json:"checkOut"`
	TicketCategory string `json:"ticketCategory"`
	Seller         string `json:"seller"`
}

// Detail is one proposal with all its order lines.
type Detail struct {
	ProposalView
	Lines []LineView `json:"lines"`
}

func (s *Service) Detail(ctx context.Context, proposalID string) (Detail, error) {
	summary, found, err := s.store.GetSummary(ctx, proposalID)
	if err != nil {
		return Detail{}, err
	}
	if !found {
		return Detail{}, apperr.NotFound("proposal not found")
	}

	orders, err := s.orders.ListOrdersByProposal(ctx, proposalID)
	if err != nil {
		return Detail{}, err
	}

	lines := make([]LineView, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, LineView{
			LineNumber:     o.LineNumber,
			Status:         o.Status,
			GameDetails:    o.GameDetails,
			Hotel:          o.Hotel,
			RoomType:       o.RoomType,
			Rooms:          o.Rooms,
			Pax:            o.Pax,
			CheckIn:        o.CheckIn,
			CheckOut:       o.CheckOut,
			TicketCategory: o.TicketCategory,
			Seller:         o.Seller,
		})
	}
	return Detail{ProposalView: toView(summary), Lines: lines}, nil
}

// MatrixRowView is one passenger slot with its answers laid out for
// the matrix and the CSV export.
type MatrixRowView struct {
	SlotID    uuid.UUID         `json:"slotId"`
	SlotIndex int               `json:"slotIndex"`
	RoomLabel string            `json:"roomLabel"`
	Status    string            `json:"status"`
	Answers   map[string]string `json:"answers"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Matrix is the per-proposal passenger data grid: one row per slot,
// one column per catalog field.
type Matrix struct {
	Proposal ProposalView    `json:"proposal"`
	Columns  []fields.Field  `json:"columns"`
	Rows     []MatrixRowView `json:"rows"`
}

func (s *Service) Matrix(ctx context.Context, proposalID string) (Matrix, error) {
	summary, found, err := s.store.GetSummary(ctx, proposalID)
	if err != nil {
		return Matrix{}, err
	}
	if !found {
		return Matrix{}, apperr.NotFound("proposal not found")
	}

	matrixRows, err := s.store.ListMatrixRows(ctx, proposalID)
	if err != nil {
		return Matrix{}, err
	}

	rows := make([]MatrixRowView, 0, len(matrixRows))
	for _, row := range matrixRows {
		answers := row.Answers
		if answers == nil {
			answers = map[string]string{}
		}
		rows = append(rows, MatrixRowView{
			SlotID:    row.SlotID,
			SlotIndex: row.SlotIndex,
			RoomLabel: row.RoomLabel,
			Status:    row.SlotStatus,
			Answers:   answers,
			UpdatedAt: row.UpdatedAt,
		})
	}

	return Matrix{
		Proposal: toView(summary),
		Columns:  s.catalog.All(),
		Rows:     rows,
	}, nil
}

func (s *Service) FilterOptions(ctx context.Context) (FilterOptions, error) {
	return s.store.GetFilterOptions(ctx)
}

func toViews(summaries []Summary) []ProposalView {
	views := make([]ProposalView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, toView(summary))
	}
	return views
}

func toView(s Summary) ProposalView {
	status := s.CaptureStatus
	if status == "" {
		status = StatusNotDispatched
	}
	return ProposalView{
		ProposalID:       s.ProposalID,
		Status:           s.Status,
		ClientName:       s.ClientName,
		ClientEmail:      s.ClientEmail,
		GameDetails:      s.GameDetails,
		Hotel:            s.Hotel,
		Seller:           s.Seller,
		CheckIn:          s.CheckIn,
		CheckOut:         s.CheckOut,
		LineCount:        s.LineCount,
		TotalPax:         s.TotalPax,
		CaptureStatus:    status,
		FilledSlots:      s.FilledSlots,
		TotalSlots:       s.TotalSlots,
		ProgressPercent:  progressPercent(s.FilledSlots, s.TotalSlots),
		Deadline:         s.Deadline,
		DispatchCount:    s.DispatchCount,
		LastDispatchedAt: s.LastDispatchedAt,
	}
}

func progressPercent(filled, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(filled) / float64(total) * 100))
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
