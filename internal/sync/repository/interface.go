package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Sync run statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"
	StatusError   = "ERROR"
)

// SalesOrder is one line of a travel proposal as synced from the
// sales log. (ProposalID, LineNumber) is the natural key. RawData is
// the original sheet row keyed by header name; RawHash is its digest
// and drives change detection.
type SalesOrder struct {
	ID             uuid.UUID
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
	RawData        map[string]string
	RawHash        string
	SyncedAt       time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderKey identifies a sales order line.
type OrderKey struct {
	ProposalID string
	LineNumber int
}

// SyncLog records one sync run.
type SyncLog struct {
	ID           uuid.UUID  `json:"id"`
	Status       string     `json:"status"`
	Trigger      string     `json:"trigger"`
	RowsRead     int        `json:"rowsRead"`
	RowsUpserted int        `json:"rowsUpserted"`
	RowsSkipped  int        `json:"rowsSkipped"`
	RowsErrored  int        `json:"rowsErrored"`
	Errors       []string   `json:"errors,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// Counts aggregates the outcome of a sync run.
type Counts struct {
	Read     int
	Upserted int
	Skipped  int
	Errored  int
}

// Store is the persistence port for synced orders and run logs.
type Store interface {
	// GetHashesByKeys returns the stored raw hash per existing key.
	// Missing keys are simply absent from the map.
	GetHashesByKeys(ctx context.Context, keys []OrderKey) (map[OrderKey]string, error)
	// UpsertOrder inserts or updates a line by its natural key.
	UpsertOrder(ctx context.Context, order SalesOrder) error
	// ListOrdersByProposal returns a proposal's lines in line order.
	ListOrdersByProposal(ctx context.Context, proposalID string) ([]SalesOrder, error)

	CreateSyncLog(ctx context.Context, trigger string) (SyncLog, error)
	FinalizeSyncLog(ctx context.Context, id uuid.UUID, status string, counts Counts, errs []string) error
	ListSyncLogs(ctx context.Context, limit int) ([]SyncLog, error)
}
