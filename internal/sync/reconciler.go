// Package sync pulls the sales log spreadsheet into the local
// sales_orders table. A content hash per line keeps repeated runs
// idempotent: unchanged rows are skipped without touching storage.
package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"tripforms_backend/internal/sync/repository"
	"tripforms_backend/internal/sync/sheets"
	"tripforms_backend/platform/db"
	"tripforms_backend/platform/logger"
)

// Reconciler applies mapped sheet rows to storage.
type Reconciler struct {
	store repository.Store
	log   *logger.Logger
}

func NewReconciler(store repository.Store, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// Outcome aggregates a reconcile pass. RowErrors carries per-row
// failures; the pass itself only fails when storage is unreachable.
type Outcome struct {
	Counts    repository.Counts
	RowErrors []string
}

// Reconcile upserts changed rows and skips unchanged ones. A single
// bad row never aborts the pass: its error is absorbed into the
// outcome and the remaining rows proceed.
func (r *Reconciler) Reconcile(ctx context.Context, mapped sheets.MapResult) (Outcome, error) {
	outcome := Outcome{}
	outcome.Counts.Read = len(mapped.Rows) + mapped.Skipped + len(mapped.Errors)
	outcome.Counts.Skipped = mapped.Skipped
	for _, rowErr := range mapped.Errors {
		outcome.Counts.Errored++
		outcome.RowErrors = append(outcome.RowErrors, fmt.Sprintf("row %d: %s", rowErr.SheetRow, rowErr.Reason))
	}

	keys := make([]repository.OrderKey, len(mapped.Rows))
	for i, row := range mapped.Rows {
		keys[i] = repository.OrderKey{ProposalID: row.ProposalID, LineNumber: row.LineNumber}
	}

	var existing map[repository.OrderKey]string
	err := db.RetryTransient(ctx, func() error {
		var err error
		existing, err = r.store.GetHashesByKeys(ctx, keys)
		return err
	})
	if err != nil {
		return outcome, fmt.Errorf("prefetch content hashes: %w", err)
	}

	for i, row := range mapped.Rows {
		hash := RawHash(row.Raw)
		if existing[keys[i]] == hash {
			outcome.Counts.Skipped++
			continue
		}

		order := toSalesOrder(row, hash)
		err := db.RetryTransient(ctx, func() error {
			return r.store.UpsertOrder(ctx, order)
		})
		if err != nil {
			outcome.Counts.Errored++
			outcome.RowErrors = append(outcome.RowErrors,
				fmt.Sprintf("proposal %s line %d: %v", row.ProposalID, row.LineNumber, err))
			r.log.DatabaseError("upsert sales order", err)
			continue
		}
		outcome.Counts.Upserted++
	}

	return outcome, nil
}

// RawHash returns the sha256 of a row's original cells. json.Marshal
// sorts map keys, so column order in the sheet never changes the hash,
// but any cell change does, mapped or not.
func RawHash(raw map[string]string) string {
	if raw == nil {
		raw = map[string]string{}
	}
	data, _ := json.Marshal(raw)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func toSalesOrder(row sheets.OrderRow, hash string) repository.SalesOrder {
	return repository.SalesOrder{
		ProposalID:     row.ProposalID,
		LineNumber:     row.LineNumber,
		Status:         row.Status,
		ClientName:     row.ClientName,
		ClientEmail:    row.ClientEmail,
		GameDetails:    row.GameDetails,
		Hotel:          row.Hotel,
		RoomType:       row.RoomType,
		Rooms:          row.Rooms,
		Pax:            row.Pax,
		CheckIn:        row.CheckIn,
		CheckOut:       row.CheckOut,
		TicketCategory: row.TicketCategory,
		Seller:         row.Seller,
		RawData:        row.Raw,
		RawHash:        hash,
	}
}
