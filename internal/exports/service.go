// Package exports renders the proposal data matrix as a CSV download
// for the operations team.
package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"tripforms_backend/internal/proposals"
	"tripforms_backend/platform/logger"
)

// utf8BOM keeps Excel from mangling accented passenger names.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MatrixProvider builds the matrix this package renders.
type MatrixProvider interface {
	Matrix(ctx context.Context, proposalID string) (proposals.Matrix, error)
}

// Export is a rendered CSV file.
type Export struct {
	Filename string
	Content  []byte
}

// Service renders matrix exports.
type Service struct {
	matrix MatrixProvider
	log    *logger.Logger
}

func NewService(matrix MatrixProvider, log *logger.Logger) *Service {
	return &Service{matrix: matrix, log: log}
}

// ProposalCSV renders the passenger matrix of one proposal. Columns
// are a 1-based passenger number plus every catalog field in display
// order.
func (s *Service) ProposalCSV(ctx context.Context, proposalID string) (Export, error) {
	matrix, err := s.matrix.Matrix(ctx, proposalID)
	if err != nil {
		return Export{}, err
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)

	header := []string{"Proposta", "Passageiro", "Quarto", "Status"}
	for _, field := range matrix.Columns {
		header = append(header, field.Label)
	}
	if err := w.Write(header); err != nil {
		return Export{}, err
	}

	for i, row := range matrix.Rows {
		record := []string{
			matrix.Proposal.ProposalID,
			fmt.Sprintf("%d", i+1),
			row.RoomLabel,
			row.Status,
		}
		for _, field := range matrix.Columns {
			record = append(record, row.Answers[field.Key])
		}
		if err := w.Write(record); err != nil {
			return Export{}, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return Export{}, err
	}

	return Export{
		Filename: fmt.Sprintf("passageiros_%s.csv", matrix.Proposal.ProposalID),
		Content:  buf.Bytes(),
	}, nil
}
