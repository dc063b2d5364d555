package export

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"tronquery/internal/domain"
)

// Lister is the slice of the entity service the exporter needs.
type Lister interface {
	List(ctx context.Context, opts domain.ListOptions) ([]*domain.AddressQuery, error)
}

const sheetName = "Queries"

// Service renders persisted address queries as an Excel workbook.
type Service struct {
	queries Lister
}

// NewService builds an exporter over the address query service.
func NewService(queries Lister) *Service {
	return &Service{queries: queries}
}

// Workbook lists every address query ordered by id and writes one row per
// query. The returned filename carries a fresh uuid so downloads never
// collide.
func (s *Service) Workbook(ctx context.Context) (*excelize.File, string, error) {
	rows, err := s.queries.List(ctx, domain.ListOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("list queries for export: %w", err)
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetName)

	header := []any{"ID", "Address", "TRX Balance", "Bandwidth", "Energy", "Created At"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, "", fmt.Errorf("write export header: %w", err)
	}

	for i, q := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", fmt.Errorf("compute export cell: %w", err)
		}
		row := []any{q.ID, q.Address, q.TrxBalance, q.Bandwidth, q.Energy, q.CreatedAt.Format("2006-01-02 15:04:05")}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, "", fmt.Errorf("write export row %d: %w", i+1, err)
		}
	}

	filename := fmt.Sprintf("address_queries_%s.xlsx", uuid.NewString())
	return f, filename, nil
}
