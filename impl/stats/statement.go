package stats

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// statementCap bounds the export; older history stays queryable through
// the paged commissions endpoint.
const statementCap = 10000

// Statement renders the member's commission ledger as an xlsx workbook.
func (a *Aggregator) Statement(ctx context.Context, memberId string) ([]byte, error) {
	if _, err := a.members.MemberById(ctx, memberId); err != nil {
		return nil, err
	}
	records, err := a.store.RecordsByRecipient(ctx, memberId, statementCap, 0)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Commissions"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Record ID", "Event ID", "Source Member", "Type", "Generation", "Rate %", "Amount", "Currency", "Status", "Created", "Settled"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err = f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for row, rec := range records {
		settled := ""
		if rec.SettledAt != nil {
			settled = rec.SettledAt.UTC().Format("2006-01-02 15:04:05")
		}
		amount, _ := rec.Amount.Float64()
		rate, _ := rec.RateApplied.Float64()
		values := []interface{}{
			rec.Id,
			rec.EventId,
			rec.SourceMemberId,
			string(rec.Type),
			rec.GenerationDistance,
			rate,
			amount,
			rec.Currency,
			string(rec.Status),
			rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			settled,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err = f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
