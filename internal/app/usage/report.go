package usage

import (
	"io"
	"time"

	"github.com/tealeg/xlsx"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/model"
)

// WriteReport renders ledger entries into an xlsx workbook, one row per
// entry plus a totals row.
func WriteReport(entries []model.UsageEntry, w io.Writer) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Usage")
	if err != nil {
		return apperrors.Wrap(err, "add report sheet")
	}

	header := sheet.AddRow()
	header.AddCell().Value = "Entry ID"
	header.AddCell().Value = "User"
	header.AddCell().Value = "Job"
	header.AddCell().Value = "Model Tier"
	header.AddCell().Value = "Minutes"
	header.AddCell().Value = "Cost"
	header.AddCell().Value = "Created"

	totalMinutes := sumMinutes(entries)
	totalCost := sumCost(entries)

	for _, e := range entries {
		row := sheet.AddRow()
		row.AddCell().SetInt64(e.ID)
		row.AddCell().Value = e.UserID
		row.AddCell().Value = e.JobID
		row.AddCell().Value = string(e.ModelTier)
		row.AddCell().Value = e.MinutesProcessed.String()
		row.AddCell().Value = e.Cost.String()
		row.AddCell().Value = e.CreatedAt.Format(time.RFC3339)
	}

	totals := sheet.AddRow()
	totals.AddCell().Value = "TOTAL"
	totals.AddCell()
	totals.AddCell()
	totals.AddCell()
	totals.AddCell().Value = totalMinutes.String()
	totals.AddCell().Value = totalCost.String()

	if err := file.Write(w); err != nil {
		return apperrors.Wrap(err, "write report")
	}
	return nil
}
