// Package report renders the local queue as an Excel workbook.
package report

import (
	"fmt"
	"io"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/utils"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Transactions"

var header = []any{"ID", "Employee", "Type", "Timestamp (UTC)", "Device", "Source", "Status"}

var widths = map[string]float64{"A": 26, "B": 14, "C": 11, "D": 20, "E": 14, "F": 24, "G": 13}

// WriteTransactions writes one row per transaction in the given order.
func WriteTransactions(w io.Writer, txs []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for col, width := range widths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("set width: %w", err)
		}
	}

	for i, tx := range txs {
		ts := tx.Timestamp
		if t, err := utils.ParseISOTime(tx.Timestamp); err == nil {
			ts = t.UTC().Format("2006-01-02 15:04:05")
		}
		row := []any{tx.ID, tx.EmployeeID, string(tx.Type), ts, tx.DeviceID, tx.SourceLabel, string(tx.UploadStatus)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	_, err = f.WriteTo(w)
	return err
}
