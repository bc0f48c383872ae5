// Package export renders parsed receipts as XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dcastano/reciboscan/internal/entity"
)

// Service produces XLSX bytes for batches of parsed receipts.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ReceiptsXLSX returns a workbook with a summary sheet (one row per
// receipt) and an items sheet (one row per line item).
func (s *Service) ReceiptsXLSX(receipts []*entity.ParsedReceipt) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()

	if err := s.writeSummary(f, receipts); err != nil {
		return nil, err
	}
	if err := s.writeItems(f, receipts); err != nil {
		return nil, err
	}

	index, _ := f.GetSheetIndex("Receipts")
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"receipts", len(receipts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeSummary(f *excelize.File, receipts []*entity.ParsedReceipt) error {
	const sheet = "Receipts"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{
		"Date",
		"Store",
		"Merchant ID",
		"Detection",
		"Items",
		"Subtotal",
		"Tax",
		"Discount",
		"Total",
		"Payment",
		"Confidence",
		"Valid",
		"Warnings",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range receipts {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		if r.Date != nil {
			write(1, r.Date.Format("2006-01-02 15:04"))
		} else {
			write(1, "")
		}
		write(2, r.StoreName)
		write(3, r.MerchantID)
		write(4, string(r.DetectionMethod))
		write(5, len(r.Items))
		write(6, decimalCell(r.Subtotal))
		write(7, decimalCell(r.Tax))
		write(8, decimalCell(r.Discount))
		write(9, decimalCell(r.Total))
		write(10, string(r.PaymentMethod))
		write(11, r.Confidence)
		write(12, r.IsValid)
		write(13, truncate(strings.Join(r.Warnings, "; "), 140))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 17) // date
	_ = f.SetColWidth(sheet, "B", "B", 28) // store
	_ = f.SetColWidth(sheet, "C", "D", 14)
	_ = f.SetColWidth(sheet, "F", "I", 11) // amounts
	_ = f.SetColWidth(sheet, "M", "M", 60) // warnings
	return nil
}

func (s *Service) writeItems(f *excelize.File, receipts []*entity.ParsedReceipt) error {
	const sheet = "Items"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Store", "Date", "Item", "Quantity", "Unit", "Unit Price", "Total Price", "Confidence"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range receipts {
		date := ""
		if r.Date != nil {
			date = r.Date.Format("2006-01-02")
		}
		for _, it := range r.Items {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, r.StoreName)
			write(2, date)
			write(3, it.Name)
			write(4, it.Quantity.String())
			write(5, string(it.Unit))
			write(6, it.UnitPrice.StringFixed(2))
			write(7, it.TotalPrice.StringFixed(2))
			write(8, it.Confidence)
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "C", "C", 40)
	_ = f.SetColWidth(sheet, "F", "G", 12)
	return nil
}

func decimalCell(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.StringFixed(2)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
