package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bregovic/docmeta/internal/analyze"
)

// Service turns one analysis result into an XLSX workbook for review.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ResultXLSX returns workbook bytes with one row per extracted attribute.
func (s *Service) ResultXLSX(res *analyze.Result) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Extraction"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the implicit default sheet so the workbook opens on Extraction
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 && sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Attribute",
		"Code",
		"Value",
		"Confidence",
		"Strategy",
		"Zone",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, a := range res.Attributes {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, a.Name)
		write(2, a.Code)
		write(3, a.Value)
		write(4, string(a.Confidence))
		write(5, a.Strategy)
		if a.Source != nil {
			write(6, fmt.Sprintf("%d,%d %dx%d", a.Source.X, a.Source.Y, a.Source.Width, a.Source.Height))
		} else {
			write(6, "")
		}

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 28) // attribute name
	_ = f.SetColWidth(sheet, "B", "B", 22) // code
	_ = f.SetColWidth(sheet, "C", "C", 48) // value
	_ = f.SetColWidth(sheet, "D", "E", 16) // confidence, strategy
	_ = f.SetColWidth(sheet, "F", "F", 18) // zone

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"document_id", res.DocumentID.String(),
		"rows", len(res.Attributes),
		"strategy", res.StrategyUsed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
