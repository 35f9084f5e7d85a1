// Package export writes derived tables to disk as CSV files and a
// combined Excel workbook, and optionally ships them to S3.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/mentorlane/insights/pkg/models"
)

// Writer persists tables under a run directory.
type Writer struct {
	dir string
}

// NewWriter ensures the output directory exists.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteCSV writes one table as <name>.csv and returns the file path.
func (w *Writer) WriteCSV(table models.Table) (string, error) {
	path := filepath.Join(w.dir, table.Name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(table.Columns); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range table.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = models.CellString(cell)
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return path, writer.Error()
}

// WriteWorkbook writes every table as a sheet of one Excel workbook
// and returns the file path.
func (w *Writer) WriteWorkbook(filename string, tables []models.Table) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create style: %w", err)
	}

	for i, table := range tables {
		sheet := sheetName(table.Name)
		index, err := f.NewSheet(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to create sheet: %w", err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}

		for col, header := range table.Columns {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return "", err
			}
			f.SetCellValue(sheet, cell, header)
			f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		for rowIdx, row := range table.Rows {
			for col, value := range row {
				cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
				if err != nil {
					return "", err
				}
				f.SetCellValue(sheet, cell, models.CellString(value))
			}
		}
	}
	f.DeleteSheet("Sheet1")

	path := filepath.Join(w.dir, filename)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return path, nil
}

// WriteText writes a plain text artifact and returns the file path.
func (w *Writer) WriteText(filename, content string) (string, error) {
	path := filepath.Join(w.dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return path, nil
}

// sheetName trims a table name to Excel's 31-character sheet limit.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
