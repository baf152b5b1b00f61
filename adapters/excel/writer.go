package excel

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"gradelens/domain/dataset"
)

// ExportSheet is the worksheet name of exported workbooks
const ExportSheet = "Sheet1"

// WriteCSV writes the rows of ds in the source schema: source columns only,
// in load order, each cell as originally read.
func WriteCSV(w io.Writer, ds *dataset.Dataset) error {
	cols := ds.Schema().SourceColumns()
	cw := csv.NewWriter(w)

	if err := cw.Write(columnNames(cols)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	record := make([]string, len(cols))
	for i := 0; i < ds.Len(); i++ {
		for j, c := range cols {
			record[j] = ds.Value(i, c.Name).Text()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same table as WriteCSV into a single-sheet workbook.
// Numeric cells whose source text is already canonical are stored as
// numbers; everything else is stored as text.
func WriteXLSX(w io.Writer, ds *dataset.Dataset) error {
	cols := ds.Schema().SourceColumns()
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(ExportSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet writer: %w", err)
	}

	header := make([]interface{}, len(cols))
	for j, c := range cols {
		header[j] = c.Name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < ds.Len(); i++ {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			row[j] = xlsxCell(ds.Value(i, c.Name))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func xlsxCell(v dataset.Value) interface{} {
	if f, ok := v.Float64(); ok && v.Text() == v.String() {
		return f
	}
	return v.Text()
}

func columnNames(cols []dataset.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
