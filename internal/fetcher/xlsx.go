package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadcheck/internal/model"
)

// XLSXOptions selects the worksheet to read.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads a workbook from disk into a table. The first row of
// the selected sheet is the header.
func ReadXLSX(path string, opts XLSXOptions) (*model.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return sheetToTable(f, opts)
}

// ReadXLSXBytes reads an in-memory workbook, used for remote sources.
func ReadXLSXBytes(data []byte, opts XLSXOptions) (*model.Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	return sheetToTable(f, opts)
}

func sheetToTable(f *xlsx.File, opts XLSXOptions) (*model.Table, error) {
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsx: no header row")
	}

	header := rowToStrings(sheet.Rows[0])
	for i, col := range header {
		header[i] = cleanHeader(col)
	}

	table := model.NewTable(header)
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		rec := make(model.Record, len(header))
		for i, col := range header {
			if i < len(cells) {
				rec[col] = cells[i]
			} else {
				rec[col] = ""
			}
		}
		table.Append(rec)
	}
	return table, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
