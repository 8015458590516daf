package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/leadcheck/internal/model"
)

// ReadCSV parses a HubSpot export into a table. Exports come in two
// shapes depending on locale settings: comma-separated UTF-8 and
// semicolon-separated Windows-1252. Bytes that are not valid UTF-8 are
// decoded as Windows-1252; a parse that leaves the whole header in one
// column is retried with a semicolon delimiter.
func ReadCSV(r io.Reader) (*model.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "csv: read input")
	}

	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrap(err, "csv: decode windows-1252")
		}
		data = decoded
	}

	table, err := parseCSV(data, ',')
	if err != nil {
		return nil, err
	}
	if len(table.Columns) == 1 {
		return parseCSV(data, ';')
	}
	return table, nil
}

func parseCSV(data []byte, comma rune) (*model.Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: parse")
	}
	if len(records) == 0 {
		return nil, eris.New("csv: no header row")
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = cleanHeader(col)
	}

	table := model.NewTable(header)
	for _, rec := range records[1:] {
		row := make(model.Record, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		table.Append(row)
	}
	return table, nil
}

// cleanHeader drops stray BOM characters and surrounding whitespace
// that exports carry on column names.
func cleanHeader(col string) string {
	col = strings.ReplaceAll(col, "\ufeff", "")
	return strings.TrimSpace(col)
}
