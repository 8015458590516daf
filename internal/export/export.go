// Package export writes classified lead tables to disk, as semicolon
// CSV files matching the HubSpot import convention or as a single JSON
// document.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadcheck/internal/model"
)

// DefaultDelimiter is the cell separator for exported CSV files.
const DefaultDelimiter = ';'

// filePrefixes names the per-disposition output files.
var filePrefixes = map[model.Disposition]string{
	model.DispositionNew:         "new_leads",
	model.DispositionExisting:    "existing_leads",
	model.DispositionDoubleCheck: "double_check_leads",
}

// StampLayout is the time layout for the token embedded in output
// file names.
const StampLayout = "20060102_150405"

// Stamp returns the timestamp token embedded in output file names.
func Stamp() string {
	return time.Now().Format(StampLayout)
}

// FileName builds the output file name for one disposition.
func FileName(d model.Disposition, stamp string) string {
	return filePrefixes[d] + "_" + stamp + ".csv"
}

// Write streams a table as CSV to w with the given delimiter.
func Write(w io.Writer, t *model.Table, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter

	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	row := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, col := range t.Columns {
			row[i] = r[col]
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

// WriteCSV writes a table to path with the given delimiter.
func WriteCSV(t *model.Table, path string, delimiter rune) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close()
	return Write(f, t, delimiter)
}

// WriteOutcome writes the three partitions into dir using a shared
// timestamp, creating dir if needed. It returns the written file path
// per disposition.
func WriteOutcome(o *model.Outcome, dir, stamp string, delimiter rune) (map[model.Disposition]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "export: create output dir")
	}

	paths := make(map[model.Disposition]string, len(model.Dispositions))
	for _, d := range model.Dispositions {
		path := filepath.Join(dir, FileName(d, stamp))
		if err := WriteCSV(o.TableFor(d), path, delimiter); err != nil {
			return nil, err
		}
		paths[d] = path
	}
	return paths, nil
}

type jsonOutcome struct {
	Counts      map[string]int `json:"counts"`
	New         []model.Record `json:"new"`
	Existing    []model.Record `json:"existing"`
	DoubleCheck []model.Record `json:"double_check"`
}

// WriteJSON writes the full outcome as one indented JSON document.
func WriteJSON(o *model.Outcome, w io.Writer) error {
	doc := jsonOutcome{
		Counts: map[string]int{
			"total":        o.Total(),
			"new":          o.New.Len(),
			"existing":     o.Existing.Len(),
			"double_check": o.DoubleCheck.Len(),
		},
		New:         rows(o.New),
		Existing:    rows(o.Existing),
		DoubleCheck: rows(o.DoubleCheck),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(doc), "export: encode json")
}

func rows(t *model.Table) []model.Record {
	if len(t.Rows) == 0 {
		return []model.Record{}
	}
	return t.Rows
}
