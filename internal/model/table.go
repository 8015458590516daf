// Package model defines the shared types for lead classification: tabular
// records, dispositions, match results, and run history.
package model

import (
	"slices"
	"strings"
)

// ReasonColumn is the column appended to every classified record.
const ReasonColumn = "Reason"

// ReasonDelimiter joins multiple match reasons into the Reason cell.
const ReasonDelimiter = " & "

// Record is one row keyed by column name. A missing key and a blank value
// are equivalent; Get never distinguishes them.
type Record map[string]string

// Get returns the trimmed value for a column, or "" when absent.
func (r Record) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of records with a shared header. Cell order
// within a record follows Columns, not map order.
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable creates an empty table with the given header.
func NewTable(columns []string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// HasColumn reports whether the header contains the exact column name.
func (t *Table) HasColumn(col string) bool {
	return slices.Contains(t.Columns, col)
}

// Append adds a row to the table.
func (t *Table) Append(r Record) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Disposition is the final classification of a candidate lead.
type Disposition string

const (
	DispositionNew         Disposition = "NEW"
	DispositionExisting    Disposition = "EXISTING"
	DispositionDoubleCheck Disposition = "DOUBLE_CHECK"
)

// Dispositions lists all dispositions in output order.
var Dispositions = []Disposition{DispositionNew, DispositionExisting, DispositionDoubleCheck}

// ParseDisposition maps user-facing spellings (new, existing, double_check,
// double-check) onto a Disposition.
func ParseDisposition(s string) (Disposition, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case string(DispositionNew):
		return DispositionNew, true
	case string(DispositionExisting):
		return DispositionExisting, true
	case string(DispositionDoubleCheck):
		return DispositionDoubleCheck, true
	}
	return "", false
}

// MatchResult is the outcome of evaluating one candidate against the
// reference index.
type MatchResult struct {
	Disposition Disposition `json:"disposition"`
	Reasons     []string    `json:"reasons,omitempty"`
	// Score is the best fuzzy similarity that contributed a signal,
	// 0 when only exact signals (or none) fired.
	Score int `json:"score,omitempty"`
	// Matched names the reference counterpart of the best fuzzy score.
	Matched string `json:"matched,omitempty"`
}

// Reason returns the joined reason trail, "" for an unmatched lead.
func (m MatchResult) Reason() string {
	return strings.Join(m.Reasons, ReasonDelimiter)
}

// Outcome is the stable three-way partition of a classified batch. Each
// table carries the input header plus the Reason column.
type Outcome struct {
	New         *Table
	Existing    *Table
	DoubleCheck *Table
}

// TableFor returns the partition for a disposition.
func (o *Outcome) TableFor(d Disposition) *Table {
	switch d {
	case DispositionExisting:
		return o.Existing
	case DispositionDoubleCheck:
		return o.DoubleCheck
	default:
		return o.New
	}
}

// Total returns the summed row count of all three partitions.
func (o *Outcome) Total() int {
	return o.New.Len() + o.Existing.Len() + o.DoubleCheck.Len()
}
