package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadcheck/internal/model"
)

func sampleOutcome() *model.Outcome {
	cols := []string{"E-Mail-Adresse", "Firma/Organisation", "Reason"}
	newT := model.NewTable(cols)
	newT.Append(model.Record{"E-Mail-Adresse": "max@zzqqa.com", "Firma/Organisation": "Zzqqa", "Reason": ""})
	existing := model.NewTable(cols)
	existing.Append(model.Record{"E-Mail-Adresse": "jan@acme.de", "Reason": "Email exists in deals"})
	return &model.Outcome{New: newT, Existing: existing, DoubleCheck: model.NewTable(cols)}
}

func readCSV(t *testing.T, path string, delimiter rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	tbl := model.NewTable([]string{"Email", "Company"})
	tbl.Append(model.Record{"Email": "jan@acme.de", "Company": "Acme; GmbH"})
	tbl.Append(model.Record{"Email": "petra@nordwind.de"})

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(tbl, path, ';'))

	rows := readCSV(t, path, ';')
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Email", "Company"}, rows[0])
	assert.Equal(t, []string{"jan@acme.de", "Acme; GmbH"}, rows[1])
	assert.Equal(t, []string{"petra@nordwind.de", ""}, rows[2])
}

func TestWriteOutcome_ThreeFilesSharedStamp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteOutcome(sampleOutcome(), dir, "20260824_120000", ';')
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "new_leads_20260824_120000.csv"), paths[model.DispositionNew])
	assert.Equal(t, filepath.Join(dir, "existing_leads_20260824_120000.csv"), paths[model.DispositionExisting])
	assert.Equal(t, filepath.Join(dir, "double_check_leads_20260824_120000.csv"), paths[model.DispositionDoubleCheck])

	rows := readCSV(t, paths[model.DispositionExisting], ';')
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"jan@acme.de", "", "Email exists in deals"}, rows[1])

	// An empty partition still writes its header.
	rows = readCSV(t, paths[model.DispositionDoubleCheck], ';')
	require.Len(t, rows, 1)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(sampleOutcome(), &buf))

	var doc struct {
		Counts      map[string]int      `json:"counts"`
		New         []map[string]string `json:"new"`
		Existing    []map[string]string `json:"existing"`
		DoubleCheck []map[string]string `json:"double_check"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 2, doc.Counts["total"])
	assert.Equal(t, 1, doc.Counts["new"])
	assert.Equal(t, 1, doc.Counts["existing"])
	assert.Equal(t, 0, doc.Counts["double_check"])
	require.Len(t, doc.Existing, 1)
	assert.Equal(t, "Email exists in deals", doc.Existing[0]["Reason"])
	assert.NotNil(t, doc.DoubleCheck)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "new_leads_x.csv", FileName(model.DispositionNew, "x"))
	assert.Equal(t, "double_check_leads_x.csv", FileName(model.DispositionDoubleCheck, "x"))
}
