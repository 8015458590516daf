package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadcheck/internal/model"
)

func TestFirst_PriorityOrder(t *testing.T) {
	a := Default().Leads
	r := model.Record{"E-Mail-Adresse": "jan@acme.de", "Email": "other@acme.de"}
	assert.Equal(t, "jan@acme.de", a.First(r, FieldEmail))
}

func TestFirst_SkipsBlankValues(t *testing.T) {
	a := Default().Leads
	r := model.Record{"E-Mail-Adresse": "  ", "Email": "jan@acme.de"}
	assert.Equal(t, "jan@acme.de", a.First(r, FieldEmail))
}

func TestFirst_NoMatch(t *testing.T) {
	a := Default().Leads
	assert.Equal(t, "", a.First(model.Record{"Telefon": "123"}, FieldEmail))
}

func TestColumns_PresentAliasesOnly(t *testing.T) {
	a := Default().Deals
	tbl := model.NewTable([]string{"Deal Name", "E-Mail", "Email"})
	assert.Equal(t, []string{"Email", "E-Mail"}, a.Columns(tbl, FieldEmail))
}

func TestColumns_FieldAbsent(t *testing.T) {
	a := Default().Deals
	tbl := model.NewTable([]string{"Deal Name", "Amount"})
	assert.Empty(t, a.Columns(tbl, FieldEmail))
}

func TestUnion_AllAliasColumnsContribute(t *testing.T) {
	a := Default().Deals
	tbl := model.NewTable([]string{"Email", "Associated Email"})
	tbl.Append(model.Record{"Email": "a@x.de", "Associated Email": "b@x.de"})
	tbl.Append(model.Record{"Email": "", "Associated Email": "c@x.de"})

	got := a.Union(tbl, FieldEmail)
	assert.Equal(t, []string{"a@x.de", "b@x.de", "c@x.de"}, got)
}

func TestSuggest_NearMissHeader(t *testing.T) {
	a := Default().Leads
	tbl := model.NewTable([]string{"E-Mail Adresse", "Firma"})
	header, distance, ok := a.Suggest(tbl, FieldEmail)
	require.True(t, ok)
	assert.Equal(t, "E-Mail Adresse", header)
	assert.Equal(t, 1, distance)
}

func TestSuggest_EmptyTable(t *testing.T) {
	a := Default().Leads
	_, _, ok := a.Suggest(model.NewTable(nil), FieldEmail)
	assert.False(t, ok)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	content := []byte(`fields:
  leads:
    email: ["Mail"]
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mail"}, s.Leads[FieldEmail])
	// Untouched fields keep their built-in aliases.
	assert.Equal(t, Default().Leads[FieldCompany], s.Leads[FieldCompany])
	assert.Equal(t, Default().Deals, s.Deals)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields: ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
