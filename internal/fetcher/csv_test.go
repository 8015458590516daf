package fetcher

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_CommaUTF8(t *testing.T) {
	in := "Email,Firma\njan@acme.de,Acme GmbH\npetra@nordwind.de,Nordwind\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"Email", "Firma"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "jan@acme.de", table.Rows[0].Get("Email"))
	assert.Equal(t, "Nordwind", table.Rows[1].Get("Firma"))
}

func TestReadCSV_SemicolonFallback(t *testing.T) {
	in := "Email;Firma\njan@acme.de;Acme GmbH\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"Email", "Firma"}, table.Columns)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "Acme GmbH", table.Rows[0].Get("Firma"))
}

func TestReadCSV_Windows1252(t *testing.T) {
	// 0xFC is "ü" in Windows-1252 and invalid as a standalone UTF-8 byte.
	in := []byte("Email;Firma\r\njan@acme.de;M\xfcller GmbH\r\n")
	table, err := ReadCSV(bytes.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"Email", "Firma"}, table.Columns)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "Müller GmbH", table.Rows[0].Get("Firma"))
}

func TestReadCSV_StripsBOM(t *testing.T) {
	in := "\ufeffEmail,Firma\njan@acme.de,Acme\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "Firma"}, table.Columns)
}

func TestReadCSV_TrimsHeaderWhitespace(t *testing.T) {
	in := " Email , Firma \njan@acme.de,Acme\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "Firma"}, table.Columns)
}

func TestReadCSV_ShortRowPadded(t *testing.T) {
	in := "Email,Firma,Stadt\njan@acme.de,Acme\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, "", table.Rows[0].Get("Stadt"))
}

func TestReadCSV_QuotedDelimiter(t *testing.T) {
	in := "Email,Firma\njan@acme.de,\"Acme, Inc.\"\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "Acme, Inc.", table.Rows[0].Get("Firma"))
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("Email,Firma\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorContains(t, err, "no header row")
}

func TestReadCSV_SingleColumnStaysSingle(t *testing.T) {
	in := "Email\njan@acme.de\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Email"}, table.Columns)
	assert.Equal(t, "jan@acme.de", table.Rows[0].Get("Email"))
}
