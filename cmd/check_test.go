//go:build !integration

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadcheck/internal/config"
	"github.com/sells-group/leadcheck/internal/model"
	"github.com/sells-group/leadcheck/internal/schema"
)

func TestTruncateRows(t *testing.T) {
	tbl := model.NewTable([]string{"Email"})
	for i := range 5 {
		tbl.Append(model.Record{"Email": fmt.Sprintf("a%d@acme.de", i)})
	}

	short := truncateRows(tbl, 2)
	assert.Equal(t, 2, short.Len())
	assert.Equal(t, tbl.Columns, short.Columns)
	assert.Equal(t, "a0@acme.de", short.Rows[0].Get("Email"))
	// original is untouched
	assert.Equal(t, 5, tbl.Len())
}

func TestLoadSchema_Default(t *testing.T) {
	cfg = &config.Config{}

	s, err := loadSchema()
	require.NoError(t, err)
	assert.Contains(t, s.Leads[schema.FieldEmail], "E-Mail-Adresse")
}

func TestLoadSchema_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	yaml := "fields:\n  leads:\n    email: [\"Mail\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg = &config.Config{}
	cfg.Fields.Path = path

	s, err := loadSchema()
	require.NoError(t, err)
	assert.Equal(t, []string{"Mail"}, s.Leads[schema.FieldEmail])
}

func TestLoadSchema_MissingFile(t *testing.T) {
	cfg = &config.Config{}
	cfg.Fields.Path = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := loadSchema()
	assert.Error(t, err)
}
