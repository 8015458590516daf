// Package schema maps the logical fields used for matching (email,
// company, domain, contact, name) onto the column names that carry them
// in HubSpot exports. Every table vintage spells its headers differently,
// so each logical field has an ordered alias list per table, overridable
// from a YAML file.
package schema

import (
	"os"

	"github.com/agnivade/levenshtein"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadcheck/internal/model"
)

// Field names a logical column independent of its spelling in a header.
type Field string

const (
	FieldEmail   Field = "email"
	FieldCompany Field = "company"
	FieldDomain  Field = "domain"
	FieldContact Field = "contact"
	FieldName    Field = "name"
)

// Aliases maps logical fields to header spellings in priority order.
type Aliases map[Field][]string

// Schema holds the alias profiles for the three input tables.
type Schema struct {
	Deals     Aliases `yaml:"deals"`
	Alignment Aliases `yaml:"alignment"`
	Leads     Aliases `yaml:"leads"`
}

// Default returns the built-in alias profiles covering the known German
// and English HubSpot export vintages.
func Default() *Schema {
	return &Schema{
		Deals: Aliases{
			FieldEmail:   {"Email", "Associated Email", "E-Mail"},
			FieldCompany: {"Associated Company", "Company", "Unternehmensname"},
			FieldContact: {"Associated Contact", "Kontakt", "Contact"},
		},
		Alignment: Aliases{
			FieldDomain:  {"Domain-Name des Unternehmens", "Company Domain Name", "Domain"},
			FieldCompany: {"Associated Company", "Company", "Unternehmensname"},
			FieldEmail:   {"Email", "Associated Email", "E-Mail"},
			FieldContact: {"Associated Contact", "Kontakt", "Contact"},
		},
		Leads: Aliases{
			FieldEmail:   {"E-Mail-Adresse", "Email", "E-Mail"},
			FieldCompany: {"Firma/Organisation", "Company", "Firma"},
			FieldName:    {"Name", "Vorname", "First Name"},
		},
	}
}

type schemaFile struct {
	Fields Schema `yaml:"fields"`
}

// Load reads alias profiles from a YAML file of the form
//
//	fields:
//	  leads:
//	    email: ["E-Mail-Adresse", "Email"]
//
// Fields not named in the file keep their built-in aliases.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: reading %s", path)
	}
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "schema: parsing %s", path)
	}
	s := f.Fields
	s.fillDefaults()
	return &s, nil
}

func (s *Schema) fillDefaults() {
	def := Default()
	s.Deals = mergeAliases(s.Deals, def.Deals)
	s.Alignment = mergeAliases(s.Alignment, def.Alignment)
	s.Leads = mergeAliases(s.Leads, def.Leads)
}

func mergeAliases(have, def Aliases) Aliases {
	if have == nil {
		return def
	}
	for f, cols := range def {
		if len(have[f]) == 0 {
			have[f] = cols
		}
	}
	return have
}

// First returns the value of the first alias of f that is non-blank in r.
// Used for per-row extraction, where one value per row is wanted.
func (a Aliases) First(r model.Record, f Field) string {
	for _, col := range a[f] {
		if v := r.Get(col); v != "" {
			return v
		}
	}
	return ""
}

// Columns returns the aliases of f present in t's header, in priority
// order. An empty result means the table does not carry the field and
// checks depending on it are skipped.
func (a Aliases) Columns(t *model.Table, f Field) []string {
	var cols []string
	for _, col := range a[f] {
		if t.HasColumn(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// Union collects every non-blank value of f from every alias column
// present in t. Unlike First, all alias columns contribute, column by
// column in priority order.
func (a Aliases) Union(t *model.Table, f Field) []string {
	var values []string
	for _, col := range a.Columns(t, f) {
		for _, row := range t.Rows {
			if v := row.Get(col); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

// Suggest returns the header of t closest to any alias of f, measured by
// edit distance. Used to hint at near-miss spellings when a field
// resolves to no column.
func (a Aliases) Suggest(t *model.Table, f Field) (header string, distance int, ok bool) {
	for _, col := range a[f] {
		for _, h := range t.Columns {
			d := levenshtein.ComputeDistance(col, h)
			if !ok || d < distance {
				header, distance, ok = h, d, true
			}
		}
	}
	return header, distance, ok
}
