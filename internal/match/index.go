package match

import (
	"strings"

	"github.com/sells-group/leadcheck/internal/model"
	"github.com/sells-group/leadcheck/internal/normalize"
	"github.com/sells-group/leadcheck/internal/schema"
)

// ReferenceIndex holds the normalized keys of everything the reference
// tables already know. It is built once per batch and read-only from
// then on, so concurrent evaluation needs no locking.
type ReferenceIndex struct {
	emails     map[string]struct{}
	localParts map[string]struct{}
	domains    map[string]struct{}
	// companies maps the normalized name to the first spelling seen,
	// which is what reason strings report.
	companies      map[string]string
	companyDomains map[string]map[string]struct{}
}

// IndexStats reports index sizes for logging.
type IndexStats struct {
	Emails         int
	LocalParts     int
	Domains        int
	Companies      int
	CompanyDomains int
}

// BuildIndex aggregates the deal and alignment tables into a reference
// index. Aggregation is a union over every alias column present in a
// table; only the per-row company/email pairing uses first-alias-wins.
func BuildIndex(deals, alignment *model.Table, s *schema.Schema) *ReferenceIndex {
	ix := &ReferenceIndex{
		emails:         map[string]struct{}{},
		localParts:     map[string]struct{}{},
		domains:        map[string]struct{}{},
		companies:      map[string]string{},
		companyDomains: map[string]map[string]struct{}{},
	}

	tables := []struct {
		t *model.Table
		a schema.Aliases
	}{
		{deals, s.Deals},
		{alignment, s.Alignment},
	}

	// Known emails come from the deal table's email columns.
	for _, v := range s.Deals.Union(deals, schema.FieldEmail) {
		ix.emails[normalize.Email(v)] = struct{}{}
	}

	// Local parts of known emails, plus addresses buried in contact
	// free text on either table. Contact-extracted addresses feed the
	// local-part set only, not the exact-email set.
	for e := range ix.emails {
		if lp := normalize.LocalPart(e); lp != "" {
			ix.localParts[lp] = struct{}{}
		}
	}
	for _, tbl := range tables {
		for _, v := range tbl.a.Union(tbl.t, schema.FieldContact) {
			if lp := normalize.LocalPart(normalize.EmailInText(v)); lp != "" {
				ix.localParts[lp] = struct{}{}
			}
		}
	}

	// Known domains: the alignment domain columns plus the domains of
	// known emails.
	for _, v := range s.Alignment.Union(alignment, schema.FieldDomain) {
		if d := normalize.Domain(v); d != "" {
			ix.domains[d] = struct{}{}
		}
	}
	for e := range ix.emails {
		if d := normalize.Domain(e); d != "" {
			ix.domains[d] = struct{}{}
		}
	}

	// Known companies from both tables.
	for _, tbl := range tables {
		for _, v := range tbl.a.Union(tbl.t, schema.FieldCompany) {
			key := normalize.Company(v)
			if key == "" {
				continue
			}
			if _, seen := ix.companies[key]; !seen {
				ix.companies[key] = strings.TrimSpace(v)
			}
		}
	}

	// Company-to-domain associations from rows that carry both a
	// company and a reachable email address.
	for _, tbl := range tables {
		for _, row := range tbl.t.Rows {
			key := normalize.Company(tbl.a.First(row, schema.FieldCompany))
			if key == "" {
				continue
			}
			email := tbl.a.First(row, schema.FieldEmail)
			if email == "" {
				email = normalize.EmailInText(tbl.a.First(row, schema.FieldContact))
			}
			d := normalize.Domain(email)
			if d == "" {
				continue
			}
			set := ix.companyDomains[key]
			if set == nil {
				set = map[string]struct{}{}
				ix.companyDomains[key] = set
			}
			set[d] = struct{}{}
		}
	}

	return ix
}

// HasEmail reports whether the exact normalized address is known.
func (ix *ReferenceIndex) HasEmail(email string) bool {
	_, ok := ix.emails[email]
	return ok
}

// HasLocalPart reports whether the normalized local part is known.
func (ix *ReferenceIndex) HasLocalPart(lp string) bool {
	_, ok := ix.localParts[lp]
	return ok
}

// Company returns the display spelling for a normalized company key.
func (ix *ReferenceIndex) Company(key string) (string, bool) {
	display, ok := ix.companies[key]
	return display, ok
}

// BestDomain returns the strongest fuzzy match for a candidate domain
// across the known domains and the company-associated domains. When the
// best match carries a company association, its display name is
// returned alongside.
func (ix *ReferenceIndex) BestDomain(d string) (score int, domain, company string) {
	for kd := range ix.domains {
		if s := Ratio(d, kd); s > score {
			score, domain, company = s, kd, ""
		}
	}
	for key, set := range ix.companyDomains {
		for kd := range set {
			s := Ratio(d, kd)
			if s > score || (s == score && s > 0 && kd == domain && company == "") {
				score, domain = s, kd
				company = ix.companies[key]
			}
		}
	}
	return score, domain, company
}

// BestCompany returns the closest known company to a normalized
// candidate name, as a score and the display spelling of the match.
func (ix *ReferenceIndex) BestCompany(key string) (score int, display string) {
	for known, disp := range ix.companies {
		if s := Ratio(key, known); s > score {
			score, display = s, disp
		}
	}
	return score, display
}

// Stats returns the index sizes.
func (ix *ReferenceIndex) Stats() IndexStats {
	pairs := 0
	for _, set := range ix.companyDomains {
		pairs += len(set)
	}
	return IndexStats{
		Emails:         len(ix.emails),
		LocalParts:     len(ix.localParts),
		Domains:        len(ix.domains),
		Companies:      len(ix.companies),
		CompanyDomains: pairs,
	}
}
