package match

import (
	"fmt"

	"github.com/sells-group/leadcheck/internal/model"
	"github.com/sells-group/leadcheck/internal/normalize"
	"github.com/sells-group/leadcheck/internal/schema"
)

// Evaluator classifies candidate leads against a reference index. The
// signal checks run independently of each other, so a lead's reason
// trail lists every way it is already known, not just the first.
type Evaluator struct {
	idx        *ReferenceIndex
	leads      schema.Aliases
	thresholds model.Thresholds
}

// NewEvaluator wires an index, the candidate table's alias profile, and
// the similarity cutoffs into an evaluator. Safe for concurrent use.
func NewEvaluator(idx *ReferenceIndex, leads schema.Aliases, t model.Thresholds) *Evaluator {
	return &Evaluator{idx: idx, leads: leads, thresholds: t}
}

// Evaluate classifies one candidate lead. A lead with no signal at all
// is NEW with an empty reason trail; any strong signal makes it
// EXISTING; review-band signals alone make it DOUBLE_CHECK.
func (e *Evaluator) Evaluate(lead model.Record) model.MatchResult {
	var (
		reasons  []string
		existing bool
		review   bool
		best     int
		matched  string
	)

	email := normalize.Email(e.leads.First(lead, schema.FieldEmail))

	if email != "" && e.idx.HasEmail(email) {
		existing = true
		reasons = append(reasons, "Email exists in deals")
	}

	if lp := normalize.LocalPart(email); lp != "" && e.idx.HasLocalPart(lp) {
		existing = true
		reasons = append(reasons, "Local email name already known")
	}

	if d := normalize.Domain(email); d != "" {
		score, domain, company := e.idx.BestDomain(d)
		target := domain
		if company != "" {
			target = company
		}
		switch {
		case score >= e.thresholds.DomainHigh:
			existing = true
			if company != "" {
				reasons = append(reasons, fmt.Sprintf("Company domain matches %s (score %d)", company, score))
			} else {
				reasons = append(reasons, fmt.Sprintf("Domain %q already known (score %d)", domain, score))
			}
		case score >= e.thresholds.DomainMid:
			review = true
			reasons = append(reasons, fmt.Sprintf("Possible domain match: %s (score %d), needs review", target, score))
		}
		if score >= e.thresholds.DomainMid && score > best {
			best, matched = score, target
		}
	}

	// Company columns are scanned in alias order. An exact or strong
	// match settles the lead and ends the scan; a review-band match
	// keeps scanning the remaining columns.
scan:
	for _, col := range e.leads[schema.FieldCompany] {
		key := normalize.Company(lead.Get(col))
		if key == "" {
			continue
		}
		if display, ok := e.idx.Company(key); ok {
			existing = true
			reasons = append(reasons, "Exact company match: "+display)
			break scan
		}
		score, display := e.idx.BestCompany(key)
		switch {
		case score >= e.thresholds.CompanyHigh:
			existing = true
			reasons = append(reasons, fmt.Sprintf("Similar company exists: %s (score %d)", display, score))
			if score > best {
				best, matched = score, display
			}
			break scan
		case score >= e.thresholds.CompanyMid:
			review = true
			reasons = append(reasons, fmt.Sprintf("Possible company match: %s (score %d), needs review", display, score))
			if score > best {
				best, matched = score, display
			}
		}
	}

	res := model.MatchResult{
		Disposition: model.DispositionNew,
		Reasons:     reasons,
		Score:       best,
		Matched:     matched,
	}
	switch {
	case existing:
		res.Disposition = model.DispositionExisting
	case review:
		res.Disposition = model.DispositionDoubleCheck
	}
	return res
}
