// Package classify runs batches of candidate leads against the deal and
// alignment tables and splits them into new, existing, and double-check
// partitions.
package classify

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadcheck/internal/match"
	"github.com/sells-group/leadcheck/internal/model"
	"github.com/sells-group/leadcheck/internal/schema"
)

// DefaultWorkers is the evaluation parallelism used when none is set.
const DefaultWorkers = 4

// Classifier evaluates candidate leads against the reference tables.
type Classifier struct {
	fields     *schema.Schema
	thresholds model.Thresholds
	workers    int
}

// New returns a classifier. A nil schema uses the built-in alias
// profiles; workers <= 0 falls back to DefaultWorkers.
func New(fields *schema.Schema, thresholds model.Thresholds, workers int) *Classifier {
	if fields == nil {
		fields = schema.Default()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Classifier{fields: fields, thresholds: thresholds, workers: workers}
}

// Run classifies every lead and returns the three-way partition. Each
// input record lands in exactly one partition, in input order, extended
// with a Reason column. All three tables must be present; a missing one
// refuses the whole batch. Evaluation runs on a bounded worker pool and
// a canceled context aborts with no partial outcome.
func (c *Classifier) Run(ctx context.Context, deals, alignment, leads *model.Table, rep Reporter) (*model.Outcome, error) {
	if deals == nil {
		return nil, eris.New("classify: cannot classify, deals table missing")
	}
	if alignment == nil {
		return nil, eris.New("classify: cannot classify, alignment table missing")
	}
	if leads == nil {
		return nil, eris.New("classify: cannot classify, leads table missing")
	}
	if rep == nil {
		rep = NopReporter{}
	}

	log := zap.L().With(zap.String("component", "classify"))

	c.logFieldGaps(deals, alignment, leads)

	idx := match.BuildIndex(deals, alignment, c.fields)
	stats := idx.Stats()
	log.Info("reference index built",
		zap.Int("emails", stats.Emails),
		zap.Int("local_parts", stats.LocalParts),
		zap.Int("domains", stats.Domains),
		zap.Int("companies", stats.Companies),
		zap.Int("company_domains", stats.CompanyDomains),
	)

	eval := match.NewEvaluator(idx, c.fields.Leads, c.thresholds)

	total := len(leads.Rows)
	results := make([]model.MatchResult, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	var done atomic.Int64
	for i, row := range leads.Rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = eval.Evaluate(row)
			rep.Progress(float64(done.Add(1)) / float64(total))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "classify: batch aborted")
	}

	outcome := c.partition(leads, results)
	rep.Done()

	log.Info("batch classified",
		zap.Int("total", total),
		zap.Int("new", outcome.New.Len()),
		zap.Int("existing", outcome.Existing.Len()),
		zap.Int("double_check", outcome.DoubleCheck.Len()),
	)
	return outcome, nil
}

// partition splits the evaluated leads back into tables, preserving
// input order within each disposition.
func (c *Classifier) partition(leads *model.Table, results []model.MatchResult) *model.Outcome {
	cols := slices.Clone(leads.Columns)
	if !slices.Contains(cols, model.ReasonColumn) {
		cols = append(cols, model.ReasonColumn)
	}
	out := &model.Outcome{
		New:         model.NewTable(cols),
		Existing:    model.NewTable(cols),
		DoubleCheck: model.NewTable(cols),
	}
	for i, row := range leads.Rows {
		rec := row.Clone()
		rec[model.ReasonColumn] = results[i].Reason()
		out.TableFor(results[i].Disposition).Append(rec)
	}
	return out
}

// logFieldGaps warns once per logical field that resolves to no column,
// with the nearest header spelling as a hint. Checks depending on an
// unresolved field are skipped for the whole batch.
func (c *Classifier) logFieldGaps(deals, alignment, leads *model.Table) {
	log := zap.L().With(zap.String("component", "classify"))
	checks := []struct {
		table string
		t     *model.Table
		a     schema.Aliases
		field schema.Field
	}{
		{"deals", deals, c.fields.Deals, schema.FieldEmail},
		{"deals", deals, c.fields.Deals, schema.FieldCompany},
		{"alignment", alignment, c.fields.Alignment, schema.FieldDomain},
		{"alignment", alignment, c.fields.Alignment, schema.FieldCompany},
		{"leads", leads, c.fields.Leads, schema.FieldEmail},
		{"leads", leads, c.fields.Leads, schema.FieldCompany},
	}
	for _, ch := range checks {
		if len(ch.a.Columns(ch.t, ch.field)) > 0 {
			continue
		}
		fields := []zap.Field{
			zap.String("table", ch.table),
			zap.String("field", string(ch.field)),
		}
		if header, dist, ok := ch.a.Suggest(ch.t, ch.field); ok {
			fields = append(fields, zap.String("closest_header", header), zap.Int("distance", dist))
		}
		log.Warn("no column for field, dependent checks skipped", fields...)
	}
}
