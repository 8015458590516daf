package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadcheck/internal/classify"
	"github.com/sells-group/leadcheck/internal/export"
	"github.com/sells-group/leadcheck/internal/fetcher"
	"github.com/sells-group/leadcheck/internal/model"
	"github.com/sells-group/leadcheck/internal/schema"
	"github.com/sells-group/leadcheck/internal/store"
)

var (
	checkDeals      string
	checkAlignment  string
	checkLeads      string
	checkOut        string
	checkFormat     string
	checkWorkers    int
	checkCompanyHi  int
	checkCompanyMid int
	checkDomainHi   int
	checkDomainMid  int
	checkFields     string
	checkLimit      int
	checkDryRun     bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify candidate leads against deal and alignment exports",
	Long:  "Reads the deals, alignment, and leads tables, classifies every lead as new, existing, or needing review, and writes one output file per bucket.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if checkFormat != "csv" && checkFormat != "json" {
			return eris.Errorf("unknown format: %q", checkFormat)
		}

		// Flag overrides on top of file and environment config.
		if checkWorkers > 0 {
			cfg.Batch.Workers = checkWorkers
		}
		if checkOut != "" {
			cfg.Export.OutputDir = checkOut
		}
		if checkFields != "" {
			cfg.Fields.Path = checkFields
		}
		if checkCompanyHi >= 0 {
			cfg.Match.Thresholds.CompanyHigh = checkCompanyHi
		}
		if checkCompanyMid >= 0 {
			cfg.Match.Thresholds.CompanyMid = checkCompanyMid
		}
		if checkDomainHi >= 0 {
			cfg.Match.Thresholds.DomainHigh = checkDomainHi
		}
		if checkDomainMid >= 0 {
			cfg.Match.Thresholds.DomainMid = checkDomainMid
		}
		if err := cfg.Validate("check"); err != nil {
			return err
		}
		delimiter, _ := cfg.Export.DelimiterRune()

		fields, err := loadSchema()
		if err != nil {
			return err
		}

		loader := fetcher.NewLoader(fetcher.HTTPOptions{})
		deals, err := loader.Load(ctx, checkDeals)
		if err != nil {
			return eris.Wrap(err, "load deals")
		}
		alignment, err := loader.Load(ctx, checkAlignment)
		if err != nil {
			return eris.Wrap(err, "load alignment")
		}
		leads, err := loader.Load(ctx, checkLeads)
		if err != nil {
			return eris.Wrap(err, "load leads")
		}
		if checkLimit > 0 && leads.Len() > checkLimit {
			leads = truncateRows(leads, checkLimit)
		}

		zap.L().Info("tables loaded",
			zap.Int("deals", deals.Len()),
			zap.Int("alignment", alignment.Len()),
			zap.Int("leads", leads.Len()),
		)

		var st store.Store
		if !checkDryRun {
			if st, err = initStore(ctx); err != nil {
				return err
			}
			if st != nil {
				defer st.Close() //nolint:errcheck
				if err := st.Migrate(ctx); err != nil {
					return eris.Wrap(err, "migrate store")
				}
			}
		}

		var runID string
		if st != nil {
			run, err := st.CreateRun(ctx, model.RunInputs{
				Deals:     checkDeals,
				Alignment: checkAlignment,
				Leads:     checkLeads,
			})
			if err != nil {
				return eris.Wrap(err, "create run")
			}
			runID = run.ID
		}

		start := time.Now()
		classifier := classify.New(fields, cfg.Match.Thresholds, cfg.Batch.Workers)
		outcome, err := classifier.Run(ctx, deals, alignment, leads, classify.NewLogReporter())
		if err != nil {
			failRun(ctx, st, runID, err)
			return eris.Wrap(err, "classify")
		}

		result := &model.RunResult{
			Total:       outcome.Total(),
			New:         outcome.New.Len(),
			Existing:    outcome.Existing.Len(),
			DoubleCheck: outcome.DoubleCheck.Len(),
			Thresholds:  cfg.Match.Thresholds,
			DurationMS:  time.Since(start).Milliseconds(),
		}

		if !checkDryRun {
			switch checkFormat {
			case "csv":
				stamp := export.Stamp()
				paths, err := export.WriteOutcome(outcome, cfg.Export.OutputDir, stamp, delimiter)
				if err != nil {
					failRun(ctx, st, runID, err)
					return eris.Wrap(err, "write outcome")
				}
				result.OutputDir = cfg.Export.OutputDir
				for _, d := range model.Dispositions {
					zap.L().Info("wrote partition",
						zap.String("file", paths[d]),
						zap.Int("rows", outcome.TableFor(d).Len()),
					)
				}
			case "json":
				if err := export.WriteJSON(outcome, os.Stdout); err != nil {
					failRun(ctx, st, runID, err)
					return eris.Wrap(err, "write json")
				}
			}
		}

		if st != nil {
			if err := st.SaveOutcome(ctx, runID, outcome); err != nil {
				return eris.Wrap(err, "save outcome")
			}
			if err := st.CompleteRun(ctx, runID, result); err != nil {
				return eris.Wrap(err, "complete run")
			}
		}

		zap.L().Info("classification complete",
			zap.Int("total", result.Total),
			zap.Int("new", result.New),
			zap.Int("existing", result.Existing),
			zap.Int("double_check", result.DoubleCheck),
			zap.Int64("duration_ms", result.DurationMS),
		)

		if checkFormat == "json" && !checkDryRun {
			return nil // outcome already printed
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkDeals, "deals", "", "deals export, CSV/XLSX path or URL (required)")
	checkCmd.Flags().StringVar(&checkAlignment, "alignment", "", "alignment export, CSV/XLSX path or URL (required)")
	checkCmd.Flags().StringVar(&checkLeads, "leads", "", "candidate leads, CSV/XLSX path or URL (required)")
	checkCmd.Flags().StringVar(&checkOut, "out", "", "output directory (default from config)")
	checkCmd.Flags().StringVar(&checkFormat, "format", "csv", "output format: csv or json")
	checkCmd.Flags().IntVar(&checkWorkers, "workers", 0, "concurrent classification workers (default from config)")
	checkCmd.Flags().IntVar(&checkCompanyHi, "company-high", -1, "company similarity cutoff for existing")
	checkCmd.Flags().IntVar(&checkCompanyMid, "company-mid", -1, "company similarity cutoff for review")
	checkCmd.Flags().IntVar(&checkDomainHi, "domain-high", -1, "domain similarity cutoff for existing")
	checkCmd.Flags().IntVar(&checkDomainMid, "domain-mid", -1, "domain similarity cutoff for review")
	checkCmd.Flags().StringVar(&checkFields, "fields", "", "column alias override file")
	checkCmd.Flags().IntVar(&checkLimit, "limit", 0, "classify only the first N leads")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "classify without writing files or run history")
	_ = checkCmd.MarkFlagRequired("deals")
	_ = checkCmd.MarkFlagRequired("alignment")
	_ = checkCmd.MarkFlagRequired("leads")
	rootCmd.AddCommand(checkCmd)
}

// loadSchema returns the configured column aliases, built-in unless an
// override file is set.
func loadSchema() (*schema.Schema, error) {
	if cfg.Fields.Path == "" {
		return schema.Default(), nil
	}
	return schema.Load(cfg.Fields.Path)
}

// truncateRows returns a table holding the first limit rows of t.
func truncateRows(t *model.Table, limit int) *model.Table {
	out := model.NewTable(t.Columns)
	out.Rows = t.Rows[:limit]
	return out
}

// failRun records the failure even when ctx is already canceled.
func failRun(ctx context.Context, st store.Store, runID string, cause error) {
	if st == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := st.FailRun(ctx, runID, cause.Error()); err != nil {
		zap.L().Warn("fail run", zap.String("run_id", runID), zap.Error(err))
	}
}
