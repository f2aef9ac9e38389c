// Package pipeline drives validation and correction across the rows of a
// tabular batch: resolve the rule set once, evaluate rows in parallel, apply
// marketplace-specific corrections, and emit a report plus a corrected copy
// of the input.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
	"github.com/drapala/validahub-new-sub001/internal/engine"
	"github.com/drapala/validahub-new-sub001/internal/logger"
	"github.com/drapala/validahub-new-sub001/internal/metrics"
	"github.com/drapala/validahub-new-sub001/internal/tabular"
	"github.com/drapala/validahub-new-sub001/internal/worker"
)

// RuleSource resolves the canonical rule set for a marketplace category. The
// importer satisfies this; tests plug in fixtures.
type RuleSource interface {
	Resolve(ctx context.Context, marketplace, category string) (*canonical.RuleSet, error)
}

// Config wires a pipeline. Document and Source may both be set: the
// declarative document runs first so its fixes normalize records before the
// canonical rules judge them.
type Config struct {
	Source         RuleSource
	Document       *engine.Document
	Registry       *canonical.Registry
	MaxConcurrency int
	Metrics        *metrics.Collector
}

// Pipeline is safe for concurrent use; each Process call owns its records.
type Pipeline struct {
	source   RuleSource
	eng      *engine.Engine
	registry *canonical.Registry
	workers  int
	log      *logger.Logger
	metrics  *metrics.Collector
}

// New builds a pipeline from config, filling sensible defaults.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		source:   cfg.Source,
		registry: cfg.Registry,
		workers:  cfg.MaxConcurrency,
		log:      logger.Default().WithPrefix("pipeline"),
		metrics:  cfg.Metrics,
	}
	if cfg.Document != nil {
		p.eng = engine.New(cfg.Document)
	}
	if p.registry == nil {
		p.registry = canonical.NewRegistry()
	}
	if p.metrics == nil {
		p.metrics = metrics.NewCollector()
	}
	return p
}

// Correction is one applied fix in the batch ledger.
type Correction struct {
	Row      int         `json:"row"`
	Field    string      `json:"field"`
	OldValue interface{} `json:"old_value"`
	NewValue interface{} `json:"new_value"`
	Reason   string      `json:"reason"`
}

// RowReport is the outcome of one row.
type RowReport struct {
	Row         int                         `json:"row"`
	Errors      []canonical.ValidationError `json:"errors,omitempty"`
	Results     []engine.RuleResult         `json:"results,omitempty"`
	Corrections []Correction                `json:"corrections,omitempty"`
}

// Failed reports whether the row still carries uncorrected failures.
func (r RowReport) Failed() bool {
	corrected := make(map[string]bool, len(r.Corrections))
	for _, c := range r.Corrections {
		corrected[c.Field] = true
	}
	for _, e := range r.Errors {
		if !corrected[e.Field] {
			return true
		}
	}
	for _, res := range r.Results {
		if res.Status == engine.StatusFail || res.Status == engine.StatusError {
			return true
		}
	}
	return false
}

// Summary aggregates the batch.
type Summary struct {
	Rows             int     `json:"rows"`
	TotalErrors      int     `json:"total_errors"`
	TotalCorrections int     `json:"total_corrections"`
	RowsTouched      int     `json:"rows_touched"`
	SuccessRate      float64 `json:"success_rate"`
}

// Report is the full batch outcome.
type Report struct {
	ID          string        `json:"id"`
	Marketplace string        `json:"marketplace"`
	Category    string        `json:"category"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Rows        []RowReport   `json:"rows"`
	Summary     Summary       `json:"summary"`
}

// Process validates every row of the table against the marketplace
// category's rules. With autoFix it applies declarative fixes and the
// marketplace corrector strategy and returns a corrected copy of the table;
// the input table is never mutated. Without autoFix the corrected table is
// nil.
func (p *Pipeline) Process(ctx context.Context, table *tabular.Table, marketplace, category string, autoFix bool) (*Report, *tabular.Table, error) {
	started := time.Now()

	var set *canonical.RuleSet
	if p.source != nil {
		resolved, err := p.source.Resolve(ctx, marketplace, category)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve rules for %s/%s: %w", marketplace, category, err)
		}
		set = resolved
	}
	if set == nil && p.eng == nil {
		return nil, nil, fmt.Errorf("no rules configured for %s/%s", marketplace, category)
	}

	corrector := correctorFor(marketplace)
	records := table.Records()
	rows := make([]RowReport, len(records))

	_, stats := worker.Map(ctx, p.workers, len(records), func(_ context.Context, i int) error {
		rows[i] = p.processRow(i, records[i], set, corrector, autoFix)
		if rows[i].Failed() {
			return fmt.Errorf("row %d failed", i)
		}
		return nil
	})

	report := &Report{
		ID:          uuid.NewString(),
		Marketplace: marketplace,
		Category:    category,
		StartedAt:   started,
		Duration:    time.Since(started),
		Rows:        rows,
	}
	report.Summary = summarize(rows)

	p.metrics.Add(metrics.RowsValidated, int64(len(records)))
	p.metrics.Add(metrics.RowsFailed, stats.Errors)
	p.metrics.Add(metrics.RowsFixed, int64(report.Summary.RowsTouched))
	p.log.Info("batch %s: %d rows, %d errors, %d corrections",
		report.ID, len(records), report.Summary.TotalErrors, report.Summary.TotalCorrections)

	if !autoFix {
		return report, nil, nil
	}
	return report, tabular.FromRecords(correctedHeader(table.Header, rows), records), nil
}

// correctedHeader extends the input header with fields that corrections
// introduced, in first-seen order. A generated sku lands in a column of its
// own instead of vanishing from the rendered copy.
func correctedHeader(header []string, rows []RowReport) []string {
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		seen[col] = true
	}
	out := append([]string(nil), header...)
	for _, row := range rows {
		for _, c := range row.Corrections {
			if !seen[c.Field] {
				seen[c.Field] = true
				out = append(out, c.Field)
			}
		}
	}
	return out
}

// processRow runs the declarative document and then the canonical rules over
// one record. The record is this row's private copy; fixes mutate it.
func (p *Pipeline) processRow(idx int, rec map[string]interface{}, set *canonical.RuleSet, corrector Corrector, autoFix bool) RowReport {
	row := RowReport{Row: idx}

	if p.eng != nil {
		row.Results = p.eng.Evaluate(rec, autoFix)
		for _, res := range row.Results {
			if res.Status == engine.StatusFixed {
				row.Corrections = append(row.Corrections, Correction{
					Row:      idx,
					Field:    res.Meta.Field,
					OldValue: res.Meta.OldValue,
					NewValue: res.Meta.NewValue,
					Reason:   res.Meta.FixType,
				})
			}
		}
	}

	if set == nil {
		return row
	}

	row.Errors = set.ValidateRecordErrors(p.registry, rec)
	if !autoFix || corrector == nil {
		return row
	}

	for _, verr := range row.Errors {
		rule, ok := ruleFor(set, verr)
		if !ok {
			continue
		}
		if fixed, ok := corrector.Fix(rule, rec[verr.Field]); ok {
			row.Corrections = append(row.Corrections, Correction{
				Row:      idx,
				Field:    verr.Field,
				OldValue: rec[verr.Field],
				NewValue: fixed,
				Reason:   verr.Code,
			})
			rec[verr.Field] = fixed
		}
	}
	return row
}

// ruleFor matches a validation error back to the rule that produced it.
func ruleFor(set *canonical.RuleSet, verr canonical.ValidationError) (canonical.Rule, bool) {
	for _, r := range set.RulesForField(verr.Field) {
		if string(r.RuleType) == verr.Code {
			return r, true
		}
	}
	return canonical.Rule{}, false
}

// summarize computes the batch summary. Success rate is corrections over
// total validation errors; zero when the batch was clean. A FIXED result
// counts as an error too, since its check failed before the fix landed.
func summarize(rows []RowReport) Summary {
	s := Summary{Rows: len(rows)}
	for _, row := range rows {
		s.TotalErrors += len(row.Errors)
		for _, res := range row.Results {
			switch res.Status {
			case engine.StatusFail, engine.StatusError, engine.StatusFixed:
				s.TotalErrors++
			}
		}
		if len(row.Corrections) > 0 {
			s.TotalCorrections += len(row.Corrections)
			s.RowsTouched++
		}
	}
	if s.TotalErrors > 0 {
		s.SuccessRate = float64(s.TotalCorrections) / float64(s.TotalErrors)
	}
	return s
}
