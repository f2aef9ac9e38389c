package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
	"github.com/drapala/validahub-new-sub001/internal/engine"
	"github.com/drapala/validahub-new-sub001/internal/meli"
	"github.com/drapala/validahub-new-sub001/internal/metrics"
	"github.com/drapala/validahub-new-sub001/internal/pipeline"
	"github.com/drapala/validahub-new-sub001/internal/report"
	"github.com/drapala/validahub-new-sub001/internal/tabular"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file.csv>",
	Short: "Validate a tabular batch against marketplace rules",
	Long: `Validate each row of a CSV file against the rules of a marketplace
category, optionally applying automatic corrections.

Rules come from the marketplace importer (cached locally), from a declarative
rule document, or both: the document runs first so its fixes normalize records
before the category rules judge them.

Examples:
  # Validate against an imported category
  validahub validate listings.csv --category MLB1055

  # Resolve the category by free-text search
  validahub validate listings.csv --query "cell phones"

  # Validate with a local rule document only
  validahub validate listings.csv --rules rules/meli.yaml

  # Apply corrections and write the corrected batch
  validahub validate listings.csv --category MLB1055 --fix --corrected fixed.csv

  # JSON report to a file
  validahub validate listings.csv --category MLB1055 --format json -o report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().String("category", "", "Marketplace category id (e.g. MLB1055)")
	validateCmd.Flags().String("query", "", "Resolve the category by free-text search")
	validateCmd.Flags().String("rules", "", "Declarative rule document (YAML)")
	validateCmd.Flags().Bool("fix", false, "Apply automatic corrections")
	validateCmd.Flags().String("corrected", "", "Write the corrected CSV to file (implies --fix)")
	validateCmd.Flags().StringP("format", "f", "", "Report format (markdown, json, csv)")
	validateCmd.Flags().StringP("output", "o", "", "Write report to file")
	validateCmd.Flags().Int("concurrency", 0, "Max concurrent row evaluations (0=auto)")

	_ = viper.BindPFlag("pipeline.auto_fix", validateCmd.Flags().Lookup("fix"))
	_ = viper.BindPFlag("pipeline.max_concurrency", validateCmd.Flags().Lookup("concurrency"))
}

// importerSource adapts the importer to the pipeline's rule source.
type importerSource struct {
	imp *meli.Importer
}

func (s importerSource) Resolve(ctx context.Context, marketplace, category string) (*canonical.RuleSet, error) {
	res := s.imp.ImportCategory(ctx, category, true, true)
	if !res.Ok() {
		return nil, fmt.Errorf("import %s: %s", category, errText(res.Errs))
	}
	return res.RuleSet, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	category, _ := cmd.Flags().GetString("category")
	query, _ := cmd.Flags().GetString("query")
	rulesFile, _ := cmd.Flags().GetString("rules")
	if category == "" && query == "" && rulesFile == "" {
		return fmt.Errorf("must specify a rule source: --category, --query, or --rules")
	}

	autoFix, _ := cmd.Flags().GetBool("fix")
	correctedFile, _ := cmd.Flags().GetString("corrected")
	if correctedFile != "" {
		autoFix = true
	}
	if !cmd.Flags().Changed("fix") && correctedFile == "" {
		autoFix = cfg.Pipeline.AutoFix
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.Output.Format
	}
	reporter, err := report.NewReporter(format)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	table, err := tabular.Parse(string(data))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	collector := metrics.NewCollector()
	pipeCfg := pipeline.Config{
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
		Metrics:        collector,
	}
	if c, _ := cmd.Flags().GetInt("concurrency"); c > 0 {
		pipeCfg.MaxConcurrency = c
	}

	if rulesFile != "" {
		doc, err := engine.LoadFile(rulesFile)
		if err != nil {
			return fmt.Errorf("loading rule document: %w", err)
		}
		pipeCfg.Document = doc
	}

	if category != "" || query != "" {
		importer, err := newImporter(cfg, collector)
		if err != nil {
			return err
		}
		if category == "" {
			res := importer.SearchAndImport(ctx, query)
			if !res.Ok() {
				return fmt.Errorf("resolving category for %q: %s", query, errText(res.Errs))
			}
			category = fmt.Sprintf("%v", res.RuleSet.Metadata["category_id"])
		}
		pipeCfg.Source = importerSource{imp: importer}
	}

	p := pipeline.New(pipeCfg)
	result, corrected, err := p.Process(ctx, table, cfg.Marketplace.Name, category, autoFix)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	output, err := reporter.Generate(result)
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}

	outputFile, _ := cmd.Flags().GetString("output")
	if outputFile == "" {
		outputFile = cfg.Output.File
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		if !isQuiet() {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", outputFile)
		}
	} else {
		fmt.Print(output)
	}

	if correctedFile != "" && corrected != nil {
		text, err := corrected.Text()
		if err != nil {
			return fmt.Errorf("rendering corrected batch: %w", err)
		}
		if err := os.WriteFile(correctedFile, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing corrected batch: %w", err)
		}
		if !isQuiet() {
			fmt.Fprintf(os.Stderr, "Corrected batch written to %s\n", correctedFile)
		}
	}

	if isVerbose() {
		fmt.Fprintf(os.Stderr, "Counters: %v\n", collector.Snapshot())
	}

	// A batch that still carries uncorrected failures exits non-zero so
	// scripts can gate on it.
	for _, row := range result.Rows {
		if row.Failed() {
			os.Exit(1)
		}
	}
	return nil
}
