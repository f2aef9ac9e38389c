package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drapala/validahub-new-sub001/internal/meli"
	"github.com/drapala/validahub-new-sub001/internal/metrics"
)

var importCmd = &cobra.Command{
	Use:   "import <category-id>...",
	Short: "Import category rules from the marketplace",
	Long: `Fetch a category's attribute constraints from the marketplace API,
normalize them into the portable rule model, and store them in the local
cache for later validation runs.

Multiple categories are imported concurrently in bounded batches; a failure
for one category never aborts the others.

Examples:
  # Import one category
  validahub import MLB1055

  # Import several categories
  validahub import MLB1055 MLB1648 MLB1652

  # Bypass and refresh the cache
  validahub import MLB1055 --refresh

  # Resolve a category by search, then import it
  validahub import --query "cell phones"`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("query", "", "Resolve a category by free-text search")
	importCmd.Flags().Bool("refresh", false, "Ignore cached entries and refetch")
	importCmd.Flags().Int("concurrency", 0, "Max concurrent imports (0=config default)")

	_ = viper.BindPFlag("pipeline.max_import_concurrency", importCmd.Flags().Lookup("concurrency"))
}

func runImport(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	if len(args) == 0 && query == "" {
		return fmt.Errorf("must specify category ids or --query")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	importer, err := newImporter(cfg, collector)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if query != "" {
		res := importer.SearchAndImport(ctx, query)
		if !res.Ok() {
			return fmt.Errorf("import for %q failed: %s", query, errText(res.Errs))
		}
		if !isQuiet() {
			fmt.Printf("%v: %d rules (%s)\n",
				res.RuleSet.Metadata["category_id"], len(res.RuleSet.Rules), res.RuleSet.Name)
		}
		if len(args) == 0 {
			return nil
		}
	}

	useCache := true
	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		useCache = false
	}

	concurrency := cfg.Pipeline.MaxImportConcurrency
	if c, _ := cmd.Flags().GetInt("concurrency"); c > 0 {
		concurrency = c
	}

	results := make(map[string]importResult, len(args))
	if useCache {
		for id, res := range importer.ImportMany(ctx, args, concurrency) {
			results[id] = toImportResult(res)
		}
	} else {
		// Refresh is sequential on purpose: it exists for debugging stale
		// entries, not for bulk throughput.
		for _, id := range args {
			results[id] = toImportResult(importer.ImportCategory(ctx, id, false, true))
		}
	}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	failed := 0
	for _, id := range ids {
		res := results[id]
		if res.ok {
			if !isQuiet() {
				fmt.Printf("%s: %d rules\n", id, res.rules)
			}
			continue
		}
		failed++
		fmt.Fprintf(os.Stderr, "%s: FAILED (%s)\n", id, res.err)
	}

	if isVerbose() {
		fmt.Fprintf(os.Stderr, "Counters: %v\n", collector.Snapshot())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(results))
	}
	return nil
}

type importResult struct {
	ok    bool
	rules int
	err   string
}

func toImportResult(res meli.Result) importResult {
	out := importResult{ok: res.Ok(), err: errText(res.Errs)}
	if res.Ok() {
		out.rules = len(res.RuleSet.Rules)
	}
	return out
}
