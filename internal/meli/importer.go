package meli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
	"github.com/drapala/validahub-new-sub001/internal/logger"
	"github.com/drapala/validahub-new-sub001/internal/metrics"
)

// Result is the outcome of importing one category: exactly one of RuleSet or
// Errs is set. Warnings carry non-fatal trouble (an enrichment fetch that
// failed) alongside a successful RuleSet.
type Result struct {
	RuleSet  *canonical.RuleSet
	Errs     []*CanonicalError
	Warnings []*CanonicalError
}

// Ok reports whether the import succeeded.
func (r Result) Ok() bool { return r.RuleSet != nil }

// Importer orchestrates fetch -> map -> cache -> canonicalize for
// marketplace categories.
type Importer struct {
	client  *Client
	cache   *Cache
	log     *logger.Logger
	metrics *metrics.Collector
}

// NewImporter wires an importer. The cache may be nil to disable caching.
func NewImporter(client *Client, cache *Cache, collector *metrics.Collector) *Importer {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Importer{
		client:  client,
		cache:   cache,
		log:     logger.Default().WithPrefix("importer"),
		metrics: collector,
	}
}

// ImportCategory imports one category's rule vocabulary. useCache consults
// the file cache first; saveCache persists a fresh fetch. A missing category
// is a non-retryable canonical error, not a fault.
func (imp *Importer) ImportCategory(ctx context.Context, categoryID string, useCache, saveCache bool) Result {
	if useCache && imp.cache != nil {
		if set, ok := imp.cache.Get(categoryID); ok {
			imp.log.Debug("category %s served from cache", categoryID)
			return Result{RuleSet: set}
		}
	}

	release := imp.client.Acquire()
	defer release()

	category, err := imp.client.GetCategory(ctx, categoryID)
	if err != nil {
		imp.metrics.Inc(metrics.ImportsFailed)
		return Result{Errs: []*CanonicalError{asCanonical(err)}}
	}

	attrs, err := imp.client.GetCategoryAttributes(ctx, categoryID)
	if err != nil {
		imp.metrics.Inc(metrics.ImportsFailed)
		return Result{Errs: []*CanonicalError{asCanonical(err)}}
	}

	// Listing types and conditions enrich the set but their absence is not
	// fatal: a category can be validated without them. A failed fetch rides
	// along as a warning so callers can see the set is thinner than usual.
	var warnings []*CanonicalError
	listingTypes, err := imp.client.GetListingTypes(ctx)
	if err != nil {
		imp.log.Warn("listing types unavailable: %v", err)
		warnings = append(warnings, asCanonical(err))
		listingTypes = nil
	}
	conditions, err := imp.client.GetConditions(ctx, categoryID)
	if err != nil {
		imp.log.Warn("conditions unavailable for %s: %v", categoryID, err)
		warnings = append(warnings, asCanonical(err))
		conditions = nil
	}

	set := MapAttributes(category, attrs, conditions, listingTypes)
	EnrichDependencies(set, attrs)
	if err := validateSet(set); err != nil {
		imp.metrics.Inc(metrics.ImportsFailed)
		return Result{Errs: []*CanonicalError{newError(CodeInternal, err.Error())}, Warnings: warnings}
	}

	if saveCache && imp.cache != nil {
		if err := imp.cache.Put(categoryID, set); err != nil {
			// Cache trouble never fails an import.
			imp.log.Warn("cache write for %s failed: %v", categoryID, err)
		}
	}

	imp.metrics.Inc(metrics.ImportsOK)
	return Result{RuleSet: set, Warnings: warnings}
}

// ImportMany imports categories in fixed-size batches of at most
// maxConcurrent concurrent imports. A failed or cancelled id becomes an Err
// entry for that id only; siblings always complete.
func (imp *Importer) ImportMany(ctx context.Context, categoryIDs []string, maxConcurrent int) map[string]Result {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	release := imp.client.Acquire()
	defer release()

	results := make(map[string]Result, len(categoryIDs))
	for start := 0; start < len(categoryIDs); start += maxConcurrent {
		end := start + maxConcurrent
		if end > len(categoryIDs) {
			end = len(categoryIDs)
		}
		chunk := categoryIDs[start:end]

		// Within a chunk every import runs concurrently; the chunk is
		// awaited as a whole before the next one starts, which caps peak
		// concurrent connections at maxConcurrent.
		chunkResults := make([]Result, len(chunk))
		var wg sync.WaitGroup
		for i, id := range chunk {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				chunkResults[i] = imp.importOne(ctx, id)
			}(i, id)
		}
		wg.Wait()

		for i, id := range chunk {
			results[id] = chunkResults[i]
		}
	}
	return results
}

// importOne isolates one import: a cancellation or panic becomes that id's
// Err entry, never a batch-wide abort.
func (imp *Importer) importOne(ctx context.Context, id string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Errs: []*CanonicalError{newError(CodeInternal, fmt.Sprintf("import fault: %v", r))}}
		}
	}()

	if err := ctx.Err(); err != nil {
		// Cancellation is interesting for logs, not for control flow.
		imp.log.Debug("import of %s cancelled: %v", id, err)
		return Result{Errs: []*CanonicalError{newError(CodeTimeout, fmt.Sprintf("import of %s cancelled", id))}}
	}
	return imp.ImportCategory(ctx, id, true, true)
}

// asCanonical coerces any error into the canonical form.
func asCanonical(err error) *CanonicalError {
	var ce *CanonicalError
	if errors.As(err, &ce) {
		return ce
	}
	return newError(CodeUnknown, err.Error())
}

// SearchAndImport resolves a free-text query to the first matching category
// and imports it. An empty result or a hit without a category id is a
// structured error.
func (imp *Importer) SearchAndImport(ctx context.Context, query string) Result {
	hits, err := imp.client.SearchCategories(ctx, query)
	if err != nil {
		return Result{Errs: []*CanonicalError{asCanonical(err)}}
	}
	if len(hits) == 0 {
		return Result{Errs: []*CanonicalError{newError(CodeCategoryNotFound, fmt.Sprintf("no category matches %q", query))}}
	}
	if hits[0].CategoryID == "" {
		return Result{Errs: []*CanonicalError{newError(CodeUnknown, "search result is missing the category id")}}
	}
	return imp.ImportCategory(ctx, hits[0].CategoryID, true, true)
}
