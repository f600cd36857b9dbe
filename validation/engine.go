// Package validation implements the Validation Engine: categorized
// RFC 7643/7644 conformance probes against a configured SCIM server,
// per spec.md §4.2.
package validation

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marcelom97/scimprobe/client"
	"github.com/marcelom97/scimprobe/model"
	"github.com/marcelom97/scimprobe/scim"
)

// Engine drives validation probes through a single SCIM client. It holds
// no per-run state; everything needed to execute one Run is passed in.
type Engine struct {
	client *client.Client
}

func New(c *client.Client) *Engine {
	return &Engine{client: c}
}

var fixedCategoryCounts = map[string]int{
	"schema_discovery":      3,
	"users_crud":            6,
	"groups_crud":           6,
	"patch_operations":      4,
	"filtering_pagination":  4,
	"duplicate_detection":   4,
	"soft_delete":           3,
	"group_operations":      6,
}

func testCount(category string, customAttrs []scim.DiscoveredAttribute, numFieldRules int) int {
	switch category {
	case "custom_schema":
		if len(customAttrs) == 0 {
			return 1
		}
		count := 0
		for _, a := range customAttrs {
			if a.AttrType == "boolean" {
				count += 2
			} else {
				count++
			}
		}
		return count
	case "field_mapping":
		if numFieldRules > 0 {
			return numFieldRules
		}
		return 1
	default:
		return fixedCategoryCounts[category]
	}
}

func containsCategory(categories []string, target string) bool {
	for _, c := range categories {
		if c == target {
			return true
		}
	}
	return false
}

// recorder accumulates ValidationResults for one run and emits progress
// before each probe, per spec.md §4.2 ("emits one progress event before
// each test").
type recorder struct {
	runID      string
	onProgress func(model.ValidationProgress)
	total      int
	results    []model.ValidationResult
}

func (r *recorder) before(name, category string) {
	if r.onProgress != nil {
		r.onProgress(model.ValidationProgress{
			TestRunID:       r.runID,
			CurrentTest:     name,
			CurrentCategory: category,
			Completed:       len(r.results),
			Total:           r.total,
		})
	}
}

func (r *recorder) add(res model.ValidationResult) {
	res.ID = uuid.New().String()
	res.TestRunID = r.runID
	res.ExecutedAt = time.Now()
	r.results = append(r.results, res)
}

// Run executes every requested category in order and returns the raw
// results plus the derived ValidationSummary. Cancellation is checked
// between categories only; in-flight probes run to completion, per
// spec.md §5.
func (e *Engine) Run(runID string, cfg model.ValidationRunConfig, cancel *atomic.Bool, onProgress func(model.ValidationProgress)) ([]model.ValidationResult, model.ValidationSummary) {
	userJoin := cfg.UserJoiningProp
	if userJoin == "" {
		userJoin = "userName"
	}
	groupJoin := cfg.GroupJoiningProp
	if groupJoin == "" {
		groupJoin = "displayName"
	}

	var customAttrs []scim.DiscoveredAttribute
	if containsCategory(cfg.Categories, "custom_schema") {
		customAttrs = e.discoverCustomAttributes()
	}

	total := 0
	for _, cat := range cfg.Categories {
		total += testCount(cat, customAttrs, len(cfg.FieldMappingRules))
	}

	rec := &recorder{runID: runID, onProgress: onProgress, total: total}
	start := time.Now()

	for _, cat := range cfg.Categories {
		if cancel != nil && cancel.Load() {
			break
		}
		switch cat {
		case "schema_discovery":
			e.runSchemaDiscovery(rec)
		case "users_crud":
			e.runUsersCRUD(rec, userJoin)
		case "groups_crud":
			e.runGroupsCRUD(rec, groupJoin)
		case "patch_operations":
			e.runPatchOperations(rec)
		case "filtering_pagination":
			e.runFilteringPagination(rec)
		case "duplicate_detection":
			e.runDuplicateDetection(rec)
		case "soft_delete":
			e.runSoftDelete(rec)
		case "group_operations":
			e.runGroupOperations(rec)
		case "field_mapping":
			e.runFieldMapping(rec, cfg.FieldMappingRules)
		case "custom_schema":
			e.runCustomSchema(rec, customAttrs)
		}
	}

	summary := computeSummary(rec.results, cfg.Categories)
	summary.DurationMS = time.Since(start).Milliseconds()
	return rec.results, summary
}

func (e *Engine) discoverCustomAttributes() []scim.DiscoveredAttribute {
	resp, err := e.client.Get("/Schemas")
	if err != nil || resp.Status != 200 {
		return nil
	}
	var sr scim.SchemasResponse
	if err := json.Unmarshal([]byte(resp.Body), &sr); err != nil {
		return nil
	}
	return scim.FlattenCustomAttributes(sr.Schemas)
}

// computeSummary derives totals, compliance score, and the per-category
// breakdown from a run's results, per spec.md §4.2.
func computeSummary(results []model.ValidationResult, categories []string) model.ValidationSummary {
	summary := model.ValidationSummary{}
	catTotals := make(map[string]*model.CategorySummary)
	order := make([]string, 0, len(categories))
	for _, c := range categories {
		if _, ok := catTotals[c]; !ok {
			catTotals[c] = &model.CategorySummary{Name: c}
			order = append(order, c)
		}
	}

	for _, r := range results {
		summary.Total++
		cs, ok := catTotals[r.Category]
		if !ok {
			cs = &model.CategorySummary{Name: r.Category}
			catTotals[r.Category] = cs
			order = append(order, r.Category)
		}
		cs.Total++
		switch {
		case r.Skipped():
			summary.Skipped++
		case r.Passed:
			summary.Passed++
			cs.Passed++
		}
	}
	summary.Failed = summary.Total - summary.Passed - summary.Skipped

	denom := summary.Total - summary.Skipped
	if denom > 0 {
		summary.ComplianceScore = 100 * float64(summary.Passed) / float64(denom)
	}

	for _, name := range order {
		cs := catTotals[name]
		cs.Failed = cs.Total - cs.Passed
		summary.Categories = append(summary.Categories, *cs)
	}
	return summary
}
