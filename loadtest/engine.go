// Package loadtest implements the Load-Test Engine: a channel-semaphore
// worker pool that drives concurrent SCIM request scenarios and reports
// latency/throughput summaries, per spec.md §4.3.
package loadtest

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marcelom97/scimprobe/client"
	"github.com/marcelom97/scimprobe/model"
)

const patchSchemaURN = "urn:ietf:params:scim:api:messages:2.0:PatchOp"

// Engine drives load-test scenarios through a single SCIM client, reusing
// its connection pool across every worker goroutine.
type Engine struct {
	client *client.Client
}

func New(c *client.Client) *Engine {
	return &Engine{client: c}
}

// unitOutcome is what one concurrent unit of work produced: the HTTP
// attempts it made, and — if it created a resource another phase needs
// to act on or clean up — that resource's id.
type unitOutcome struct {
	attempts  []attempt
	createdID string
}

// runPhase fans unitCount units out across a semaphore of size
// concurrency, staggering their start by rampUpSeconds, and reports
// progress every 10 completed HTTP attempts or at the phase's last one,
// per spec.md §4.3 and §5. Cancellation is checked before each unit is
// dispatched and again after its permit is acquired; units already
// in flight run to completion.
func (e *Engine) runPhase(
	runID, phaseName string,
	unitCount, totalRequests, concurrency, rampUpSeconds int,
	cancel *atomic.Bool,
	onProgress func(model.LoadTestProgress),
	unitFn func(i int) unitOutcome,
) ([]attempt, []string) {
	if unitCount == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var completed int64
	var errCount int64
	outcomes := make([]unitOutcome, unitCount)

	rampMS := 0.0
	if rampUpSeconds > 0 && unitCount > 1 {
		rampMS = float64(rampUpSeconds) * 1000 / float64(unitCount)
	}

	start := time.Now()
	emit := func() {
		if onProgress == nil {
			return
		}
		c := atomic.LoadInt64(&completed)
		elapsed := time.Since(start).Seconds()
		rps := 0.0
		if elapsed > 0 {
			rps = float64(c) / elapsed
		}
		onProgress(model.LoadTestProgress{
			TestRunID:  runID,
			Phase:      phaseName,
			Completed:  int(c),
			Total:      totalRequests,
			CurrentRPS: rps,
			ErrorCount: int(atomic.LoadInt64(&errCount)),
		})
	}

	for i := 0; i < unitCount; i++ {
		if cancel != nil && cancel.Load() {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if rampMS > 0 {
				time.Sleep(time.Duration(float64(i)*rampMS) * time.Millisecond)
			}
			if cancel != nil && cancel.Load() {
				return
			}
			sem <- struct{}{}
			defer func() { <-sem }()
			if cancel != nil && cancel.Load() {
				return
			}

			out := unitFn(i)
			mu.Lock()
			outcomes[i] = out
			mu.Unlock()

			for _, a := range out.attempts {
				n := atomic.AddInt64(&completed, 1)
				if !a.success {
					atomic.AddInt64(&errCount, 1)
				}
				if n%10 == 0 || int(n) == totalRequests {
					emit()
				}
			}
		}(i)
	}
	wg.Wait()
	emit()

	var attempts []attempt
	var createdIDs []string
	for _, out := range outcomes {
		attempts = append(attempts, out.attempts...)
		if out.createdID != "" {
			createdIDs = append(createdIDs, out.createdID)
		}
	}
	return attempts, createdIDs
}

// Run executes one load-test configuration and returns its results with
// a dense request index plus the derived summary. Multiple scenarios run
// concurrently with TotalRequests split evenly across them, per
// spec.md §4.3.
func (e *Engine) Run(runID string, cfg model.LoadTestConfig, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) ([]model.LoadTestResult, model.LoadTestSummary) {
	scenarios := cfg.Scenarios
	if len(scenarios) == 0 {
		scenarios = []string{cfg.Scenario}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var combined []attempt
	if len(scenarios) == 1 {
		combined = e.runScenario(runID, scenarios[0], cfg.TotalRequests, concurrency, cfg.RampUpSeconds, cancel, onProgress)
	} else {
		perScenario := cfg.TotalRequests / len(scenarios)
		results := make([][]attempt, len(scenarios))
		var wg sync.WaitGroup
		for i, sc := range scenarios {
			wg.Add(1)
			go func(i int, sc string) {
				defer wg.Done()
				results[i] = e.runScenario(runID, sc, perScenario, concurrency, cfg.RampUpSeconds, cancel, onProgress)
			}(i, sc)
		}
		wg.Wait()
		for _, r := range results {
			combined = append(combined, r...)
		}
	}

	loadResults := assignResults(runID, combined)
	return loadResults, computeLoadSummary(loadResults)
}

func (e *Engine) runScenario(runID, scenario string, n, concurrency, rampUp int, cancel *atomic.Bool, onProgress func(model.LoadTestProgress)) []attempt {
	switch scenario {
	case "create_users":
		return e.scenarioCreateUsers(runID, n, concurrency, rampUp, cancel, onProgress)
	case "create_update":
		return e.scenarioCreateUpdate(runID, n, concurrency, rampUp, cancel, onProgress)
	case "full_lifecycle":
		return e.scenarioFullLifecycle(runID, n, concurrency, rampUp, cancel, onProgress)
	case "list_users":
		return e.scenarioListUsers(runID, n, concurrency, rampUp, cancel, onProgress)
	case "create_groups":
		return e.scenarioCreateGroups(runID, n, concurrency, rampUp, cancel, onProgress)
	case "group_lifecycle":
		return e.scenarioGroupLifecycle(runID, n, concurrency, rampUp, cancel, onProgress)
	case "add_remove_members":
		return e.scenarioAddRemoveMembers(runID, n, concurrency, rampUp, cancel, onProgress)
	case "update_groups":
		return e.scenarioUpdateGroups(runID, n, concurrency, rampUp, cancel, onProgress)
	default:
		return nil
	}
}

// percentile implements the documented nearest-rank formula,
// idx = round((p/100)·(len−1)), per spec.md §4.3.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Round(p / 100 * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func computeLoadSummary(results []model.LoadTestResult) model.LoadTestSummary {
	summary := model.LoadTestSummary{StatusCodeDistribution: map[int]int{}}
	if len(results) == 0 {
		return summary
	}
	summary.TotalRequests = len(results)

	durations := make([]int64, len(results))
	var sumDur int64
	minTS, maxTS := results[0].Timestamp, results[0].Timestamp
	for i, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
		durations[i] = r.DurationMS
		sumDur += r.DurationMS
		if r.StatusCode != nil {
			summary.StatusCodeDistribution[*r.StatusCode]++
		}
		if r.Timestamp.Before(minTS) {
			minTS = r.Timestamp
		}
		if r.Timestamp.After(maxTS) {
			maxTS = r.Timestamp
		}
	}
	summary.ErrorRate = 100 * float64(summary.Failed) / float64(summary.TotalRequests)

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	summary.MinLatencyMS = durations[0]
	summary.MaxLatencyMS = durations[len(durations)-1]
	summary.AvgLatencyMS = float64(sumDur) / float64(len(durations))
	summary.P50LatencyMS = percentile(durations, 50)
	summary.P75LatencyMS = percentile(durations, 75)
	summary.P90LatencyMS = percentile(durations, 90)
	summary.P95LatencyMS = percentile(durations, 95)
	summary.P99LatencyMS = percentile(durations, 99)

	summary.TotalDurationMS = maxTS.Sub(minTS).Milliseconds()
	if summary.TotalDurationMS > 0 {
		summary.RequestsPerSecond = float64(summary.TotalRequests) / (float64(summary.TotalDurationMS) / 1000)
	}
	return summary
}
