// Package facade implements the Command Facade: the single entry point
// a UI host (here, the CLI in cmd/scimprobe) drives. It owns the run
// lifecycle state machine, the cancel-token registry, and every
// pass-through to the Result Store, per spec.md §4.4 and §6.
package facade

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marcelom97/scimprobe/client"
	"github.com/marcelom97/scimprobe/config"
	"github.com/marcelom97/scimprobe/loadtest"
	"github.com/marcelom97/scimprobe/model"
	"github.com/marcelom97/scimprobe/store"
	"github.com/marcelom97/scimprobe/validation"
)

// Facade binds the Result Store to the two engines and exposes the
// command surface spec.md §6 names.
type Facade struct {
	store *store.Store

	mu           sync.Mutex
	cancelTokens map[string]*atomic.Bool
}

func New(s *store.Store) *Facade {
	return &Facade{store: s, cancelTokens: make(map[string]*atomic.Bool)}
}

func now() time.Time { return time.Now() }

func (f *Facade) registerCancelToken(runID string) *atomic.Bool {
	token := &atomic.Bool{}
	f.mu.Lock()
	f.cancelTokens[runID] = token
	f.mu.Unlock()
	return token
}

func (f *Facade) deregisterCancelToken(runID string) {
	f.mu.Lock()
	delete(f.cancelTokens, runID)
	f.mu.Unlock()
}

// emitNonBlocking drops an event rather than blocking the engine that
// produced it, per spec.md §9 ("drop is preferable to block").
func emitNonBlocking[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// --- Server configs ---

func (f *Facade) SaveServerConfig(ctx context.Context, c config.ServerConfig) (config.ServerConfig, error) {
	created := now()
	updated := created
	if c.ID == "" {
		c.ID = uuid.New().String()
	} else if existing, err := f.store.GetServerConfig(ctx, c.ID); err == nil && existing != nil {
		if t, err := time.Parse(time.RFC3339, existing.CreatedAt); err == nil {
			created = t
		}
	}
	if err := c.Validate(); err != nil {
		return config.ServerConfig{}, err
	}
	if err := f.store.SaveServerConfig(ctx, c, created, updated); err != nil {
		return config.ServerConfig{}, fmt.Errorf("save server config: %w", err)
	}
	c.CreatedAt = created.Format(time.RFC3339)
	c.UpdatedAt = updated.Format(time.RFC3339)
	return c, nil
}

func (f *Facade) GetServerConfigs(ctx context.Context) ([]config.ServerConfig, error) {
	return f.store.GetServerConfigs(ctx)
}

func (f *Facade) GetServerConfig(ctx context.Context, id string) (*config.ServerConfig, error) {
	return f.store.GetServerConfig(ctx, id)
}

func (f *Facade) DeleteServerConfig(ctx context.Context, id string) error {
	return f.store.DeleteServerConfig(ctx, id)
}

// TestConnection issues a single GET /ServiceProviderConfig probe, per
// spec.md §6.
func (f *Facade) TestConnection(ctx context.Context, id string) (model.TestConnectionResult, error) {
	cfg, err := f.store.GetServerConfig(ctx, id)
	if err != nil {
		return model.TestConnectionResult{}, fmt.Errorf("test connection: %w", err)
	}
	if cfg == nil {
		errMsg := "unknown server id"
		return model.TestConnectionResult{Success: false, Error: &errMsg}, nil
	}

	c := client.New(*cfg, 1)
	defer c.Close()
	resp, err := c.Get("/ServiceProviderConfig")
	if err != nil {
		errMsg := err.Error()
		return model.TestConnectionResult{Success: false, Error: &errMsg}, nil
	}
	success := resp.Status >= 200 && resp.Status < 300
	status := resp.Status
	body := resp.Body
	return model.TestConnectionResult{
		Success:      success,
		StatusCode:   &status,
		ResponseBody: &body,
		DurationMS:   resp.DurationMS,
	}, nil
}

// --- Validation runs ---

// RunValidation executes one validation run to completion before
// returning, per spec.md §6 ("synchronous completion before return").
// onProgress may be nil; it is called from a dedicated goroutine, never
// from inside the engine.
func (f *Facade) RunValidation(ctx context.Context, cfg model.ValidationRunConfig, onProgress func(model.ValidationProgress)) (string, error) {
	serverCfg, err := f.store.GetServerConfig(ctx, cfg.ServerConfigID)
	if err != nil {
		return "", fmt.Errorf("run validation: %w", err)
	}
	if serverCfg == nil {
		return "", fmt.Errorf("run validation: unknown server id %q", cfg.ServerConfigID)
	}

	runID := uuid.New().String()
	run := model.TestRun{ID: runID, ServerConfigID: cfg.ServerConfigID, RunType: model.RunValidation, Status: model.StatusRunning, StartedAt: now()}
	if err := f.store.SaveTestRun(ctx, run); err != nil {
		return "", fmt.Errorf("run validation: %w", err)
	}

	token := f.registerCancelToken(runID)
	defer f.deregisterCancelToken(runID)

	progressCh := make(chan model.ValidationProgress, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range progressCh {
			if onProgress != nil {
				onProgress(p)
			}
		}
	}()

	c := client.New(*serverCfg, 1)
	engine := validation.New(c)
	results, summary := engine.Run(runID, cfg, token, func(p model.ValidationProgress) {
		emitNonBlocking(progressCh, p)
	})
	c.Close()
	close(progressCh)
	wg.Wait()

	status := model.StatusCompleted
	if token.Load() {
		status = model.StatusCancelled
	}

	for _, r := range results {
		if err := f.store.SaveValidationResult(ctx, r); err != nil {
			f.failRun(ctx, runID)
			return "", fmt.Errorf("run validation: %w", err)
		}
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		f.failRun(ctx, runID)
		return "", fmt.Errorf("run validation: %w", err)
	}
	summaryStr := string(summaryJSON)
	completedAt := now()
	run.Status = status
	run.CompletedAt = &completedAt
	run.SummaryJSON = &summaryStr
	if err := f.store.SaveTestRun(ctx, run); err != nil {
		return "", fmt.Errorf("run validation: %w", err)
	}
	return runID, nil
}

func (f *Facade) GetValidationResults(ctx context.Context, runID string) ([]model.ValidationResult, error) {
	return f.store.GetValidationResults(ctx, runID)
}

// --- Load-test runs ---

// StartLoadTest executes one load-test run to completion before
// returning, per spec.md §6. The run can be cancelled mid-flight by a
// concurrent call to StopLoadTest.
func (f *Facade) StartLoadTest(ctx context.Context, cfg model.LoadTestConfig, onProgress func(model.LoadTestProgress)) (string, error) {
	serverCfg, err := f.store.GetServerConfig(ctx, cfg.ServerConfigID)
	if err != nil {
		return "", fmt.Errorf("start load test: %w", err)
	}
	if serverCfg == nil {
		return "", fmt.Errorf("start load test: unknown server id %q", cfg.ServerConfigID)
	}
	scenarios := cfg.Scenarios
	if len(scenarios) == 0 {
		scenarios = []string{cfg.Scenario}
	}
	for _, sc := range scenarios {
		switch sc {
		case "create_users", "create_update", "full_lifecycle", "list_users",
			"create_groups", "group_lifecycle", "add_remove_members", "update_groups":
		default:
			return "", fmt.Errorf("start load test: unknown scenario %q", sc)
		}
	}

	runID := uuid.New().String()
	run := model.TestRun{ID: runID, ServerConfigID: cfg.ServerConfigID, RunType: model.RunLoadTest, Status: model.StatusRunning, StartedAt: now()}
	if err := f.store.SaveTestRun(ctx, run); err != nil {
		return "", fmt.Errorf("start load test: %w", err)
	}

	token := f.registerCancelToken(runID)
	defer f.deregisterCancelToken(runID)

	progressCh := make(chan model.LoadTestProgress, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range progressCh {
			if onProgress != nil {
				onProgress(p)
			}
		}
	}()

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	c := client.New(*serverCfg, concurrency)
	engine := loadtest.New(c)
	results, summary := engine.Run(runID, cfg, token, func(p model.LoadTestProgress) {
		emitNonBlocking(progressCh, p)
	})
	c.Close()
	close(progressCh)
	wg.Wait()

	status := model.StatusCompleted
	if token.Load() {
		status = model.StatusCancelled
	}

	if err := f.store.SaveLoadTestResults(ctx, results); err != nil {
		f.failRun(ctx, runID)
		return "", fmt.Errorf("start load test: %w", err)
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		f.failRun(ctx, runID)
		return "", fmt.Errorf("start load test: %w", err)
	}
	summaryStr := string(summaryJSON)
	completedAt := now()
	run.Status = status
	run.CompletedAt = &completedAt
	run.SummaryJSON = &summaryStr
	if err := f.store.SaveTestRun(ctx, run); err != nil {
		return "", fmt.Errorf("start load test: %w", err)
	}
	return runID, nil
}

// StopLoadTest trips the cancel token for a running run. Per spec.md
// §4.4, an absent token (unknown or already-completed run) is reported
// rather than silently ignored.
func (f *Facade) StopLoadTest(runID string) error {
	f.mu.Lock()
	token, ok := f.cancelTokens[runID]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("stop load test: run %q not found or already completed", runID)
	}
	token.Store(true)
	return nil
}

func (f *Facade) GetLoadTestResults(ctx context.Context, runID string) ([]model.LoadTestResult, error) {
	return f.store.GetLoadTestResults(ctx, runID)
}

func (f *Facade) failRun(ctx context.Context, runID string) {
	completedAt := now()
	run, err := f.store.GetTestRun(ctx, runID)
	if err != nil || run == nil {
		return
	}
	run.Status = model.StatusFailed
	run.CompletedAt = &completedAt
	_ = f.store.SaveTestRun(ctx, *run)
}

// --- Test runs ---

func (f *Facade) GetTestRuns(ctx context.Context, serverConfigID string, kind model.RunKind) ([]model.TestRun, error) {
	return f.store.GetTestRuns(ctx, serverConfigID, string(kind))
}

func (f *Facade) GetTestRun(ctx context.Context, id string) (*model.TestRun, error) {
	return f.store.GetTestRun(ctx, id)
}

func (f *Facade) DeleteTestRun(ctx context.Context, id string) error {
	return f.store.DeleteTestRun(ctx, id)
}

// --- Field mapping rules ---

func (f *Facade) SaveFieldMappingRule(ctx context.Context, r model.FieldMappingRule) (model.FieldMappingRule, error) {
	created := now()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = created
	r.UpdatedAt = created
	if err := f.store.SaveFieldMappingRule(ctx, r); err != nil {
		return model.FieldMappingRule{}, fmt.Errorf("save field mapping rule: %w", err)
	}
	return r, nil
}

func (f *Facade) GetFieldMappingRules(ctx context.Context, serverConfigID string) ([]model.FieldMappingRule, error) {
	return f.store.GetFieldMappingRules(ctx, serverConfigID)
}

func (f *Facade) DeleteFieldMappingRule(ctx context.Context, id string) error {
	return f.store.DeleteFieldMappingRule(ctx, id)
}

// --- Sample data ---

func (f *Facade) GetSampleData(ctx context.Context, serverConfigID string) ([]model.SampleData, error) {
	if err := f.store.EnsureDefaultSampleData(ctx, serverConfigID); err != nil {
		return nil, fmt.Errorf("get sample data: %w", err)
	}
	return f.store.GetSampleData(ctx, serverConfigID)
}

func (f *Facade) SaveSampleData(ctx context.Context, d model.SampleData) error {
	return f.store.SaveSampleData(ctx, d)
}

func (f *Facade) DeleteSampleData(ctx context.Context, id string) error {
	return f.store.DeleteSampleData(ctx, id)
}

// --- Explorer pass-through ---

// ExecuteSCIMRequest is a direct pass-through of the client layer, per
// spec.md §6: no separate explorer engine exists.
func (f *Facade) ExecuteSCIMRequest(ctx context.Context, req model.ExplorerRequest) (model.ExplorerResponse, error) {
	cfg, err := f.store.GetServerConfig(ctx, req.ServerConfigID)
	if err != nil {
		return model.ExplorerResponse{}, fmt.Errorf("execute scim request: %w", err)
	}
	if cfg == nil {
		return model.ExplorerResponse{}, fmt.Errorf("execute scim request: unknown server id %q", req.ServerConfigID)
	}

	path := req.Path
	if req.QueryParams != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path = path + sep + req.QueryParams
	}

	body := ""
	if req.Body != nil {
		body = *req.Body
	}

	c := client.New(*cfg, 1)
	defer c.Close()
	resp, err := c.RequestFull(req.Method, path, body)
	if err != nil {
		return model.ExplorerResponse{}, fmt.Errorf("execute scim request: %w", err)
	}
	return model.ExplorerResponse{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		Headers:    resp.Headers,
		Body:       resp.Body,
		DurationMS: resp.DurationMS,
		RequestURL: resp.RequestURL,
	}, nil
}

// --- Housekeeping ---

func (f *Facade) ClearAllData(ctx context.Context) error {
	return f.store.ClearAllData(ctx)
}

func (f *Facade) GetSetting(ctx context.Context, key string) (string, bool, error) {
	return f.store.GetSetting(ctx, key)
}

func (f *Facade) SaveSetting(ctx context.Context, key, value string) error {
	return f.store.SaveSetting(ctx, key, value)
}
