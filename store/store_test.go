package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcelom97/scimprobe/config"
	"github.com/marcelom97/scimprobe/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "store_test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedServerConfig(t *testing.T, s *Store, id string) {
	t.Helper()
	now := time.Now()
	c := config.ServerConfig{ID: id, Name: id, BaseURL: "https://example.com"}
	if err := s.SaveServerConfig(context.Background(), c, now, now); err != nil {
		t.Fatalf("SaveServerConfig: %v", err)
	}
}

func TestTestRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedServerConfig(t, s, "server-1")

	run := model.TestRun{
		ID:             "run-1",
		ServerConfigID: "server-1",
		RunType:        model.RunValidation,
		Status:         model.StatusRunning,
		StartedAt:      time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveTestRun(ctx, run); err != nil {
		t.Fatalf("SaveTestRun: %v", err)
	}

	got, err := s.GetTestRun(ctx, "run-1")
	if err != nil || got == nil {
		t.Fatalf("GetTestRun: %v, %v", got, err)
	}
	if got.Status != model.StatusRunning {
		t.Fatalf("Status = %v, want %v", got.Status, model.StatusRunning)
	}
	if got.CompletedAt != nil {
		t.Fatalf("CompletedAt = %v, want nil", got.CompletedAt)
	}

	completedAt := time.Now().UTC().Truncate(time.Second)
	summary := `{"total":1}`
	run.Status = model.StatusCompleted
	run.CompletedAt = &completedAt
	run.SummaryJSON = &summary
	if err := s.SaveTestRun(ctx, run); err != nil {
		t.Fatalf("SaveTestRun (update): %v", err)
	}

	got, err = s.GetTestRun(ctx, "run-1")
	if err != nil || got == nil {
		t.Fatalf("GetTestRun after update: %v, %v", got, err)
	}
	if got.Status != model.StatusCompleted {
		t.Fatalf("Status after update = %v, want %v", got.Status, model.StatusCompleted)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completedAt) {
		t.Fatalf("CompletedAt = %v, want %v", got.CompletedAt, completedAt)
	}
	if got.SummaryJSON == nil || *got.SummaryJSON != summary {
		t.Fatalf("SummaryJSON = %v, want %q", got.SummaryJSON, summary)
	}
}

func TestGetTestRunMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetTestRun(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("GetTestRun: %v", err)
	}
	if got != nil {
		t.Fatalf("got = %+v, want nil", got)
	}
}

func TestGetTestRunsFiltersByServerAndType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedServerConfig(t, s, "server-a")
	seedServerConfig(t, s, "server-b")

	runs := []model.TestRun{
		{ID: "r1", ServerConfigID: "server-a", RunType: model.RunValidation, Status: model.StatusCompleted, StartedAt: time.Now()},
		{ID: "r2", ServerConfigID: "server-a", RunType: model.RunLoadTest, Status: model.StatusCompleted, StartedAt: time.Now()},
		{ID: "r3", ServerConfigID: "server-b", RunType: model.RunValidation, Status: model.StatusCompleted, StartedAt: time.Now()},
	}
	for _, r := range runs {
		if err := s.SaveTestRun(ctx, r); err != nil {
			t.Fatalf("SaveTestRun(%s): %v", r.ID, err)
		}
	}

	got, err := s.GetTestRuns(ctx, "server-a", "")
	if err != nil {
		t.Fatalf("GetTestRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}

	got, err = s.GetTestRuns(ctx, "server-a", string(model.RunLoadTest))
	if err != nil {
		t.Fatalf("GetTestRuns: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r2" {
		t.Fatalf("got = %+v, want just r2", got)
	}
}

func TestDeleteTestRunCascadesResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedServerConfig(t, s, "server-1")

	run := model.TestRun{ID: "run-1", ServerConfigID: "server-1", RunType: model.RunLoadTest, Status: model.StatusCompleted, StartedAt: time.Now()}
	if err := s.SaveTestRun(ctx, run); err != nil {
		t.Fatalf("SaveTestRun: %v", err)
	}

	status := 201
	if err := s.SaveLoadTestResults(ctx, []model.LoadTestResult{
		{ID: "lr-1", TestRunID: "run-1", RequestIndex: 0, HTTPMethod: "POST", URL: "/Users", StatusCode: &status, Success: true, Timestamp: time.Now()},
	}); err != nil {
		t.Fatalf("SaveLoadTestResults: %v", err)
	}
	if err := s.SaveValidationResult(ctx, model.ValidationResult{
		ID: "vr-1", TestRunID: "run-1", TestName: "t", Category: "c", HTTPMethod: "GET", URL: "/Users", ExecutedAt: time.Now(),
	}); err != nil {
		t.Fatalf("SaveValidationResult: %v", err)
	}

	if err := s.DeleteTestRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteTestRun: %v", err)
	}

	loadResults, err := s.GetLoadTestResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetLoadTestResults: %v", err)
	}
	if len(loadResults) != 0 {
		t.Fatalf("len(loadResults) = %d, want 0 after delete", len(loadResults))
	}
	validationResults, err := s.GetValidationResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetValidationResults: %v", err)
	}
	if len(validationResults) != 0 {
		t.Fatalf("len(validationResults) = %d, want 0 after delete", len(validationResults))
	}
	if got, err := s.GetTestRun(ctx, "run-1"); err != nil || got != nil {
		t.Fatalf("GetTestRun after delete = %+v, %v, want nil, nil", got, err)
	}
}

func TestSettingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetSetting(ctx, "theme"); err != nil || ok {
		t.Fatalf("GetSetting before save: ok=%v err=%v, want ok=false", ok, err)
	}

	if err := s.SaveSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("SaveSetting: %v", err)
	}
	value, ok, err := s.GetSetting(ctx, "theme")
	if err != nil || !ok || value != "dark" {
		t.Fatalf("GetSetting = %q, %v, %v, want dark, true, nil", value, ok, err)
	}

	if err := s.SaveSetting(ctx, "theme", "light"); err != nil {
		t.Fatalf("SaveSetting (update): %v", err)
	}
	value, _, _ = s.GetSetting(ctx, "theme")
	if value != "light" {
		t.Fatalf("value after update = %q, want light", value)
	}
}

func TestClearAllData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedServerConfig(t, s, "server-1")
	if err := s.SaveTestRun(ctx, model.TestRun{ID: "run-1", ServerConfigID: "server-1", RunType: model.RunValidation, Status: model.StatusCompleted, StartedAt: time.Now()}); err != nil {
		t.Fatalf("SaveTestRun: %v", err)
	}

	if err := s.ClearAllData(ctx); err != nil {
		t.Fatalf("ClearAllData: %v", err)
	}

	configs, err := s.GetServerConfigs(ctx)
	if err != nil {
		t.Fatalf("GetServerConfigs: %v", err)
	}
	if len(configs) != 0 {
		t.Fatalf("len(configs) = %d, want 0 after clear", len(configs))
	}
	runs, err := s.GetTestRuns(ctx, "", "")
	if err != nil {
		t.Fatalf("GetTestRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("len(runs) = %d, want 0 after clear", len(runs))
	}
}
