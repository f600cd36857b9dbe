package facade

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/marcelom97/scimprobe/config"
	"github.com/marcelom97/scimprobe/model"
	"github.com/marcelom97/scimprobe/store"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "facade_test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func newSchemaDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ServiceProviderConfig", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"schemas":["x"]}`))
	})
	mux.HandleFunc("/Schemas", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Resources":[]}`))
	})
	mux.HandleFunc("/ResourceTypes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	return httptest.NewServer(mux)
}

func TestSaveServerConfigAssignsIDAndTimestamps(t *testing.T) {
	f := newTestFacade(t)
	saved, err := f.SaveServerConfig(context.Background(), config.ServerConfig{Name: "Okta Dev", BaseURL: "https://example.com"})
	if err != nil {
		t.Fatalf("SaveServerConfig: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if saved.CreatedAt == "" || saved.UpdatedAt == "" {
		t.Fatal("expected assigned timestamps")
	}

	got, err := f.GetServerConfig(context.Background(), saved.ID)
	if err != nil || got == nil {
		t.Fatalf("GetServerConfig: %v, %v", got, err)
	}
	if got.Name != "Okta Dev" {
		t.Fatalf("Name = %q, want %q", got.Name, "Okta Dev")
	}
}

func TestSaveServerConfigRejectsInvalid(t *testing.T) {
	f := newTestFacade(t)
	_, err := f.SaveServerConfig(context.Background(), config.ServerConfig{})
	if err == nil {
		t.Fatal("expected a validation error for an empty config")
	}
}

func TestRunValidationSmoke(t *testing.T) {
	srv := newSchemaDiscoveryServer(t)
	defer srv.Close()

	f := newTestFacade(t)
	ctx := context.Background()
	saved, err := f.SaveServerConfig(ctx, config.ServerConfig{Name: "Test Server", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("SaveServerConfig: %v", err)
	}

	var progressEvents int
	runID, err := f.RunValidation(ctx, model.ValidationRunConfig{
		ServerConfigID: saved.ID,
		Categories:     []string{"schema_discovery"},
	}, func(model.ValidationProgress) { progressEvents++ })
	if err != nil {
		t.Fatalf("RunValidation: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a non-empty run id")
	}
	if progressEvents == 0 {
		t.Fatal("expected at least one progress event")
	}

	run, err := f.GetTestRun(ctx, runID)
	if err != nil || run == nil {
		t.Fatalf("GetTestRun: %v, %v", run, err)
	}
	if run.Status != model.StatusCompleted {
		t.Fatalf("Status = %v, want %v", run.Status, model.StatusCompleted)
	}
	if run.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}

	results, err := f.GetValidationResults(ctx, runID)
	if err != nil {
		t.Fatalf("GetValidationResults: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("expected all schema_discovery probes to pass, got %+v", r)
		}
	}
}

func TestRunValidationUnknownServer(t *testing.T) {
	f := newTestFacade(t)
	_, err := f.RunValidation(context.Background(), model.ValidationRunConfig{ServerConfigID: "missing"}, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown server id")
	}
}

func TestStopLoadTestUnknownRun(t *testing.T) {
	f := newTestFacade(t)
	if err := f.StopLoadTest("does-not-exist"); err == nil {
		t.Fatal("expected an error stopping an unregistered run")
	}
}

func TestDeleteTestRunCascades(t *testing.T) {
	srv := newSchemaDiscoveryServer(t)
	defer srv.Close()

	f := newTestFacade(t)
	ctx := context.Background()
	saved, _ := f.SaveServerConfig(ctx, config.ServerConfig{Name: "Test Server", BaseURL: srv.URL})
	runID, err := f.RunValidation(ctx, model.ValidationRunConfig{ServerConfigID: saved.ID, Categories: []string{"schema_discovery"}}, nil)
	if err != nil {
		t.Fatalf("RunValidation: %v", err)
	}

	if err := f.DeleteTestRun(ctx, runID); err != nil {
		t.Fatalf("DeleteTestRun: %v", err)
	}
	results, err := f.GetValidationResults(ctx, runID)
	if err != nil {
		t.Fatalf("GetValidationResults: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0 after delete", len(results))
	}
}
