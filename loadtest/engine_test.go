package loadtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcelom97/scimprobe/client"
	"github.com/marcelom97/scimprobe/config"
	"github.com/marcelom97/scimprobe/model"
)

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want int64
	}{
		{50, 6},
		{75, 8},
		{95, 10},
		{99, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestPercentileEmpty(t *testing.T) {
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil) = %d, want 0", got)
	}
}

func TestComputeLoadSummaryEmpty(t *testing.T) {
	summary := computeLoadSummary(nil)
	if summary.TotalRequests != 0 {
		t.Fatalf("TotalRequests = %d, want 0", summary.TotalRequests)
	}
}

func TestComputeLoadSummary(t *testing.T) {
	now := time.Now()
	status200 := 200
	status500 := 500
	results := []model.LoadTestResult{
		{DurationMS: 10, Success: true, StatusCode: &status200, Timestamp: now},
		{DurationMS: 20, Success: true, StatusCode: &status200, Timestamp: now.Add(1 * time.Second)},
		{DurationMS: 30, Success: false, StatusCode: &status500, Timestamp: now.Add(2 * time.Second)},
	}
	summary := computeLoadSummary(results)
	if summary.TotalRequests != 3 || summary.Successful != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.StatusCodeDistribution[200] != 2 || summary.StatusCodeDistribution[500] != 1 {
		t.Fatalf("unexpected status distribution: %+v", summary.StatusCodeDistribution)
	}
	if summary.MinLatencyMS != 10 || summary.MaxLatencyMS != 30 {
		t.Fatalf("unexpected latency bounds: min=%d max=%d", summary.MinLatencyMS, summary.MaxLatencyMS)
	}
	wantErrorRate := 100.0 / 3.0
	if summary.ErrorRate != wantErrorRate {
		t.Fatalf("ErrorRate = %v, want %v", summary.ErrorRate, wantErrorRate)
	}
}

// newMockSCIMServer returns an httptest server that accepts POST/DELETE
// on /Users and always succeeds, assigning a fresh id per created user.
func newMockSCIMServer(t *testing.T) *httptest.Server {
	t.Helper()
	var idCounter int64
	mux := http.NewServeMux()
	mux.HandleFunc("/Users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := fmt.Sprintf("u%d", atomic.AddInt64(&idCounter, 1))
		w.Header().Set("Content-Type", "application/scim+json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
	})
	mux.HandleFunc("/Users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(mux)
}

func TestScenarioCreateUsersEndToEnd(t *testing.T) {
	srv := newMockSCIMServer(t)
	defer srv.Close()

	c := client.New(config.ServerConfig{BaseURL: srv.URL}, 5)
	defer c.Close()
	engine := New(c)

	var cancel atomic.Bool
	var progressCount int64
	attempts := engine.scenarioCreateUsers("run-1", 5, 5, 0, &cancel, func(model.LoadTestProgress) {
		atomic.AddInt64(&progressCount, 1)
	})

	if len(attempts) != 10 {
		t.Fatalf("len(attempts) = %d, want 10 (5 creates + 5 deletes)", len(attempts))
	}
	for i, a := range attempts[:5] {
		if a.method != "POST" || !a.success {
			t.Errorf("create attempt %d not successful: %+v", i, a)
		}
	}
	for i, a := range attempts[5:] {
		if a.method != "DELETE" || !a.success {
			t.Errorf("delete attempt %d not successful: %+v", i, a)
		}
	}
}

func TestScenarioCreateUsersCancellation(t *testing.T) {
	srv := newMockSCIMServer(t)
	defer srv.Close()

	c := client.New(config.ServerConfig{BaseURL: srv.URL}, 5)
	defer c.Close()
	engine := New(c)

	var cancel atomic.Bool
	cancel.Store(true)
	attempts := engine.scenarioCreateUsers("run-1", 5, 5, 0, &cancel, nil)
	if len(attempts) != 0 {
		t.Fatalf("len(attempts) = %d, want 0 when cancelled before start", len(attempts))
	}
}

func TestAssignResultsDenseIndex(t *testing.T) {
	attempts := []attempt{
		{method: "POST", url: "/Users", success: true},
		{method: "DELETE", url: "/Users/u1", success: true},
	}
	results := assignResults("run-1", attempts)
	for i, r := range results {
		if r.RequestIndex != int64(i) {
			t.Errorf("result %d has RequestIndex %d, want %d", i, r.RequestIndex, i)
		}
	}
}
