package loadtest

import (
	"time"

	"github.com/google/uuid"

	"github.com/marcelom97/scimprobe/client"
	"github.com/marcelom97/scimprobe/model"
)

// attempt is one HTTP round-trip recorded during a scenario, before it is
// assigned a dense request index and turned into a model.LoadTestResult.
type attempt struct {
	method       string
	url          string
	requestBody  *string
	statusCode   *int
	durationMS   int64
	success      bool
	errorMessage *string
	timestamp    time.Time
}

func fromResponse(method, url string, reqBody *string, resp client.Response) attempt {
	status := resp.Status
	return attempt{
		method:      method,
		url:         url,
		requestBody: reqBody,
		statusCode:  &status,
		durationMS:  resp.DurationMS,
		success:     status >= 200 && status < 400,
		timestamp:   time.Now(),
	}
}

func fromError(method, url string, reqBody *string, err error) attempt {
	msg := err.Error()
	return attempt{
		method:       method,
		url:          url,
		requestBody:  reqBody,
		durationMS:   0,
		success:      false,
		errorMessage: &msg,
		timestamp:    time.Now(),
	}
}

// syntheticSkip fills an index slot that a failed prerequisite prevented
// from ever being attempted, keeping the per-unit index space dense, per
// spec.md §4.3.
func syntheticSkip(method, url string) attempt {
	msg := "Skipped — create failed"
	return attempt{
		method:       method,
		url:          url,
		durationMS:   0,
		success:      false,
		errorMessage: &msg,
		timestamp:    time.Now(),
	}
}

// assignResults converts the scenario's attempt sequence into results
// with a dense, monotonic request index, per spec.md §5.
func assignResults(runID string, attempts []attempt) []model.LoadTestResult {
	out := make([]model.LoadTestResult, len(attempts))
	for i, a := range attempts {
		out[i] = model.LoadTestResult{
			ID:           uuid.New().String(),
			TestRunID:    runID,
			RequestIndex: int64(i),
			HTTPMethod:   a.method,
			URL:          a.url,
			RequestBody:  a.requestBody,
			StatusCode:   a.statusCode,
			DurationMS:   a.durationMS,
			Success:      a.success,
			ErrorMessage: a.errorMessage,
			Timestamp:    a.timestamp,
		}
	}
	return out
}
