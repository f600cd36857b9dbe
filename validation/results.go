package validation

import (
	"fmt"

	"github.com/marcelom97/scimprobe/client"
	"github.com/marcelom97/scimprobe/model"
)

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// resultFromResponse builds a ValidationResult from a completed HTTP
// round-trip. ID, TestRunID, and ExecutedAt are filled in by recorder.add.
func resultFromResponse(name, category, method, url string, reqBody *string, resp client.Response, passed bool, failureReason string) model.ValidationResult {
	status := resp.Status
	body := resp.Body
	return model.ValidationResult{
		TestName:       name,
		Category:       category,
		HTTPMethod:     method,
		URL:            url,
		RequestBody:    reqBody,
		ResponseStatus: &status,
		ResponseBody:   &body,
		DurationMS:     resp.DurationMS,
		Passed:         passed,
		FailureReason:  strPtr(failureReason),
	}
}

func transportFailureResult(name, category, method, url string, reqBody *string, err error) model.ValidationResult {
	reason := err.Error()
	return model.ValidationResult{
		TestName:      name,
		Category:      category,
		HTTPMethod:    method,
		URL:           url,
		RequestBody:   reqBody,
		Passed:        false,
		FailureReason: &reason,
	}
}

// skippedResult records a dependency-skip: a probe or sub-step that could
// not run because a prerequisite failed, per spec.md §9. The literal
// "Skipped" prefix excludes it from the compliance score.
func skippedResult(name, category, method, url, reason string) model.ValidationResult {
	r := "Skipped: " + reason
	return model.ValidationResult{
		TestName:      name,
		Category:      category,
		HTTPMethod:    method,
		URL:           url,
		Passed:        false,
		FailureReason: &r,
	}
}

func expectStatusIn(resp client.Response, allowed ...int) (bool, string) {
	for _, s := range allowed {
		if resp.Status == s {
			return true, ""
		}
	}
	if len(allowed) == 1 {
		return false, fmt.Sprintf("Expected status %d, got %d", allowed[0], resp.Status)
	}
	return false, fmt.Sprintf("Expected status in %v, got %d", allowed, resp.Status)
}

func expectStatus2xx(resp client.Response) (bool, string) {
	if resp.Status >= 200 && resp.Status < 300 {
		return true, ""
	}
	return false, fmt.Sprintf("Expected 2xx status, got %d", resp.Status)
}
