package store

import (
	"database/sql"
	"time"

	"github.com/marcelom97/scimprobe/model"
)

// dbTestRun mirrors the test_runs table; nullable columns use sql.Null*
// types because database/sql (via sqlx) has no native Go pointer-to-zero
// convention for NULL the way the store's model package does.
type dbTestRun struct {
	ID             string         `db:"id"`
	ServerConfigID string         `db:"server_config_id"`
	RunType        string         `db:"run_type"`
	Status         string         `db:"status"`
	StartedAt      time.Time      `db:"started_at"`
	CompletedAt    sql.NullTime   `db:"completed_at"`
	SummaryJSON    sql.NullString `db:"summary_json"`
}

func testRunRow(r model.TestRun) dbTestRun {
	row := dbTestRun{
		ID:             r.ID,
		ServerConfigID: r.ServerConfigID,
		RunType:        string(r.RunType),
		Status:         string(r.Status),
		StartedAt:      r.StartedAt,
	}
	if r.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: *r.CompletedAt, Valid: true}
	}
	if r.SummaryJSON != nil {
		row.SummaryJSON = sql.NullString{String: *r.SummaryJSON, Valid: true}
	}
	return row
}

func (r dbTestRun) toModel() model.TestRun {
	run := model.TestRun{
		ID:             r.ID,
		ServerConfigID: r.ServerConfigID,
		RunType:        model.RunKind(r.RunType),
		Status:         model.RunStatus(r.Status),
		StartedAt:      r.StartedAt,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		run.CompletedAt = &t
	}
	if r.SummaryJSON.Valid {
		s := r.SummaryJSON.String
		run.SummaryJSON = &s
	}
	return run
}

type dbValidationResult struct {
	ID             string         `db:"id"`
	TestRunID      string         `db:"test_run_id"`
	TestName       string         `db:"test_name"`
	Category       string         `db:"category"`
	HTTPMethod     string         `db:"http_method"`
	URL            string         `db:"url"`
	RequestBody    sql.NullString `db:"request_body"`
	ResponseStatus sql.NullInt64  `db:"response_status"`
	ResponseBody   sql.NullString `db:"response_body"`
	DurationMS     int64          `db:"duration_ms"`
	Passed         bool           `db:"passed"`
	FailureReason  sql.NullString `db:"failure_reason"`
	ExecutedAt     time.Time      `db:"executed_at"`
}

func validationResultRow(r model.ValidationResult) dbValidationResult {
	row := dbValidationResult{
		ID:         r.ID,
		TestRunID:  r.TestRunID,
		TestName:   r.TestName,
		Category:   r.Category,
		HTTPMethod: r.HTTPMethod,
		URL:        r.URL,
		DurationMS: r.DurationMS,
		Passed:     r.Passed,
		ExecutedAt: r.ExecutedAt,
	}
	if r.RequestBody != nil {
		row.RequestBody = sql.NullString{String: *r.RequestBody, Valid: true}
	}
	if r.ResponseStatus != nil {
		row.ResponseStatus = sql.NullInt64{Int64: int64(*r.ResponseStatus), Valid: true}
	}
	if r.ResponseBody != nil {
		row.ResponseBody = sql.NullString{String: *r.ResponseBody, Valid: true}
	}
	if r.FailureReason != nil {
		row.FailureReason = sql.NullString{String: *r.FailureReason, Valid: true}
	}
	return row
}

func (r dbValidationResult) toModel() model.ValidationResult {
	out := model.ValidationResult{
		ID:         r.ID,
		TestRunID:  r.TestRunID,
		TestName:   r.TestName,
		Category:   r.Category,
		HTTPMethod: r.HTTPMethod,
		URL:        r.URL,
		DurationMS: r.DurationMS,
		Passed:     r.Passed,
		ExecutedAt: r.ExecutedAt,
	}
	if r.RequestBody.Valid {
		out.RequestBody = &r.RequestBody.String
	}
	if r.ResponseStatus.Valid {
		v := int(r.ResponseStatus.Int64)
		out.ResponseStatus = &v
	}
	if r.ResponseBody.Valid {
		out.ResponseBody = &r.ResponseBody.String
	}
	if r.FailureReason.Valid {
		out.FailureReason = &r.FailureReason.String
	}
	return out
}

type dbLoadTestResult struct {
	ID           string         `db:"id"`
	TestRunID    string         `db:"test_run_id"`
	RequestIndex int64          `db:"request_index"`
	HTTPMethod   string         `db:"http_method"`
	URL          string         `db:"url"`
	RequestBody  sql.NullString `db:"request_body"`
	StatusCode   sql.NullInt64  `db:"status_code"`
	DurationMS   int64          `db:"duration_ms"`
	Success      bool           `db:"success"`
	ErrorMessage sql.NullString `db:"error_message"`
	Timestamp    time.Time      `db:"timestamp"`
}

func loadTestResultRow(r model.LoadTestResult) dbLoadTestResult {
	row := dbLoadTestResult{
		ID:           r.ID,
		TestRunID:    r.TestRunID,
		RequestIndex: r.RequestIndex,
		HTTPMethod:   r.HTTPMethod,
		URL:          r.URL,
		DurationMS:   r.DurationMS,
		Success:      r.Success,
		Timestamp:    r.Timestamp,
	}
	if r.RequestBody != nil {
		row.RequestBody = sql.NullString{String: *r.RequestBody, Valid: true}
	}
	if r.StatusCode != nil {
		row.StatusCode = sql.NullInt64{Int64: int64(*r.StatusCode), Valid: true}
	}
	if r.ErrorMessage != nil {
		row.ErrorMessage = sql.NullString{String: *r.ErrorMessage, Valid: true}
	}
	return row
}

func (r dbLoadTestResult) toModel() model.LoadTestResult {
	out := model.LoadTestResult{
		ID:           r.ID,
		TestRunID:    r.TestRunID,
		RequestIndex: r.RequestIndex,
		HTTPMethod:   r.HTTPMethod,
		URL:          r.URL,
		DurationMS:   r.DurationMS,
		Success:      r.Success,
		Timestamp:    r.Timestamp,
	}
	if r.RequestBody.Valid {
		out.RequestBody = &r.RequestBody.String
	}
	if r.StatusCode.Valid {
		v := int(r.StatusCode.Int64)
		out.StatusCode = &v
	}
	if r.ErrorMessage.Valid {
		out.ErrorMessage = &r.ErrorMessage.String
	}
	return out
}
