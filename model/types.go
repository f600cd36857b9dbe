// Package model holds the immutable records shared by every engine: test
// runs, probe and request results, their derived summaries, and the
// configuration entities the facade persists on the caller's behalf.
package model

import "time"

// RunKind distinguishes which engine produced a TestRun.
type RunKind string

const (
	RunValidation RunKind = "validation"
	RunLoadTest   RunKind = "loadtest"
)

// RunStatus is the TestRun state machine from spec.md §4.4.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// TestRun is the top-level record for one validation or load-test
// invocation. Status transitions exactly once. A completed or cancelled
// run gets CompletedAt and SummaryJSON together, at that transition; a
// failed run gets CompletedAt only.
type TestRun struct {
	ID             string
	ServerConfigID string
	RunType        RunKind
	Status         RunStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	SummaryJSON    *string
}

// ValidationResult is one conformance probe outcome. FailureReason
// beginning with the literal "Skipped" marks a dependency-skip, per
// spec.md §9, and is excluded from the compliance score rather than
// tracked through a separate status enum.
type ValidationResult struct {
	ID             string
	TestRunID      string
	TestName       string
	Category       string
	HTTPMethod     string
	URL            string
	RequestBody    *string
	ResponseStatus *int
	ResponseBody   *string
	DurationMS     int64
	Passed         bool
	FailureReason  *string
	ExecutedAt     time.Time
}

// Skipped reports whether this result represents a dependency-skip rather
// than a pass or a genuine failure.
func (r ValidationResult) Skipped() bool {
	return r.FailureReason != nil && len(*r.FailureReason) >= len("Skipped") && (*r.FailureReason)[:len("Skipped")] == "Skipped"
}

// CategorySummary totals one validation category's results.
type CategorySummary struct {
	Name   string
	Total  int
	Passed int
	Failed int
}

// ValidationSummary is the compliance report derived from a run's results
// at completion, per spec.md §4.2.
type ValidationSummary struct {
	Total           int
	Passed          int
	Failed          int
	Skipped         int
	ComplianceScore float64
	DurationMS      int64
	Categories      []CategorySummary
}

// LoadTestResult is one HTTP attempt's outcome. RequestIndex is dense and
// unique within a run (spec.md §3, invariant 2).
type LoadTestResult struct {
	ID            string
	TestRunID     string
	RequestIndex  int64
	HTTPMethod    string
	URL           string
	RequestBody   *string
	StatusCode    *int
	DurationMS    int64
	Success       bool
	ErrorMessage  *string
	Timestamp     time.Time
}

// LoadTestSummary is the latency/throughput report derived from a run's
// results at completion, per spec.md §4.3.
type LoadTestSummary struct {
	TotalRequests         int
	Successful            int
	Failed                int
	ErrorRate             float64
	TotalDurationMS       int64
	MinLatencyMS          int64
	MaxLatencyMS          int64
	AvgLatencyMS          float64
	P50LatencyMS          int64
	P75LatencyMS          int64
	P90LatencyMS          int64
	P95LatencyMS          int64
	P99LatencyMS          int64
	RequestsPerSecond     float64
	StatusCodeDistribution map[int]int
}

// FieldFormat enumerates the format predicates the Validation Engine
// applies when checking a FieldMappingRule, per spec.md §4.2.
type FieldFormat string

const (
	FormatNone     FieldFormat = "none"
	FormatEmail    FieldFormat = "email"
	FormatURI      FieldFormat = "uri"
	FormatPhone    FieldFormat = "phone"
	FormatBoolean  FieldFormat = "boolean"
	FormatInteger  FieldFormat = "integer"
	FormatDateTime FieldFormat = "datetime"
	FormatRegex    FieldFormat = "regex"
)

// FieldMappingRule is a user-authored expectation about one SCIM
// attribute path, consumed read-only by the Validation Engine's
// field_mapping category.
type FieldMappingRule struct {
	ID             string
	ServerConfigID string
	SCIMAttribute  string
	DisplayName    string
	Required       bool
	Format         FieldFormat
	RegexPattern   *string
	Description    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AppSetting is a small persisted key/value preference, read and written
// through Facade.GetSetting and Facade.SaveSetting.
type AppSetting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// SampleData is a canned SCIM resource body, per spec.md §6, returned by
// Facade.GetSampleData (which seeds the defaults on first request).
type SampleData struct {
	ID             string
	ServerConfigID string
	ResourceType   string // "user" or "group"
	Name           string
	DataJSON       string
	IsDefault      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TestConnectionResult is the outcome of a single GET /ServiceProviderConfig
// probe used by the facade's TestConnection command.
type TestConnectionResult struct {
	Success      bool
	StatusCode   *int
	ResponseBody *string
	Error        *string
	DurationMS   int64
}

// ExplorerRequest is the input to the Facade's direct pass-through
// request, per spec.md §6.
type ExplorerRequest struct {
	ServerConfigID string
	Method         string
	Path           string
	Body           *string
	QueryParams    string
}

// ExplorerResponse is the pass-through's raw result, including the
// fields request_full surfaces beyond request: status text, headers, and
// the fully resolved URL.
type ExplorerResponse struct {
	Status      int
	StatusText  string
	Headers     map[string]string
	Body        string
	DurationMS  int64
	RequestURL  string
}

// ValidationRunConfig is the input to RunValidation.
type ValidationRunConfig struct {
	ServerConfigID     string
	Categories         []string
	FieldMappingRules  []FieldMappingRule
	UserJoiningProp    string // default "userName"
	GroupJoiningProp   string // default "displayName"
}

// LoadTestConfig is the input to StartLoadTest. Scenario is the
// single-scenario form; Scenarios (if non-empty) requests a
// multi-scenario run, per spec.md §4.3.
type LoadTestConfig struct {
	ServerConfigID string
	Scenario       string
	Scenarios      []string
	TotalRequests  int
	Concurrency    int
	RampUpSeconds  int
}
