package model

import "strings"

// Status is the outcome of a test item as reported by Report Portal.
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
	StatusOther   Status = "OTHER"
)

// ParseStatus maps a Report Portal status string onto Status.
// Anything that is not passed, failed or skipped (INTERRUPTED, IN_PROGRESS, ...)
// becomes StatusOther.
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PASSED":
		return StatusPassed
	case "FAILED":
		return StatusFailed
	case "SKIPPED":
		return StatusSkipped
	default:
		return StatusOther
	}
}

// RunRecord is a single test execution fetched from Report Portal.
// It is immutable once fetched.
type RunRecord struct {
	// Launch the test item belongs to
	LaunchID string `json:"launch_id"`
	// Test item ID
	ItemID string `json:"test_item_id"`
	// Test name (item name in Report Portal)
	TestName string `json:"test_name"`
	// Outcome of the test item
	Status Status `json:"status"`
	// ERROR-level log messages joined with newlines
	Traceback string `json:"traceback"`
	// Last line of the first non-empty ERROR log message
	ErrorMessage string `json:"error_message"`
	// Root of the logs directory tree, empty when the launch has none
	LogsURLRoot string `json:"logs_url_root"`
	// Cluster name taken from the logs URL
	ClusterName string `json:"cluster_name"`
	// Launch attributes (platform, versions, run identifier, ...)
	Attributes map[string]string `json:"attributes"`
	// Value of the run identifier attribute, joins directories of one execution
	RunID string `json:"run_id"`
	// Raw launch description
	LaunchDescription string `json:"launch_description"`
}

// Failed reports whether the run needs triage.
func (r *RunRecord) Failed() bool {
	return r.Status == StatusFailed
}
