package model

import (
	"fmt"
	"strings"
)

// Label is the triage verdict for a failure
type Label string

const (
	LabelProductBug    Label = "product_bug"
	LabelAutomationBug Label = "automation_bug"
	LabelSystemIssue   Label = "system_issue"
	LabelNoDefect      Label = "no_defect"
	LabelToInvestigate Label = "to_investigate"
)

// Labels lists every known label in display order.
var Labels = []Label{
	LabelProductBug,
	LabelAutomationBug,
	LabelSystemIssue,
	LabelNoDefect,
	LabelToInvestigate,
}

// issueTypes maps labels to Report Portal issue type locators.
var issueTypes = map[Label]string{
	LabelProductBug:    "PB001",
	LabelAutomationBug: "AB001",
	LabelSystemIssue:   "SI001",
	LabelNoDefect:      "ND001",
	LabelToInvestigate: "TI001",
}

// ParseLabel validates a label string.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.TrimSpace(s))
	if _, ok := issueTypes[l]; !ok {
		names := make([]string, 0, len(Labels))
		for _, known := range Labels {
			names = append(names, string(known))
		}
		return "", fmt.Errorf("%w: unknown classification %q (choose from: %s)", ErrInvalidInput, s, strings.Join(names, ", "))
	}
	return l, nil
}

// IssueType returns the Report Portal issue type locator (e.g. PB001).
func (l Label) IssueType() string {
	return issueTypes[l]
}

// Classification is one record of the dedup cache. Records are only ever
// appended; a later record with the same fingerprint supersedes earlier ones.
type Classification struct {
	// SHA-256 of the normalized traceback, lowercase hex
	Fingerprint string `json:"fingerprint"`
	// Triage verdict
	Classification Label `json:"classification"`
	// Free text summary of the failure
	Summary string `json:"summary"`
	// Creation date (YYYY-MM-DD)
	Date string `json:"date"`
	// Run locator the verdict was made for
	Source string `json:"source"`
}
