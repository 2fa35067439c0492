// models/master_data.go
package models

// Department is reference data served by the remote store.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FallbackSeverities is substituted when the remote severity list cannot be
// loaded, so an auditor can still raise a finding.
var FallbackSeverities = []Severity{SeverityMinor, SeverityMajor, SeverityCritical}
