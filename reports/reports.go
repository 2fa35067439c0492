// reports/reports.go
//
// Rollups for the reporting views. Chart axes have to stay stable across
// empty or sparse result sets, so every rollup is zero-filled over a fixed
// category universe, and records are deduplicated by identity before
// counting — the same entity often appears in more than one of the
// overlapping collections the store returns together ("all", "open",
// "closed").
package reports

import (
	"time"

	"github.com/Danhnam1/Audit-System-sub002/models"
	"github.com/Danhnam1/Audit-System-sub002/workflow"
)

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Merge concatenates overlapping collections, keeping the first occurrence
// of each identity.
func Merge[T any](identity func(T) string, lists ...[]T) []T {
	var out []T
	seen := map[string]bool{}
	for _, list := range lists {
		for _, item := range list {
			id := identity(item)
			if id != "" {
				if seen[id] {
					continue
				}
				seen[id] = true
			}
			out = append(out, item)
		}
	}
	return out
}

// Rollup counts deduplicated items per category. Universe categories come
// first, in universe order, zero-filled; categories found only in the data
// are appended in first-seen order.
func Rollup[T any](items []T, identity func(T) string, category func(T) string, universe []string) []CategoryCount {
	counts := make(map[string]int, len(universe))
	order := make([]string, 0, len(universe))
	inUniverse := make(map[string]bool, len(universe))
	for _, c := range universe {
		counts[c] = 0
		order = append(order, c)
		inUniverse[c] = true
	}

	seen := map[string]bool{}
	for _, item := range items {
		id := identity(item)
		if id != "" {
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		c := category(item)
		if _, ok := counts[c]; !ok {
			order = append(order, c)
		}
		counts[c]++
	}

	out := make([]CategoryCount, 0, len(order))
	for _, c := range order {
		out = append(out, CategoryCount{Category: c, Count: counts[c]})
	}
	return out
}

// Weekdays is the fixed weekday universe, Monday first.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Severities is the full severity universe in escalation order.
var Severities = []string{
	string(models.SeverityMinor),
	string(models.SeverityMedium),
	string(models.SeverityMajor),
	string(models.SeverityCritical),
}

// DerivedStatuses is the universe of user-facing action statuses.
var DerivedStatuses = []string{
	string(workflow.DerivedPending),
	string(workflow.DerivedInProgress),
	string(workflow.DerivedCompleted),
	string(workflow.DerivedOverdue),
}

func findingID(f models.Finding) string { return f.ID }
func actionID(a models.Action) string   { return a.ID }

// FindingsBySeverity rolls findings up over the severity universe.
func FindingsBySeverity(findings []models.Finding) []CategoryCount {
	return Rollup(findings, findingID, func(f models.Finding) string {
		return string(f.Severity)
	}, Severities)
}

// FindingsByDepartment rolls findings up over the known department list.
// Departments present in the data but missing from master data still get a
// row, keyed by their raw id.
func FindingsByDepartment(findings []models.Finding, departments []models.Department) []CategoryCount {
	universe := make([]string, 0, len(departments))
	names := make(map[string]string, len(departments))
	for _, d := range departments {
		universe = append(universe, d.Name)
		names[d.ID] = d.Name
	}
	return Rollup(findings, findingID, func(f models.Finding) string {
		if name, ok := names[f.DepartmentID]; ok {
			return name
		}
		return f.DepartmentID
	}, universe)
}

// FindingsByWeekday rolls findings up over the seven weekdays of their
// creation date.
func FindingsByWeekday(findings []models.Finding) []CategoryCount {
	return Rollup(findings, findingID, func(f models.Finding) string {
		return f.CreatedAt.Weekday().String()
	}, Weekdays)
}

// ActionsByDerivedStatus rolls actions up over the derived status universe
// at the supplied clock.
func ActionsByDerivedStatus(actions []models.Action, now time.Time) []CategoryCount {
	return Rollup(actions, actionID, func(a models.Action) string {
		return string(workflow.DeriveActionStatus(a, now))
	}, DerivedStatuses)
}
