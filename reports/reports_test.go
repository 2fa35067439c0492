package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danhnam1/Audit-System-sub002/models"
)

func TestRollupZeroFills(t *testing.T) {
	type item struct{ id, cat string }
	data := []item{{"1", "A"}, {"2", "A"}}

	got := Rollup(data,
		func(i item) string { return i.id },
		func(i item) string { return i.cat },
		[]string{"A", "B", "C"})

	assert.Equal(t, []CategoryCount{{"A", 2}, {"B", 0}, {"C", 0}}, got)
}

func TestRollupAppendsUnknownCategories(t *testing.T) {
	type item struct{ id, cat string }
	data := []item{{"1", "A"}, {"2", "X"}, {"3", "X"}, {"4", "Y"}}

	got := Rollup(data,
		func(i item) string { return i.id },
		func(i item) string { return i.cat },
		[]string{"A", "B"})

	assert.Equal(t, []CategoryCount{{"A", 1}, {"B", 0}, {"X", 2}, {"Y", 1}}, got)
}

func TestRollupDeduplicatesByIdentity(t *testing.T) {
	type item struct{ id, cat string }
	data := []item{{"1", "A"}, {"1", "A"}, {"1", "A"}}

	got := Rollup(data,
		func(i item) string { return i.id },
		func(i item) string { return i.cat },
		[]string{"A"})

	assert.Equal(t, []CategoryCount{{"A", 1}}, got)
}

func TestRollupEmptyData(t *testing.T) {
	got := Rollup(nil,
		func(s string) string { return s },
		func(s string) string { return s },
		[]string{"A", "B"})
	assert.Equal(t, []CategoryCount{{"A", 0}, {"B", 0}}, got)
}

func TestMergeOverlappingCollections(t *testing.T) {
	all := []models.Action{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	open := []models.Action{{ID: "a"}, {ID: "b"}}
	closed := []models.Action{{ID: "c"}}

	got := Merge(func(a models.Action) string { return a.ID }, all, open, closed)
	require.Len(t, got, 3)
}

func TestFindingsBySeverity(t *testing.T) {
	findings := []models.Finding{
		{ID: "f1", Severity: models.SeverityCritical},
		{ID: "f2", Severity: models.SeverityCritical},
		{ID: "f3", Severity: models.SeverityMinor},
	}

	got := FindingsBySeverity(findings)
	assert.Equal(t, []CategoryCount{
		{"Minor", 1}, {"Medium", 0}, {"Major", 0}, {"Critical", 2},
	}, got)
}

func TestFindingsByDepartmentResolvesNames(t *testing.T) {
	departments := []models.Department{
		{ID: "d1", Name: "Production"},
		{ID: "d2", Name: "Quality"},
	}
	findings := []models.Finding{
		{ID: "f1", DepartmentID: "d1"},
		{ID: "f2", DepartmentID: "d-unknown"},
	}

	got := FindingsByDepartment(findings, departments)
	assert.Equal(t, []CategoryCount{
		{"Production", 1}, {"Quality", 0}, {"d-unknown", 1},
	}, got)
}

func TestFindingsByWeekdayCoversAllSeven(t *testing.T) {
	monday := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	findings := []models.Finding{
		{ID: "f1", CreatedAt: monday},
		{ID: "f2", CreatedAt: monday.AddDate(0, 0, 2)}, // Wednesday
	}

	got := FindingsByWeekday(findings)
	require.Len(t, got, 7)
	assert.Equal(t, CategoryCount{"Monday", 1}, got[0])
	assert.Equal(t, CategoryCount{"Wednesday", 1}, got[2])
	assert.Equal(t, CategoryCount{"Sunday", 0}, got[6])
}

func TestActionsByDerivedStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	actions := []models.Action{
		{ID: "a1", Status: models.ActionOpen},
		{ID: "a2", Status: models.ActionInProgress, Progress: 50},
		{ID: "a3", Status: models.ActionClosed},
		{ID: "a4", Status: models.ActionOpen, DueDate: &yesterday},
		{ID: "a4", Status: models.ActionOpen, DueDate: &yesterday}, // duplicate record
	}

	got := ActionsByDerivedStatus(actions, now)
	assert.Equal(t, []CategoryCount{
		{"Pending", 1}, {"InProgress", 1}, {"Completed", 1}, {"Overdue", 1},
	}, got)
}
