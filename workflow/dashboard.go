package workflow

import (
	"bug-tracker/backend/bugs-service/models"
)

// StatusSummary is the bucket set attached to bug list responses. Every
// bucket is always present, zero-valued when empty, so chart renderers never
// hit a missing key.
type StatusSummary struct {
	All        int64 `json:"all"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"inProgress"`
	Closed     int64 `json:"closed"`
}

var dashboardStatuses = []models.BugStatus{
	models.StatusOpen,
	models.StatusInProgress,
	models.StatusClosed,
}

var dashboardPriorities = []models.Priority{
	models.PriorityLow,
	models.PriorityMedium,
	models.PriorityHigh,
}

// BuildStatusSummary completes raw per-status counts into a full summary.
func BuildStatusSummary(counts map[models.BugStatus]int64) StatusSummary {
	summary := StatusSummary{
		Open:       counts[models.StatusOpen],
		InProgress: counts[models.StatusInProgress],
		Closed:     counts[models.StatusClosed],
	}
	for _, n := range counts {
		summary.All += n
	}
	return summary
}

// FillStatusBuckets turns raw aggregation counts into the chart map: one key
// per enumerated status (labeled per deployment, spaces stripped) plus All.
// Buckets with no bugs are present with value 0.
func FillStatusBuckets(counts map[models.BugStatus]int64, total int64, labels *LabelTable) map[string]int64 {
	buckets := make(map[string]int64, len(dashboardStatuses)+1)
	for _, status := range dashboardStatuses {
		buckets[labels.ChartKey(status)] = counts[status]
	}
	buckets["All"] = total
	return buckets
}

// FillPriorityBuckets does the same for priorities.
func FillPriorityBuckets(counts map[models.Priority]int64) map[string]int64 {
	buckets := make(map[string]int64, len(dashboardPriorities))
	for _, priority := range dashboardPriorities {
		buckets[string(priority)] = counts[priority]
	}
	return buckets
}
