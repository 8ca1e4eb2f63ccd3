package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DashboardData is the payload of the dashboard endpoints. Chart maps always
// carry every enumerated bucket, zero-filled.
type DashboardData struct {
	Statistics DashboardStatistics `json:"statistics"`
	Charts     DashboardCharts     `json:"charts"`
	RecentBugs []RecentBug         `json:"recentBugs"`
}

type DashboardStatistics struct {
	TotalBugs  int64 `json:"totalBugs"`
	OpenBugs   int64 `json:"openBugs"`
	ClosedBugs int64 `json:"closedBugs"`
}

type DashboardCharts struct {
	BugDistribution   map[string]int64 `json:"bugDistribution"`
	BugPriorityLevels map[string]int64 `json:"bugPriorityLevels"`
}

// RecentBug is the trimmed projection shown in the recent-activity list.
type RecentBug struct {
	ID        primitive.ObjectID `json:"id"`
	Title     string             `json:"title"`
	Status    string             `json:"status"`
	Priority  Priority           `json:"priority"`
	DueDate   *time.Time         `json:"dueDate,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}
