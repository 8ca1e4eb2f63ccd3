package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bug-tracker/backend/bugs-service/models"
	"bug-tracker/backend/bugs-service/workflow"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recentBugLimit = 10

// BugService persists bugs around the workflow engine. Every mutation is a
// load, engine decision, conditional write: the write filter carries the
// version the bug was loaded with, so a concurrent writer surfaces as a
// Conflict instead of a silent lost update.
type BugService struct {
	BugsCollection *mongo.Collection
	Engine         *workflow.Engine
	Labels         *workflow.LabelTable
	Users          *UserClient
	Notifier       *Notifier
}

func NewBugService(bugsCollection *mongo.Collection, engine *workflow.Engine, labels *workflow.LabelTable, users *UserClient, notifier *Notifier) *BugService {
	return &BugService{
		BugsCollection: bugsCollection,
		Engine:         engine,
		Labels:         labels,
		Users:          users,
		Notifier:       notifier,
	}
}

// CreateBug validates input through the engine, verifies assignee references
// against the users service, and inserts the new bug.
func (s *BugService) CreateBug(ctx context.Context, p models.Principal, in workflow.CreateInput) (*models.Bug, error) {
	bug, err := s.Engine.NewBug(p, in)
	if err != nil {
		return nil, err
	}

	if s.Users != nil && len(bug.AssignedTo) > 0 {
		if err := s.Users.VerifyUsers(ctx, bug.AssignedTo); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	bug.CreatedAt = now
	bug.UpdatedAt = now

	result, err := s.BugsCollection.InsertOne(ctx, bug)
	if err != nil {
		return nil, fmt.Errorf("failed to create bug: %w", err)
	}
	bug.ID = result.InsertedID.(primitive.ObjectID)

	if s.Notifier != nil {
		s.Notifier.NotifyAssignment(bug, p)
	}

	return bug, nil
}

// GetBugs lists the bugs visible to the principal with a complete status
// summary: every bucket present, zero when empty.
func (s *BugService) GetBugs(ctx context.Context, p models.Principal) ([]models.Bug, workflow.StatusSummary, error) {
	filter := s.scopeFilter(p)

	cursor, err := s.BugsCollection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, workflow.StatusSummary{}, fmt.Errorf("failed to retrieve bugs: %w", err)
	}
	defer cursor.Close(ctx)

	bugs := []models.Bug{}
	if err := cursor.All(ctx, &bugs); err != nil {
		return nil, workflow.StatusSummary{}, fmt.Errorf("failed to decode bugs: %w", err)
	}

	counts, _, err := s.countByStatus(ctx, filter)
	if err != nil {
		return nil, workflow.StatusSummary{}, err
	}

	return bugs, workflow.BuildStatusSummary(counts), nil
}

// GetBugByID loads one bug and authorizes the read.
func (s *BugService) GetBugByID(ctx context.Context, p models.Principal, bugID primitive.ObjectID) (*models.Bug, error) {
	bug, err := s.loadBug(ctx, bugID)
	if err != nil {
		return nil, err
	}
	if err := s.Engine.AuthorizeView(p, bug); err != nil {
		return nil, err
	}
	return bug, nil
}

// applyGeneralUpdate runs the decision sequence for the general field update
// against a loaded bug. Authorization precedes the version check so an
// unauthorized caller gets Forbidden and learns nothing about the version
// counter.
func (s *BugService) applyGeneralUpdate(p models.Principal, bug *models.Bug, in workflow.UpdateInput, expectedVersion int64) error {
	if err := workflow.Authorize(p, bug, workflow.ActionUpdate); err != nil {
		return err
	}
	if err := checkVersion(bug, expectedVersion); err != nil {
		return err
	}
	return s.Engine.ApplyUpdate(p, bug, in)
}

// UpdateBug is the admin/reporter general field update.
func (s *BugService) UpdateBug(ctx context.Context, p models.Principal, bugID primitive.ObjectID, in workflow.UpdateInput, expectedVersion int64) (*models.Bug, error) {
	bug, err := s.loadBug(ctx, bugID)
	if err != nil {
		return nil, err
	}
	if err := s.applyGeneralUpdate(p, bug, in, expectedVersion); err != nil {
		return nil, err
	}
	if s.Users != nil && in.AssignedTo != nil && len(bug.AssignedTo) > 0 {
		if err := s.Users.VerifyUsers(ctx, bug.AssignedTo); err != nil {
			return nil, err
		}
	}
	if err := s.saveBug(ctx, bug); err != nil {
		return nil, err
	}
	return bug, nil
}

// applyStatusUpdate authorizes, checks staleness and runs the transition
// against a loaded bug.
func (s *BugService) applyStatusUpdate(p models.Principal, bug *models.Bug, requested models.BugStatus, expectedVersion int64) error {
	if err := workflow.Authorize(p, bug, workflow.ActionTransition); err != nil {
		return err
	}
	if err := checkVersion(bug, expectedVersion); err != nil {
		return err
	}
	return s.Engine.ApplyStatus(p, bug, requested)
}

// UpdateBugStatus runs the direct status transition.
func (s *BugService) UpdateBugStatus(ctx context.Context, p models.Principal, bugID primitive.ObjectID, requested models.BugStatus, expectedVersion int64) (*models.Bug, error) {
	bug, err := s.loadBug(ctx, bugID)
	if err != nil {
		return nil, err
	}

	previous := bug.Status
	if err := s.applyStatusUpdate(p, bug, requested, expectedVersion); err != nil {
		return nil, err
	}
	if err := s.saveBug(ctx, bug); err != nil {
		return nil, err
	}

	if s.Notifier != nil && bug.Status != previous {
		s.Notifier.NotifyStatusChange(bug, previous, p)
	}
	return bug, nil
}

// applyChecklistUpdate runs the decision sequence for a checklist replace
// against a loaded bug. Forbidden takes precedence: only an authorized caller
// gets feedback on a stale version or a malformed checklist.
func (s *BugService) applyChecklistUpdate(p models.Principal, bug *models.Bug, entries []workflow.ChecklistEntry, expectedVersion int64) error {
	if err := workflow.Authorize(p, bug, workflow.ActionEditChecklist); err != nil {
		return err
	}
	if err := checkVersion(bug, expectedVersion); err != nil {
		return err
	}
	items, err := workflow.NormalizeChecklist(entries, false)
	if err != nil {
		return err
	}
	return s.Engine.ApplyChecklist(p, bug, items)
}

// UpdateBugChecklist replaces the checklist and lets the engine derive the
// status from completion state.
func (s *BugService) UpdateBugChecklist(ctx context.Context, p models.Principal, bugID primitive.ObjectID, entries []workflow.ChecklistEntry, expectedVersion int64) (*models.Bug, error) {
	bug, err := s.loadBug(ctx, bugID)
	if err != nil {
		return nil, err
	}

	previous := bug.Status
	if err := s.applyChecklistUpdate(p, bug, entries, expectedVersion); err != nil {
		return nil, err
	}
	if err := s.saveBug(ctx, bug); err != nil {
		return nil, err
	}

	if s.Notifier != nil && bug.Status != previous {
		s.Notifier.NotifyStatusChange(bug, previous, p)
	}
	return bug, nil
}

// DeleteBug removes a bug permanently. No soft delete.
func (s *BugService) DeleteBug(ctx context.Context, p models.Principal, bugID primitive.ObjectID) error {
	bug, err := s.loadBug(ctx, bugID)
	if err != nil {
		return err
	}
	if err := s.Engine.AuthorizeDelete(p, bug); err != nil {
		return err
	}

	result, err := s.BugsCollection.DeleteOne(ctx, bson.M{"_id": bugID})
	if err != nil {
		return fmt.Errorf("failed to delete bug: %w", err)
	}
	if result.DeletedCount == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

// GetDashboardData builds the chart payload. adminScope selects the
// everything-visible admin dashboard, which non-admins may not request;
// otherwise the data is scoped by the principal's role.
func (s *BugService) GetDashboardData(ctx context.Context, p models.Principal, adminScope bool) (*models.DashboardData, error) {
	var filter bson.M
	if adminScope {
		if p.Role != models.RoleAdmin {
			return nil, workflow.ErrForbidden
		}
		filter = bson.M{}
	} else {
		filter = s.scopeFilter(p)
	}

	statusCounts, total, err := s.countByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}
	priorityCounts, err := s.countByPriority(ctx, filter)
	if err != nil {
		return nil, err
	}
	recent, err := s.recentBugs(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &models.DashboardData{
		Statistics: models.DashboardStatistics{
			TotalBugs:  total,
			OpenBugs:   statusCounts[models.StatusOpen],
			ClosedBugs: statusCounts[models.StatusClosed],
		},
		Charts: models.DashboardCharts{
			BugDistribution:   workflow.FillStatusBuckets(statusCounts, total, s.Labels),
			BugPriorityLevels: workflow.FillPriorityBuckets(priorityCounts),
		},
		RecentBugs: recent,
	}, nil
}

// scopeFilter derives the read filter from the principal's role: admins see
// everything, testers what they reported, developers what they are assigned.
func (s *BugService) scopeFilter(p models.Principal) bson.M {
	switch p.Role {
	case models.RoleAdmin:
		return bson.M{}
	case models.RoleTester:
		return bson.M{"createdBy": p.ID}
	default:
		return bson.M{"assignedTo": p.ID}
	}
}

func (s *BugService) loadBug(ctx context.Context, bugID primitive.ObjectID) (*models.Bug, error) {
	var bug models.Bug
	err := s.BugsCollection.FindOne(ctx, bson.M{"_id": bugID}).Decode(&bug)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bug: %w", err)
	}
	return &bug, nil
}

// saveBug writes the mutated bug conditionally on the version it was loaded
// with. A lost race leaves MatchedCount at zero and surfaces as Conflict.
func (s *BugService) saveBug(ctx context.Context, bug *models.Bug) error {
	loadedVersion := bug.Version
	bug.Version++
	bug.UpdatedAt = time.Now()

	result, err := s.BugsCollection.ReplaceOne(ctx, bson.M{"_id": bug.ID, "version": loadedVersion}, bug)
	if err != nil {
		bug.Version = loadedVersion
		return fmt.Errorf("failed to update bug: %w", err)
	}
	if result.MatchedCount == 0 {
		bug.Version = loadedVersion
		return workflow.Conflict("bug was modified concurrently, reload and retry")
	}
	return nil
}

// checkVersion rejects a stale client-side version token before any write.
// Clients that do not send a version (zero) skip the early check and still
// get the conditional-write protection.
func checkVersion(bug *models.Bug, expectedVersion int64) error {
	if expectedVersion > 0 && expectedVersion != bug.Version {
		return workflow.Conflict("bug version %d is stale, current version is %d", expectedVersion, bug.Version)
	}
	return nil
}

func (s *BugService) countByStatus(ctx context.Context, filter bson.M) (map[models.BugStatus]int64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.BugsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to aggregate bug statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.BugStatus `bson:"_id"`
		Count  int64            `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, fmt.Errorf("failed to decode status counts: %w", err)
	}

	counts := make(map[models.BugStatus]int64, len(rows))
	var total int64
	for _, row := range rows {
		counts[row.Status] = row.Count
		total += row.Count
	}
	return counts, total, nil
}

func (s *BugService) countByPriority(ctx context.Context, filter bson.M) (map[models.Priority]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": "$priority", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.BugsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bug priorities: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Priority models.Priority `bson:"_id"`
		Count    int64           `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode priority counts: %w", err)
	}

	counts := make(map[models.Priority]int64, len(rows))
	for _, row := range rows {
		counts[row.Priority] = row.Count
	}
	return counts, nil
}

func (s *BugService) recentBugs(ctx context.Context, filter bson.M) ([]models.RecentBug, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(recentBugLimit).
		SetProjection(bson.M{"title": 1, "status": 1, "priority": 1, "dueDate": 1, "createdAt": 1})

	cursor, err := s.BugsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve recent bugs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID        primitive.ObjectID `bson:"_id"`
		Title     string             `bson:"title"`
		Status    models.BugStatus   `bson:"status"`
		Priority  models.Priority    `bson:"priority"`
		DueDate   *time.Time         `bson:"dueDate"`
		CreatedAt time.Time          `bson:"createdAt"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode recent bugs: %w", err)
	}

	recent := make([]models.RecentBug, 0, len(docs))
	for _, doc := range docs {
		recent = append(recent, models.RecentBug{
			ID:        doc.ID,
			Title:     doc.Title,
			Status:    s.Labels.Format(doc.Status),
			Priority:  doc.Priority,
			DueDate:   doc.DueDate,
			CreatedAt: doc.CreatedAt,
		})
	}
	return recent, nil
}
