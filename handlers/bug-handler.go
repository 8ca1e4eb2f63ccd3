package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"bug-tracker/backend/bugs-service/logging"
	"bug-tracker/backend/bugs-service/middleware"
	"bug-tracker/backend/bugs-service/models"
	"bug-tracker/backend/bugs-service/services"
	"bug-tracker/backend/bugs-service/workflow"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BugHandler struct {
	service *services.BugService
	labels  *workflow.LabelTable
}

func NewBugHandler(service *services.BugService, labels *workflow.LabelTable) *BugHandler {
	return &BugHandler{service: service, labels: labels}
}

// presentedBug is a Bug with the status rendered in the deployment's labels.
type presentedBug struct {
	models.Bug
	Status string `json:"status"`
}

func (h *BugHandler) present(bug *models.Bug) presentedBug {
	return presentedBug{Bug: *bug, Status: h.labels.Format(bug.Status)}
}

func (h *BugHandler) presentAll(bugs []models.Bug) []presentedBug {
	out := make([]presentedBug, 0, len(bugs))
	for i := range bugs {
		out = append(out, h.present(&bugs[i]))
	}
	return out
}

// parseStatus resolves a wire status label; unknown labels fall through as-is
// so the engine reports them as a validation error.
func (h *BugHandler) parseStatus(label string) models.BugStatus {
	if status, ok := h.labels.Parse(label); ok {
		return status
	}
	return models.BugStatus(label)
}

func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return models.Principal{}, false
	}
	return p, true
}

func bugIDFromRequest(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return primitive.NilObjectID, workflow.Invalid("invalid bug ID format")
	}
	return id, nil
}

func parseUserIDs(hexIDs []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, hexID := range hexIDs {
		id, err := primitive.ObjectIDFromHex(hexID)
		if err != nil {
			return nil, workflow.Invalid("invalid user ID format: %s", hexID)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type createBugRequest struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Priority    models.Priority           `json:"priority"`
	Severity    models.Severity           `json:"severity"`
	Module      string                    `json:"module"`
	DueDate     *time.Time                `json:"dueDate"`
	AssignedTo  []string                  `json:"assignedTo"`
	Checklist   []workflow.ChecklistEntry `json:"checklist"`
	Attachments []string                  `json:"attachments"`
}

func (h *BugHandler) CreateBug(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req createBugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, workflow.Invalid("invalid request payload: %v", err))
		return
	}

	assignedTo, err := parseUserIDs(req.AssignedTo)
	if err != nil {
		writeError(w, err)
		return
	}

	bug, err := h.service.CreateBug(r.Context(), p, workflow.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Severity:    req.Severity,
		Module:      req.Module,
		DueDate:     req.DueDate,
		AssignedTo:  assignedTo,
		Checklist:   req.Checklist,
		Attachments: req.Attachments,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: BUG_CREATED, Description: Bug %s created by %s", bug.ID.Hex(), p.Username)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Bug created successfully",
		"bug":     h.present(bug),
	})
}

func (h *BugHandler) GetBugs(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	bugs, summary, err := h.service.GetBugs(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bugs":          h.presentAll(bugs),
		"statusSummary": summary,
	})
}

func (h *BugHandler) GetBugByID(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	bugID, err := bugIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bug, err := h.service.GetBugByID(r.Context(), p, bugID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.present(bug))
}

type updateBugRequest struct {
	Title       *string                   `json:"title"`
	Description *string                   `json:"description"`
	Priority    *models.Priority          `json:"priority"`
	Severity    *models.Severity          `json:"severity"`
	Status      *string                   `json:"status"`
	DueDate     *time.Time                `json:"dueDate"`
	Module      *string                   `json:"module"`
	AssignedTo  []string                  `json:"assignedTo"`
	Checklist   []workflow.ChecklistEntry `json:"checklist"`
	Attachments []string                  `json:"attachments"`
	Version     int64                     `json:"version"`
}

func (h *BugHandler) UpdateBug(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	bugID, err := bugIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateBugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, workflow.Invalid("invalid request payload: %v", err))
		return
	}

	in := workflow.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Severity:    req.Severity,
		DueDate:     req.DueDate,
		Module:      req.Module,
		Checklist:   req.Checklist,
		Attachments: req.Attachments,
	}
	if req.Status != nil {
		status := h.parseStatus(*req.Status)
		in.Status = &status
	}
	if req.AssignedTo != nil {
		assignedTo, err := parseUserIDs(req.AssignedTo)
		if err != nil {
			writeError(w, err)
			return
		}
		in.AssignedTo = assignedTo
	}

	bug, err := h.service.UpdateBug(r.Context(), p, bugID, in, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Bug updated successfully",
		"updatedBug": h.present(bug),
	})
}

func (h *BugHandler) DeleteBug(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	bugID, err := bugIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.DeleteBug(r.Context(), p, bugID); err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: BUG_DELETED, Description: Bug %s deleted by %s", bugID.Hex(), p.Username)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bug deleted successfully"})
}

type updateStatusRequest struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

func (h *BugHandler) UpdateBugStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	bugID, err := bugIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, workflow.Invalid("invalid request payload: %v", err))
		return
	}
	if req.Status == "" {
		writeError(w, workflow.Invalid("status is required"))
		return
	}

	bug, err := h.service.UpdateBugStatus(r.Context(), p, bugID, h.parseStatus(req.Status), req.Version)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Bug status updated",
		"bug":     h.present(bug),
	})
}

type updateChecklistRequest struct {
	Checklist []workflow.ChecklistEntry `json:"checklist"`
	Version   int64                     `json:"version"`
}

func (h *BugHandler) UpdateBugChecklist(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	bugID, err := bugIDFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateChecklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, workflow.Invalid("invalid request payload: %v", err))
		return
	}

	bug, err := h.service.UpdateBugChecklist(r.Context(), p, bugID, req.Checklist, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Bug checklist updated",
		"bug":     h.present(bug),
	})
}

func (h *BugHandler) GetAdminDashboardData(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, true)
}

func (h *BugHandler) GetUserDashboardData(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, false)
}

func (h *BugHandler) dashboard(w http.ResponseWriter, r *http.Request, adminScope bool) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	data, err := h.service.GetDashboardData(r.Context(), p, adminScope)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}
