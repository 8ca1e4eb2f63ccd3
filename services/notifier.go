package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"bug-tracker/backend/bugs-service/logging"
	"bug-tracker/backend/bugs-service/models"

	"github.com/sony/gobreaker"
)

// Notifier emits bug events to the notifications service. Delivery is best
// effort: a failed or short-circuited call is logged and never fails the
// workflow operation that triggered it.
type Notifier struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewNotifier(baseURL string, client *http.Client, breaker *gobreaker.CircuitBreaker) *Notifier {
	return &Notifier{
		baseURL: baseURL,
		client:  client,
		breaker: breaker,
	}
}

type notificationPayload struct {
	UserIDs []string `json:"userIds"`
	Message string   `json:"message"`
}

// NotifyStatusChange tells the assignees and the reporter that a bug moved.
func (n *Notifier) NotifyStatusChange(bug *models.Bug, previous models.BugStatus, actor models.Principal) {
	recipients := make([]string, 0, len(bug.AssignedTo)+1)
	for _, id := range bug.AssignedTo {
		recipients = append(recipients, id.Hex())
	}
	recipients = append(recipients, bug.CreatedBy.Hex())

	message := fmt.Sprintf("Bug %q moved from %s to %s by %s", bug.Title, previous, bug.Status, actor.Username)
	n.send(notificationPayload{UserIDs: recipients, Message: message})
}

// NotifyAssignment tells developers they were assigned a freshly reported bug.
func (n *Notifier) NotifyAssignment(bug *models.Bug, actor models.Principal) {
	if len(bug.AssignedTo) == 0 {
		return
	}
	recipients := make([]string, 0, len(bug.AssignedTo))
	for _, id := range bug.AssignedTo {
		recipients = append(recipients, id.Hex())
	}

	message := fmt.Sprintf("Bug %q was reported by %s and assigned to you", bug.Title, actor.Username)
	n.send(notificationPayload{UserIDs: recipients, Message: message})
}

func (n *Notifier) send(payload notificationPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Logger.Errorf("Event ID: NOTIFICATION_MARSHAL_FAILED, Description: Failed to encode notification payload: %v", err)
		return
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		resp, err := n.client.Post(n.baseURL+"/api/notifications", "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("notifications service returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: NOTIFICATION_SEND_FAILED, Description: Failed to deliver notification: %v", err)
	}
}
