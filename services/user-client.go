package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bug-tracker/backend/bugs-service/workflow"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserClient resolves assignee references against the users service. The
// bugs service does not own user records, so assignment integrity is checked
// over HTTP at write time.
type UserClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewUserClient(baseURL string, client *http.Client, breaker *gobreaker.CircuitBreaker) *UserClient {
	return &UserClient{
		baseURL: baseURL,
		client:  client,
		breaker: breaker,
	}
}

// VerifyUsers checks that every id refers to an existing developer account.
// An unknown id is a ValidationError; an unreachable users service is a
// server fault.
func (c *UserClient) VerifyUsers(ctx context.Context, ids []primitive.ObjectID) error {
	hexIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		hexIDs = append(hexIDs, id.Hex())
	}

	body, err := json.Marshal(map[string][]string{"userIds": hexIDs})
	if err != nil {
		return fmt.Errorf("failed to encode user verification request: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/users/verify", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			return true, nil
		case http.StatusNotFound:
			return false, nil
		default:
			return nil, fmt.Errorf("users service returned status %d", resp.StatusCode)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to verify assigned users: %w", err)
	}

	if ok := result.(bool); !ok {
		return workflow.Invalid("one or more assigned users do not exist")
	}
	return nil
}
