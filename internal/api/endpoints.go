package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nhle/microwins/internal/model"
)

// TokenGrant is the server's response to any credential exchange.
type TokenGrant struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        model.User `json:"user"`
}

// StepStatus is the server's response to a step completion update. When
// TaskCompleted is true, StreakCount and TotalCompleted carry the
// server-confirmed counters for the signed-in user.
type StepStatus struct {
	ID             int64 `json:"id"`
	IsCompleted    bool  `json:"is_completed"`
	TaskCompleted  bool  `json:"task_completed"`
	StreakCount    int   `json:"streak_count"`
	TotalCompleted int   `json:"total_completed"`
}

// Login exchanges email/password credentials for a token grant.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenGrant, error) {
	var grant TokenGrant
	err := c.Do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// Signup registers a new account and returns a token grant for it.
func (c *Client) Signup(ctx context.Context, email, password, fullName string) (*TokenGrant, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	if fullName != "" {
		body["full_name"] = fullName
	}

	var grant TokenGrant
	if err := c.Do(ctx, http.MethodPost, "/auth/signup", body, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// VerifyGoogleToken exchanges a Google access token for a token grant.
func (c *Client) VerifyGoogleToken(ctx context.Context, accessToken string) (*TokenGrant, error) {
	var grant TokenGrant
	err := c.Do(ctx, http.MethodPost, "/auth/google/verify-token", map[string]string{
		"access_token": accessToken,
	}, &grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// Me fetches the profile of the currently authenticated user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile patches profile fields and returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, userID int64, patch model.ProfilePatch) (*model.User, error) {
	var user model.User
	path := fmt.Sprintf("/users/profile/%d", userID)
	if err := c.Do(ctx, http.MethodPatch, path, patch, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTasks fetches the sidebar task list for a user.
func (c *Client) ListTasks(ctx context.Context, userID int64) ([]model.SidebarEntry, error) {
	var entries []model.SidebarEntry
	path := fmt.Sprintf("/tasks/user/%d", userID)
	if err := c.Do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// TaskDetail fetches a quest with its full step list.
func (c *Client) TaskDetail(ctx context.Context, taskID int64) (*model.Quest, error) {
	var quest model.Quest
	path := fmt.Sprintf("/tasks/%d", taskID)
	if err := c.Do(ctx, http.MethodGet, path, nil, &quest); err != nil {
		return nil, err
	}
	return &quest, nil
}

// DeleteTask removes a quest server-side.
func (c *Client) DeleteTask(ctx context.Context, taskID int64) error {
	path := fmt.Sprintf("/tasks/%d", taskID)
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// DecomposeStream asks the server to break the instruction into
// micro-wins, returning the raw event stream.
func (c *Client) DecomposeStream(ctx context.Context, userID int64, instruction string) (io.ReadCloser, error) {
	path := fmt.Sprintf("/tasks/decompose/stream?user_id=%d", userID)
	return c.OpenStream(ctx, path, map[string]string{
		"instruction": instruction,
	})
}

// UpdateStepStatus persists a step's completion flag.
func (c *Client) UpdateStepStatus(ctx context.Context, stepID int64, completed bool) (*StepStatus, error) {
	var status StepStatus
	path := fmt.Sprintf("/tasks/microwins/%d?is_completed=%t", stepID, completed)
	if err := c.Do(ctx, http.MethodPatch, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
