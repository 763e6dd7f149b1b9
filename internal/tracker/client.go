// Package tracker files defect tickets in a Jira-compatible issue tracker.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const issuePath = "/rest/api/3/issue"

// APIError is returned for any create-issue response other than 201.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracker returned status %d: %s", e.StatusCode, e.Body)
}

// Doc is an Atlassian Document Format node.
type Doc struct {
	Type    string `json:"type"`
	Version int    `json:"version,omitempty"`
	Text    string `json:"text,omitempty"`
	Content []Doc  `json:"content,omitempty"`
}

// Paragraph wraps text in a single-paragraph document.
func Paragraph(text string) Doc {
	return Doc{
		Type:    "doc",
		Version: 1,
		Content: []Doc{{
			Type:    "paragraph",
			Content: []Doc{{Type: "text", Text: text}},
		}},
	}
}

type named struct {
	Name string `json:"name"`
}

type projectRef struct {
	Key string `json:"key"`
}

type IssueFields struct {
	Project     projectRef `json:"project"`
	Summary     string     `json:"summary"`
	Description Doc        `json:"description"`
	IssueType   named      `json:"issuetype"`
	Priority    named      `json:"priority"`
}

type IssueRequest struct {
	Fields IssueFields `json:"fields"`
}

// NewIssueRequest builds a create-issue payload.
func NewIssueRequest(projectKey, summary string, description Doc, issueType, priority string) IssueRequest {
	return IssueRequest{Fields: IssueFields{
		Project:     projectRef{Key: projectKey},
		Summary:     summary,
		Description: description,
		IssueType:   named{Name: issueType},
		Priority:    named{Name: priority},
	}}
}

type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

type Client struct {
	baseURL string
	email   string
	token   string
	http    *http.Client
}

func NewClient(baseURL, email, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		email:   email,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateIssue posts one issue. Only 201 counts as success.
func (c *Client) CreateIssue(ctx context.Context, issue IssueRequest) (CreatedIssue, error) {
	payload, err := json.Marshal(issue)
	if err != nil {
		return CreatedIssue{}, fmt.Errorf("marshal issue: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+issuePath, bytes.NewReader(payload))
	if err != nil {
		return CreatedIssue{}, err
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return CreatedIssue{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CreatedIssue{}, fmt.Errorf("read tracker response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return CreatedIssue{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var created CreatedIssue
	if err := json.Unmarshal(body, &created); err != nil {
		return CreatedIssue{}, fmt.Errorf("decode created issue: %w", err)
	}
	return created, nil
}
