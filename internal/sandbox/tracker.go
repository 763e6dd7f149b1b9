package sandbox

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Issue is what the fake tracker recorded for one accepted or rejected
// create-issue call.
type Issue struct {
	Key         string
	ProjectKey  string
	Summary     string
	IssueType   string
	Priority    string
	Description string
}

// Tracker is a minimal stand-in for the issue tracker REST API.
type Tracker struct {
	mu       sync.Mutex
	email    string
	token    string
	next     int
	issues   []Issue
	failures map[string]int
}

func NewTracker(email, token string) *Tracker {
	return &Tracker{email: email, token: token, failures: map[string]int{}}
}

// FailSummariesContaining makes creation fail with status whenever the
// summary contains substr.
func (t *Tracker) FailSummariesContaining(substr string, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[substr] = status
}

// Issues returns every create-issue request received so far, in order.
func (t *Tracker) Issues() []Issue {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Issue(nil), t.issues...)
}

func (t *Tracker) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/rest/api/3/issue", t.createIssue)
	return r
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

type createIssueRequest struct {
	Fields struct {
		Project struct {
			Key string `json:"key"`
		} `json:"project"`
		Summary     string  `json:"summary"`
		Description adfNode `json:"description"`
		IssueType   struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
	} `json:"fields"`
}

func (n adfNode) text() string {
	var b strings.Builder
	b.WriteString(n.Text)
	for _, c := range n.Content {
		b.WriteString(c.text())
	}
	return b.String()
}

func (t *Tracker) createIssue(w http.ResponseWriter, r *http.Request) {
	email, token, ok := r.BasicAuth()
	if !ok || email != t.email || token != t.token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"errorMessages": []string{"Client must be authenticated to access this resource."}})
		return
	}

	var req createIssueRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errorMessages": []string{err.Error()}})
		return
	}

	issue := Issue{
		ProjectKey:  req.Fields.Project.Key,
		Summary:     req.Fields.Summary,
		IssueType:   req.Fields.IssueType.Name,
		Priority:    req.Fields.Priority.Name,
		Description: req.Fields.Description.text(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for substr, status := range t.failures {
		if strings.Contains(issue.Summary, substr) {
			t.issues = append(t.issues, issue)
			writeJSON(w, status, map[string]any{"errors": map[string]string{"summary": "rejected by sandbox"}})
			return
		}
	}
	if issue.ProjectKey == "" {
		t.issues = append(t.issues, issue)
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string]string{"project": "valid project is required"}})
		return
	}

	t.next++
	issue.Key = fmt.Sprintf("%s-%d", issue.ProjectKey, t.next)
	t.issues = append(t.issues, issue)

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":   fmt.Sprintf("%d", 10000+t.next),
		"key":  issue.Key,
		"self": fmt.Sprintf("http://%s/rest/api/3/issue/%d", r.Host, 10000+t.next),
	})
}
