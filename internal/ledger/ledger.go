// Package ledger remembers which defects already have a ticket and keeps a
// log of audit runs.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
)

// Ledger is consulted by the ticket filer before each submission.
type Ledger interface {
	Lookup(ctx context.Context, d models.Defect) (issueKey string, ok bool, err error)
	Record(ctx context.Context, d models.Defect, issueKey string) error
	AppendRun(ctx context.Context, run RunSummary) error
}

// RunSummary is the outcome of one audit run.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Seeded    int       `json:"seeded"`
	Defects   int       `json:"defects"`
	Filed     []string  `json:"filed"`
	Failed    int       `json:"failed"`
	Duplicate int       `json:"duplicate"`
	Skipped   bool      `json:"skipped"`
	Error     string    `json:"error,omitempty"`
}

// Fingerprint identifies a defect by product and both prices, so a changed
// mismatch on the same product gets a new ticket.
func Fingerprint(d models.Defect) string {
	return fmt.Sprintf("%d:%s:%s", d.ID, d.Expected.String(), d.Actual.String())
}

// Nop never remembers anything.
type Nop struct{}

func (Nop) Lookup(context.Context, models.Defect) (string, bool, error) { return "", false, nil }
func (Nop) Record(context.Context, models.Defect, string) error         { return nil }
func (Nop) AppendRun(context.Context, RunSummary) error                 { return nil }

// Memory is an in-process Ledger without expiry.
type Memory struct {
	mu      sync.Mutex
	tickets map[string]string
	runs    []RunSummary
}

func NewMemory() *Memory {
	return &Memory{tickets: map[string]string{}}
}

func (m *Memory) Lookup(_ context.Context, d models.Defect) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.tickets[Fingerprint(d)]
	return key, ok, nil
}

func (m *Memory) Record(_ context.Context, d models.Defect, issueKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[Fingerprint(d)] = issueKey
	return nil
}

func (m *Memory) AppendRun(_ context.Context, run RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// Runs returns the recorded run summaries, oldest first.
func (m *Memory) Runs() []RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RunSummary(nil), m.runs...)
}
