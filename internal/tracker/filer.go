package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rogerio-castellano/inventory-audit/internal/ledger"
	"github.com/rogerio-castellano/inventory-audit/internal/models"
)

const (
	issueType = "Task"
	priority  = "High"
)

// IssueCreator submits one issue to the tracker.
type IssueCreator interface {
	CreateIssue(ctx context.Context, issue IssueRequest) (CreatedIssue, error)
}

// Report summarizes one File call.
type Report struct {
	Created   []string
	Failed    int
	Duplicate int
	// Skipped is set when filing was skipped because no token is configured.
	Skipped bool
}

type FilerOptions struct {
	ProjectKey string
	// HasToken reports whether tracker credentials are configured. Without
	// them File logs and returns without submitting anything.
	HasToken bool
	Ledger   ledger.Ledger
}

type Filer struct {
	creator IssueCreator
	project string
	enabled bool
	ledger  ledger.Ledger
	log     zerolog.Logger
}

func NewFiler(creator IssueCreator, opts FilerOptions, log zerolog.Logger) *Filer {
	l := opts.Ledger
	if l == nil {
		l = ledger.Nop{}
	}
	return &Filer{
		creator: creator,
		project: opts.ProjectKey,
		enabled: opts.HasToken,
		ledger:  l,
		log:     log,
	}
}

// Summary is the one-line ticket title for a defect.
func Summary(d models.Defect) string {
	return fmt.Sprintf("[Auto-Alert] Data Integrity Fail: Item %d", d.ID)
}

// Issue builds the create-issue payload for a defect.
func (f *Filer) Issue(d models.Defect) IssueRequest {
	text := d.Description + ". Please trigger inventory sync."
	return NewIssueRequest(f.project, Summary(d), Paragraph(text), issueType, priority)
}

// File submits one ticket per defect. A failed submission is logged and the
// loop moves on; nothing is retried.
func (f *Filer) File(ctx context.Context, defects []models.Defect) Report {
	f.log.Info().Msgf("auto-logging %d tickets", len(defects))

	var rep Report
	if len(defects) == 0 {
		f.log.Info().Msg("no defects found, system healthy")
		return rep
	}
	if !f.enabled {
		f.log.Warn().Msg("skipping ticket filing: no tracker token found")
		rep.Skipped = true
		return rep
	}

	for _, d := range defects {
		if err := ctx.Err(); err != nil {
			f.log.Error().Err(err).Msg("ticket filing interrupted")
			return rep
		}

		if key, ok, err := f.ledger.Lookup(ctx, d); err != nil {
			f.log.Warn().Err(err).Int("id", d.ID).Msg("ticket ledger lookup failed")
		} else if ok {
			f.log.Info().Int("id", d.ID).Str("key", key).Msg("defect already ticketed")
			rep.Duplicate++
			continue
		}

		created, err := f.creator.CreateIssue(ctx, f.Issue(d))
		if err != nil {
			rep.Failed++
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				f.log.Error().Int("id", d.ID).Int("code", apiErr.StatusCode).Str("response", apiErr.Body).Msg("failed to create ticket")
			} else {
				f.log.Error().Err(err).Int("id", d.ID).Msg("failed to create ticket")
			}
			continue
		}

		f.log.Info().Int("id", d.ID).Str("key", created.Key).Msg("ticket created")
		rep.Created = append(rep.Created, created.Key)
		if err := f.ledger.Record(ctx, d, created.Key); err != nil {
			f.log.Warn().Err(err).Str("key", created.Key).Msg("could not record ticket in ledger")
		}
	}
	return rep
}
