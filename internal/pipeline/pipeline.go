// Package pipeline runs the audit stages in order: seed, scan, file.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rogerio-castellano/inventory-audit/internal/catalog"
	"github.com/rogerio-castellano/inventory-audit/internal/config"
	"github.com/rogerio-castellano/inventory-audit/internal/ledger"
	"github.com/rogerio-castellano/inventory-audit/internal/logging"
	"github.com/rogerio-castellano/inventory-audit/internal/models"
	"github.com/rogerio-castellano/inventory-audit/internal/repo"
	"github.com/rogerio-castellano/inventory-audit/internal/scan"
	"github.com/rogerio-castellano/inventory-audit/internal/seed"
	"github.com/rogerio-castellano/inventory-audit/internal/tracker"
)

type Seeder interface {
	Load(ctx context.Context) (seed.Result, error)
}

type Scanner interface {
	Scan(ctx context.Context) ([]models.Defect, error)
}

type Filer interface {
	File(ctx context.Context, defects []models.Defect) tracker.Report
}

type Stages struct {
	Seeder  Seeder
	Scanner Scanner
	Filer   Filer
}

// Summary is the outcome of one run.
type Summary struct {
	RunID   string
	Seed    seed.Result
	Defects []models.Defect
	Tickets tracker.Report
	ScanErr error
}

type Pipeline struct {
	runID  string
	stages Stages
	ledger ledger.Ledger
	log    zerolog.Logger
}

// New assembles a pipeline from ready-made stages. lg may be nil.
func New(runID string, stages Stages, lg ledger.Ledger, log zerolog.Logger) *Pipeline {
	if lg == nil {
		lg = ledger.Nop{}
	}
	return &Pipeline{runID: runID, stages: stages, ledger: lg, log: log}
}

// FromConfig wires the catalog client, the store and the tracker into the
// three stages. Each pipeline gets a fresh run ID that tags every log line.
func FromConfig(cfg config.Config, store repo.Store, lg ledger.Ledger, log zerolog.Logger) *Pipeline {
	if lg == nil {
		lg = ledger.Nop{}
	}
	runID := uuid.NewString()
	log = log.With().Str("run_id", runID).Logger()

	return New(runID, Stages{
		Seeder:  NewSeeder(cfg, store, log),
		Scanner: NewScanner(cfg, store, log),
		Filer:   NewFiler(cfg, lg, log),
	}, lg, log)
}

func NewCatalogClient(cfg config.Config) *catalog.Client {
	return catalog.NewClient(catalog.Options{
		BaseURL:   cfg.Catalog.URL,
		UserAgent: cfg.Catalog.UserAgent,
		Headers:   cfg.Catalog.Headers,
		Timeout:   cfg.HTTPTimeout,
		RPS:       cfg.Catalog.RPS,
	})
}

// CorruptionPolicy returns the sentinel policy, or NoCorruption when
// injection is turned off.
func CorruptionPolicy(cfg config.Config) seed.CorruptionPolicy {
	if !cfg.Seed.Corrupt {
		return seed.NoCorruption
	}
	return seed.SentinelPolicy(cfg.Seed.SentinelID, cfg.Seed.InjectedPrice)
}

func NewSeeder(cfg config.Config, store repo.Store, log zerolog.Logger) *seed.Loader {
	return seed.NewLoader(NewCatalogClient(cfg), store, CorruptionPolicy(cfg), logging.Stage(log, "seed"))
}

func NewScanner(cfg config.Config, store repo.Store, log zerolog.Logger) *scan.Scanner {
	opts := scan.Options{Limit: cfg.Scan.Limit, Tolerance: cfg.Scan.Tolerance}
	return scan.NewScanner(store, NewCatalogClient(cfg), opts, logging.Stage(log, "scan"))
}

func NewFiler(cfg config.Config, lg ledger.Ledger, log zerolog.Logger) *tracker.Filer {
	client := tracker.NewClient(cfg.Tracker.URL, cfg.Tracker.Email, cfg.Tracker.Token, cfg.HTTPTimeout)
	return tracker.NewFiler(client, tracker.FilerOptions{
		ProjectKey: cfg.Tracker.ProjectKey,
		HasToken:   cfg.Tracker.Token != "",
		Ledger:     lg,
	}, logging.Stage(log, "file"))
}

func (p *Pipeline) RunID() string { return p.runID }

// Run executes seed, scan and file in order. The only error it returns is a
// seed failure, which stops the run before anything is scanned or filed.
// Scan errors are logged and kept on the summary, and no tickets are filed
// for an incomplete scan.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: p.runID}
	p.log.Info().Msg("starting automated defect lifecycle system")

	res, err := p.stages.Seeder.Load(ctx)
	sum.Seed = res
	if err != nil {
		p.log.Error().Err(err).Msg("seed failed, aborting run")
		p.record(ctx, start, sum, err)
		return sum, err
	}

	defects, err := p.stages.Scanner.Scan(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("integrity scan failed")
		sum.ScanErr = err
	}
	sum.Defects = defects

	if sum.ScanErr != nil {
		p.log.Warn().Int("defects", len(defects)).Msg("ticket filing skipped: scan did not complete")
	} else {
		sum.Tickets = p.stages.Filer.File(ctx, defects)
	}

	p.record(ctx, start, sum, nil)
	p.log.Info().
		Int("defects", len(sum.Defects)).
		Int("tickets", len(sum.Tickets.Created)).
		Int("ticket_failures", sum.Tickets.Failed).
		Msg("process complete")
	return sum, nil
}

func (p *Pipeline) record(ctx context.Context, start time.Time, sum Summary, runErr error) {
	run := ledger.RunSummary{
		RunID:     p.runID,
		StartedAt: start.UTC(),
		Duration:  time.Since(start).Round(time.Millisecond).String(),
		Seeded:    sum.Seed.Stored,
		Defects:   len(sum.Defects),
		Filed:     sum.Tickets.Created,
		Failed:    sum.Tickets.Failed,
		Duplicate: sum.Tickets.Duplicate,
		Skipped:   sum.Tickets.Skipped,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	} else if sum.ScanErr != nil {
		run.Error = sum.ScanErr.Error()
	}
	if err := p.ledger.AppendRun(ctx, run); err != nil {
		p.log.Warn().Err(err).Msg("could not append run summary")
	}
}
