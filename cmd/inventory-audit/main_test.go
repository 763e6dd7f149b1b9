package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/rogerio-castellano/inventory-audit/internal/config"
	"github.com/rogerio-castellano/inventory-audit/internal/ledger"
	"github.com/rogerio-castellano/inventory-audit/internal/models"
	"github.com/rogerio-castellano/inventory-audit/internal/sandbox"
	"github.com/rogerio-castellano/inventory-audit/internal/seed"
)

type upstreams struct {
	catalogHits atomic.Int64
	tracker     *sandbox.Tracker
	dbPath      string
}

func setupEnv(t *testing.T) *upstreams {
	t.Helper()
	u := &upstreams{tracker: sandbox.NewTracker("qa@example.com", "token")}

	c := sandbox.NewCatalog(sandboxProducts...).Handler()
	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.catalogHits.Add(1)
		c.ServeHTTP(w, r)
	}))
	trackerSrv := httptest.NewServer(u.tracker.Handler())
	t.Cleanup(catalogSrv.Close)
	t.Cleanup(trackerSrv.Close)

	u.dbPath = filepath.Join(t.TempDir(), "inventory.db")
	t.Setenv("CATALOG_URL", catalogSrv.URL+"/products")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_DSN", u.dbPath)
	t.Setenv("SCAN_LIMIT", "5")
	t.Setenv("JIRA_URL", trackerSrv.URL)
	t.Setenv("JIRA_EMAIL", "qa@example.com")
	t.Setenv("PROJECT_KEY", "INV")
	t.Setenv("JIRA_TOKEN", "token")
	t.Setenv("TRACKER_MISSING_TOKEN", "skip")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_FORMAT", "json")
	return u
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	u := setupEnv(t)

	if _, err := execute(t, "run"); err != nil {
		t.Fatalf("run: %v", err)
	}
	issues := u.tracker.Issues()
	if len(issues) != 1 || issues[0].Summary != "[Auto-Alert] Data Integrity Fail: Item 1" {
		t.Errorf("expected one ticket for item 1, got %+v", issues)
	}
}

func TestRunCommand_AbortWithoutToken(t *testing.T) {
	u := setupEnv(t)
	t.Setenv("JIRA_TOKEN", "")
	t.Setenv("TRACKER_MISSING_TOKEN", "abort")

	_, err := execute(t, "run")
	if !errors.Is(err, config.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if n := u.catalogHits.Load(); n != 0 {
		t.Errorf("no work may start under the abort policy, catalog saw %d requests", n)
	}
	if _, err := os.Stat(u.dbPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("store must not be created, stat err=%v", err)
	}
}

func TestRunCommand_SkipWithoutToken(t *testing.T) {
	u := setupEnv(t)
	t.Setenv("JIRA_TOKEN", "")

	if _, err := execute(t, "run"); err != nil {
		t.Fatalf("skip policy must not fail the run: %v", err)
	}
	if len(u.tracker.Issues()) != 0 {
		t.Errorf("expected no tickets, got %d", len(u.tracker.Issues()))
	}
}

func TestRunCommand_SeedFailure(t *testing.T) {
	setupEnv(t)
	t.Setenv("CATALOG_URL", "http://127.0.0.1:1/products")

	if _, err := execute(t, "run"); !errors.Is(err, seed.ErrSetup) {
		t.Fatalf("expected ErrSetup, got %v", err)
	}
}

func TestSeedAndScanCommands(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "scan")
	if err != nil {
		t.Fatalf("scan before seed: %v", err)
	}
	var defects []models.Defect
	if err := json.Unmarshal([]byte(out), &defects); err != nil || len(defects) != 0 {
		t.Fatalf("expected empty JSON list before seeding, got %q (%v)", out, err)
	}

	if _, err := execute(t, "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err = execute(t, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &defects); err != nil {
		t.Fatalf("decode scan output %q: %v", out, err)
	}
	if len(defects) != 1 || defects[0].ID != 1 {
		t.Errorf("expected a single defect for id 1, got %+v", defects)
	}
}

func TestConfigFileFlag(t *testing.T) {
	setupEnv(t)
	if _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "seed"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestSeedAndScanCommands_AbortWithoutToken(t *testing.T) {
	u := setupEnv(t)
	t.Setenv("JIRA_TOKEN", "")
	t.Setenv("TRACKER_MISSING_TOKEN", "abort")

	if _, err := execute(t, "seed"); err != nil {
		t.Fatalf("seed does not file tickets and must ignore the token policy: %v", err)
	}
	out, err := execute(t, "scan")
	if err != nil {
		t.Fatalf("scan does not file tickets and must ignore the token policy: %v", err)
	}
	var defects []models.Defect
	if err := json.Unmarshal([]byte(out), &defects); err != nil || len(defects) != 1 {
		t.Fatalf("expected one defect, got %q (%v)", out, err)
	}
	if len(u.tracker.Issues()) != 0 {
		t.Errorf("seed and scan must not file tickets, got %d", len(u.tracker.Issues()))
	}
}

func TestScanCommand_SelectedIDs(t *testing.T) {
	setupEnv(t)
	t.Setenv("SCAN_LIMIT", "1")
	if _, err := execute(t, "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := execute(t, "scan", "--id", "2", "--id", "1,9999")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var defects []models.Defect
	if err := json.Unmarshal([]byte(out), &defects); err != nil {
		t.Fatalf("decode scan output %q: %v", out, err)
	}
	if len(defects) != 1 || defects[0].ID != 1 {
		t.Errorf("expected a single defect for id 1, got %+v", defects)
	}
}

func TestRunsCommand(t *testing.T) {
	setupEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())

	for i := 0; i < 2; i++ {
		if _, err := execute(t, "run"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	out, err := execute(t, "runs", "--last", "5")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var runs []ledger.RunSummary
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs output %q: %v", out, err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected two recorded runs, got %+v", runs)
	}
	if len(runs[0].Filed) != 1 || runs[1].Duplicate != 1 || len(runs[1].Filed) != 0 {
		t.Errorf("expected the second run to suppress the duplicate ticket, got %+v", runs)
	}
}

func TestRunsCommand_NeedsLedger(t *testing.T) {
	setupEnv(t)
	if _, err := execute(t, "runs"); !errors.Is(err, errNoLedger) {
		t.Fatalf("expected errNoLedger, got %v", err)
	}
	if _, err := execute(t, "runs", "--last", "0"); err == nil {
		t.Fatal("expected an error for --last 0")
	}
}
