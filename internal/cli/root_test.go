package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "budget" {
		t.Fatalf("Use = %q", cmd.Use)
	}
	for _, name := range []string{"submit", "sync", "status", "balance", "worker"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("command %s missing: %v", name, err)
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	tests := []struct {
		flag string
		def  string
	}{
		{"verbose", "false"},
		{"format", "text"},
		{"db", ""},
		{"backend", ""},
	}
	for _, tt := range tests {
		f := cmd.PersistentFlags().Lookup(tt.flag)
		if f == nil {
			t.Errorf("flag --%s missing", tt.flag)
			continue
		}
		if f.DefValue != tt.def {
			t.Errorf("--%s default = %q, want %q", tt.flag, f.DefValue, tt.def)
		}
	}
}

// run executes the CLI against dbPath. Callers point it at a ledger first.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BUDGET_DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestSubmitAndBalance(t *testing.T) {
	remote := newLedgerServer(t)
	db := filepath.Join(t.TempDir(), "budget.db")

	out, err := run(t, db, "submit", "--name", "Coffee", "--value", "5", "--debit", "--date", "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "2024-01-01T00:00:00Z Coffee -5 (recorded)") {
		t.Fatalf("unexpected output %q", out)
	}

	if remote.Len() != 1 {
		t.Fatalf("remote holds %d transactions, want 1", remote.Len())
	}

	out, err = run(t, db, "--format", "json", "balance")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	var resp struct {
		Status string        `json:"status"`
		Data   BalanceResult `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if resp.Status != "ok" || resp.Data.Count != 1 || resp.Data.Total != -5 || resp.Data.Pending != 0 {
		t.Fatalf("unexpected balance %+v", resp)
	}
}

func TestQueuedSubmissionSurvivesUntilDelivered(t *testing.T) {
	remote := newLedgerServer(t)
	db := filepath.Join(t.TempDir(), "budget.db")

	remote.SetAvailable(false)
	out, err := run(t, db, "submit", "--name", "Coffee", "--value", "5", "--debit", "--date", "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "(queued for sync)") {
		t.Fatalf("unexpected output %q", out)
	}

	// A pass against the outage leaves the entry pending.
	if out, err = run(t, db, "sync"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "synced 0 of 1 pending (1 failed)") {
		t.Fatalf("unexpected output %q", out)
	}

	remote.SetAvailable(true)
	if out, err = run(t, db, "sync"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "synced 1 of 1 pending (0 failed)") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, ok := remote.Get("2024-01-01T00:00:00Z"); !ok {
		t.Fatal("synced transaction missing from the remote ledger")
	}

	out, err = run(t, db, "--format", "json", "balance")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	var resp struct {
		Data BalanceResult `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if resp.Data.Count != 1 || resp.Data.Total != -5 || resp.Data.Offline {
		t.Fatalf("unexpected balance %+v", resp.Data)
	}
}

func TestMemoryBackendRejected(t *testing.T) {
	newLedgerServer(t)
	db := filepath.Join(t.TempDir(), "budget.db")

	_, err := run(t, db, "--backend", "memory", "sync")
	if GetExitCode(err) != ExitCommandError {
		t.Fatalf("exit code = %d (%v), want %d", GetExitCode(err), err, ExitCommandError)
	}
}

func TestSubmitValidationExitCode(t *testing.T) {
	newLedgerServer(t)
	db := filepath.Join(t.TempDir(), "budget.db")

	_, err := run(t, db, "submit", "--name", "x", "--value", "0")
	if GetExitCode(err) != ExitFailure {
		t.Fatalf("exit code = %d (%v), want %d", GetExitCode(err), err, ExitFailure)
	}

	_, err = run(t, db, "submit", "--name", "x", "--value", "3", "--date", "yesterday")
	if GetExitCode(err) != ExitFailure {
		t.Fatalf("exit code = %d (%v), want %d", GetExitCode(err), err, ExitFailure)
	}

	out, err := run(t, db, "--format", "json", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var resp struct {
		Data StatusResult `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Pending != 0 || resp.Data.Synced != 0 {
		t.Fatalf("store mutated by rejected submissions: %+v", resp.Data)
	}
}

func TestInvalidFormatAndConfig(t *testing.T) {
	newLedgerServer(t)
	db := filepath.Join(t.TempDir(), "budget.db")

	if _, err := run(t, db, "--format", "xml", "status"); GetExitCode(err) != ExitCommandError {
		t.Fatalf("invalid format: exit code %d (%v)", GetExitCode(err), err)
	}
	if _, err := run(t, db, "--backend", "carrier-pigeon", "status"); GetExitCode(err) != ExitCommandError {
		t.Fatalf("invalid backend: exit code %d (%v)", GetExitCode(err), err)
	}
}

func TestSyncEmptyQueue(t *testing.T) {
	newLedgerServer(t)
	db := filepath.Join(t.TempDir(), "budget.db")

	out, err := run(t, db, "sync")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "synced 0 of 0 pending") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestWorkerStopsOnCancel(t *testing.T) {
	newLedgerServer(t)
	t.Setenv("BUDGET_DB_PATH", filepath.Join(t.TempDir(), "budget.db"))
	t.Setenv("LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"worker"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("worker: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerDoesNotSweepViewCache(t *testing.T) {
	newLedgerServer(t)
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadConfig(&RootOptions{DBPath: filepath.Join(t.TempDir(), "budget.db")})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	logger, err := SetupLogger(cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	app, err := NewApp(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := runWorker(ctx, app); err != nil {
		t.Fatalf("runWorker: %v", err)
	}
	if app.Caches.Started() {
		t.Fatal("worker started the view cache sweeper without serving the view")
	}
}

func TestGetExitCode(t *testing.T) {
	if GetExitCode(nil) != ExitSuccess {
		t.Error("nil error should map to success")
	}
	if GetExitCode(errors.New("plain")) != ExitFailure {
		t.Error("plain error should map to failure")
	}
	wrapped := WrapExitError(ExitCommandError, "startup failed", errors.New("disk"))
	if GetExitCode(wrapped) != ExitCommandError || wrapped.Error() != "startup failed: disk" {
		t.Errorf("unexpected wrapped error %v", wrapped)
	}
}
