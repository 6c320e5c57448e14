package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fix_analyzer/internal/app"
	"fix_analyzer/internal/infra"
)

func TestRunSample(t *testing.T) {
	var out bytes.Buffer
	if err := runSample(&out); err != nil {
		t.Fatalf("runSample failed: %v", err)
	}
	want := "=== Compliance Report ===\n" +
		"total_messages: 1\n" +
		"malformed_messages: 0\n" +
		"side_buy: 1\n" +
		"side_sell: 0\n" +
		"\n=== Volume by Symbol ===\n" +
		"AAPL count=1 volume=100\n"
	if out.String() != want {
		t.Errorf("sample report =\n%s\nwant\n%s", out.String(), want)
	}
}

func setup(t *testing.T) (*app.Bootstrap, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := infra.DefaultConfig()
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	cfg.Logging.Level = "error"
	cfg.Report.Output = filepath.Join(dir, "report.txt")
	cfg.Report.JSONDump = filepath.Join(dir, "report.json")

	b := app.NewBootstrap()
	if err := b.InitializeWith(cfg); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b, dir
}

func TestRun_OnceOverFiles(t *testing.T) {
	b, dir := setup(t)

	in1 := filepath.Join(dir, "a.log")
	in2 := filepath.Join(dir, "b.log")
	if err := os.WriteFile(in1, []byte(strings.Repeat(smokeMessage+"\n", 3)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(in2, []byte(smokeMessage+"\r\nnot a message\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if code := run(context.Background(), b, []string{in1, in2}, true); code != 0 {
		t.Fatalf("run exited %d", code)
	}

	report, err := os.ReadFile(b.Config.Report.Output)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(report), "=== Compliance Report ===") != 1 {
		t.Errorf("-once should emit exactly one report:\n%s", report)
	}
	if !strings.Contains(string(report), "total_messages: 4\nmalformed_messages: 1\n") {
		t.Errorf("unexpected totals:\n%s", report)
	}
	if _, err := os.Stat(b.Config.Report.JSONDump); err != nil {
		t.Errorf("json dump missing: %v", err)
	}
}

func TestRun_MissingInputFails(t *testing.T) {
	b, dir := setup(t)
	if code := run(context.Background(), b, []string{filepath.Join(dir, "nope.log")}, false); code != 1 {
		t.Errorf("run exited %d, want 1", code)
	}
}
