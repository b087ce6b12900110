package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sweep/internal/testsupport"
)

// writeWorkspace lays out a config file plus scan files and returns the
// config path.
func writeWorkspace(t *testing.T, scanTimes []time.Time) string {
	t.Helper()

	base := t.TempDir()
	dataDir := filepath.Join(base, "scans")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("create data dir: %v", err)
	}
	for i, scanTime := range scanTimes {
		testsupport.WriteScan(t, dataDir, fmt.Sprintf("scan%02d.json", i), scanTime)
	}

	cfgPath := filepath.Join(base, "sweep.toml")
	cfg := fmt.Sprintf(`[paths]
data_dir = %q
catalog_path = %q
log_dir = %q

[playback]
display_fps = 200.0

[logging]
level = "error"
`, dataDir, filepath.Join(base, "catalog.db"), filepath.Join(base, "logs"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("sweep %s failed: %v\n%s", strings.Join(args, " "), err, buf.String())
	}
	return buf.String()
}

func scanTimes(n int) []time.Time {
	base := time.Date(2024, 5, 11, 18, 0, 0, 0, time.UTC)
	times := make([]time.Time, n)
	for i := range times {
		times[i] = base.Add(time.Duration(i) * time.Second)
	}
	return times
}

func TestScansRebuildAndList(t *testing.T) {
	cfgPath := writeWorkspace(t, scanTimes(3))

	out := runCommand(t, "scans", "--rebuild", "--config", cfgPath)
	if !strings.Contains(out, "Cataloged 3 scan files") {
		t.Fatalf("rebuild output:\n%s", out)
	}
	if !strings.Contains(out, "2024-05-11 18:00:02") {
		t.Fatalf("listing lacks scan times:\n%s", out)
	}
}

func TestMarkersPreview(t *testing.T) {
	cfgPath := writeWorkspace(t, scanTimes(5))
	runCommand(t, "scans", "--rebuild", "--config", cfgPath)

	out := runCommand(t, "markers", "--config", cfgPath, "--sps", "2", "--fps", "1")
	if !strings.Contains(out, "4 markers per cycle") {
		t.Fatalf("markers output:\n%s", out)
	}
	if !strings.Contains(out, "+6.0s") {
		t.Fatalf("markers output lacks the final offset:\n%s", out)
	}
}

func TestMarkersUnsynchronized(t *testing.T) {
	cfgPath := writeWorkspace(t, scanTimes(2))
	runCommand(t, "scans", "--rebuild", "--config", cfgPath)

	out := runCommand(t, "markers", "--config", cfgPath)
	if !strings.Contains(out, "Unsynchronized playback") {
		t.Fatalf("markers output:\n%s", out)
	}
}

func TestPlayOnceCompletesACycle(t *testing.T) {
	cfgPath := writeWorkspace(t, scanTimes(3))
	runCommand(t, "scans", "--rebuild", "--config", cfgPath)

	out := runCommand(t, "play", "--config", cfgPath, "--once", "--fps", "200")
	if !strings.Contains(out, "Ticks") {
		t.Fatalf("play output lacks the stats table:\n%s", out)
	}
}

func TestPlayStepMode(t *testing.T) {
	cfgPath := writeWorkspace(t, scanTimes(3))
	runCommand(t, "scans", "--rebuild", "--config", cfgPath)

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader("n\nn\np\nq\n"))
	cmd.SetArgs([]string{"play", "--config", cfgPath, "--step"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("step mode failed: %v\n%s", err, buf.String())
	}
	out := buf.String()
	if !strings.Contains(out, "2024-05-11 18:00:02") || !strings.Contains(out, "2024-05-11 18:00:01") {
		t.Fatalf("step mode output:\n%s", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out := runCommand(t, "config", "init", "--path", target)
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("init output:\n%s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	out = runCommand(t, "config", "show", "--config", target)
	if !strings.Contains(out, "[playback]") {
		t.Fatalf("show output:\n%s", out)
	}
}
