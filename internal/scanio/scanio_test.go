package scanio

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeScan(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write scan: %v", err)
	}
	return path
}

const validScan = `{
	"scan_time": 1715452200,
	"values": [[[10, 20], [30, 40]]],
	"coord_x": [[0, 1], [0, 1]],
	"coord_y": [[0, 0], [1, 1]]
}`

func TestLoadEpochScanTime(t *testing.T) {
	f, err := Load(writeScan(t, "scan.json", validScan))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := time.Date(2024, 5, 11, 18, 30, 0, 0, time.UTC)
	if !f.ScanTime.Equal(want) {
		t.Fatalf("ScanTime = %v, want %v", f.ScanTime, want)
	}
	if layers, rows, cols := f.Dims(); layers != 1 || rows != 2 || cols != 2 {
		t.Fatalf("Dims = (%d,%d,%d)", layers, rows, cols)
	}
}

func TestLoadRFC3339ScanTime(t *testing.T) {
	body := `{
		"scan_time": "2024-05-11T18:30:00Z",
		"values": [[[1]]],
		"coord_x": [[0]],
		"coord_y": [[0]]
	}`
	f, err := Load(writeScan(t, "scan.json", body))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.ScanTime.Hour() != 18 || f.ScanTime.Minute() != 30 {
		t.Fatalf("ScanTime = %v", f.ScanTime)
	}
}

func TestLoadMissingScanTime(t *testing.T) {
	body := `{"values": [[[1]]], "coord_x": [[0]], "coord_y": [[0]]}`
	f, err := Load(writeScan(t, "scan.json", body))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.HasScanTime() {
		t.Fatal("expected untimed frame")
	}
}

func TestLoadRejectsMalformedGrid(t *testing.T) {
	body := `{"values": [[[1, 2], [3]]], "coord_x": [[0, 1], [0, 1]], "coord_y": [[0, 0], [1, 1]]}`
	if _, err := Load(writeScan(t, "scan.json", body)); err == nil {
		t.Fatal("expected error for ragged grid")
	}
}

func TestLoadRejectsBadScanTime(t *testing.T) {
	body := `{"scan_time": {"y": 2024}, "values": [[[1]]], "coord_x": [[0]], "coord_y": [[0]]}`
	if _, err := Load(writeScan(t, "scan.json", body)); err == nil {
		t.Fatal("expected error for object scan_time")
	}
}

func TestProbe(t *testing.T) {
	meta, err := Probe(writeScan(t, "scan.json", validScan))
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if meta.Layers != 1 || meta.Rows != 2 || meta.Cols != 2 {
		t.Fatalf("Probe meta = %+v", meta)
	}
	if meta.ScanTime.IsZero() {
		t.Fatal("Probe dropped scan time")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
