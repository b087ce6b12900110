package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteScan writes a minimal valid scan file into dir and returns its path.
// A zero scanTime produces a file without a scan_time field.
func WriteScan(t testing.TB, dir, name string, scanTime time.Time) string {
	t.Helper()

	payload := map[string]any{
		"values":  [][][]float64{{{10, 20}, {30, 40}}},
		"coord_x": [][]float64{{0, 1}, {0, 1}},
		"coord_y": [][]float64{{0, 0}, {1, 1}},
	}
	if !scanTime.IsZero() {
		payload["scan_time"] = scanTime.UTC().Format(time.RFC3339)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal scan: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write scan %s: %v", path, err)
	}
	return path
}
