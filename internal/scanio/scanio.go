// Package scanio reads volume-scan files from disk and decodes them into
// frames. A scan file is a JSON envelope:
//
//	{
//	  "scan_time": 1715452200,         // epoch seconds (fractional ok) or RFC3339 string
//	  "values":    [[[...], ...], ...], // [layer][row][col]
//	  "coord_x":   [[...], ...],
//	  "coord_y":   [[...], ...]
//	}
//
// scan_time is optional; frames without it can only be played back in
// unsynchronized mode.
package scanio

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"sweep/internal/frame"
)

type scanFile struct {
	ScanTime json.RawMessage `json:"scan_time"`
	Values   [][][]float64   `json:"values"`
	CoordX   [][]float64     `json:"coord_x"`
	CoordY   [][]float64     `json:"coord_y"`
}

// Meta summarizes a scan file without retaining its grids, for catalog use.
type Meta struct {
	ScanTime time.Time
	Layers   int
	Rows     int
	Cols     int
}

// Load reads and decodes one scan file.
func Load(path string) (*frame.Frame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scanio: read %s: %w", path, err)
	}
	var sf scanFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("scanio: parse %s: %w", path, err)
	}
	scanTime, err := decodeScanTime(sf.ScanTime)
	if err != nil {
		return nil, fmt.Errorf("scanio: parse %s: %w", path, err)
	}
	f := &frame.Frame{
		Values:   sf.Values,
		CoordX:   sf.CoordX,
		CoordY:   sf.CoordY,
		ScanTime: scanTime,
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("scanio: invalid scan %s: %w", path, err)
	}
	return f, nil
}

// Probe decodes just enough of a scan file to catalog it.
func Probe(path string) (Meta, error) {
	f, err := Load(path)
	if err != nil {
		return Meta{}, err
	}
	layers, rows, cols := f.Dims()
	return Meta{ScanTime: f.ScanTime, Layers: layers, Rows: rows, Cols: cols}, nil
}

// decodeScanTime accepts an epoch number, an RFC3339 string, or null. Raw
// epoch offsets are normalized to absolute timestamps here, at the boundary,
// so the scheduler never sees numeric times.
func decodeScanTime(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err == nil {
		return frame.FromEpoch(epoch), nil
	}
	var stamp string
	if err := json.Unmarshal(raw, &stamp); err != nil {
		return time.Time{}, fmt.Errorf("scan_time: want epoch number or RFC3339 string, got %s", raw)
	}
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("scan_time: %w", err)
	}
	return t.UTC(), nil
}
