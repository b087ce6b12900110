// Package frame defines the volume-scan data model shared by the cache,
// scheduler, and render sinks.
package frame

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Frame is one timestamped radar volume scan. Values holds the measured
// grid indexed [layer][row][col]; CoordX and CoordY are 2-D coordinate
// grids parallel to a single layer. Frames are immutable once loaded and
// owned by the cache until evicted.
type Frame struct {
	Values [][][]float64
	CoordX [][]float64
	CoordY [][]float64

	// ScanTime is the moment the volume scan was captured. The zero value
	// means the source carried no usable timestamp.
	ScanTime time.Time
}

// HasScanTime reports whether the frame carries a usable timestamp.
func (f *Frame) HasScanTime() bool {
	return f != nil && !f.ScanTime.IsZero()
}

// Dims returns the layer, row, and column counts of the value grid.
func (f *Frame) Dims() (layers, rows, cols int) {
	if f == nil || len(f.Values) == 0 {
		return 0, 0, 0
	}
	layers = len(f.Values)
	rows = len(f.Values[0])
	if rows > 0 {
		cols = len(f.Values[0][0])
	}
	return layers, rows, cols
}

// TimeLabel formats the scan time for display surfaces and log lines.
func (f *Frame) TimeLabel() string {
	if !f.HasScanTime() {
		return "Unknown Date/Time"
	}
	return f.ScanTime.UTC().Format("2006-01-02 15:04:05")
}

// Layer returns the 2-D value grid at the given layer index, clamped to the
// available range so display surfaces with stale options stay renderable.
func (f *Frame) Layer(i int) [][]float64 {
	if f == nil || len(f.Values) == 0 {
		return nil
	}
	if i < 0 {
		i = 0
	}
	if i >= len(f.Values) {
		i = len(f.Values) - 1
	}
	return f.Values[i]
}

// Validate checks that the value grid is non-empty and rectangular and that
// the coordinate grids parallel a single layer.
func (f *Frame) Validate() error {
	if f == nil {
		return errors.New("frame is nil")
	}
	layers, rows, cols := f.Dims()
	if layers == 0 || rows == 0 || cols == 0 {
		return errors.New("frame has an empty value grid")
	}
	for li, layer := range f.Values {
		if len(layer) != rows {
			return fmt.Errorf("layer %d has %d rows, want %d", li, len(layer), rows)
		}
		for ri, row := range layer {
			if len(row) != cols {
				return fmt.Errorf("layer %d row %d has %d cols, want %d", li, ri, len(row), cols)
			}
		}
	}
	if err := checkGrid("coord_x", f.CoordX, rows, cols); err != nil {
		return err
	}
	return checkGrid("coord_y", f.CoordY, rows, cols)
}

func checkGrid(name string, grid [][]float64, rows, cols int) error {
	if len(grid) != rows {
		return fmt.Errorf("%s has %d rows, want %d", name, len(grid), rows)
	}
	for ri, row := range grid {
		if len(row) != cols {
			return fmt.Errorf("%s row %d has %d cols, want %d", name, ri, len(row), cols)
		}
	}
	return nil
}

// FromEpoch normalizes a raw numeric epoch offset (seconds since the UNIX
// epoch, possibly fractional) to an absolute timestamp.
func FromEpoch(seconds float64) time.Time {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}
