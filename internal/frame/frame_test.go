package frame

import (
	"testing"
	"time"
)

func testFrame() *Frame {
	return &Frame{
		Values: [][][]float64{
			{{1, 2, 3}, {4, 5, 6}},
			{{7, 8, 9}, {10, 11, 12}},
		},
		CoordX:   [][]float64{{0, 1, 2}, {0, 1, 2}},
		CoordY:   [][]float64{{0, 0, 0}, {1, 1, 1}},
		ScanTime: time.Date(2024, 5, 11, 18, 30, 0, 0, time.UTC),
	}
}

func TestDims(t *testing.T) {
	layers, rows, cols := testFrame().Dims()
	if layers != 2 || rows != 2 || cols != 3 {
		t.Fatalf("Dims = (%d,%d,%d), want (2,2,3)", layers, rows, cols)
	}
}

func TestValidateAcceptsRectangularGrids(t *testing.T) {
	if err := testFrame().Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRejectsRaggedValues(t *testing.T) {
	f := testFrame()
	f.Values[1][1] = f.Values[1][1][:2]
	if err := f.Validate(); err == nil {
		t.Fatal("expected error for ragged value grid")
	}
}

func TestValidateRejectsMismatchedCoords(t *testing.T) {
	f := testFrame()
	f.CoordY = f.CoordY[:1]
	if err := f.Validate(); err == nil {
		t.Fatal("expected error for mismatched coordinate grid")
	}
}

func TestTimeLabel(t *testing.T) {
	if got := testFrame().TimeLabel(); got != "2024-05-11 18:30:00" {
		t.Fatalf("TimeLabel = %q", got)
	}
	var missing Frame
	if got := missing.TimeLabel(); got != "Unknown Date/Time" {
		t.Fatalf("TimeLabel for untimed frame = %q", got)
	}
}

func TestLayerClampsIndex(t *testing.T) {
	f := testFrame()
	if got := f.Layer(-1); &got[0][0] != &f.Values[0][0][0] {
		t.Fatal("negative index should clamp to first layer")
	}
	if got := f.Layer(99); &got[0][0] != &f.Values[1][0][0] {
		t.Fatal("oversized index should clamp to last layer")
	}
}

func TestFromEpoch(t *testing.T) {
	got := FromEpoch(1715452200)
	want := time.Date(2024, 5, 11, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("FromEpoch = %v, want %v", got, want)
	}
	if half := FromEpoch(1715452200.5); half.Nanosecond() != 500000000 {
		t.Fatalf("fractional seconds lost: %v", half)
	}
}
