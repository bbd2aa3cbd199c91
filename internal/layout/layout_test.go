package layout

import (
	"errors"
	"reflect"
	"testing"
)

func TestOffsetFixed(t *testing.T) {
	shape := Shape{Dims: []uint64{4, 3}, Begin: 100, ElemSize: 4}

	tests := []struct {
		index    []uint64
		expected uint64
	}{
		{[]uint64{0, 0}, 100},
		{[]uint64{0, 2}, 108},
		{[]uint64{1, 0}, 112},
		{[]uint64{3, 2}, 144},
	}

	for _, tt := range tests {
		got, err := shape.Offset(tt.index)
		if err != nil {
			t.Fatalf("Offset(%v) failed: %v", tt.index, err)
		}
		if got != tt.expected {
			t.Errorf("Offset(%v): expected %d, got %d", tt.index, tt.expected, got)
		}
	}
}

func TestOffsetRecord(t *testing.T) {
	// Two records of a [time, x=2] short variable interleaved with another
	// record variable: recsize 12.
	shape := Shape{Dims: []uint64{2, 2}, Record: true, Begin: 200, ElemSize: 2, RecSize: 12}

	got, err := shape.Offset([]uint64{1, 1})
	if err != nil {
		t.Fatalf("Offset failed: %v", err)
	}
	if got != 214 {
		t.Errorf("expected 214, got %d", got)
	}
}

func TestOffsetErrors(t *testing.T) {
	shape := Shape{Dims: []uint64{4, 3}, ElemSize: 4}

	if _, err := shape.Offset([]uint64{1}); !errors.Is(err, ErrRank) {
		t.Errorf("expected ErrRank, got %v", err)
	}
	if _, err := shape.Offset([]uint64{4, 0}); !errors.Is(err, ErrBounds) {
		t.Errorf("expected ErrBounds, got %v", err)
	}
}

func TestScalarVariable(t *testing.T) {
	shape := Shape{Begin: 64, ElemSize: 8}

	off, err := shape.Offset(nil)
	if err != nil {
		t.Fatalf("Offset failed: %v", err)
	}
	if off != 64 {
		t.Errorf("expected 64, got %d", off)
	}
	if shape.Count() != 1 {
		t.Errorf("expected count 1, got %d", shape.Count())
	}

	start, count, err := Window(shape.Dims, nil, nil)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	runs := shape.Runs(start, count)
	if !reflect.DeepEqual(runs, []Run{{Offset: 64, Elements: 1}}) {
		t.Errorf("unexpected runs %v", runs)
	}
}

func TestWindow(t *testing.T) {
	dims := []uint64{4, 3}

	tests := []struct {
		name      string
		start     []uint64
		end       []uint64
		wantStart []uint64
		wantCount []uint64
		wantErr   error
	}{
		{"full", nil, nil, []uint64{0, 0}, []uint64{4, 3}, nil},
		{"open end", []uint64{1, 1}, nil, []uint64{1, 1}, []uint64{3, 2}, nil},
		{"open start", nil, []uint64{2, 2}, []uint64{0, 0}, []uint64{2, 2}, nil},
		{"empty", []uint64{2, 0}, []uint64{2, 3}, []uint64{2, 0}, []uint64{0, 3}, nil},
		{"rank", []uint64{0}, nil, nil, nil, ErrRank},
		{"past end", nil, []uint64{5, 3}, nil, nil, ErrBounds},
		{"reversed", []uint64{3, 0}, []uint64{2, 3}, nil, nil, ErrBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, count, err := Window(dims, tt.start, tt.end)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Window failed: %v", err)
			}
			if !reflect.DeepEqual(start, tt.wantStart) {
				t.Errorf("start: expected %v, got %v", tt.wantStart, start)
			}
			if !reflect.DeepEqual(count, tt.wantCount) {
				t.Errorf("count: expected %v, got %v", tt.wantCount, count)
			}
		})
	}
}

func TestRunsMergeFullRows(t *testing.T) {
	shape := Shape{Dims: []uint64{4, 3}, Begin: 100, ElemSize: 4}

	runs := shape.Runs([]uint64{1, 0}, []uint64{2, 3})
	expected := []Run{{Offset: 112, Elements: 6}}
	if !reflect.DeepEqual(runs, expected) {
		t.Errorf("expected %v, got %v", expected, runs)
	}
}

func TestRunsPartialRows(t *testing.T) {
	shape := Shape{Dims: []uint64{4, 3}, Begin: 100, ElemSize: 4}

	runs := shape.Runs([]uint64{0, 1}, []uint64{2, 2})
	expected := []Run{
		{Offset: 104, Elements: 2},
		{Offset: 116, Elements: 2},
	}
	if !reflect.DeepEqual(runs, expected) {
		t.Errorf("expected %v, got %v", expected, runs)
	}
	if runs[0].Bytes(shape.ElemSize) != 8 {
		t.Errorf("expected 8 bytes, got %d", runs[0].Bytes(shape.ElemSize))
	}
}

func TestRunsRecordsNotMerged(t *testing.T) {
	shape := Shape{Dims: []uint64{3, 2}, Record: true, Begin: 200, ElemSize: 4, RecSize: 16}

	runs := shape.Runs([]uint64{0, 0}, []uint64{3, 2})
	expected := []Run{
		{Offset: 200, Elements: 2},
		{Offset: 216, Elements: 2},
		{Offset: 232, Elements: 2},
	}
	if !reflect.DeepEqual(runs, expected) {
		t.Errorf("expected %v, got %v", expected, runs)
	}
}

func TestRunsEmptySelection(t *testing.T) {
	shape := Shape{Dims: []uint64{4, 3}, ElemSize: 4}
	if runs := shape.Runs([]uint64{0, 0}, []uint64{0, 3}); runs != nil {
		t.Errorf("expected no runs, got %v", runs)
	}
}

func TestExtent(t *testing.T) {
	tests := []struct {
		name     string
		shape    Shape
		expected uint64
	}{
		{"fixed", Shape{Dims: []uint64{4, 3}, Begin: 100, ElemSize: 4}, 148},
		{"record", Shape{Dims: []uint64{3, 2}, Record: true, Begin: 200, ElemSize: 4, RecSize: 16}, 240},
		{"no records", Shape{Dims: []uint64{0, 2}, Record: true, Begin: 200, ElemSize: 4, RecSize: 16}, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.Extent(); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestRecordStride(t *testing.T) {
	if got := RecordStride([]uint64{6}); got != 6 {
		t.Errorf("single record variable: expected 6, got %d", got)
	}
	if got := RecordStride([]uint64{6, 8}); got != 16 {
		t.Errorf("two record variables: expected 16, got %d", got)
	}
	if got := RecordStride(nil); got != 0 {
		t.Errorf("no record variables: expected 0, got %d", got)
	}
}

func TestVSize(t *testing.T) {
	shape := Shape{Dims: []uint64{5, 3}, Record: true, ElemSize: 2}
	if got := shape.SliceSize(); got != 6 {
		t.Errorf("SliceSize: expected 6, got %d", got)
	}
	if got := shape.VSize(); got != 8 {
		t.Errorf("VSize: expected 8, got %d", got)
	}
}

func TestFlat(t *testing.T) {
	shape := Shape{Dims: []uint64{4, 3}, ElemSize: 4}

	flat, err := shape.Flat([]uint64{2, 1})
	if err != nil {
		t.Fatalf("Flat failed: %v", err)
	}
	if flat != 7 {
		t.Errorf("expected 7, got %d", flat)
	}
	if _, err := shape.Flat([]uint64{0, 3}); !errors.Is(err, ErrBounds) {
		t.Errorf("expected ErrBounds, got %v", err)
	}
}

func TestFlatRuns(t *testing.T) {
	fixed := Shape{Dims: []uint64{4, 3}, Begin: 100, ElemSize: 4}
	runs := fixed.FlatRuns(2, 5)
	if !reflect.DeepEqual(runs, []Run{{Offset: 108, Elements: 5}}) {
		t.Errorf("fixed: unexpected runs %v", runs)
	}

	record := Shape{Dims: []uint64{3, 2}, Record: true, Begin: 200, ElemSize: 4, RecSize: 16}
	runs = record.FlatRuns(1, 4)
	expected := []Run{
		{Offset: 204, Elements: 1},
		{Offset: 216, Elements: 2},
		{Offset: 232, Elements: 1},
	}
	if !reflect.DeepEqual(runs, expected) {
		t.Errorf("record: expected %v, got %v", expected, runs)
	}
}

func TestWindowEnd(t *testing.T) {
	shape := Shape{Dims: []uint64{4, 3}, Begin: 100, ElemSize: 4}

	tests := []struct {
		start, count []uint64
		expected     uint64
	}{
		{[]uint64{0, 0}, []uint64{4, 3}, 148},
		{[]uint64{1, 1}, []uint64{1, 2}, 124},
		{[]uint64{2, 0}, []uint64{0, 3}, 100},
	}
	for _, tt := range tests {
		got, err := shape.WindowEnd(tt.start, tt.count)
		if err != nil {
			t.Fatalf("WindowEnd(%v, %v) failed: %v", tt.start, tt.count, err)
		}
		if got != tt.expected {
			t.Errorf("WindowEnd(%v, %v): expected %d, got %d", tt.start, tt.count, tt.expected, got)
		}
	}

	scalar := Shape{Begin: 64, ElemSize: 8}
	if got, err := scalar.WindowEnd(nil, nil); err != nil || got != 72 {
		t.Errorf("scalar WindowEnd = %d, %v; expected 72", got, err)
	}
}

func TestOverflow(t *testing.T) {
	huge := Shape{Dims: []uint64{1 << 32, 1 << 32, 1 << 32}, Begin: 200, ElemSize: 1}

	if _, ok := CheckedProduct(huge.Dims); ok {
		t.Error("CheckedProduct: expected overflow")
	}
	if _, err := huge.WindowEnd([]uint64{0, 0, 0}, huge.Dims); !errors.Is(err, ErrOverflow) {
		t.Errorf("WindowEnd: expected ErrOverflow, got %v", err)
	}
	if _, err := huge.Offset([]uint64{1, 0, 0}); !errors.Is(err, ErrOverflow) {
		t.Errorf("Offset: expected ErrOverflow, got %v", err)
	}

	// Fits in 64 bits but is far larger than any file.
	big := Shape{Dims: []uint64{65536, 65536, 65536}, Begin: 200, ElemSize: 1}
	end, err := big.WindowEnd([]uint64{0, 0, 0}, big.Dims)
	if err != nil {
		t.Fatalf("WindowEnd failed: %v", err)
	}
	if end != 200+1<<48 {
		t.Errorf("WindowEnd: expected %d, got %d", uint64(200+1<<48), end)
	}
}
