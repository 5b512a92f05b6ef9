package geometry

import (
	"math"
	"testing"
)

func TestEstimateHectares(t *testing.T) {
	tests := []struct {
		name string
		ring Ring
		want float64
	}{
		{
			name: "nil ring",
			ring: nil,
			want: 0,
		},
		{
			name: "two positions",
			ring: Ring{{77.1, 28.5}, {77.2, 28.5}},
			want: 0,
		},
		{
			name: "unit degree square",
			ring: Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
			want: 111320.0 * 111320.0 / 10000.0,
		},
		{
			name: "winding order does not matter",
			ring: Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}},
			want: 111320.0 * 111320.0 / 10000.0,
		},
		{
			name: "small field",
			ring: Ring{{77.1, 28.5}, {77.101, 28.5}, {77.101, 28.501}, {77.1, 28.501}, {77.1, 28.5}},
			want: 0.001 * 0.001 * 111320.0 * 111320.0 / 10000.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateHectares(tt.ring)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("EstimateHectares() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundingBoxCenter(t *testing.T) {
	ring := Ring{{77.1, 28.5}, {77.2, 28.5}, {77.2, 28.6}, {77.1, 28.6}, {77.1, 28.5}}
	box := ring.BoundingBox()

	want := BBox{77.1, 28.5, 77.2, 28.6}
	if box != want {
		t.Fatalf("BoundingBox() = %v, want %v", box, want)
	}

	lat, lng := box.Center()
	if math.Abs(lat-28.55) > 1e-9 || math.Abs(lng-77.15) > 1e-9 {
		t.Errorf("Center() = (%v, %v), want (28.55, 77.15)", lat, lng)
	}
}
