package geometry

import "math"

// Scale factors for the planar area approximation. One degree is treated as
// a constant 111320 meters on both axes, matching the estimate shown to
// farmers everywhere in the product. True geodesic area is out of scope;
// the error grows with distance from the equator.
const (
	metersPerDegree     = 111320.0
	squareMetersPerHect = 10000.0
)

// EstimateHectares computes the approximate area of a closed ring in
// hectares using the shoelace formula on raw degree coordinates.
//
// The ring must be closed (first position repeated last); only consecutive
// pairs are summed, the wrap-around edge is covered by the closure. Returns
// 0 for rings with fewer than 3 positions.
func EstimateHectares(ring Ring) float64 {
	if len(ring) < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i].Lng()*ring[i+1].Lat() - ring[i+1].Lng()*ring[i].Lat()
	}
	area := math.Abs(sum) / 2
	return area * metersPerDegree * metersPerDegree / squareMetersPerHect
}
