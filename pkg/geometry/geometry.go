// Package geometry provides the boundary types shared across CropSight and
// the validation and area estimation applied to farmer-drawn field polygons.
package geometry

// Position is a single GeoJSON position, [longitude, latitude].
type Position [2]float64

// Lng returns the longitude component.
func (p Position) Lng() float64 { return p[0] }

// Lat returns the latitude component.
func (p Position) Lat() float64 { return p[1] }

// Ring is an ordered sequence of positions. A closed ring repeats its first
// position as its last.
type Ring []Position

// Closed reports whether the ring's first and last positions are equal.
func (r Ring) Closed() bool {
	if len(r) < 2 {
		return false
	}
	return r[0] == r[len(r)-1]
}

// Close returns the ring with the first position appended when it is not
// already closed. The receiver is never modified.
func (r Ring) Close() Ring {
	if len(r) == 0 || r.Closed() {
		return r
	}
	out := make(Ring, len(r)+1)
	copy(out, r)
	out[len(r)] = r[0]
	return out
}

// Boundary is a GeoJSON Polygon geometry. Only the outer ring is used;
// holes are carried through but never interpreted.
type Boundary struct {
	Type        string `json:"type"`
	Coordinates []Ring `json:"coordinates"`
}

// PolygonType is the only geometry type accepted for farm boundaries.
const PolygonType = "Polygon"

// Outer returns the boundary's outer ring, or nil when absent.
func (b *Boundary) Outer() Ring {
	if b == nil || len(b.Coordinates) == 0 {
		return nil
	}
	return b.Coordinates[0]
}

// BBox is a geographic bounding box in [minLng, minLat, maxLng, maxLat] order.
type BBox [4]float64

// BoundingBox computes the axis-aligned bounding box of the ring.
// The zero BBox is returned for an empty ring.
func (r Ring) BoundingBox() BBox {
	if len(r) == 0 {
		return BBox{}
	}
	box := BBox{r[0].Lng(), r[0].Lat(), r[0].Lng(), r[0].Lat()}
	for _, p := range r[1:] {
		if p.Lng() < box[0] {
			box[0] = p.Lng()
		}
		if p.Lat() < box[1] {
			box[1] = p.Lat()
		}
		if p.Lng() > box[2] {
			box[2] = p.Lng()
		}
		if p.Lat() > box[3] {
			box[3] = p.Lat()
		}
	}
	return box
}

// Center returns the midpoint of the bounding box as (lat, lng).
func (b BBox) Center() (lat, lng float64) {
	return (b[1] + b[3]) / 2, (b[0] + b[2]) / 2
}
