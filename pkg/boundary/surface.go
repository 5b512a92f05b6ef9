// Package boundary mediates between interactive boundary-editing surfaces
// and the canonical polygon exchanged with the rest of CropSight. It owns
// the draw-event state machine and the manual coordinate-entry flow.
package boundary

// LatLng is a coordinate in the drawing surface's native ordering, which is
// (latitude, longitude). The canonical geometry types use (lng, lat); all
// conversion between the two happens inside this package.
type LatLng struct {
	Lat float64
	Lng float64
}

// SurfaceConfig is the initial view an edit surface is acquired with.
type SurfaceConfig struct {
	Center LatLng
	Zoom   int
	Seeded bool
}

// Default view over the whole country when no boundary exists yet, and the
// closer zoom applied when hydrating an existing boundary.
var (
	DefaultCenter = LatLng{Lat: 20.5937, Lng: 78.9629}
)

const (
	DefaultZoom = 5
	FocusZoom   = 13
)

// DrawingSurface is the external map widget the edit session drives. The
// widget is stateful and cannot be reconfigured in place: changing between
// a seeded and an empty view requires Release followed by a fresh Acquire.
type DrawingSurface interface {
	// Acquire initializes the widget with the given view. Called once at
	// session start and again after each Release.
	Acquire(cfg SurfaceConfig) error

	// Release tears the widget down. Safe to call when not acquired.
	Release()

	// ClearShapes removes every drawn shape. At most one shape may exist
	// on the surface at a time; the session enforces this on each create.
	ClearShapes()
}
