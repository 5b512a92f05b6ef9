package boundary

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/pkg/geometry"
)

// State is the edit session's drawing state.
type State int

const (
	// StateEmpty means no shape is drawn on the surface.
	StateEmpty State = iota
	// StateDrawn means exactly one shape is present.
	StateDrawn
)

func (s State) String() string {
	if s == StateDrawn {
		return "drawn"
	}
	return "empty"
}

// ErrNoSurface is returned when a session is configured without a surface.
var ErrNoSurface = errors.New("boundary: drawing surface is required")

// EditSessionConfig configures an EditSession.
type EditSessionConfig struct {
	Surface DrawingSurface
	// Initial seeds the session with an existing farm boundary. The view
	// centers on the boundary's bounding box at FocusZoom; without it the
	// whole-country default view is used.
	Initial *geometry.Boundary
	// OnBoundaryChanged is invoked with the new canonical boundary after
	// every state change, nil on delete. Optional.
	OnBoundaryChanged func(*geometry.Boundary)
	Logger            zerolog.Logger
}

// EditSession turns raw surface draw events into canonical boundaries.
// It keeps the surface holding at most one shape, closes rings, and swaps
// the surface's (lat, lng) ordering to the canonical (lng, lat).
//
// EditSession is not safe for concurrent use; the surface delivers events
// from a single interaction loop.
type EditSession struct {
	surface   DrawingSurface
	onChanged func(*geometry.Boundary)
	logger    zerolog.Logger

	state    State
	boundary *geometry.Boundary
	seeded   bool
}

// NewEditSession acquires the surface and returns a session ready to
// receive draw events.
func NewEditSession(cfg EditSessionConfig) (*EditSession, error) {
	if cfg.Surface == nil {
		return nil, ErrNoSurface
	}

	s := &EditSession{
		surface:   cfg.Surface,
		onChanged: cfg.OnBoundaryChanged,
		logger:    cfg.Logger,
	}
	if err := s.hydrate(cfg.Initial); err != nil {
		return nil, err
	}
	return s, nil
}

// State returns the current drawing state.
func (s *EditSession) State() State { return s.state }

// Boundary returns the most recently derived boundary, nil when empty.
func (s *EditSession) Boundary() *geometry.Boundary { return s.boundary }

// Reset re-seeds the session with a new initial boundary. Switching
// between a seeded and an empty view tears the surface down and acquires
// it again; the widget cannot change views in place. When seededness is
// unchanged the widget instance is kept.
func (s *EditSession) Reset(initial *geometry.Boundary) error {
	if (initial != nil) != s.seeded {
		s.surface.Release()
		return s.hydrate(initial)
	}

	s.boundary = initial
	if initial != nil {
		s.state = StateDrawn
	} else {
		s.state = StateEmpty
	}
	return nil
}

// Close releases the underlying surface.
func (s *EditSession) Close() {
	s.surface.Release()
}

func (s *EditSession) hydrate(initial *geometry.Boundary) error {
	cfg := SurfaceConfig{Center: DefaultCenter, Zoom: DefaultZoom}
	if initial != nil {
		lat, lng := initial.Outer().BoundingBox().Center()
		cfg = SurfaceConfig{Center: LatLng{Lat: lat, Lng: lng}, Zoom: FocusZoom, Seeded: true}
	}
	if err := s.surface.Acquire(cfg); err != nil {
		return fmt.Errorf("acquire drawing surface: %w", err)
	}

	s.seeded = initial != nil
	s.boundary = initial
	if initial != nil {
		s.state = StateDrawn
	} else {
		s.state = StateEmpty
	}
	return nil
}

// Dispatch applies a single draw event to the session.
func (s *EditSession) Dispatch(ev Event) error {
	switch ev := ev.(type) {
	case CreatedEvent:
		s.handleCreated(ev)
	case EditedEvent:
		s.handleEdited(ev)
	case DeletedEvent:
		s.handleDeleted()
	default:
		return fmt.Errorf("boundary: unknown event %T", ev)
	}
	return nil
}

func (s *EditSession) handleCreated(ev CreatedEvent) {
	// Only one shape may exist at a time.
	s.surface.ClearShapes()

	b := boundaryFromVertices(ev.Vertices)
	s.state = StateDrawn
	s.boundary = b
	s.logger.Debug().
		Int("vertices", len(ev.Vertices)).
		Msg("boundary drawn")
	s.notify(b)
}

func (s *EditSession) handleEdited(ev EditedEvent) {
	// The surface is the source of geometric truth during dragging; each
	// layer is independently re-derived and re-closed.
	for _, layer := range ev.Layers {
		b := boundaryFromVertices(layer)
		s.state = StateDrawn
		s.boundary = b
		s.notify(b)
	}
}

func (s *EditSession) handleDeleted() {
	s.state = StateEmpty
	s.boundary = nil
	s.logger.Debug().Msg("boundary deleted")
	s.notify(nil)
}

func (s *EditSession) notify(b *geometry.Boundary) {
	if s.onChanged != nil {
		s.onChanged(b)
	}
}

// boundaryFromVertices converts an open surface vertex list into a closed
// canonical boundary: swap (lat, lng) to (lng, lat), then append the first
// position to close the ring.
func boundaryFromVertices(vertices []LatLng) *geometry.Boundary {
	ring := make(geometry.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		ring = append(ring, geometry.Position{v.Lng, v.Lat})
	}
	ring = ring.Close()
	return &geometry.Boundary{
		Type:        geometry.PolygonType,
		Coordinates: []geometry.Ring{ring},
	}
}
