package geometry

import "errors"

// Validation failures for farm boundaries. Checks run in a fixed order and
// the first failure wins, so callers can rely on the most specific error
// only when all earlier checks pass.
var (
	ErrInvalidPolygonType = errors.New("invalid polygon type")
	ErrMissingCoordinates = errors.New("missing coordinates")
	ErrTooFewCoordinates  = errors.New("polygon must have at least 4 coordinates")
	ErrRingNotClosed      = errors.New("polygon must be closed")
)

// Validate checks the structural validity of a farm boundary: geometry type,
// presence of an outer ring, minimum ring length (4 positions, closing point
// included), and ring closure by exact coordinate equality.
//
// Self-intersecting rings are accepted; area estimates for them are
// unreliable.
func Validate(b *Boundary) error {
	if b == nil || b.Type != PolygonType {
		return ErrInvalidPolygonType
	}
	ring := b.Outer()
	if len(ring) == 0 {
		return ErrMissingCoordinates
	}
	if len(ring) < 4 {
		return ErrTooFewCoordinates
	}
	if !ring.Closed() {
		return ErrRingNotClosed
	}
	return nil
}
