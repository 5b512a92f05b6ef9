package boundary

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cropsight/cropsight/pkg/geometry"
)

// minSlots is the floor the slot list never shrinks below.
const minSlots = 3

// ValidationError describes why a manual coordinate submission was
// rejected. The message is user-facing.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Slot is one row of the manual entry form, both fields as entered text.
type Slot struct {
	Lng string
	Lat string
}

func (s Slot) filled() bool {
	return strings.TrimSpace(s.Lng) != "" && strings.TrimSpace(s.Lat) != ""
}

// EntrySession maintains the ordered slot list of the manual coordinate
// entry path. It starts with three empty slots, grows by appending, and
// never shrinks below three. Submit validates only the filled slots and
// emits an open ring; the receiver is responsible for closing it.
type EntrySession struct {
	slots   []Slot
	lastErr *ValidationError
}

// NewEntrySession returns a session with the initial three empty slots.
func NewEntrySession() *EntrySession {
	return &EntrySession{slots: make([]Slot, minSlots)}
}

// Slots returns a copy of the current slot list.
func (s *EntrySession) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Err returns the validation error from the most recent Submit, nil if the
// last submit succeeded or a field was edited since.
func (s *EntrySession) Err() *ValidationError { return s.lastErr }

// Add appends an empty slot.
func (s *EntrySession) Add() {
	s.slots = append(s.slots, Slot{})
}

// Remove deletes the slot at index i. Removal that would shrink the list
// below the floor of three is a no-op, as is an out-of-range index.
func (s *EntrySession) Remove(i int) {
	if len(s.slots) <= minSlots || i < 0 || i >= len(s.slots) {
		return
	}
	s.slots = append(s.slots[:i], s.slots[i+1:]...)
}

// SetLng updates the longitude text of slot i and clears any prior
// validation error.
func (s *EntrySession) SetLng(i int, value string) {
	if i < 0 || i >= len(s.slots) {
		return
	}
	s.slots[i].Lng = value
	s.lastErr = nil
}

// SetLat updates the latitude text of slot i and clears any prior
// validation error.
func (s *EntrySession) SetLat(i int, value string) {
	if i < 0 || i >= len(s.slots) {
		return
	}
	s.slots[i].Lat = value
	s.lastErr = nil
}

// Submit validates the filled slots and returns the parsed open ring.
// Positions in error messages are 1-based and refer to the filled-slot
// order, matching the rows the user sees.
func (s *EntrySession) Submit() (geometry.Ring, error) {
	var filled []Slot
	for _, slot := range s.slots {
		if slot.filled() {
			filled = append(filled, slot)
		}
	}

	if len(filled) < minSlots {
		return nil, s.fail("At least 3 coordinates are required to form a polygon")
	}

	ring := make(geometry.Ring, 0, len(filled))
	for i, slot := range filled {
		lng, lngErr := parseCoord(slot.Lng)
		lat, latErr := parseCoord(slot.Lat)
		if lngErr != nil || latErr != nil {
			return nil, s.fail(fmt.Sprintf("Invalid coordinate at position %d", i+1))
		}
		if lng < -180 || lng > 180 {
			return nil, s.fail(fmt.Sprintf("Longitude at position %d must be between -180 and 180", i+1))
		}
		if lat < -90 || lat > 90 {
			return nil, s.fail(fmt.Sprintf("Latitude at position %d must be between -90 and 90", i+1))
		}
		ring = append(ring, geometry.Position{lng, lat})
	}

	s.lastErr = nil
	return ring, nil
}

func (s *EntrySession) fail(msg string) error {
	s.lastErr = &ValidationError{Message: msg}
	return s.lastErr
}

func parseCoord(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite coordinate %q", text)
	}
	return v, nil
}
