package boundary

// Event is a raw draw event reported by the drawing surface.
type Event interface {
	eventName() string
}

// CreatedEvent carries the open vertex list of a newly drawn shape.
type CreatedEvent struct {
	Vertices []LatLng
}

// EditedEvent carries the layers touched by an interactive edit. The
// surface normally reports one layer, but the contract allows several.
type EditedEvent struct {
	Layers [][]LatLng
}

// DeletedEvent reports that the drawn shape was removed.
type DeletedEvent struct{}

func (CreatedEvent) eventName() string { return "created" }
func (EditedEvent) eventName() string  { return "edited" }
func (DeletedEvent) eventName() string { return "deleted" }
