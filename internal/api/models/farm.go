package models

import "github.com/cropsight/cropsight/pkg/geometry"

// Farm represents a farm in API responses.
type Farm struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Boundary     geometry.Boundary `json:"boundary"`
	AreaHectares *float64          `json:"area_hectares,omitempty"`
	CreatedAt    Timestamp         `json:"created_at"`
	LastAnalyzed *Timestamp        `json:"last_analyzed,omitempty"`
}

// FarmList is the response for listing a farmer's farms.
type FarmList struct {
	Farms []Farm `json:"farms"`
	Count int    `json:"count"`
}

// FarmCreateRequest is the request body for creating a farm from a
// complete GeoJSON boundary.
type FarmCreateRequest struct {
	Name         string            `json:"name"`
	Boundary     geometry.Boundary `json:"boundary"`
	AreaHectares *float64          `json:"area_hectares,omitempty"`
}

// FarmUpdateRequest is the request body for partially updating a farm.
type FarmUpdateRequest struct {
	Name         *string            `json:"name,omitempty"`
	Boundary     *geometry.Boundary `json:"boundary,omitempty"`
	AreaHectares *float64           `json:"area_hectares,omitempty"`
}

// CoordinateListRequest is the request body for creating a farm from a
// raw coordinate list. The ring is open; the server closes it.
type CoordinateListRequest struct {
	Coordinates geometry.Ring `json:"coordinates"`
}
