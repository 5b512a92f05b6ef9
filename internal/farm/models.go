// Package farm provides farm management services.
package farm

import (
	"errors"
	"time"

	"github.com/cropsight/cropsight/pkg/geometry"
)

// Repository errors.
var (
	ErrFarmNotFound = errors.New("farm not found")
)

// Farm represents a registered farm with its field boundary.
type Farm struct {
	ID             string
	FarmerID       string
	Name           string
	Boundary       geometry.Boundary
	AreaHectares   *float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAnalyzedAt *time.Time
}
