package farm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/internal/api/models"
	"github.com/cropsight/cropsight/pkg/geometry"
)

// Service errors.
var (
	ErrNotAuthorized = errors.New("not authorized to access this farm")
)

// Validation constants.
const (
	MaxNameLength = 120
)

// AnalyticsPurger removes stored analytics when a farm is deleted.
type AnalyticsPurger interface {
	DeleteByFarm(ctx context.Context, farmID string) error
}

// ServiceConfig configures a farm Service.
type ServiceConfig struct {
	Repository Repository

	// Analytics is notified on farm deletion so stored snapshots don't
	// outlive the farm. Optional.
	Analytics AnalyticsPurger

	Logger zerolog.Logger
}

// Service provides farm operations.
type Service struct {
	repo      Repository
	analytics AnalyticsPurger
	logger    zerolog.Logger
}

// NewService creates a new farm service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repository,
		analytics: cfg.Analytics,
		logger:    cfg.Logger,
	}
}

// List retrieves all farms for a farmer in creation order.
func (s *Service) List(ctx context.Context, farmerID string) (*models.FarmList, error) {
	farms, err := s.repo.List(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	items := make([]models.Farm, 0, len(farms))
	for _, f := range farms {
		items = append(items, s.toAPIFarm(f))
	}

	return &models.FarmList{Farms: items, Count: len(items)}, nil
}

// Get retrieves a farm by ID for a farmer.
func (s *Service) Get(ctx context.Context, farmerID, farmID string) (*models.Farm, error) {
	farm, err := s.repo.GetByFarmerAndID(ctx, farmerID, farmID)
	if err != nil {
		return nil, err
	}

	result := s.toAPIFarm(farm)
	return &result, nil
}

// Create creates a new farm from a complete GeoJSON boundary.
func (s *Service) Create(ctx context.Context, farmerID string, input *models.FarmCreateRequest) (*models.Farm, error) {
	if fieldErrors := s.validateCreateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	farm := s.newFarm(farmerID, input.Name, input.Boundary, input.AreaHectares)
	if err := s.repo.Create(ctx, farm); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("farm_id", farm.ID).
		Str("farmer_id", farmerID).
		Msg("farm created")

	result := s.toAPIFarm(farm)
	return &result, nil
}

// CreateFromCoordinates creates a farm from an open coordinate list, as
// produced by the manual entry path. The ring is closed server-side before
// validation.
func (s *Service) CreateFromCoordinates(ctx context.Context, farmerID, name string, coordinates geometry.Ring, areaHectares *float64) (*models.Farm, error) {
	var errs []models.FieldError
	if strings.TrimSpace(name) == "" {
		errs = append(errs, models.FieldError{Field: "farm_name", Message: "is required"})
	}
	if len(coordinates) < 3 {
		errs = append(errs, models.FieldError{Field: "coordinates", Message: "at least 3 coordinates are required to form a polygon"})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	boundary := geometry.Boundary{
		Type:        geometry.PolygonType,
		Coordinates: []geometry.Ring{coordinates.Close()},
	}
	if err := geometry.Validate(&boundary); err != nil {
		return nil, &ValidationError{Errors: []models.FieldError{
			{Field: "coordinates", Message: err.Error()},
		}}
	}

	farm := s.newFarm(farmerID, name, boundary, areaHectares)
	if err := s.repo.Create(ctx, farm); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("farm_id", farm.ID).
		Str("farmer_id", farmerID).
		Int("coordinates", len(coordinates)).
		Msg("farm created from coordinates")

	result := s.toAPIFarm(farm)
	return &result, nil
}

// Update applies a partial update to a farm. A replaced boundary is
// revalidated and, when no explicit area accompanies it, the stored area
// is recomputed.
func (s *Service) Update(ctx context.Context, farmerID, farmID string, input *models.FarmUpdateRequest) (*models.Farm, error) {
	farm, err := s.repo.GetByFarmerAndID(ctx, farmerID, farmID)
	if err != nil {
		return nil, err
	}

	if fieldErrors := s.validateUpdateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	if input.Name != nil {
		farm.Name = *input.Name
	}
	if input.Boundary != nil {
		farm.Boundary = *input.Boundary
		if input.AreaHectares == nil {
			area := geometry.EstimateHectares(farm.Boundary.Outer())
			farm.AreaHectares = &area
		}
	}
	if input.AreaHectares != nil {
		farm.AreaHectares = input.AreaHectares
	}
	farm.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, farm); err != nil {
		return nil, err
	}

	result := s.toAPIFarm(farm)
	return &result, nil
}

// Delete deletes a farm and its stored analytics.
func (s *Service) Delete(ctx context.Context, farmerID, farmID string) error {
	// Verify ownership
	if _, err := s.repo.GetByFarmerAndID(ctx, farmerID, farmID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, farmID); err != nil {
		return err
	}

	if s.analytics != nil {
		if err := s.analytics.DeleteByFarm(ctx, farmID); err != nil {
			s.logger.Error().
				Err(err).
				Str("farm_id", farmID).
				Msg("failed to purge analytics for deleted farm")
		}
	}

	s.logger.Info().
		Str("farm_id", farmID).
		Str("farmer_id", farmerID).
		Msg("farm deleted")

	return nil
}

// FarmBoundary returns the boundary of a farmer's farm. Used by the
// analytics service to derive the analysis bounding box.
func (s *Service) FarmBoundary(ctx context.Context, farmerID, farmID string) (*geometry.Boundary, error) {
	farm, err := s.repo.GetByFarmerAndID(ctx, farmerID, farmID)
	if err != nil {
		return nil, err
	}
	return &farm.Boundary, nil
}

// MarkAnalyzed records the time of the farm's latest analysis.
func (s *Service) MarkAnalyzed(ctx context.Context, farmID string, analyzedAt time.Time) error {
	return s.repo.SetLastAnalyzed(ctx, farmID, analyzedAt)
}

func (s *Service) newFarm(farmerID, name string, boundary geometry.Boundary, areaHectares *float64) *Farm {
	if areaHectares == nil {
		area := geometry.EstimateHectares(boundary.Outer())
		areaHectares = &area
	}

	now := time.Now()
	return &Farm{
		ID:           "frm_" + uuid.New().String()[:22],
		FarmerID:     farmerID,
		Name:         name,
		Boundary:     boundary,
		AreaHectares: areaHectares,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// validateCreateInput validates the create farm input.
func (s *Service) validateCreateInput(input *models.FarmCreateRequest) []models.FieldError {
	var errs []models.FieldError

	if strings.TrimSpace(input.Name) == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "is required"})
	} else if len(input.Name) > MaxNameLength {
		errs = append(errs, models.FieldError{Field: "name", Message: "must be at most 120 characters"})
	}

	if err := geometry.Validate(&input.Boundary); err != nil {
		errs = append(errs, models.FieldError{Field: "boundary", Message: err.Error()})
	}

	if input.AreaHectares != nil && *input.AreaHectares <= 0 {
		errs = append(errs, models.FieldError{Field: "area_hectares", Message: "must be greater than 0"})
	}

	return errs
}

// validateUpdateInput validates the update farm input.
func (s *Service) validateUpdateInput(input *models.FarmUpdateRequest) []models.FieldError {
	var errs []models.FieldError

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			errs = append(errs, models.FieldError{Field: "name", Message: "cannot be empty"})
		} else if len(*input.Name) > MaxNameLength {
			errs = append(errs, models.FieldError{Field: "name", Message: "must be at most 120 characters"})
		}
	}

	if input.Boundary != nil {
		if err := geometry.Validate(input.Boundary); err != nil {
			errs = append(errs, models.FieldError{Field: "boundary", Message: err.Error()})
		}
	}

	if input.AreaHectares != nil && *input.AreaHectares <= 0 {
		errs = append(errs, models.FieldError{Field: "area_hectares", Message: "must be greater than 0"})
	}

	return errs
}

// toAPIFarm converts a domain Farm to an API Farm.
func (s *Service) toAPIFarm(f *Farm) models.Farm {
	apiFarm := models.Farm{
		ID:           f.ID,
		Name:         f.Name,
		Boundary:     f.Boundary,
		AreaHectares: f.AreaHectares,
		CreatedAt:    models.Timestamp(f.CreatedAt),
	}
	if f.LastAnalyzedAt != nil {
		ts := models.Timestamp(*f.LastAnalyzedAt)
		apiFarm.LastAnalyzed = &ts
	}
	return apiFarm
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
