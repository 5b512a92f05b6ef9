package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cropsight/cropsight/internal/api/models"
	"github.com/cropsight/cropsight/internal/api/response"
	"github.com/cropsight/cropsight/internal/farm"
)

// FarmHandler handles farm endpoints.
type FarmHandler struct {
	farmService *farm.Service
}

// NewFarmHandler creates a new FarmHandler.
func NewFarmHandler(farmService *farm.Service) *FarmHandler {
	return &FarmHandler{
		farmService: farmService,
	}
}

// ListFarms handles GET /v1/farms - list the caller's farms.
func (h *FarmHandler) ListFarms(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())

	list, err := h.farmService.List(r.Context(), farmerID)
	if err != nil {
		response.InternalError(w, r, "failed to list farms")
		return
	}

	response.JSON(w, r, http.StatusOK, list)
}

// CreateFarm handles POST /v1/farms - create a farm from a GeoJSON boundary.
func (h *FarmHandler) CreateFarm(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())

	var input models.FarmCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	created, err := h.farmService.Create(r.Context(), farmerID, &input)
	if err != nil {
		h.writeError(w, r, err, "failed to create farm")
		return
	}

	location := fmt.Sprintf("/v1/farms/%s", created.ID)
	response.Created(w, r, location, created)
}

// CreateFarmFromCoordinates handles POST /v1/farms/from-coordinates - create
// a farm from an open coordinate list, as produced by manual entry.
func (h *FarmHandler) CreateFarmFromCoordinates(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())
	name := r.URL.Query().Get("farm_name")

	var areaHectares *float64
	if raw := r.URL.Query().Get("area_hectares"); raw != "" {
		area, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.BadRequest(w, r, "area_hectares must be a number", nil)
			return
		}
		areaHectares = &area
	}

	var input models.CoordinateListRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	created, err := h.farmService.CreateFromCoordinates(r.Context(), farmerID, name, input.Coordinates, areaHectares)
	if err != nil {
		h.writeError(w, r, err, "failed to create farm")
		return
	}

	location := fmt.Sprintf("/v1/farms/%s", created.ID)
	response.Created(w, r, location, created)
}

// GetFarm handles GET /v1/farms/{farmId} - get a single farm.
func (h *FarmHandler) GetFarm(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())
	farmID := chi.URLParam(r, "farmId")
	if farmID == "" {
		response.BadRequest(w, r, "farmId is required", nil)
		return
	}

	found, err := h.farmService.Get(r.Context(), farmerID, farmID)
	if err != nil {
		h.writeError(w, r, err, "failed to get farm")
		return
	}

	response.JSON(w, r, http.StatusOK, found)
}

// UpdateFarm handles PUT /v1/farms/{farmId} - partial update of a farm.
func (h *FarmHandler) UpdateFarm(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())
	farmID := chi.URLParam(r, "farmId")
	if farmID == "" {
		response.BadRequest(w, r, "farmId is required", nil)
		return
	}

	var input models.FarmUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	updated, err := h.farmService.Update(r.Context(), farmerID, farmID, &input)
	if err != nil {
		h.writeError(w, r, err, "failed to update farm")
		return
	}

	response.JSON(w, r, http.StatusOK, updated)
}

// DeleteFarm handles DELETE /v1/farms/{farmId} - delete a farm and its analytics.
func (h *FarmHandler) DeleteFarm(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())
	farmID := chi.URLParam(r, "farmId")
	if farmID == "" {
		response.BadRequest(w, r, "farmId is required", nil)
		return
	}

	if err := h.farmService.Delete(r.Context(), farmerID, farmID); err != nil {
		h.writeError(w, r, err, "failed to delete farm")
		return
	}

	response.NoContent(w, r)
}

// writeError maps farm service errors to API responses.
func (h *FarmHandler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var valErr *farm.ValidationError
	switch {
	case errors.As(err, &valErr):
		response.BadRequest(w, r, "validation error", valErr.Errors)
	case errors.Is(err, farm.ErrFarmNotFound):
		response.NotFound(w, r, "Farm not found")
	case errors.Is(err, farm.ErrNotAuthorized):
		response.NotFound(w, r, "Farm not found")
	default:
		response.InternalError(w, r, fallback)
	}
}
