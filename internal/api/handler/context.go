package handler

import (
	"context"

	"github.com/cropsight/cropsight/internal/api/middleware"
)

// GetFarmerID retrieves the authenticated farmer ID from the context.
// This is a convenience wrapper around middleware.GetFarmerID.
func GetFarmerID(ctx context.Context) string {
	return middleware.GetFarmerID(ctx)
}
