package analytics

import (
	"fmt"
	"math"
	"strings"
)

// ClassifyNDVI maps a mean NDVI value onto the vegetation category scale
// used across the product. Thresholds at 0, 0.2, 0.4 and 0.6.
func ClassifyNDVI(value float64) Classification {
	switch {
	case value < 0:
		return Classification{
			Category:    "Water/Bare Soil",
			Color:       "#8B4513",
			Health:      "N/A",
			Description: "Non-vegetated area",
		}
	case value < 0.2:
		return Classification{
			Category:    "Sparse Vegetation",
			Color:       "#FFD700",
			Health:      "Poor",
			Description: "Very low vegetation density",
		}
	case value < 0.4:
		return Classification{
			Category:    "Moderate Vegetation",
			Color:       "#ADFF2F",
			Health:      "Fair",
			Description: "Moderate vegetation health",
		}
	case value < 0.6:
		return Classification{
			Category:    "Healthy Vegetation",
			Color:       "#32CD32",
			Health:      "Good",
			Description: "Good vegetation health",
		}
	default:
		return Classification{
			Category:    "Very Healthy Vegetation",
			Color:       "#006400",
			Health:      "Excellent",
			Description: "Excellent vegetation health",
		}
	}
}

// ClassifyNDMI maps a mean NDMI value onto the moisture category scale.
// Thresholds at -0.2, 0, 0.2 and 0.4.
func ClassifyNDMI(value float64) Classification {
	switch {
	case value < -0.2:
		return Classification{
			Category:    "Very Dry",
			Color:       "#8B0000",
			Moisture:    "Critical",
			Description: "Severe water stress",
		}
	case value < 0:
		return Classification{
			Category:    "Dry",
			Color:       "#FF4500",
			Moisture:    "Low",
			Description: "Water stress present",
		}
	case value < 0.2:
		return Classification{
			Category:    "Moderate Moisture",
			Color:       "#FFD700",
			Moisture:    "Moderate",
			Description: "Adequate moisture",
		}
	case value < 0.4:
		return Classification{
			Category:    "Moist",
			Color:       "#00CED1",
			Moisture:    "Good",
			Description: "Good moisture content",
		}
	default:
		return Classification{
			Category:    "Very Moist",
			Color:       "#0000CD",
			Moisture:    "High",
			Description: "High moisture content",
		}
	}
}

// EstimateSoilMoisture converts NDMI to an estimated soil moisture
// percentage via a piecewise linear relationship. Dedicated soil moisture
// products would replace this for anything beyond trend display.
func EstimateSoilMoisture(ndmi float64) SoilMoisture {
	var pct float64
	var category string
	switch {
	case ndmi < -0.5:
		pct = 10
		category = "Very Dry"
	case ndmi < 0:
		pct = 20 + (ndmi+0.5)*40
		category = "Dry"
	case ndmi < 0.3:
		pct = 40 + ndmi*66.67
		category = "Moderate"
	case ndmi < 0.5:
		pct = 60 + (ndmi-0.3)*100
		category = "Moist"
	default:
		pct = 80 + (ndmi-0.5)*40
		category = "Very Moist"
	}
	return SoilMoisture{
		Percentage: round2(pct),
		Category:   category,
		Confidence: "estimated",
	}
}

// RecommendIrrigation derives an irrigation recommendation from mean NDMI
// and NDVI.
func RecommendIrrigation(ndmi, ndvi float64) Irrigation {
	switch {
	case ndmi < 0 && ndvi < 0.4:
		return Irrigation{
			Recommendation: "Immediate irrigation required",
			Priority:       "High",
			Action:         "Irrigate within 24 hours",
			Reason:         "Low moisture and vegetation stress detected",
		}
	case ndmi < 0.1 && ndvi >= 0.4:
		return Irrigation{
			Recommendation: "Schedule irrigation soon",
			Priority:       "Medium",
			Action:         "Irrigate within 2-3 days",
			Reason:         "Moisture levels declining",
		}
	case ndmi >= 0.2 && ndvi >= 0.4:
		return Irrigation{
			Recommendation: "No irrigation needed",
			Priority:       "Low",
			Action:         "Monitor regularly",
			Reason:         "Adequate moisture and healthy vegetation",
		}
	case ndmi >= 0.2 && ndvi < 0.4:
		return Irrigation{
			Recommendation: "Check for other issues",
			Priority:       "Medium",
			Action:         "Inspect for pests or disease",
			Reason:         "Good moisture but poor vegetation health",
		}
	default:
		return Irrigation{
			Recommendation: "Maintain current irrigation",
			Priority:       "Low",
			Action:         "Continue monitoring",
			Reason:         "Conditions are stable",
		}
	}
}

// ScoreOverallHealth combines mean NDVI (70%) and NDMI (30%) into a single
// 0-100 health score with status bands at 20, 40, 60 and 80.
func ScoreOverallHealth(ndvi, ndmi float64) OverallHealth {
	score := (ndvi*0.7 + ndmi*0.3) * 100

	var status, color string
	switch {
	case score < 20:
		status, color = "Critical", "#DC143C"
	case score < 40:
		status, color = "Poor", "#FF8C00"
	case score < 60:
		status, color = "Fair", "#FFD700"
	case score < 80:
		status, color = "Good", "#32CD32"
	default:
		status, color = "Excellent", "#006400"
	}

	return OverallHealth{
		Score:       round2(score),
		Status:      status,
		Color:       color,
		Description: fmt.Sprintf("Farm health is %s based on vegetation and moisture indices", strings.ToLower(status)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
