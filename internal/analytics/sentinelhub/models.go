package sentinelhub

import (
	"github.com/cropsight/cropsight/internal/analytics"
)

// tokenResponse is the OAuth client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Statistical API request payloads.

type statsRequest struct {
	Input       statsInput       `json:"input"`
	Aggregation statsAggregation `json:"aggregation"`
}

type statsInput struct {
	Bounds statsBounds `json:"bounds"`
	Data   []statsData `json:"data"`
}

type statsBounds struct {
	BBox [4]float64 `json:"bbox"`
}

type statsData struct {
	Type       string          `json:"type"`
	DataFilter statsDataFilter `json:"dataFilter"`
}

type statsDataFilter struct {
	MaxCloudCoverage float64 `json:"maxCloudCoverage"`
}

type statsAggregation struct {
	TimeRange  statsTimeRange `json:"timeRange"`
	Interval   statsInterval  `json:"aggregationInterval"`
	Evalscript string         `json:"evalscript"`
}

type statsTimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type statsInterval struct {
	Of string `json:"of"`
}

// Statistical API response payloads.

type statsResponse struct {
	Data []statsIntervalResult `json:"data"`
}

type statsIntervalResult struct {
	Interval struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"interval"`
	Outputs map[string]statsOutput `json:"outputs"`
}

type statsOutput struct {
	Bands map[string]statsBand `json:"bands"`
}

type statsBand struct {
	Stats bandStats `json:"stats"`
}

type bandStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StDev  float64 `json:"stDev"`
	Sample int     `json:"sampleCount"`
}

type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r statsIntervalResult) indexStats(output string) (analytics.IndexStats, bool) {
	out, ok := r.Outputs[output]
	if !ok {
		return analytics.IndexStats{}, false
	}
	band, ok := out.Bands["B0"]
	if !ok {
		return analytics.IndexStats{}, false
	}
	return analytics.IndexStats{
		Mean:   band.Stats.Mean,
		Min:    band.Stats.Min,
		Max:    band.Stats.Max,
		StdDev: band.Stats.StDev,
	}, true
}
