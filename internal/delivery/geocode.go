package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

// Geocoder resolves coordinates for an address missing them
type Geocoder struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewGeocoder(baseURL, apiKey string, logger *zap.Logger) *Geocoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Geocoder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode returns the first match for a free-form address.
func (g *Geocoder) Geocode(ctx context.Context, address string) (lat, lng float64, err error) {
	if g.baseURL == "" {
		return 0, 0, fmt.Errorf("geocoder not configured")
	}
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return 0, 0, err
	}
	q := u.Query()
	q.Set("address", address)
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, &apperrors.ErrExternal{System: "geocode", Status: resp.StatusCode, Body: string(body)}
	}

	var out geocodeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, 0, &apperrors.ErrExternal{System: "geocode", Status: resp.StatusCode, Body: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if len(out.Results) == 0 {
		g.logger.Warn("Geocode returned no results", zap.String("status", out.Status))
		return 0, 0, fmt.Errorf("no geocode results for address (status %s)", out.Status)
	}
	loc := out.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
