package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

var (
	ErrNoAPIKey       = errors.New("geocoder: Google Maps API key not configured")
	ErrAddressUnknown = errors.New("geocoder: address not found")
)

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// Geocoder resolves free-form addresses through the Google Geocoding API.
type Geocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeocoder(apiKey string) *Geocoder {
	return &Geocoder{
		apiKey:  apiKey,
		baseURL: googleGeocodeURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the geocoder at another endpoint.
func (g *Geocoder) WithBaseURL(u string) *Geocoder {
	g.baseURL = u
	return g
}

// Geocode returns the first match for address and its normalised form.
func (g *Geocoder) Geocode(ctx context.Context, address string) (Point, string, error) {
	if g.apiKey == "" {
		return Point{}, "", ErrNoAPIKey
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Point{}, "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Point{}, "", fmt.Errorf("failed to call Google Geocoding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, "", fmt.Errorf("google Geocoding API returned status: %s", resp.Status)
	}

	var result geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Point{}, "", fmt.Errorf("failed to parse Google Geocoding API response: %w", err)
	}

	switch result.Status {
	case "OK":
	case "ZERO_RESULTS":
		return Point{}, "", ErrAddressUnknown
	default:
		return Point{}, "", fmt.Errorf("error from Google Geocoding API: %s %s", result.Status, result.ErrorMessage)
	}
	if len(result.Results) == 0 {
		return Point{}, "", ErrAddressUnknown
	}

	first := result.Results[0]
	p := Point{Lat: first.Geometry.Location.Lat, Lng: first.Geometry.Location.Lng}
	if !p.Valid() {
		return Point{}, "", ErrAddressUnknown
	}
	return p, first.FormattedAddress, nil
}
