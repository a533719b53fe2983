// Package geocode resolves map positions to street addresses.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// ErrNoResult is returned when the service has no address for a position.
var ErrNoResult = errors.New("no address found")

// Address is a reverse-geocoding result.
type Address struct {
	Formatted string         `json:"formatted"`
	Road      string         `json:"road,omitempty"`
	House     string         `json:"house,omitempty"`
	City      string         `json:"city,omitempty"`
	Postcode  string         `json:"postcode,omitempty"`
	Country   string         `json:"country,omitempty"`
	Position  types.Position `json:"position"`
}

// Reverser looks up the address of a position.
type Reverser interface {
	Reverse(ctx context.Context, pos types.Position) (*Address, error)
}

// Nominatim is a Reverser backed by an OpenStreetMap Nominatim server.
// Requests are rate limited to honour the public usage policy.
type Nominatim struct {
	baseURL    string
	userAgent  string
	language   string
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewNominatim returns a client from cfg. It returns nil, nil when no URL
// is configured.
func NewNominatim(cfg types.GeocoderConfig) (*Nominatim, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", types.ErrGeocoderURLInvalid, cfg.URL)
	}
	return &Nominatim{
		baseURL:   strings.TrimSuffix(cfg.URL, "/"),
		userAgent: cfg.GetUserAgent(),
		language:  "ru",
		limiter:   rate.NewLimiter(rate.Limit(cfg.GetRequestsPerSecond()), 1),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error"`
	Address     struct {
		Road        string `json:"road"`
		HouseNumber string `json:"house_number"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Postcode    string `json:"postcode"`
		Country     string `json:"country"`
	} `json:"address"`
}

// Reverse returns the address nearest to pos.
func (n *Nominatim) Reverse(ctx context.Context, pos types.Position) (*Address, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(pos.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(pos.Lng, 'f', -1, 64))
	q.Set("accept-language", n.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned HTTP %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if body.Error != "" || body.DisplayName == "" {
		return nil, ErrNoResult
	}

	out := &Address{
		Formatted: body.DisplayName,
		Road:      body.Address.Road,
		House:     body.Address.HouseNumber,
		City:      firstNonEmpty(body.Address.City, body.Address.Town, body.Address.Village),
		Postcode:  body.Address.Postcode,
		Country:   body.Address.Country,
		Position:  pos,
	}
	if lat, err := strconv.ParseFloat(body.Lat, 64); err == nil {
		if lng, err := strconv.ParseFloat(body.Lon, 64); err == nil {
			out.Position = types.Position{Lat: lat, Lng: lng}
		}
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
