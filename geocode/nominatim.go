package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// NominatimOptions contains configuration options for the Nominatim adapter.
type NominatimOptions struct {
	// BaseURL is the reverse endpoint, e.g.
	// "https://nominatim.openstreetmap.org/reverse".
	BaseURL string

	// UserAgent identifies the application. Nominatim's usage policy
	// requires a meaningful value.
	UserAgent string

	// RequestsPerSecond caps the request rate. Nominatim's public
	// instance allows at most 1 request per second.
	RequestsPerSecond float64

	// HTTPClient overrides the default client (10s timeout).
	HTTPClient *http.Client

	// BreakerFailureThreshold is the number of consecutive failures that
	// opens the circuit breaker.
	BreakerFailureThreshold uint32

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// DefaultNominatimOptions contains the default configuration options for the
// Nominatim adapter.
var DefaultNominatimOptions = NominatimOptions{
	BaseURL:                 "https://nominatim.openstreetmap.org/reverse",
	UserAgent:               "GeoGenie/1.0",
	RequestsPerSecond:       1,
	BreakerFailureThreshold: 5,
	BreakerTimeout:          30 * time.Second,
}

// Nominatim is a reverse-geocoding adapter backed by the OpenStreetMap
// Nominatim API. Requests are rate limited and wrapped in a circuit
// breaker so a degraded upstream degrades to fast ErrAdapterUnavailable
// failures instead of piling up blocked requests.
type Nominatim struct {
	opts    NominatimOptions
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
}

// Compile-time check to ensure Nominatim satisfies the Adapter interface.
var _ Adapter = (*Nominatim)(nil)

// NewNominatim creates a new Nominatim adapter.
func NewNominatim(optFns ...func(o *NominatimOptions)) *Nominatim {
	opts := DefaultNominatimOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	threshold := opts.BreakerFailureThreshold
	if threshold == 0 {
		threshold = DefaultNominatimOptions.BreakerFailureThreshold
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "nominatim",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultNominatimOptions.RequestsPerSecond
	}

	return &Nominatim{
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: breaker,
	}
}

// nominatimResponse is the subset of the reverse endpoint's JSON payload the
// adapter cares about.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Tourism    string `json:"tourism"`
		Historic   string `json:"historic"`
		Attraction string `json:"attraction"`
		Name       string `json:"name"`
		Building   string `json:"building"`
	} `json:"address"`
}

// placeName picks the most landmark-specific field available, falling back
// to the first component of the display name.
func (r *nominatimResponse) placeName() string {
	for _, candidate := range []string{
		r.Address.Tourism,
		r.Address.Historic,
		r.Address.Attraction,
		r.Address.Name,
		r.Address.Building,
	} {
		if candidate != "" {
			return candidate
		}
	}

	for i := 0; i < len(r.DisplayName); i++ {
		if r.DisplayName[i] == ',' {
			return r.DisplayName[:i]
		}
	}
	return r.DisplayName
}

// ReverseGeocode resolves coordinates to a place name via Nominatim.
func (n *Nominatim) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
	}

	name, err := n.breaker.Execute(func() (string, error) {
		return n.doRequest(ctx, lat, lng)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
	}
	return name, nil
}

func (n *Nominatim) doRequest(ctx context.Context, lat, lng float64) (string, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	query.Set("format", "json")
	query.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.opts.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", n.opts.UserAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nominatim: unexpected status %d", resp.StatusCode)
	}

	var payload nominatimResponse
	if err := gojson.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("nominatim: decode response: %w", err)
	}

	return payload.placeName(), nil
}
