package audit

import (
	"context"
	"encoding/json"
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

const (
	LocalNetwork    = "Local Network"
	UnknownLocation = "Unknown Location"
)

// DefaultGeoURL is the ip-api.com JSON endpoint. The address is appended to it.
const DefaultGeoURL = "http://ip-api.com/json/"

var errLookupFailed = errors.NewSentinel("geolocation lookup failed")

// LocatorConfig configures the geolocation lookup.
type LocatorConfig struct {
	// Enabled turns remote lookups on. Local addresses are classified regardless.
	Enabled bool
	// BaseURL is the lookup endpoint, the address is appended as the last path segment.
	BaseURL string
	// Timeout bounds one lookup.
	Timeout time.Duration
	// RatePerMinute limits outgoing lookups. ip-api.com allows 45 per minute on the free tier.
	RatePerMinute int
}

// Locator turns client addresses into human-readable location labels. It never fails: any problem results in
// [UnknownLocation].
type Locator struct {
	cfg     LocatorConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewLocator creates a Locator. Zero values in cfg are replaced with defaults.
func NewLocator(cfg LocatorConfig, logger *slog.Logger) *Locator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second //nolint:mnd // generous for a small JSON response
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 45
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{ //nolint:exhaustruct // defaults are fine
		Name:        "geolocation",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second, //nolint:mnd // retry the service after half a minute
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3 //nolint:mnd // a short burst of failures opens the breaker
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("name", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})
	return &Locator{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout}, //nolint:exhaustruct // defaults are fine
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute),
		logger:  logger,
	}
}

// Locate resolves the location label for ip.
func (l *Locator) Locate(ctx context.Context, ip string) string {
	if ip == "" || ip == UnknownIP {
		return UnknownLocation
	}
	if ip == "localhost" {
		return LocalNetwork
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return UnknownLocation
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return LocalNetwork
	}
	if !l.cfg.Enabled {
		return UnknownLocation
	}
	if !l.limiter.Allow() {
		l.logger.LogAttrs(ctx, slog.LevelDebug, "geolocation rate limited", slog.String("ip", ip))
		return UnknownLocation
	}

	label, err := l.breaker.Execute(func() (interface{}, error) {
		return l.lookup(ctx, addr.String())
	})
	if err != nil {
		l.logger.LogAttrs(ctx, slog.LevelDebug, "geolocation unavailable", errors.SlogError(err))
		return UnknownLocation
	}
	return label.(string) //nolint:forcetypeassert // lookup returns a string
}

type geoResponse struct {
	Status     string `json:"status"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

func (l *Locator) lookup(ctx context.Context, ip string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.BaseURL+url.PathEscape(ip), nil)
	if err != nil {
		return "", errors.Wrap(err, "create geolocation request")
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "do geolocation request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrap(errLookupFailed, "unexpected status", slog.Int("status", resp.StatusCode))
	}
	var geo geoResponse
	if err = json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return "", errors.Wrap(err, "decode geolocation response")
	}
	if geo.Status != "success" {
		// The service answered, so this does not count against the breaker.
		return UnknownLocation, nil
	}
	label := strings.Trim(strings.Join([]string{geo.City, geo.RegionName, geo.Country}, ", "), ", ")
	if label == "" {
		return UnknownLocation, nil
	}
	return label, nil
}
