package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"cphhousing/internal/models"
)

const DefaultBaseURL = "https://api.dataforsyningen.dk"

// HTTPClient matches net/http.Client Do signature for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache remembers geocode results between runs.
type Cache interface {
	Lookup(query string) (models.GeocodeResult, bool, error)
	Store(query string, result models.GeocodeResult) error
}

// Options configures a Geocoder. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RetryDelay time.Duration
	Client     HTTPClient
	Cache      Cache
}

// Geocoder resolves free text addresses against the DAWA address washing
// service.
type Geocoder struct {
	logger     *logrus.Logger
	baseURL    string
	userAgent  string
	retryDelay time.Duration
	client     HTTPClient
	cache      Cache
}

func NewGeocoder(logger *logrus.Logger, opts Options) *Geocoder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}

	return &Geocoder{
		logger:     logger,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		retryDelay: opts.RetryDelay,
		client:     opts.Client,
		cache:      opts.Cache,
	}
}

type washResponse struct {
	Category *string `json:"kategori"`
	Results  []struct {
		Address *washAddress `json:"adresse"`
	} `json:"resultater"`
}

type washAddress struct {
	Street      *string `json:"vejnavn"`
	HouseNumber *string `json:"husnr"`
	Locality    *string `json:"supplerendebynavn"`
	PostalCode  *string `json:"postnr"`
	PostalName  *string `json:"postnrnavn"`
	Href        string  `json:"href"`
}

type accessAddressResponse struct {
	AccessPoint *struct {
		Coordinates []float64 `json:"koordinater"`
	} `json:"adgangspunkt"`
}

// Geocode matches text against the washing service. Every failure collapses
// into the zero GeocodeResult. When the coordinate lookup fails the address
// and confidence are still returned, without coordinates.
func (g *Geocoder) Geocode(ctx context.Context, text string) models.GeocodeResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.GeocodeResult{}
	}

	if g.cache != nil {
		cached, ok, err := g.cache.Lookup(text)
		if err != nil {
			g.logger.WithError(err).WithField("address", text).Warn("Geocode cache lookup failed")
		} else if ok {
			g.logger.WithFields(logrus.Fields{
				"address": text,
				"match":   cached.Address,
				"source":  "cache",
			}).Info("Found geocode in cache")
			return cached
		}
	}

	g.logger.WithField("address", text).Info("Geocoding address with DAWA")

	searchURL := g.baseURL + "/datavask/adgangsadresser?" + url.Values{"betegnelse": []string{text}}.Encode()
	var wash washResponse
	if err := g.getJSON(ctx, searchURL, &wash); err != nil {
		g.logger.WithError(err).WithField("address", text).Error("Address washing request failed")
		return models.GeocodeResult{}
	}

	if wash.Category == nil || len(wash.Results) == 0 || wash.Results[0].Address == nil {
		g.logger.WithField("address", text).Warn("No results found")
		return models.GeocodeResult{}
	}

	best := wash.Results[0].Address
	result := models.GeocodeResult{
		Address:    best.displayName(),
		Confidence: *wash.Category,
	}

	if lng, lat, ok := g.coordinates(ctx, best.Href); ok {
		result.Longitude = &lng
		result.Latitude = &lat
	}

	g.logger.WithFields(logrus.Fields{
		"address":    text,
		"match":      result.Address,
		"confidence": result.Confidence,
		"latitude":   result.Latitude,
		"longitude":  result.Longitude,
		"source":     "dawa",
	}).Info("Geocoded address")

	if g.cache != nil && result.HasCoordinates() {
		if err := g.cache.Store(text, result); err != nil {
			g.logger.WithError(err).WithField("address", text).Warn("Failed to cache geocode")
		}
	}

	return result
}

// coordinates follows the access address link to its access point.
func (g *Geocoder) coordinates(ctx context.Context, href string) (float64, float64, bool) {
	if href == "" {
		return 0, 0, false
	}

	var detail accessAddressResponse
	if err := g.getJSON(ctx, href, &detail); err != nil {
		g.logger.WithError(err).WithField("href", href).Error("Access address request failed")
		return 0, 0, false
	}
	if detail.AccessPoint == nil || len(detail.AccessPoint.Coordinates) < 2 {
		g.logger.WithField("href", href).Warn("Access address has no coordinates")
		return 0, 0, false
	}
	return detail.AccessPoint.Coordinates[0], detail.AccessPoint.Coordinates[1], true
}

// displayName joins the address components, skipping absent ones:
// "Kongens Nytorv 1 ,1050 København K".
func (a *washAddress) displayName() string {
	comma := ","
	var b strings.Builder
	for _, part := range []*string{a.Street, a.HouseNumber, a.Locality, &comma, a.PostalCode, a.PostalName} {
		if part == &comma {
			b.WriteString(comma)
			continue
		}
		if part == nil {
			continue
		}
		b.WriteString(*part)
		b.WriteString(" ")
	}
	return strings.TrimSuffix(b.String(), " ")
}

// getJSON fetches rawURL and decodes it into out, retrying once after the
// retry delay on transport errors, 429 and 5xx responses.
func (g *Geocoder) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			g.logger.WithField("url", rawURL).Warn("Retrying DAWA request")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", g.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("upstream returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("upstream returned status %d", resp.StatusCode))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(g.retryDelay), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}
		return err
	}
	return nil
}
