package geocoding

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cphhousing/internal/models"
)

// MockCache is a mock implementation of the Cache interface
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Lookup(query string) (models.GeocodeResult, bool, error) {
	args := m.Called(query)
	return args.Get(0).(models.GeocodeResult), args.Bool(1), args.Error(2)
}

func (m *MockCache) Store(query string, result models.GeocodeResult) error {
	args := m.Called(query, result)
	return args.Error(0)
}

type stubDAWA struct {
	server      *httptest.Server
	washCalls   atomic.Int32
	detailCalls atomic.Int32

	washStatus   []int
	washBody     string
	detailStatus []int
	detailBody   string
}

func newStubDAWA(t *testing.T) *stubDAWA {
	s := &stubDAWA{
		detailBody: `{"adgangspunkt": {"koordinater": [12.5857, 55.6802]}}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/datavask/adgangsadresser", func(w http.ResponseWriter, r *http.Request) {
		n := int(s.washCalls.Add(1))
		if n <= len(s.washStatus) && s.washStatus[n-1] != http.StatusOK {
			w.WriteHeader(s.washStatus[n-1])
			return
		}
		io.WriteString(w, strings.ReplaceAll(s.washBody, "{{base}}", s.server.URL))
	})
	mux.HandleFunc("/adgangsadresser/0a3f507a", func(w http.ResponseWriter, r *http.Request) {
		n := int(s.detailCalls.Add(1))
		if n <= len(s.detailStatus) && s.detailStatus[n-1] != http.StatusOK {
			w.WriteHeader(s.detailStatus[n-1])
			return
		}
		io.WriteString(w, s.detailBody)
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	s.washBody = `{
		"kategori": "A",
		"resultater": [{
			"adresse": {
				"vejnavn": "Kongens Nytorv",
				"husnr": "1",
				"supplerendebynavn": null,
				"postnr": "1050",
				"postnrnavn": "København K",
				"href": "{{base}}/adgangsadresser/0a3f507a"
			}
		}]
	}`
	return s
}

func (s *stubDAWA) geocoder(cache Cache) *Geocoder {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewGeocoder(logger, Options{
		BaseURL: s.server.URL,
		Client:  s.server.Client(),
		Cache:   cache,
	})
}

func TestGeocode(t *testing.T) {
	stub := newStubDAWA(t)

	result := stub.geocoder(nil).Geocode(context.Background(), "Kongens Nytorv 1, 1050 København K")

	assert.Equal(t, "Kongens Nytorv 1 ,1050 København K", result.Address)
	assert.Equal(t, "A", result.Confidence)
	require.True(t, result.HasCoordinates())
	assert.Equal(t, 55.6802, *result.Latitude)
	assert.Equal(t, 12.5857, *result.Longitude)
	assert.Equal(t, models.SearchPoint{Longitude: 12.5857, Latitude: 55.6802}, result.Point())
}

func TestGeocodeNoMatch(t *testing.T) {
	stub := newStubDAWA(t)
	stub.washBody = `{"kategori": "C", "resultater": []}`

	result := stub.geocoder(nil).Geocode(context.Background(), "Nowhere 999")

	assert.Equal(t, models.GeocodeResult{}, result)
	assert.False(t, result.Found())
	assert.False(t, result.HasCoordinates())
	assert.Equal(t, int32(0), stub.detailCalls.Load())
}

func TestGeocodeMissingKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Missing category", `{"resultater": [{"adresse": {"vejnavn": "A", "href": "{{base}}/x"}}]}`},
		{"Missing address", `{"kategori": "A", "resultater": [{}]}`},
		{"Malformed JSON", `{"kategori": "A", "resultater": [`},
		{"Wrong type", `{"kategori": "A", "resultater": [{"adresse": {"vejnavn": 12}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubDAWA(t)
			stub.washBody = tt.body

			result := stub.geocoder(nil).Geocode(context.Background(), "Vesterbrogade 1")

			assert.Equal(t, models.GeocodeResult{}, result)
		})
	}
}

func TestGeocodeRetriesOnce(t *testing.T) {
	stub := newStubDAWA(t)
	stub.washStatus = []int{http.StatusServiceUnavailable}

	result := stub.geocoder(nil).Geocode(context.Background(), "Kongens Nytorv 1")

	assert.True(t, result.HasCoordinates())
	assert.Equal(t, int32(2), stub.washCalls.Load())
}

func TestGeocodeGivesUpAfterRetry(t *testing.T) {
	stub := newStubDAWA(t)
	stub.washStatus = []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway}

	result := stub.geocoder(nil).Geocode(context.Background(), "Kongens Nytorv 1")

	assert.Equal(t, models.GeocodeResult{}, result)
	assert.Equal(t, int32(2), stub.washCalls.Load())
}

func TestGeocodeDoesNotRetryClientErrors(t *testing.T) {
	stub := newStubDAWA(t)
	stub.washStatus = []int{http.StatusBadRequest}

	result := stub.geocoder(nil).Geocode(context.Background(), "Kongens Nytorv 1")

	assert.Equal(t, models.GeocodeResult{}, result)
	assert.Equal(t, int32(1), stub.washCalls.Load())
}

func TestGeocodeCoordinateLookupFails(t *testing.T) {
	stub := newStubDAWA(t)
	stub.detailStatus = []int{http.StatusInternalServerError, http.StatusInternalServerError}

	result := stub.geocoder(nil).Geocode(context.Background(), "Kongens Nytorv 1")

	assert.True(t, result.Found())
	assert.Equal(t, "A", result.Confidence)
	assert.False(t, result.HasCoordinates())
	assert.Equal(t, int32(2), stub.detailCalls.Load())
}

func TestGeocodeTransportFailure(t *testing.T) {
	stub := newStubDAWA(t)
	g := stub.geocoder(nil)
	stub.server.Close()

	result := g.Geocode(context.Background(), "Kongens Nytorv 1")

	assert.Equal(t, models.GeocodeResult{}, result)
}

func TestGeocodeEmptyText(t *testing.T) {
	stub := newStubDAWA(t)

	result := stub.geocoder(nil).Geocode(context.Background(), "   ")

	assert.Equal(t, models.GeocodeResult{}, result)
	assert.Equal(t, int32(0), stub.washCalls.Load())
}

func TestGeocodeUsesCache(t *testing.T) {
	stub := newStubDAWA(t)
	lat, lng := 55.7, 12.5
	cached := models.GeocodeResult{Address: "Cached 1 ,2200 København N", Confidence: "A", Latitude: &lat, Longitude: &lng}

	cache := &MockCache{}
	cache.On("Lookup", "Cached 1").Return(cached, true, nil)

	result := stub.geocoder(cache).Geocode(context.Background(), "Cached 1")

	assert.Equal(t, cached, result)
	assert.Equal(t, int32(0), stub.washCalls.Load())
	cache.AssertExpectations(t)
}

func TestGeocodeStoresInCache(t *testing.T) {
	stub := newStubDAWA(t)

	cache := &MockCache{}
	cache.On("Lookup", "Kongens Nytorv 1").Return(models.GeocodeResult{}, false, nil)
	cache.On("Store", "Kongens Nytorv 1", mock.MatchedBy(func(r models.GeocodeResult) bool {
		return r.HasCoordinates() && r.Confidence == "A"
	})).Return(nil)

	result := stub.geocoder(cache).Geocode(context.Background(), "Kongens Nytorv 1")

	assert.True(t, result.HasCoordinates())
	cache.AssertExpectations(t)
}

func TestDisplayName(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name     string
		address  washAddress
		expected string
	}{
		{
			name: "With supplementary locality",
			address: washAddress{
				Street: str("Strandvejen"), HouseNumber: str("100"), Locality: str("Hellerup"),
				PostalCode: str("2900"), PostalName: str("Hellerup"),
			},
			expected: "Strandvejen 100 Hellerup ,2900 Hellerup",
		},
		{
			name:     "Missing postal name",
			address:  washAddress{Street: str("Nørrebrogade"), HouseNumber: str("12"), PostalCode: str("2200")},
			expected: "Nørrebrogade 12 ,2200",
		},
		{
			name:     "Nothing after the comma",
			address:  washAddress{Street: str("Nørrebrogade")},
			expected: "Nørrebrogade ,",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.address.displayName())
		})
	}
}
