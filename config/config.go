package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Condo counting modes for the address expansion search.
const (
	CondoModeLegacy = "legacy"
	CondoModeExact  = "exact"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server struct {
		Port    string `env:"PORT" envDefault:"5250"`
		GinMode string `env:"GIN_MODE" envDefault:"release"`

		// Origins allowed by the CORS middleware
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	}

	Data struct {
		ApartmentsPath string `env:"DATA_APARTMENTS_PATH" envDefault:"data/final_geodataframe_v2.geojson"`
		PostalPath     string `env:"DATA_POSTAL_PATH" envDefault:"data/filtered_postnumre.geojson"`
		ParishPath     string `env:"DATA_PARISH_PATH" envDefault:"data/sogne.geojson"`

		// Prefix of the apartment table to keep, 0 keeps everything
		ApartmentLimit int `env:"DATA_APARTMENT_LIMIT" envDefault:"5000"`

		PostalCodeField string `env:"DATA_POSTAL_CODE_FIELD" envDefault:"POSTNR_TXT"`
		PostalNameField string `env:"DATA_POSTAL_NAME_FIELD" envDefault:"POSTBYNAVN"`
		ParishCodeField string `env:"DATA_PARISH_CODE_FIELD" envDefault:"SOGNEKODE"`
		ParishNameField string `env:"DATA_PARISH_NAME_FIELD" envDefault:"SOGNENAVN"`
	}

	Geocoder struct {
		BaseURL   string `env:"DAWA_BASE_URL" envDefault:"https://api.dataforsyningen.dk"`
		UserAgent string `env:"DAWA_USER_AGENT" envDefault:"Mozilla/5.0"`

		// Request timeout in seconds
		Timeout int `env:"DAWA_TIMEOUT" envDefault:"10"`

		// Delay before the single retry, in seconds
		RetryDelay int `env:"DAWA_RETRY_DELAY" envDefault:"2"`

		// sqlite file caching geocode results, empty disables the cache
		CachePath string `env:"GEOCODE_CACHE_PATH"`
	}

	Search struct {
		MinAddresses  int    `env:"SEARCH_MIN_ADDRESSES" envDefault:"5"`
		MinApartments int    `env:"SEARCH_MIN_APARTMENTS" envDefault:"50"`
		TieLimit      int    `env:"SEARCH_TIE_LIMIT" envDefault:"16"`
		CondoMode     string `env:"SEARCH_CONDO_MODE" envDefault:"legacy"`
	}

	Palette struct {
		Default string `env:"PALETTE_DEFAULT" envDefault:"inferno"`
	}

	// BatchProcessing configures the batch geocoding command
	BatchProcessing struct {
		// Number of addresses per queued batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of batches the queue buffers
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"10"`

		// Log progress every N rows
		ProgressEvery int `env:"BATCH_PROGRESS_EVERY" envDefault:"500"`
	}
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Data.ApartmentLimit < 0 {
		return fmt.Errorf("DATA_APARTMENT_LIMIT must not be negative, got %d", c.Data.ApartmentLimit)
	}
	if c.Geocoder.Timeout <= 0 {
		return fmt.Errorf("DAWA_TIMEOUT must be positive, got %d", c.Geocoder.Timeout)
	}
	if c.Geocoder.RetryDelay < 0 {
		return fmt.Errorf("DAWA_RETRY_DELAY must not be negative, got %d", c.Geocoder.RetryDelay)
	}
	if c.Search.MinAddresses < 0 || c.Search.MinApartments < 0 {
		return fmt.Errorf("search thresholds must not be negative")
	}
	if c.Search.TieLimit < 1 {
		return fmt.Errorf("SEARCH_TIE_LIMIT must be at least 1, got %d", c.Search.TieLimit)
	}
	if c.Search.CondoMode != CondoModeLegacy && c.Search.CondoMode != CondoModeExact {
		return fmt.Errorf("unknown SEARCH_CONDO_MODE: %s", c.Search.CondoMode)
	}
	if c.BatchProcessing.MaxBatchSize < 1 || c.BatchProcessing.QueueSize < 1 {
		return fmt.Errorf("batch size and queue size must be positive")
	}
	return nil
}
