package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Port the API server listens on
	Port string `env:"PORT" envDefault:"3001"`

	// ClientOrigin is the allowed CORS origin for the map UI
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:3000"`

	// Scraper subprocess configuration
	Scraper struct {
		// Python interpreter used to run the scraper
		Interpreter string `env:"SCRAPER_PYTHON" envDefault:"python3"`

		// Path to the scraper script
		ScriptPath string `env:"SCRAPER_SCRIPT" envDefault:"scrapers/scrape.py"`

		// Grace period between SIGTERM and SIGKILL on cancellation (seconds)
		KillDelay int `env:"SCRAPER_KILL_DELAY" envDefault:"5"`
	}

	// Upstream API configuration
	Upstream struct {
		// Land Registry price-paid base URL
		SalesBaseURL string `env:"SALES_BASE_URL" envDefault:"https://landregistry.data.gov.uk/data/ppi"`

		// Nomis census data base URL
		NomisBaseURL string `env:"NOMIS_BASE_URL" envDefault:"https://www.nomisweb.co.uk/api/v01"`

		// Postcode lookup base URL
		PostcodeBaseURL string `env:"POSTCODE_BASE_URL" envDefault:"https://api.postcodes.io"`

		// Per-source timeouts (seconds)
		GeoTimeout   int `env:"GEO_TIMEOUT" envDefault:"10"`
		SalesTimeout int `env:"SALES_TIMEOUT" envDefault:"15"`
		TopicTimeout int `env:"TOPIC_TIMEOUT" envDefault:"20"`
	}

	// GeocodeCachePath is the sqlite file backing the postcode resolution
	// cache. Empty disables caching.
	GeocodeCachePath string `env:"GEOCODE_CACHE_PATH" envDefault:"database/geocache.db"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
