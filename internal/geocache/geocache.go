package geocache

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"homescope/server/internal/models"
)

// entry is one cached postcode resolution.
type entry struct {
	Postcode   string `gorm:"primaryKey"`
	Latitude   float64
	Longitude  float64
	LSOA       string
	LAD        string
	Locality   string
	ResolvedAt time.Time
}

func (entry) TableName() string {
	return "geocode_cache"
}

// Store is a sqlite-backed cache of resolved postcodes. All failures are
// logged and swallowed; a broken cache degrades to a miss, never an error.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
	ttl    time.Duration
}

// Open creates or opens the cache database at path and migrates its schema.
func Open(path string, ttl time.Duration, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger, ttl: ttl}, nil
}

// Get returns the cached resolution for a compact postcode, if present and
// not expired.
func (s *Store) Get(postcode string) (models.GeoCodes, bool) {
	var e entry
	result := s.db.First(&e, "postcode = ?", postcode)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			s.logger.WithError(result.Error).Warn("Geocode cache lookup failed")
		}
		return models.GeoCodes{}, false
	}
	if s.ttl > 0 && time.Since(e.ResolvedAt) > s.ttl {
		return models.GeoCodes{}, false
	}
	return models.GeoCodes{
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		LSOA:      e.LSOA,
		LAD:       e.LAD,
		Locality:  e.Locality,
	}, true
}

// Put stores or refreshes a resolution.
func (s *Store) Put(postcode string, geo models.GeoCodes) {
	e := entry{
		Postcode:   postcode,
		Latitude:   geo.Latitude,
		Longitude:  geo.Longitude,
		LSOA:       geo.LSOA,
		LAD:        geo.LAD,
		Locality:   geo.Locality,
		ResolvedAt: time.Now(),
	}
	if err := s.db.Save(&e).Error; err != nil {
		s.logger.WithError(err).Warn("Failed to store geocode cache entry")
	}
}
