package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"homescope/server/internal/models"
)

// FailureKind classifies why a postcode could not be resolved. Every kind is
// reported distinctly but treated identically downstream: no geography codes
// are available for the run.
type FailureKind string

const (
	FailureNoResults FailureKind = "no_results"
	FailureMalformed FailureKind = "malformed"
	FailureTimeout   FailureKind = "timeout"
	FailureNetwork   FailureKind = "network"
)

// Failure is a resolution failure. It never crashes the run; the coordinator
// records it and continues with the remaining sources.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("geocoding failed (%s): %s", f.Kind, f.Message)
}

// AsFailure unwraps a resolver error into its Failure, if it is one.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Cache is an optional store of previously resolved postcodes. Lookup and
// store errors must be swallowed by the implementation; caching is never a
// reason to fail a resolution.
type Cache interface {
	Get(postcode string) (models.GeoCodes, bool)
	Put(postcode string, geo models.GeoCodes)
}

// Resolver resolves a validated postcode to coordinates, statistical area
// codes, and a locality name via one call to the postcode lookup API.
// It does not retry.
type Resolver struct {
	logger  *logrus.Logger
	client  *http.Client
	baseURL string
	cache   Cache
}

// NewResolver creates a resolver against the given base URL. cache may be nil.
func NewResolver(logger *logrus.Logger, baseURL string, timeout time.Duration, cache Cache) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		cache:   cache,
	}
}

type lookupResponse struct {
	Status int `json:"status"`
	Result *struct {
		Latitude      *float64 `json:"latitude"`
		Longitude     *float64 `json:"longitude"`
		AdminDistrict string   `json:"admin_district"`
		AdminWard     string   `json:"admin_ward"`
		Parish        string   `json:"parish"`
		Region        string   `json:"region"`
		Codes         struct {
			AdminDistrict string `json:"admin_district"`
			LSOA          string `json:"lsoa"`
		} `json:"codes"`
	} `json:"result"`
}

// Resolve looks up one postcode. The returned error, when non-nil, is always
// a *Failure; callers inspect its kind for reporting only.
func (r *Resolver) Resolve(ctx context.Context, postcode models.PostcodeQuery) (models.GeoCodes, error) {
	if r.cache != nil {
		if geo, ok := r.cache.Get(postcode.Compact()); ok {
			r.logger.WithFields(logrus.Fields{
				"postcode": postcode.String(),
				"source":   "cache",
			}).Info("Resolved postcode from cache")
			return geo, nil
		}
	}

	endpoint := fmt.Sprintf("%s/postcodes/%s", r.baseURL, url.PathEscape(postcode.Compact()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.GeoCodes{}, &Failure{Kind: FailureNetwork, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "HomeScope Property Explorer/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		kind := FailureNetwork
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			kind = FailureTimeout
		} else if errors.Is(err, context.DeadlineExceeded) {
			kind = FailureTimeout
		}
		r.logger.WithError(err).WithField("postcode", postcode.String()).Error("Postcode lookup request failed")
		return models.GeoCodes{}, &Failure{Kind: kind, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.GeoCodes{}, &Failure{Kind: FailureNetwork, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusNotFound {
		r.logger.WithField("postcode", postcode.String()).Warn("No results for postcode")
		return models.GeoCodes{}, &Failure{Kind: FailureNoResults, Message: "postcode not found"}
	}
	if resp.StatusCode != http.StatusOK {
		return models.GeoCodes{}, &Failure{
			Kind:    FailureNetwork,
			Message: fmt.Sprintf("upstream returned status %d", resp.StatusCode),
		}
	}

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		r.logger.WithError(err).WithField("postcode", postcode.String()).Error("Failed to parse lookup response")
		return models.GeoCodes{}, &Failure{Kind: FailureMalformed, Message: err.Error()}
	}
	if parsed.Result == nil {
		return models.GeoCodes{}, &Failure{Kind: FailureNoResults, Message: "empty result"}
	}
	if parsed.Result.Latitude == nil || parsed.Result.Longitude == nil {
		return models.GeoCodes{}, &Failure{Kind: FailureMalformed, Message: "result missing coordinates"}
	}

	geo := models.GeoCodes{
		Latitude:  *parsed.Result.Latitude,
		Longitude: *parsed.Result.Longitude,
		LSOA:      parsed.Result.Codes.LSOA,
		LAD:       parsed.Result.Codes.AdminDistrict,
		Locality:  pickLocality(parsed.Result.AdminDistrict, parsed.Result.AdminWard, parsed.Result.Parish, parsed.Result.Region),
	}

	r.logger.WithFields(logrus.Fields{
		"postcode":  postcode.String(),
		"latitude":  geo.Latitude,
		"longitude": geo.Longitude,
		"lsoa":      geo.LSOA,
		"lad":       geo.LAD,
	}).Info("Successfully resolved postcode")

	if r.cache != nil {
		r.cache.Put(postcode.Compact(), geo)
	}

	return geo, nil
}

// pickLocality returns the first non-empty candidate. Candidates are passed
// in priority order, most specific meaningful place name first.
func pickLocality(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
