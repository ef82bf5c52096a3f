package demographics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"homescope/server/internal/models"
)

// ErrGeographyUnresolved is returned when no area codes are available. The
// adapter short-circuits without calling upstream.
var ErrGeographyUnresolved = errors.New("geography unresolved")

// Adapter fetches census observations from the statistical data source, one
// request per catalog topic, all concurrently.
type Adapter struct {
	logger       *logrus.Logger
	client       *retryablehttp.Client
	baseURL      string
	topicTimeout time.Duration
	topics       []Topic
}

// NewAdapter creates a demographics adapter against the given base URL.
func NewAdapter(logger *logrus.Logger, baseURL string, topicTimeout time.Duration) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	if topicTimeout <= 0 {
		topicTimeout = 20 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = topicTimeout
	rc.Logger = nil

	return &Adapter{
		logger:       logger,
		client:       rc,
		baseURL:      baseURL,
		topicTimeout: topicTimeout,
		topics:       Catalog,
	}
}

// FetchAll fetches every catalog topic for the resolved geography. Each
// topic's failure is captured in its map entry; the returned error is non-nil
// only when the fetch could not be attempted at all.
func (a *Adapter) FetchAll(ctx context.Context, geo *models.GeoCodes) (map[string]models.DemographicTopic, error) {
	if geo == nil || !geo.HasAreaCodes() {
		return nil, ErrGeographyUnresolved
	}

	results := make([]models.DemographicTopic, len(a.topics))

	// One task per topic with independent error capture: tasks never return
	// an error, so no topic's failure cancels its siblings.
	g, gctx := errgroup.WithContext(ctx)
	for i, topic := range a.topics {
		i, topic := i, topic
		g.Go(func() error {
			results[i] = a.fetchTopic(gctx, topic, geo)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]models.DemographicTopic, len(a.topics))
	for i, topic := range a.topics {
		out[topic.Name] = results[i]
	}
	return out, nil
}

// FetchErrors lists the human-readable reasons for every failed topic, in
// catalog order.
func FetchErrors(topics map[string]models.DemographicTopic) []string {
	var errs []string
	for _, topic := range Catalog {
		if t, ok := topics[topic.Name]; ok && t.Failed() {
			errs = append(errs, fmt.Sprintf("%s: %s", topic.Name, t.Error))
		}
	}
	return errs
}

type nomisCell struct {
	Value       json.Number `json:"value"`
	Description string      `json:"description"`
	GeogCode    string      `json:"geogcode"`
}

type nomisResponse struct {
	Obs []map[string]json.RawMessage `json:"obs"`
}

func (a *Adapter) fetchTopic(ctx context.Context, topic Topic, geo *models.GeoCodes) models.DemographicTopic {
	tctx, cancel := context.WithTimeout(ctx, a.topicTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/dataset/%s.data.json?date=latest&geography=%s,%s&%s=%s&measures=20100",
		a.baseURL, topic.Dataset, geo.LSOA, geo.LAD, topic.Dimension, topic.Selection)

	req, err := retryablehttp.NewRequestWithContext(tctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failedTopic(err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.WithError(err).WithField("topic", topic.Name).Warn("Topic fetch failed")
		return failedTopic(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failedTopic(err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		a.logger.WithFields(logrus.Fields{
			"topic":  topic.Name,
			"status": resp.StatusCode,
		}).Warn("Topic upstream error status")
		return failedTopic(fmt.Sprintf("upstream returned status %d", resp.StatusCode))
	}

	var parsed nomisResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return failedTopic("unparseable response: " + err.Error())
	}

	return a.buildTopic(topic, parsed.Obs, geo)
}

func failedTopic(msg string) models.DemographicTopic {
	return models.DemographicTopic{
		Error:        msg,
		Observations: map[string][]models.DemographicObservation{},
	}
}

// buildTopic groups observations by geography code and derives percentages.
//
// Total-row detection is a heuristic inherited from the dataset's shape: the
// total category usually carries dimension value 0 or a description
// containing "total". Neither is guaranteed, so percentages are best-effort
// and 0 when no total row was identified for that geography.
func (a *Adapter) buildTopic(topic Topic, rows []map[string]json.RawMessage, geo *models.GeoCodes) models.DemographicTopic {
	type rawObs struct {
		label   string
		catVal  int64
		value   float64
		isTotal bool
	}

	byGeog := make(map[string][]rawObs)
	areaNames := make(map[string]string)

	for _, row := range rows {
		var geog, obsValue, category nomisCell
		if raw, ok := row["geography"]; ok {
			_ = json.Unmarshal(raw, &geog)
		}
		if raw, ok := row["obs_value"]; ok {
			_ = json.Unmarshal(raw, &obsValue)
		}
		if raw, ok := row[topic.Dimension]; ok {
			_ = json.Unmarshal(raw, &category)
		}
		if geog.GeogCode == "" || category.Description == "" {
			continue
		}
		value, err := obsValue.Value.Float64()
		if err != nil {
			continue
		}

		catVal, _ := category.Value.Int64()
		byGeog[geog.GeogCode] = append(byGeog[geog.GeogCode], rawObs{
			label:  category.Description,
			catVal: catVal,
			value:  value,
			isTotal: catVal == 0 ||
				strings.Contains(strings.ToLower(category.Description), "total"),
		})
		if geog.Description != "" {
			areaNames[geog.GeogCode] = geog.Description
		}
	}

	observations := make(map[string][]models.DemographicObservation)
	for code, obs := range byGeog {
		var total float64
		for _, o := range obs {
			if o.isTotal {
				total = o.value
				break
			}
		}
		for _, o := range obs {
			if o.isTotal {
				continue
			}
			pct := 0.0
			if total > 0 {
				pct = o.value / total * 100
			}
			observations[code] = append(observations[code], models.DemographicObservation{
				Label:      o.label,
				Value:      o.value,
				Percentage: pct,
			})
		}
	}

	return models.DemographicTopic{
		Observations: observations,
		AreaNames:    areaNames,
	}
}
