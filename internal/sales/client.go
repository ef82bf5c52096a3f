package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"homescope/server/internal/models"
)

// Adapter fetches historical sale transactions from the price-paid dataset.
// The query key is the exact postcode, not geography codes.
type Adapter struct {
	logger  *logrus.Logger
	client  *retryablehttp.Client
	baseURL string
}

// UpstreamError carries the upstream's status and body so the proxy endpoint
// can mirror them to the client.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("sales upstream returned status %d", e.StatusCode)
}

// NewAdapter creates a sales adapter against the given base URL.
func NewAdapter(logger *logrus.Logger, baseURL string, timeout time.Duration) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	return &Adapter{
		logger:  logger,
		client:  rc,
		baseURL: baseURL,
	}
}

// IsTimeout reports whether the fetch failed because the upstream did not
// respond in time.
func IsTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

type transactionItem struct {
	TransactionID   string      `json:"transactionId"`
	TransactionDate string      `json:"transactionDate"`
	PricePaid       json.Number `json:"pricePaid"`
	NewBuild        bool        `json:"newBuild"`
	PropertyAddress struct {
		Paon     string `json:"paon"`
		Street   string `json:"street"`
		Town     string `json:"town"`
		Postcode string `json:"postcode"`
	} `json:"propertyAddress"`
	PropertyType struct {
		PrefLabel []struct {
			Value string `json:"_value"`
		} `json:"prefLabel"`
	} `json:"propertyType"`
}

type transactionResponse struct {
	Result struct {
		Items []transactionItem `json:"items"`
	} `json:"result"`
}

// FetchRaw returns the upstream's raw payload for the proxy endpoint.
func (a *Adapter) FetchRaw(ctx context.Context, postcode models.PostcodeQuery) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/transaction-record.json?propertyAddress.postcode=%s",
		a.baseURL, url.QueryEscape(postcode.String()))

	a.logger.WithField("postcode", postcode.String()).Info("Fetching sale transactions")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.WithError(err).Error("Sales fetch failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		a.logger.WithField("status", resp.StatusCode).Error("Sales upstream error status")
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// Fetch returns the postcode's transactions mapped into the domain model,
// sorted newest first. Items with unparseable dates or non-positive prices
// are dropped and counted; partial bad data never fails the whole fetch.
func (a *Adapter) Fetch(ctx context.Context, postcode models.PostcodeQuery) ([]models.SaleTransaction, error) {
	body, err := a.FetchRaw(ctx, postcode)
	if err != nil {
		return nil, err
	}

	var parsed transactionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse sales response: %w", err)
	}

	transactions := make([]models.SaleTransaction, 0, len(parsed.Result.Items))
	dropped := 0
	for _, item := range parsed.Result.Items {
		date, err := time.Parse("2006-01-02", item.TransactionDate)
		if err != nil {
			dropped++
			continue
		}
		price, err := item.PricePaid.Int64()
		if err != nil || price <= 0 {
			dropped++
			continue
		}

		propertyType := "Unknown"
		if len(item.PropertyType.PrefLabel) > 0 && item.PropertyType.PrefLabel[0].Value != "" {
			propertyType = item.PropertyType.PrefLabel[0].Value
		}

		transactions = append(transactions, models.SaleTransaction{
			ID:           item.TransactionID,
			Date:         date,
			Price:        price,
			Address:      fmt.Sprintf("%s %s", item.PropertyAddress.Paon, item.PropertyAddress.Street),
			Town:         item.PropertyAddress.Town,
			Postcode:     item.PropertyAddress.Postcode,
			PropertyType: propertyType,
			NewBuild:     item.NewBuild,
		})
	}

	if dropped > 0 {
		a.logger.WithFields(logrus.Fields{
			"postcode": postcode.String(),
			"dropped":  dropped,
		}).Warn("Dropped transactions with unparseable date or price")
	}

	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Date.After(transactions[j].Date)
	})

	a.logger.WithFields(logrus.Fields{
		"postcode": postcode.String(),
		"count":    len(transactions),
	}).Info("Fetched sale transactions")

	return transactions, nil
}
