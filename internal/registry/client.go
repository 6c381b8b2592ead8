// Package registry looks up providers in the national NPI registry and
// returns supplemental fields with a fixed trust tier. Lookups never fail the
// caller: every error path degrades to the all-unknown result.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/healthdex/provider-harvest/internal/metrics"
	"github.com/healthdex/provider-harvest/internal/provider"
)

const directEndpointType = "DIRECT"

// Result carries the registry-sourced fields. Every field defaults to the
// explicit unknown sentinel.
type Result struct {
	WorkEmail   string
	Gender      string
	LastUpdated string
}

// UnknownResult is returned whenever the lookup cannot run or fails.
func UnknownResult() Result {
	return Result{
		WorkEmail:   provider.Unknown,
		Gender:      provider.Unknown,
		LastUpdated: provider.Unknown,
	}
}

// Config controls the registry client.
type Config struct {
	Endpoint string
	Version  string
	Timeout  time.Duration
}

// Client queries the registry API.
type Client struct {
	http    *resty.Client
	version string
	logger  *zap.Logger
}

// NewClient builds a Client against cfg.Endpoint.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "2.1"
	}
	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout)
	return &Client{http: httpClient, version: cfg.Version, logger: logger}
}

type lookupResponse struct {
	ResultCount int            `json:"result_count"`
	Results     []lookupResult `json:"results"`
}

type lookupResult struct {
	Basic            lookupBasic      `json:"basic"`
	Endpoints        []lookupEndpoint `json:"endpoints"`
	LastUpdatedEpoch int64            `json:"last_updated_epoch"`
}

type lookupBasic struct {
	Gender string `json:"gender"`
}

type lookupEndpoint struct {
	EndpointType string `json:"endpointType"`
	Endpoint     string `json:"endpoint"`
}

// Enrich fetches supplemental fields for the given NPI. A missing id, a
// non-success response, a transport failure or an empty result set all yield
// the all-unknown Result; this never raises past the caller.
func (c *Client) Enrich(ctx context.Context, npi string) Result {
	if strings.TrimSpace(npi) == "" {
		return UnknownResult()
	}

	var payload lookupResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"number":  npi,
			"version": c.version,
		}).
		SetResult(&payload).
		Get("")
	if err != nil {
		c.logger.Warn("registry lookup failed", zap.String("npi", npi), zap.Error(err))
		metrics.ObserveRegistryLookup("error")
		return UnknownResult()
	}
	if !resp.IsSuccess() {
		c.logger.Warn("registry lookup non-success",
			zap.String("npi", npi),
			zap.Int("status", resp.StatusCode()),
		)
		metrics.ObserveRegistryLookup("error")
		return UnknownResult()
	}
	if payload.ResultCount < 1 || len(payload.Results) == 0 {
		metrics.ObserveRegistryLookup("empty")
		return UnknownResult()
	}

	metrics.ObserveRegistryLookup("ok")
	return resultFrom(payload.Results[0])
}

func resultFrom(entry lookupResult) Result {
	out := UnknownResult()

	// Only the first endpoint flagged as direct counts as the work email.
	for _, ep := range entry.Endpoints {
		if strings.EqualFold(ep.EndpointType, directEndpointType) && ep.Endpoint != "" {
			out.WorkEmail = ep.Endpoint
			break
		}
	}

	if entry.Basic.Gender != "" {
		out.Gender = entry.Basic.Gender
	}
	if entry.LastUpdatedEpoch > 0 {
		out.LastUpdated = time.UnixMilli(entry.LastUpdatedEpoch).UTC().Format(time.RFC3339)
	}
	return out
}
