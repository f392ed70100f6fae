package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	// ConfigPath is the coordinator endpoint serving the run configuration.
	ConfigPath = "/test/loadConfig"

	fetchTimeout       = 10 * time.Second
	maxLoggedBodyBytes = 1024
)

// Fetcher performs single run-configuration retrieval attempts against the
// coordinator. A nil RunConfig with a nil error means the coordinator has no
// configuration yet; every per-attempt anomaly is logged and swallowed so the
// polling loop above decides when repeated absence becomes fatal.
type Fetcher struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewFetcher creates a Fetcher targeting baseURL (scheme://host:port).
func NewFetcher(client *http.Client, baseURL string, log logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: fetchTimeout,
		log:     log,
	}
}

// Fetch issues one GET against the coordinator config endpoint.
// The returned error is non-nil only when the surrounding context is done.
func (f *Fetcher) Fetch(ctx context.Context) (*RunConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+ConfigPath, nil)
	if err != nil {
		f.log.WithError(err).Info("cannot build run config request")
		return nil, nil
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// A per-attempt timeout counts as "not yet available"; an outer
		// cancellation must stop the polling loop.
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		f.log.WithError(err).Info("run config not retrievable yet")
		return nil, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		f.log.WithError(err).Info("cannot read run config response")
		return nil, nil
	}

	if resp.StatusCode == http.StatusNoContent || len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		f.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   logSnippet(body),
		}).Info("run config request returned unexpected status")
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		f.log.WithField("body", logSnippet(body)).Info("run config response is not valid JSON")
		return nil, nil
	}

	var cfg RunConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		f.log.WithError(err).Info("cannot decode run config")
		return nil, nil
	}
	return &cfg, nil
}

func logSnippet(body []byte) string {
	if len(body) > maxLoggedBodyBytes {
		body = body[:maxLoggedBodyBytes]
	}
	return strings.TrimSpace(string(body))
}
