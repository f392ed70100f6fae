package target

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Stats endpoints on the target server.
const (
	StatsStartPath = "/stats/start"
	StatsStopPath  = "/stats/stop"
)

// StatsController toggles statistics collection on the target server. Both
// calls are idempotent on the server side; failures are auxiliary-measurement
// failures and never block the run.
type StatsController struct {
	client  *http.Client
	baseURL string
}

// NewStatsController creates a controller for the server at baseURL.
func NewStatsController(client *http.Client, baseURL string) *StatsController {
	return &StatsController{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Start signals the server to begin collecting statistics.
func (s *StatsController) Start(ctx context.Context) error {
	return s.signal(ctx, StatsStartPath)
}

// Stop signals the server to stop collecting statistics.
func (s *StatsController) Stop(ctx context.Context) error {
	return s.signal(ctx, StatsStopPath)
}

func (s *StatsController) signal(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("signal %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("signal %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
