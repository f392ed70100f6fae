package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/loadprobe/internal/result"
)

// Dynamic parameters consumed by the HTTP sink.
const (
	ParamHTTPURL       = "store.http.url"
	ParamHTTPAuthToken = "store.http.token"
)

// HTTPSink posts the run result as JSON to a remote results API.
type HTTPSink struct {
	client *http.Client
	url    string
	token  string
}

// NewHTTPSink creates the sink; a nil client falls back to a default with a
// modest timeout.
func NewHTTPSink(client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSink{client: client}
}

func (s *HTTPSink) Name() string {
	return "http"
}

func (s *HTTPSink) Active(params map[string]string) bool {
	return strings.TrimSpace(params[ParamHTTPURL]) != ""
}

func (s *HTTPSink) Initialize(params map[string]string) error {
	s.url = strings.TrimSpace(params[ParamHTTPURL])
	s.token = strings.TrimSpace(params[ParamHTTPAuthToken])
	if s.url == "" {
		return fmt.Errorf("%s is required", ParamHTTPURL)
	}
	return nil
}

func (s *HTTPSink) Save(res *result.RunResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("results API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (s *HTTPSink) Close() error {
	return nil
}
