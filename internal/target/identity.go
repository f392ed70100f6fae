// Package target talks to the system under test: identity discovery and the
// server-side statistics toggles.
package target

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// InfoPath is the identity endpoint exposed by the target server.
const InfoPath = "/test/info/"

// Identity describes the server under test. It is resolved exactly once per
// run, before any stats or configuration calls.
type Identity struct {
	Scheme        string `json:"scheme"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	ServerVersion string `json:"serverVersion,omitempty"`
}

func (id Identity) String() string {
	if id.ServerVersion == "" {
		return fmt.Sprintf("%s://%s:%d", id.Scheme, id.Host, id.Port)
	}
	return fmt.Sprintf("%s://%s:%d (version %s)", id.Scheme, id.Host, id.Port, id.ServerVersion)
}

// Resolve requests the target's identity payload. When the server does not
// report its own version, versionFallback is recorded instead.
func Resolve(ctx context.Context, client *http.Client, scheme, host string, port int, versionFallback string) (Identity, error) {
	id := Identity{Scheme: scheme, Host: host, Port: port}

	url := fmt.Sprintf("%s://%s:%d%s", scheme, host, port, InfoPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return id, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return id, fmt.Errorf("retrieve server info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return id, fmt.Errorf("read server info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return id, fmt.Errorf("server info returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// The payload shape varies across server builds; pick out the version
	// field without insisting on the rest of the schema.
	version := gjson.GetBytes(body, "serverVersion")
	if !version.Exists() {
		version = gjson.GetBytes(body, "jettyVersion")
	}
	id.ServerVersion = strings.TrimSpace(version.String())
	if id.ServerVersion == "" {
		id.ServerVersion = versionFallback
	}
	return id, nil
}
