// Package result assembles and persists the final measurement document of a
// probe run.
package result

import (
	"strings"

	"github.com/google/uuid"

	"github.com/torosent/loadprobe/internal/coordinator"
	"github.com/torosent/loadprobe/internal/metrics"
	"github.com/torosent/loadprobe/internal/target"
)

// Dynamic parameter keys consumed during result assembly.
const (
	ParamBuildID = "coordinator.buildId"
	ParamComment = "result.comment"
)

// RunResult is the serialized outcome of one probe run. It is assembled once,
// on the orchestrating goroutine, after the load engine returns.
type RunResult struct {
	UUID       string                 `json:"uuid"`
	ExternalID string                 `json:"externalId,omitempty"`
	Comment    string                 `json:"comment,omitempty"`
	Transport  string                 `json:"transport,omitempty"`
	ServerInfo target.Identity        `json:"serverInfo"`
	Config     *coordinator.RunConfig `json:"loadConfig,omitempty"`
	Stats      metrics.Stats          `json:"stats"`
}

// New assembles a RunResult with a freshly generated uuid. externalId and
// comment are attached only when the corresponding dynamic parameter is a
// non-empty string.
func New(cfg *coordinator.RunConfig, identity target.Identity, transport string, stats metrics.Stats, params map[string]string) *RunResult {
	res := &RunResult{
		UUID:       uuid.NewString(),
		Transport:  transport,
		ServerInfo: identity,
		Config:     cfg,
		Stats:      stats,
	}
	if buildID := strings.TrimSpace(params[ParamBuildID]); buildID != "" {
		res.ExternalID = buildID
	}
	if comment := strings.TrimSpace(params[ParamComment]); comment != "" {
		res.Comment = comment
	}
	return res
}
