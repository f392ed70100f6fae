// Package coordinator retrieves the run configuration handed out by the
// load-test coordinator and implements the bounded polling around it.
package coordinator

import (
	"encoding/json"
)

// RunConfig is the coordinator-supplied run configuration. Unknown fields are
// kept in Extra so that coordinator schema additions survive a round trip.
type RunConfig struct {
	InstanceNumber int    `json:"instanceNumber"`
	Transport      string `json:"transport,omitempty"`
	ResourceNumber int    `json:"resourceNumber"`

	Extra map[string]json.RawMessage `json:"-"`
}

// knownConfigKeys are the fields owned by the probe; everything else the
// coordinator sends lands in Extra.
var knownConfigKeys = map[string]bool{
	"instanceNumber": true,
	"transport":      true,
	"resourceNumber": true,
}

func (c *RunConfig) UnmarshalJSON(data []byte) error {
	type alias RunConfig
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if knownConfigKeys[key] {
			delete(raw, key)
		}
	}
	if len(raw) == 0 {
		raw = nil
	}

	*c = RunConfig(known)
	c.Extra = raw
	return nil
}

func (c RunConfig) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(c.Extra)+len(knownConfigKeys))
	for key, value := range c.Extra {
		merged[key] = value
	}

	type alias RunConfig
	own, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}
	var ownFields map[string]json.RawMessage
	if err := json.Unmarshal(own, &ownFields); err != nil {
		return nil, err
	}
	for key, value := range ownFields {
		merged[key] = value
	}

	return json.Marshal(merged)
}
