// Package resource models the tree of server resources a probe run exercises.
package resource

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resource is one node of the resource tree. Children are requested as part
// of the same run; the tree shape mirrors the target server's page structure.
type Resource struct {
	Path     string            `yaml:"path" json:"path"`
	Method   string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Children []*Resource       `yaml:"children,omitempty" json:"children,omitempty"`
}

// DescendantCount returns the number of resources rooted at r, the node
// itself included. RunConfig.resourceNumber is always derived from this,
// never trusted from the coordinator.
func (r *Resource) DescendantCount() int {
	if r == nil {
		return 0
	}
	count := 1
	for _, child := range r.Children {
		count += child.DescendantCount()
	}
	return count
}

// Flatten returns the tree in depth-first order.
func (r *Resource) Flatten() []*Resource {
	if r == nil {
		return nil
	}
	flat := []*Resource{r}
	for _, child := range r.Children {
		flat = append(flat, child.Flatten()...)
	}
	return flat
}

func (r *Resource) normalize() error {
	if strings.TrimSpace(r.Path) == "" {
		return errors.New("resource path cannot be empty")
	}
	if !strings.HasPrefix(r.Path, "/") {
		r.Path = "/" + r.Path
	}
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	r.Method = strings.ToUpper(r.Method)
	for _, child := range r.Children {
		if err := child.normalize(); err != nil {
			return err
		}
	}
	return nil
}

// LoadTree reads a resource tree from a YAML or JSON file.
func LoadTree(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource tree: %w", err)
	}
	return ParseTree(data)
}

// ParseTree decodes a resource tree document. YAML is a superset of JSON, so
// a single decoder covers both formats.
func ParseTree(data []byte) (*Resource, error) {
	var root Resource
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("resource tree: %w", err)
	}
	if err := root.normalize(); err != nil {
		return nil, fmt.Errorf("resource tree: %w", err)
	}
	return &root, nil
}
