package api

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed docs.yaml
var docsYAML []byte

// APIDocs is the machine readable description served at /api/docs
type APIDocs struct {
	Title       string                 `yaml:"title" json:"title"`
	Version     string                 `yaml:"version" json:"version"`
	Description string                 `yaml:"description" json:"description"`
	Endpoints   map[string]EndpointDoc `yaml:"endpoints" json:"endpoints"`
}

// EndpointDoc describes one endpoint
type EndpointDoc struct {
	Description string            `yaml:"description" json:"description"`
	Parameters  map[string]string `yaml:"parameters" json:"parameters"`
	Example     string            `yaml:"example" json:"example"`
}

// LoadAPIDocs decodes the embedded API description
func LoadAPIDocs() (*APIDocs, error) {
	return parseAPIDocs(docsYAML)
}

func parseAPIDocs(data []byte) (*APIDocs, error) {
	var docs APIDocs
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode api docs: %w", err)
	}
	if docs.Title == "" || len(docs.Endpoints) == 0 {
		return nil, fmt.Errorf("api docs must have a title and at least one endpoint")
	}
	return &docs, nil
}
