// Package feeds implements the RSS sources the aggregator collects
// from, and the full-text enrichment for approved articles.
package feeds

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"cyberbrief/internal/domain"
)

//go:embed sources.yaml
var sourcesYAML []byte

type sourceSpec struct {
	Name      string `yaml:"name"`
	Feed      string `yaml:"feed"`
	Extractor string `yaml:"extractor"`
}

type catalog struct {
	Sources []sourceSpec `yaml:"sources"`
}

// DefaultSources builds the embedded source catalog over the given
// fetcher. Each source gets its extractor by name; unknown or empty
// names fall back to the default readability-style extraction.
func DefaultSources(fetcher domain.PageFetcher) ([]domain.Source, error) {
	var c catalog
	if err := yaml.Unmarshal(sourcesYAML, &c); err != nil {
		return nil, fmt.Errorf("op=feeds.catalog: %w", err)
	}

	sources := make([]domain.Source, 0, len(c.Sources))
	for _, spec := range c.Sources {
		if spec.Name == "" || spec.Feed == "" {
			return nil, fmt.Errorf("op=feeds.catalog: incomplete source entry %q", spec.Name)
		}
		sources = append(sources, newRSSSource(spec.Name, spec.Feed, fetcher, extractorFor(spec.Extractor)))
	}
	return sources, nil
}
