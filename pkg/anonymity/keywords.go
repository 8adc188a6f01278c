package anonymity

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

type keywordConfig struct {
	Groups []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"groups"`
}

// Keywords is a lowercase substring vocabulary.
type Keywords []string

var (
	defaultKeywords     Keywords
	defaultKeywordsOnce sync.Once
	defaultKeywordsErr  error
)

// DefaultKeywords returns the embedded vocabulary.
func DefaultKeywords() (Keywords, error) {
	defaultKeywordsOnce.Do(func() {
		defaultKeywords, defaultKeywordsErr = ParseKeywords(keywordsYAML)
	})
	return defaultKeywords, defaultKeywordsErr
}

func ParseKeywords(data []byte) (Keywords, error) {
	var cfg keywordConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse keywords: %w", err)
	}
	seen := make(map[string]struct{})
	var out Keywords
	for _, g := range cfg.Groups {
		for _, k := range g.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("keyword vocabulary is empty")
	}
	return out, nil
}

// Match reports whether value contains any keyword, ignoring case.
func (k Keywords) Match(value string) bool {
	if value == "" {
		return false
	}
	value = strings.ToLower(value)
	for _, kw := range k {
		if strings.Contains(value, kw) {
			return true
		}
	}
	return false
}
