// Package category holds the closed, operator-maintained category table and
// the rule-based classifier that tags posts with one of its keys.
package category

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FallbackKey is the universal fallback category. Every table must declare
// it.
const FallbackKey = "other"

// Category is one entry of the rule table: a stable key, a display name for
// menus, and the hashtags and keywords that route posts to it.
type Category struct {
	Key      string   `yaml:"key"`
	Name     string   `yaml:"name"`
	Hashtags []string `yaml:"hashtags"`
	Keywords []string `yaml:"keywords"`
}

// Table is the compiled, immutable category table. Declaration order
// matters: it breaks classification ties.
type Table struct {
	categories []Category
	names      map[string]string
	hashtags   []map[string]struct{} // per category, lowercased, leading '#'
	keywords   [][]string            // per category, lowercased
}

// New validates and compiles a rule table. Duplicate or empty keys and a
// missing fallback category are configuration errors, fatal at startup.
func New(categories []Category) (*Table, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("category table is empty")
	}

	t := &Table{
		categories: categories,
		names:      make(map[string]string, len(categories)),
		hashtags:   make([]map[string]struct{}, len(categories)),
		keywords:   make([][]string, len(categories)),
	}

	for i, c := range categories {
		if c.Key == "" {
			return nil, fmt.Errorf("category %d: key is required", i)
		}
		if _, ok := t.names[c.Key]; ok {
			return nil, fmt.Errorf("duplicate category key %q", c.Key)
		}
		t.names[c.Key] = c.Name

		tags := make(map[string]struct{}, len(c.Hashtags))
		for _, h := range c.Hashtags {
			h = strings.ToLower(strings.TrimSpace(h))
			if h == "" {
				continue
			}
			if !strings.HasPrefix(h, "#") {
				h = "#" + h
			}
			tags[h] = struct{}{}
		}
		t.hashtags[i] = tags

		kws := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		t.keywords[i] = kws
	}

	if _, ok := t.names[FallbackKey]; !ok {
		return nil, fmt.Errorf("category table must declare the %q fallback", FallbackKey)
	}

	return t, nil
}

// Load reads a rule table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category rules: %w", err)
	}

	var categories []Category
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("parse category rules: %w", err)
	}

	t, err := New(categories)
	if err != nil {
		return nil, fmt.Errorf("category rules %s: %w", path, err)
	}
	return t, nil
}

// Categories returns the table entries in declaration order.
func (t *Table) Categories() []Category {
	return t.categories
}

// Contains reports whether key is a declared category.
func (t *Table) Contains(key string) bool {
	_, ok := t.names[key]
	return ok
}

// Name returns the display name for a category key, or the key itself when
// it is unknown.
func (t *Table) Name(key string) string {
	if name, ok := t.names[key]; ok && name != "" {
		return name
	}
	return key
}

// KeyByName resolves a display name back to its category key, for menu
// button handling.
func (t *Table) KeyByName(name string) (string, bool) {
	for _, c := range t.categories {
		if c.Name == name {
			return c.Key, true
		}
	}
	return "", false
}
