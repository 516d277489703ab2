// Package classify assigns category labels to activity events using regex rules
// loaded from YAML files.
package classify

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule labels any event whose text matches Pattern with Category.
type Rule struct {
	Category    string
	Pattern     *regexp.Regexp
	Fingerprint string // SHA-256 of the raw YAML file
}

// rawRule is the on-disk YAML shape.
type rawRule struct {
	Category   string `yaml:"category"`
	Regex      string `yaml:"regex"`
	IgnoreCase *bool  `yaml:"ignore_case"` // defaults to true
}

// Classifier holds a fixed, ordered rule set. Safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// New builds a classifier from category → regex pairs, all case-insensitive.
// Categories are ordered by name.
func New(patterns map[string]string) (*Classifier, error) {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &Classifier{}
	for _, name := range names {
		rule, err := compile(rawRule{Category: name, Regex: patterns[name]}, nil)
		if err != nil {
			return nil, err
		}
		c.rules = append(c.rules, rule)
	}
	return c, nil
}

// LoadDir reads one rule per *.yaml / *.yml file in dir, in file name order.
// A missing directory yields an empty classifier.
func LoadDir(dir string) (*Classifier, error) {
	c := &Classifier{}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("category rule dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("category rule path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading category rule dir: %w", err)
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading rule file %s: %w", path, err)
		}

		var raw rawRule
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing rule file %s: %w", path, err)
		}
		if raw.Category == "" {
			continue // empty or comment-only file
		}

		if _, exists := seen[raw.Category]; exists {
			return nil, fmt.Errorf("category %q: duplicate rule (check multiple YAML files)", raw.Category)
		}
		seen[raw.Category] = struct{}{}

		rule, err := compile(raw, data)
		if err != nil {
			return nil, fmt.Errorf("rule file %s: %w", path, err)
		}
		c.rules = append(c.rules, rule)
	}
	return c, nil
}

func compile(raw rawRule, data []byte) (Rule, error) {
	if raw.Regex == "" {
		return Rule{}, fmt.Errorf("category %q: regex must not be empty", raw.Category)
	}

	expr := raw.Regex
	if raw.IgnoreCase == nil || *raw.IgnoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("category %q: invalid regex: %w", raw.Category, err)
	}

	if data == nil {
		data = []byte(raw.Category + "\x00" + raw.Regex)
	}
	return Rule{
		Category:    raw.Category,
		Pattern:     re,
		Fingerprint: fmt.Sprintf("%x", sha256.Sum256(data)),
	}, nil
}

// Classify returns every category whose rule matches any of texts, in rule order.
// An event can carry several categories, or none.
func (c *Classifier) Classify(texts ...string) []string {
	var out []string
	for _, r := range c.rules {
		for _, text := range texts {
			if r.Pattern.MatchString(text) {
				out = append(out, r.Category)
				break
			}
		}
	}
	return out
}

// Categories returns the configured category names in rule order.
func (c *Classifier) Categories() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Category
	}
	return names
}

// Fingerprint identifies the whole rule set; it changes when any rule file does.
func (c *Classifier) Fingerprint() string {
	h := sha256.New()
	for _, r := range c.rules {
		h.Write([]byte(r.Fingerprint))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
