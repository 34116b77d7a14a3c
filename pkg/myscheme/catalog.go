// Package myscheme collects agriculture schemes from the myScheme portal and
// serves them as a searchable catalog.
package myscheme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Scheme struct {
	Title              string `json:"title" yaml:"title"`
	Link               string `json:"link" yaml:"link"`
	Ministry           string `json:"ministry,omitempty" yaml:"ministry,omitempty"`
	Description        string `json:"description,omitempty" yaml:"description,omitempty"`
	Details            string `json:"details,omitempty" yaml:"details,omitempty"`
	Eligibility        string `json:"eligibility,omitempty" yaml:"eligibility,omitempty"`
	ApplicationProcess string `json:"application_process,omitempty" yaml:"application_process,omitempty"`
	DocumentsRequired  string `json:"documents_required,omitempty" yaml:"documents_required,omitempty"`
}

type Catalog struct {
	Schemes []Scheme
}

// LoadCatalog reads a scheme list from JSON or YAML, picked by extension.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var schemes []Scheme
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &schemes)
	default:
		err = json.Unmarshal(data, &schemes)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &Catalog{Schemes: schemes}, nil
}

// SaveCatalog writes indented JSON, keeping non-ASCII text readable.
func SaveCatalog(path string, schemes []Scheme) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(schemes); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Search ranks schemes by keyword hits: title counts triple, description
// double, details once. Schemes without hits are dropped.
func (c *Catalog) Search(query string, limit int) []Scheme {
	words := strings.Fields(strings.ToLower(query))
	if c == nil || len(words) == 0 {
		return nil
	}

	type hit struct {
		idx   int
		score int
	}
	var hits []hit
	for i, s := range c.Schemes {
		title := strings.ToLower(s.Title)
		desc := strings.ToLower(s.Description)
		details := strings.ToLower(s.Details)

		score := 0
		for _, w := range words {
			if len(w) < 3 {
				continue
			}
			score += 3*strings.Count(title, w) + 2*strings.Count(desc, w) + strings.Count(details, w)
		}
		if score > 0 {
			hits = append(hits, hit{idx: i, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Scheme, 0, len(hits))
	for _, h := range hits {
		out = append(out, c.Schemes[h.idx])
	}
	return out
}

// Find returns the scheme whose title best matches name: an exact title
// first, then a title containing name, then the most shared title words.
func (c *Catalog) Find(name string) (Scheme, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if c == nil || n == "" {
		return Scheme{}, false
	}

	for _, s := range c.Schemes {
		if strings.ToLower(s.Title) == n {
			return s, true
		}
	}
	for _, s := range c.Schemes {
		if strings.Contains(strings.ToLower(s.Title), n) {
			return s, true
		}
	}

	best, bestScore := -1, 0
	words := strings.Fields(n)
	for i, s := range c.Schemes {
		title := strings.Fields(strings.ToLower(s.Title))
		score := 0
		for _, w := range words {
			if len(w) >= 3 && slices.Contains(title, w) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Scheme{}, false
	}
	return c.Schemes[best], true
}
