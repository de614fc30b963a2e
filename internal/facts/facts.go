// Package facts holds the eco facts shown to players after a round.
package facts

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed facts.yaml
var defaultFacts []byte

// ErrEmpty is returned when a catalog holds no facts.
var ErrEmpty = errors.New("fact catalog is empty")

// Fact is one educational fact.
type Fact struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

type document struct {
	Facts []Fact `yaml:"facts"`
}

// Catalog picks facts pseudo-randomly. It is safe for concurrent use.
type Catalog struct {
	facts []Fact

	mu  sync.Mutex
	rnd *rand.Rand
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultFacts)
	if err != nil {
		panic(fmt.Sprintf("built-in facts are invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path returns the
// built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse facts: %w", err)
	}
	out := make([]Fact, 0, len(doc.Facts))
	for i, f := range doc.Facts {
		if f.Title == "" {
			return nil, fmt.Errorf("fact %d has no title", i)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return &Catalog{facts: out, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}, nil
}

// WithSource replaces the random source, for deterministic tests.
func (c *Catalog) WithSource(src rand.Source) *Catalog {
	c.mu.Lock()
	c.rnd = rand.New(src)
	c.mu.Unlock()
	return c
}

// Random returns a pseudo-random fact.
func (c *Catalog) Random() Fact {
	c.mu.Lock()
	i := c.rnd.Intn(len(c.facts))
	c.mu.Unlock()
	return c.facts[i]
}

// All returns every fact.
func (c *Catalog) All() []Fact {
	out := make([]Fact, len(c.facts))
	copy(out, c.facts)
	return out
}
