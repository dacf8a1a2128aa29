package item

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxStack applies to kinds the catalog does not describe.
const DefaultMaxStack = 64

// Def describes one resource kind.
type Def struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name,omitempty"`
	MaxStack  int    `yaml:"max_stack,omitempty"`
	Container bool   `yaml:"container,omitempty"`
}

// Catalog is the registry of known resource kinds. It is immutable after
// load; lookups for unknown kinds fall back to DefaultMaxStack so that
// out-of-band granted resources still trade.
type Catalog struct {
	defs map[string]Def
}

type catalogFile struct {
	Kinds []Def `yaml:"kinds"`
}

// LoadCatalog reads a YAML kind catalog. An empty path yields the
// built-in default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	return NewCatalog(f.Kinds)
}

// NewCatalog builds a catalog from explicit definitions.
func NewCatalog(defs []Def) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Def, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("catalog entry with empty id")
		}
		if d.MaxStack < 0 {
			return nil, fmt.Errorf("kind %s: negative max_stack", d.ID)
		}
		if d.MaxStack == 0 {
			d.MaxStack = DefaultMaxStack
		}
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("duplicate kind %s", d.ID)
		}
		c.defs[d.ID] = d
	}
	return c, nil
}

// DefaultCatalog covers the kinds the stock deployment trades in.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog([]Def{
		{ID: "diamond", Name: "Diamond", MaxStack: 64},
		{ID: "spore_blossom", Name: "Spore Blossom", MaxStack: 64},
		{ID: "ancient_debris", Name: "Ancient Debris", MaxStack: 64},
		{ID: "iron_ingot", Name: "Iron Ingot", MaxStack: 64},
		{ID: "ender_pearl", Name: "Ender Pearl", MaxStack: 16},
		{ID: "netherite_sword", Name: "Netherite Sword", MaxStack: 1},
		{ID: "shulker_box", Name: "Shulker Box", MaxStack: 1, Container: true},
	})
	return c
}

// MaxStack returns the stack limit for a kind.
func (c *Catalog) MaxStack(kind string) int {
	if d, ok := c.defs[kind]; ok {
		return d.MaxStack
	}
	return DefaultMaxStack
}

// IsContainer reports whether the kind can hold nested bundles.
func (c *Catalog) IsContainer(kind string) bool {
	d, ok := c.defs[kind]
	return ok && d.Container
}

// DisplayName returns the human name for a kind, falling back to the id.
func (c *Catalog) DisplayName(kind string) string {
	if d, ok := c.defs[kind]; ok && d.Name != "" {
		return d.Name
	}
	return kind
}

// Kinds returns all catalogued kind ids.
func (c *Catalog) Kinds() []string {
	out := make([]string, 0, len(c.defs))
	for id := range c.defs {
		out = append(out, id)
	}
	return out
}
