package gazetteer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one known entity and the surface forms that refer to it.
type Entry struct {
	Kind      string
	Canonical string
	Aliases   []string
}

// Gazetteer is a dictionary of known entities.
type Gazetteer struct {
	kinds   *Kinds
	entries []Entry
}

type fileFormat struct {
	Entities []struct {
		Kind      string   `yaml:"kind"`
		Canonical string   `yaml:"canonical"`
		Aliases   []string `yaml:"aliases"`
	} `yaml:"entities"`
}

// Load reads a gazetteer from a YAML file.
//
// Expected format:
//
//	entities:
//	  - kind: person
//	    canonical: Ada Lovelace
//	    aliases: [Ada, Countess of Lovelace]
//
// The canonical form always matches itself. Entries whose kind is not in
// kinds are rejected.
func Load(path string, kinds *Kinds) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer: %w", err)
	}
	g, err := Parse(data, kinds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes gazetteer YAML.
func Parse(data []byte, kinds *Kinds) (*Gazetteer, error) {
	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}
	g := New(kinds)
	for i, raw := range file.Entities {
		if err := g.Add(raw.Kind, raw.Canonical, raw.Aliases...); err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
	}
	return g, nil
}

// New returns an empty gazetteer restricted to kinds.
func New(kinds *Kinds) *Gazetteer {
	return &Gazetteer{kinds: kinds}
}

// Add registers an entity. Duplicate and blank aliases are ignored.
func (g *Gazetteer) Add(kind, canonical string, aliases ...string) error {
	resolved, ok := g.kinds.Lookup(kind)
	if !ok {
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return fmt.Errorf("kind %s: canonical form is required", resolved.ID)
	}
	entry := Entry{Kind: resolved.ID, Canonical: canonical, Aliases: []string{canonical}}
	seen := map[string]struct{}{canonical: {}}
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		if _, dup := seen[alias]; dup {
			continue
		}
		seen[alias] = struct{}{}
		entry.Aliases = append(entry.Aliases, alias)
	}
	g.entries = append(g.entries, entry)
	return nil
}

// Entries returns the registered entities in load order.
func (g *Gazetteer) Entries() []Entry {
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Kinds returns the kind set the gazetteer was built with.
func (g *Gazetteer) Kinds() *Kinds {
	return g.kinds
}

// Len returns the number of entities.
func (g *Gazetteer) Len() int {
	return len(g.entries)
}
