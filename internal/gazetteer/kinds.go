package gazetteer

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind is one entity kind an annotation may carry.
type Kind struct {
	ID    string
	Label string
}

// BaseKinds are always available.
var BaseKinds = []Kind{
	{ID: "person", Label: "Person"},
	{ID: "location", Label: "Location"},
	{ID: "organization", Label: "Organization"},
}

// Kinds is the set of configured entity kinds.
type Kinds struct {
	list []Kind
	byID map[string]Kind
}

// ParseKinds combines BaseKinds with custom "id:Label" entries. IDs are
// case-insensitive and stored lowercase; an empty label is derived from the
// ID.
func ParseKinds(custom []string) (*Kinds, error) {
	k := &Kinds{byID: make(map[string]Kind, len(BaseKinds)+len(custom))}
	for _, base := range BaseKinds {
		k.add(base)
	}
	title := cases.Title(language.Und)
	for _, raw := range custom {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, label, _ := strings.Cut(raw, ":")
		id = normalizeID(id)
		if id == "" {
			return nil, fmt.Errorf("entity kind %q: missing id", raw)
		}
		if _, dup := k.byID[id]; dup {
			return nil, fmt.Errorf("entity kind %q: already defined", id)
		}
		label = strings.TrimSpace(label)
		if label == "" {
			label = title.String(strings.ReplaceAll(id, "_", " "))
		}
		k.add(Kind{ID: id, Label: label})
	}
	return k, nil
}

func (k *Kinds) add(kind Kind) {
	k.list = append(k.list, kind)
	k.byID[kind.ID] = kind
}

// Lookup resolves id case-insensitively.
func (k *Kinds) Lookup(id string) (Kind, bool) {
	if k == nil {
		return Kind{}, false
	}
	kind, ok := k.byID[normalizeID(id)]
	return kind, ok
}

// All returns every kind, base kinds first.
func (k *Kinds) All() []Kind {
	out := make([]Kind, len(k.list))
	copy(out, k.list)
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
