package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/kerbaras/otakulog/pkg/data"
)

// EntityResolver get-or-creates cross-reference entities from free-text
// names. Lookups are case-insensitive; creation keeps the casing of the first
// occurrence. Resolving the union of a whole batch up front is what prevents
// two items in the same batch from racing to create the same row.
type EntityResolver struct {
	store *data.Store
}

func NewEntityResolver(store *data.Store) *EntityResolver {
	return &EntityResolver{store: store}
}

// Resolve maps each distinct normalized name to an entity id, creating rows
// for names the catalog has not seen. The returned map is keyed by the
// trimmed, lowercased name.
func (r *EntityResolver) Resolve(ctx context.Context, kind data.EntityKind, names []string) (map[string]string, error) {
	var order []string
	firstSeen := make(map[string]string)
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := firstSeen[key]; !ok {
			firstSeen[key] = trimmed
			order = append(order, key)
		}
	}
	if len(order) == 0 {
		return map[string]string{}, nil
	}

	resolved := make(map[string]string, len(order))
	existing, err := r.store.FindEntities(ctx, kind, order)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		resolved[strings.ToLower(strings.TrimSpace(e.Name))] = e.ID
	}

	for _, key := range order {
		if _, ok := resolved[key]; ok {
			continue
		}
		entity := data.Entity{ID: uuid.NewString(), Kind: kind, Name: firstSeen[key]}
		if err := r.store.CreateEntity(ctx, entity); err != nil {
			// Lost a race with another writer: the row exists now, use it.
			found, lookupErr := r.store.FindEntities(ctx, kind, []string{key})
			if lookupErr == nil && len(found) == 1 {
				resolved[key] = found[0].ID
				continue
			}
			return nil, err
		}
		resolved[key] = entity.ID
	}
	return resolved, nil
}

// NormalizeName is the lookup key for a free-text entity name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
