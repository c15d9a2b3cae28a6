package qdrant

import "github.com/custodia-labs/overlayc/internal/core/domain"

// translateFilter converts an index filter into a Qdrant filter object.
// An empty filter translates to nil so the request omits it.
func translateFilter(f domain.IndexFilter) map[string]any {
	if f.IsEmpty() {
		return nil
	}
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = translateConditions(f.Must)
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = translateConditions(f.MustNot)
	}
	return out
}

func translateConditions(conds []domain.FieldCondition) []any {
	out := make([]any, 0, len(conds))
	for _, c := range conds {
		out = append(out, translateCondition(c))
	}
	return out
}

func translateCondition(c domain.FieldCondition) map[string]any {
	switch {
	case c.MinInt != nil:
		return map[string]any{
			"key":   c.Key,
			"range": map[string]any{"gte": *c.MinInt},
		}
	case c.AnyOf != nil:
		return map[string]any{
			"key":   c.Key,
			"match": map[string]any{"any": c.AnyOf},
		}
	default:
		return matchCondition(c.Key, c.Value)
	}
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key": key,
		"match": map[string]any{
			"value": value,
		},
	}
}

// overlayFilter selects every point of the given overlays.
func overlayFilter(overlayIDs []string) map[string]any {
	return map[string]any{
		"must": []any{map[string]any{
			"key":   domain.FieldOverlayID,
			"match": map[string]any{"any": overlayIDs},
		}},
	}
}
