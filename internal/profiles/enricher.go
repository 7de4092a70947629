package profiles

import (
	"context"
)

const (
	// IdentifiedUserKey is the row field holding the identified user id.
	IdentifiedUserKey = "identified_user_id"
	// TraitsKey is the row field traits are attached under.
	TraitsKey = "traits"
)

// Enrich attaches traits to every row, nil when the row has no identified
// user or the user has no profile. The store is queried once per call.
func Enrich(ctx context.Context, store Store, siteID uint, rows []map[string]any) ([]map[string]any, error) {
	ids := distinctIDs(rows)

	traits := map[string]map[string]any{}
	if len(ids) > 0 {
		var err error
		if traits, err = store.TraitsFor(ctx, siteID, ids); err != nil {
			return nil, err
		}
	}

	for _, row := range rows {
		id, _ := row[IdentifiedUserKey].(string)
		if t, ok := traits[id]; ok && id != "" {
			row[TraitsKey] = t
		} else {
			row[TraitsKey] = nil
		}
	}
	return rows, nil
}

func distinctIDs(rows []map[string]any) []string {
	seen := make(map[string]struct{}, len(rows))
	var ids []string
	for _, row := range rows {
		id, ok := row[IdentifiedUserKey].(string)
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
