package docstore

import "sort"

// Matches reports whether doc satisfies every filter.
func Matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		value, ok := doc[f.Field]
		if !ok {
			return false
		}
		str, isString := value.(string)
		if !isString || str != f.Value {
			return false
		}
	}
	return true
}

// Apply orders and truncates snapshots that already passed Matches.
func Apply(snaps []Snapshot, q Query) []Snapshot {
	if q.OrderBy != "" {
		sort.SliceStable(snaps, func(i, j int) bool {
			left := snaps[i].Data.String(q.OrderBy)
			right := snaps[j].Data.String(q.OrderBy)
			if left == right {
				return snaps[i].ID < snaps[j].ID
			}
			if q.Descending {
				return left > right
			}
			return left < right
		})
	}
	if q.Limit > 0 && len(snaps) > q.Limit {
		snaps = snaps[:q.Limit]
	}
	return snaps
}
