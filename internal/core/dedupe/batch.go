package dedupe

import (
	"sort"

	"github.com/agenthands/cardleads/internal/core/model"
)

// DedupeLeads keeps the most recently touched lead per key and every keyless
// lead, then returns the survivors newest-created first.
//
// The recency sort decides which duplicate survives; the creation sort is only
// for display. Swapping them changes the winner.
func DedupeLeads(list []model.Lead) []model.Lead {
	sorted := make([]model.Lead, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastTouched().After(sorted[j].LastTouched())
	})

	// Keys are compared in their stored encoding, so a "|" inside a name or
	// company can make two different identities collide, as stored keys do.
	seen := make(map[string]bool)
	out := make([]model.Lead, 0, len(sorted))
	for _, lead := range sorted {
		key := KeyOf(lead)
		if !key.Present() {
			out = append(out, lead)
			continue
		}
		enc := key.String()
		if seen[enc] {
			continue
		}
		seen[enc] = true
		out = append(out, lead)
	}

	SortByCreatedDesc(out)
	return out
}

// SortByCreatedDesc orders leads newest-created first, in place.
func SortByCreatedDesc(list []model.Lead) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
