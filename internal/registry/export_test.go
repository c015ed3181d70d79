package registry

import "syncd/internal/model"

func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns copies of all entries in registration order.
func (r *Registry) Entries() []model.DirectoryEntry {
	out := make([]model.DirectoryEntry, 0, len(r.order))
	for _, src := range r.order {
		out = append(out, *r.entries[src])
	}

	return out
}
