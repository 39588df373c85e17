package manifest

import (
	"sort"

	"scribe/internal/logging"
)

// reconcile brings a manifest back in line with the files on disk and with
// the session's retention policy. It must run under the session lock.
func (r *Repository) reconcile(m *Manifest) (removed []string, changed bool) {
	now := r.timestamp()
	kept := m.Items[:0]

	for _, item := range m.Items {
		if item.RelPath == "" {
			changed = true
			continue
		}
		path, err := r.store.Resolve(m.SessionID, item.RelPath)
		if err != nil {
			r.logger.Warn("dropping item with unsafe path",
				logging.String(logging.FieldSessionID, m.SessionID),
				logging.String(logging.FieldItemID, item.ID),
				logging.Error(err))
			changed = true
			continue
		}

		size, err := r.store.SizeOf(path)
		if err != nil {
			// Backing file vanished out from under the manifest.
			removed = append(removed, item.ID)
			changed = true
			continue
		}

		if !item.Pinned && item.ExpiresAt == nil {
			expires := now.Add(r.defaultTTL)
			item.ExpiresAt = &expires
			changed = true
		}

		if item.Expired(now) {
			r.deleteBacking(m.SessionID, item)
			removed = append(removed, item.ID)
			changed = true
			continue
		}

		if size != item.Size {
			item.Size = size
			changed = true
		}
		kept = append(kept, item)
	}
	m.Items = kept

	if evicted := r.evictOverCapacity(m); len(evicted) > 0 {
		removed = append(removed, evicted...)
		changed = true
	}
	return removed, changed
}

// evictOverCapacity removes the oldest unpinned items until the session fits
// its item and byte limits again. Pinned items are never evicted, so a
// session full of pinned items may legitimately stay over capacity.
func (r *Repository) evictOverCapacity(m *Manifest) []string {
	if r.maxItems <= 0 && r.maxBytes <= 0 {
		return nil
	}

	var evicted []string
	for r.overCapacity(m) {
		idx := oldestUnpinned(m.Items)
		if idx < 0 {
			break
		}
		item := m.Items[idx]
		r.deleteBacking(m.SessionID, item)
		m.Items = append(m.Items[:idx], m.Items[idx+1:]...)
		evicted = append(evicted, item.ID)
		r.logger.Info("evicted item over capacity",
			logging.String(logging.FieldSessionID, m.SessionID),
			logging.String(logging.FieldItemID, item.ID),
			logging.Int64("size", item.Size))
	}
	return evicted
}

func (r *Repository) overCapacity(m *Manifest) bool {
	if r.maxItems > 0 && len(m.Items) > r.maxItems {
		return true
	}
	if r.maxBytes > 0 && m.TotalSize() > r.maxBytes {
		return true
	}
	return false
}

func oldestUnpinned(items []Item) int {
	candidates := make([]int, 0, len(items))
	for i, item := range items {
		if !item.Pinned {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return items[candidates[a]].CreatedAt.Before(items[candidates[b]].CreatedAt)
	})
	return candidates[0]
}
