package manifest

import (
	"time"
)

// Kind classifies an item's content.
type Kind string

const (
	KindTranscript Kind = "transcript"
	KindDerived    Kind = "derived"
)

// Valid reports whether the kind is a known value.
func (k Kind) Valid() bool {
	return k == KindTranscript || k == KindDerived
}

// Format identifies the serialization of a transcript item. Derived items
// carry whatever extension the caller chose, so Format is open-ended there.
type Format string

const (
	FormatTxt   Format = "txt"
	FormatVtt   Format = "vtt"
	FormatJsonl Format = "jsonl"
)

// Valid reports whether the format is a known transcript format.
func (f Format) Valid() bool {
	return f == FormatTxt || f == FormatVtt || f == FormatJsonl
}

// ParseFormat validates a transcript format value.
func ParseFormat(value string) (Format, bool) {
	switch Format(value) {
	case FormatTxt, FormatVtt, FormatJsonl:
		return Format(value), true
	}
	return "", false
}

// Item is one manifest record. RelPath is always relative to the session
// root, never absolute, never containing parent segments. ExpiresAt is nil
// exactly when the item is pinned or TTL is disabled.
type Item struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Format    Format     `json:"format"`
	RelPath   string     `json:"relpath"`
	Size      int64      `json:"size"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Pinned    bool       `json:"pinned"`
}

// Expired reports whether the item is eligible for removal at the given time.
func (i Item) Expired(now time.Time) bool {
	return !i.Pinned && i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// Manifest is the per-session aggregate: items ordered by insertion, ids
// unique within the session.
type Manifest struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Items     []Item    `json:"items"`
}

// Find returns a pointer to the item with the given id, or nil.
func (m *Manifest) Find(itemID string) *Item {
	for i := range m.Items {
		if m.Items[i].ID == itemID {
			return &m.Items[i]
		}
	}
	return nil
}

// FindByRelPath returns a pointer to the first item with the given relative
// path, or nil.
func (m *Manifest) FindByRelPath(relPath string) *Item {
	for i := range m.Items {
		if m.Items[i].RelPath == relPath {
			return &m.Items[i]
		}
	}
	return nil
}

// TotalSize sums the recorded sizes of all items.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, item := range m.Items {
		total += item.Size
	}
	return total
}

// Filter selects items by optional predicates. Nil fields match everything.
type Filter struct {
	Kind   *Kind
	Format *Format
	Pinned *bool
}

// Match reports whether the item passes every set predicate.
func (f Filter) Match(item Item) bool {
	if f.Kind != nil && item.Kind != *f.Kind {
		return false
	}
	if f.Format != nil && item.Format != *f.Format {
		return false
	}
	if f.Pinned != nil && item.Pinned != *f.Pinned {
		return false
	}
	return true
}
