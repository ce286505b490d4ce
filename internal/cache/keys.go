package cache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/iliyamo/venue-operations/internal/model"
)

// LayoutKey is the single source of layout cache keys.  Read and invalidate
// paths both derive their keys from here so they can never diverge.
//
//	layout:{eventID}:{serialized filters}
func LayoutKey(eventID uint64, f model.LayoutFilter) string {
	return layoutPrefix(eventID) + SerializeFilter(f)
}

// StatsKey returns the statistics key of one venue-event.
//
//	stats:{eventID}
func StatsKey(eventID uint64) string {
	return "stats:" + strconv.FormatUint(eventID, 10)
}

// GenerationKey counts the invalidations of one venue-event.  A value built
// under an older generation is never stored.
//
//	gen:{eventID}
func GenerationKey(eventID uint64) string {
	return "gen:" + strconv.FormatUint(eventID, 10)
}

// layoutPrefix ends with a separator so that event 1 never matches the keys
// of event 12.
func layoutPrefix(eventID uint64) string {
	return "layout:" + strconv.FormatUint(eventID, 10) + ":"
}

// SerializeFilter renders f deterministically.  Values are query-escaped, so
// a filter value can never inject a separator.
func SerializeFilter(f model.LayoutFilter) string {
	v := url.Values{}
	if f.ActiveOnly {
		v.Set("active", "1")
	} else {
		v.Set("active", "0")
	}
	v.Set("kind", strings.ToLower(strings.TrimSpace(f.AreaKind)))
	v.Set("status", string(f.TableStatus))
	if f.CardGroupID != nil {
		v.Set("group", strconv.FormatUint(*f.CardGroupID, 10))
	} else {
		v.Set("group", "")
	}
	return v.Encode() // Encode sorts by key
}

// escapeGlob quotes the characters Redis treats specially in MATCH patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
