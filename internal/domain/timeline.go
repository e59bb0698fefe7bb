package domain

import (
	"sort"
	"time"
)

// TimelineEntry is one status change on a split's audit timeline
type TimelineEntry struct {
	Status SplitStatus `json:"status"`
	Label  string      `json:"label"`
	At     time.Time   `json:"at"`
}

// TimelineGroup holds the entries that fall on the same day
type TimelineGroup struct {
	Day     string          `json:"day"` // "Today", "Yesterday" or e.g. "Jan 2"
	Entries []TimelineEntry `json:"entries"`
}

// BuildTimeline sorts the split timestamps newest first and groups them by day
// relative to now, in now's location.
func BuildTimeline(stamps map[SplitStatus]time.Time, now time.Time) []TimelineGroup {
	entries := make([]TimelineEntry, 0, len(stamps))
	for status, at := range stamps {
		entries = append(entries, TimelineEntry{Status: status, Label: status.Label(), At: at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].At.Equal(entries[j].At) {
			return entries[i].Status < entries[j].Status
		}
		return entries[i].At.After(entries[j].At)
	})

	loc := now.Location()
	var groups []TimelineGroup
	for _, e := range entries {
		day := dayLabel(e.At.In(loc), now)
		if n := len(groups); n > 0 && groups[n-1].Day == day {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, TimelineGroup{Day: day, Entries: []TimelineEntry{e}})
	}
	return groups
}

func dayLabel(t, now time.Time) string {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch {
	case !t.Before(today):
		return "Today"
	case !t.Before(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return t.Format("Jan 2")
	}
}
