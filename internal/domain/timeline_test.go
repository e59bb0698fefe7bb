package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTimeline_GroupsByDayNewestFirst(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	stamps := map[SplitStatus]time.Time{
		SplitStatusNew:            time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC),
		SplitStatusConfirm:        time.Date(2024, 3, 9, 11, 0, 0, 0, time.UTC),
		SplitStatusReadyForPickup: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		SplitStatusOutForDelivery: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	groups := BuildTimeline(stamps, now)
	require.Len(t, groups, 3)

	assert.Equal(t, "Today", groups[0].Day)
	require.Len(t, groups[0].Entries, 2)
	assert.Equal(t, SplitStatusOutForDelivery, groups[0].Entries[0].Status)
	assert.Equal(t, "Out for delivery", groups[0].Entries[0].Label)
	assert.Equal(t, SplitStatusReadyForPickup, groups[0].Entries[1].Status)

	assert.Equal(t, "Yesterday", groups[1].Day)
	assert.Equal(t, "Mar 8", groups[2].Day)
}

func TestBuildTimeline_Empty(t *testing.T) {
	assert.Empty(t, BuildTimeline(nil, time.Now()))
}
