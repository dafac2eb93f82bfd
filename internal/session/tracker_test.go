package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestTouchAndLastSeen(t *testing.T) {
	tr, err := NewTracker(16)
	require.NoError(t, err)

	t0 := time.Now()
	tr.Touch("s1", "/index.html", t0)

	got, ok := tr.LastSeen("s1", "/index.html")
	require.True(t, ok)
	assert.Equal(t, t0, got)

	// Only the most recent visit matters.
	t1 := t0.Add(time.Second)
	tr.Touch("s1", "/index.html", t1)
	got, ok = tr.LastSeen("s1", "/index.html")
	require.True(t, ok)
	assert.Equal(t, t1, got)
}

func TestLastSeenAbsent(t *testing.T) {
	tr, err := NewTracker(16)
	require.NoError(t, err)

	_, ok := tr.LastSeen("no-such-session", "/index.html")
	assert.False(t, ok)

	tr.Touch("s1", "/index.html", time.Now())
	_, ok = tr.LastSeen("s1", "/other.html")
	assert.False(t, ok)
}

func TestSessionsAreIndependent(t *testing.T) {
	tr, err := NewTracker(16)
	require.NoError(t, err)

	tr.Touch("s1", "/index.html", time.Now())
	_, ok := tr.LastSeen("s2", "/index.html")
	assert.False(t, ok)
}

func TestConcurrentTouchesSameSession(t *testing.T) {
	tr, err := NewTracker(16)
	require.NoError(t, err)

	// A browser can issue overlapping requests within one session.
	var g errgroup.Group
	for i := 0; i < 32; i++ {
		i := i
		g.Go(func() error {
			tr.Touch("s1", fmt.Sprintf("/res-%d", i), time.Now())
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, tr.Len())
	for i := 0; i < 32; i++ {
		_, ok := tr.LastSeen("s1", fmt.Sprintf("/res-%d", i))
		assert.True(t, ok)
	}
}

func TestLeastRecentSessionEvicted(t *testing.T) {
	tr, err := NewTracker(2)
	require.NoError(t, err)

	now := time.Now()
	tr.Touch("s1", "/a", now)
	tr.Touch("s2", "/a", now)
	tr.Touch("s3", "/a", now)

	assert.Equal(t, 2, tr.Len())
	_, ok := tr.LastSeen("s1", "/a")
	assert.False(t, ok)
	_, ok = tr.LastSeen("s3", "/a")
	assert.True(t, ok)
}

func TestNewTrackerInvalidSize(t *testing.T) {
	_, err := NewTracker(0)
	assert.Error(t, err)
}
