package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManagerParsing(t *testing.T) {
	m := NewManager(" refresh_rotation = on , new_feed=25%, legacy_ui=off ,bad-entry, =x, y= ")

	raw := m.Raw()
	assert.Equal(t, map[string]string{
		"refresh_rotation": "on",
		"new_feed":         "25%",
		"legacy_ui":        "off",
	}, raw)
}

func TestEnabled(t *testing.T) {
	m := NewManager("a=on,b=true,c=1,d=off,e=false,f=0,g=nonsense")

	for _, name := range []string{"a", "b", "c"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"d", "e", "f", "g", "unknown"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestPercentageRollout(t *testing.T) {
	m := NewManager("feature=50%")

	// Deterministic per user: the same user always gets the same answer.
	for userID := uint(1); userID <= 20; userID++ {
		first := m.Enabled("feature", userID)
		assert.Equal(t, first, m.Enabled("feature", userID))
	}

	// Anonymous callers never join a partial rollout.
	assert.False(t, m.Enabled("feature", 0))

	assert.True(t, NewManager("all=100%").Enabled("all", 0))
	assert.False(t, NewManager("none=0%").Enabled("none", 42))
}

func TestPercentageRolloutConvergesToShare(t *testing.T) {
	m := NewManager("feature=30%")

	enabled := 0
	const users = 1000
	for userID := uint(1); userID <= users; userID++ {
		if m.Enabled("feature", userID) {
			enabled++
		}
	}
	share := float64(enabled) / users
	assert.InDelta(t, 0.30, share, 0.08)
}

func TestSnapshot(t *testing.T) {
	m := NewManager("a=on,b=off")
	snap := m.Snapshot(1)
	assert.Equal(t, map[string]bool{"a": true, "b": false}, snap)
}

func TestNilManagerIsDisabled(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled("anything", 1))
}
