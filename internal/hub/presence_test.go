package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceFirstConnectionOnly(t *testing.T) {
	p := NewPresenceRegistry()

	assert.True(t, p.Add("u1", "conn-a"), "first connection must report the online edge")
	assert.False(t, p.Add("u1", "conn-b"), "second tab must not toggle status")
	assert.False(t, p.Add("u1", "conn-c"))

	assert.True(t, p.IsOnline("u1"))
	assert.Equal(t, 3, p.Connections("u1"))
}

func TestPresenceLastDisconnectionOnly(t *testing.T) {
	p := NewPresenceRegistry()
	p.Add("u1", "conn-a")
	p.Add("u1", "conn-b")
	p.Add("u1", "conn-c")

	assert.False(t, p.Remove("u1", "conn-b"), "closing one of several tabs fires nothing")
	assert.True(t, p.IsOnline("u1"))

	assert.False(t, p.Remove("u1", "conn-a"))
	assert.True(t, p.Remove("u1", "conn-c"), "emptying the set is the offline edge")
	assert.False(t, p.IsOnline("u1"))
}

func TestPresenceRemoveUnknown(t *testing.T) {
	p := NewPresenceRegistry()

	assert.False(t, p.Remove("ghost", "conn-a"))

	p.Add("u1", "conn-a")
	assert.False(t, p.Remove("u1", "conn-never-added"))
	assert.True(t, p.IsOnline("u1"))
}

func TestPresenceOnlineUsersSnapshot(t *testing.T) {
	p := NewPresenceRegistry()
	p.Add("u1", "a")
	p.Add("u2", "b")
	p.Add("u2", "c")

	users := p.OnlineUsers()
	assert.Len(t, users, 2)
	assert.ElementsMatch(t, []string{"u1", "u2"}, users)

	p.Remove("u2", "b")
	p.Remove("u2", "c")
	assert.ElementsMatch(t, []string{"u1"}, p.OnlineUsers())
}
