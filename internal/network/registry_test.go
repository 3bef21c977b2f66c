package network

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/swagaria-server/internal/protocol"
	"github.com/annel0/swagaria-server/internal/vec"
	"github.com/annel0/swagaria-server/internal/world/entity"
	"github.com/annel0/swagaria-server/internal/world/item"
)

func TestRegistrySnapshotIsSortedCopy(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	r := newSessionRegistry()
	for _, id := range []int{3, 1, 2} {
		r.Add(newSession(s, newStallConn(), entity.NewPlayer(id, vec.Vec2Float{}, item.NewInventory(s.items, nil))))
	}

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{snap[0].ID, snap[1].ID, snap[2].ID})

	_, ok := r.Remove(2)
	assert.True(t, ok)
	_, ok = r.Remove(2)
	assert.False(t, ok)
	assert.Len(t, snap, 3, "Снимок не меняется после удаления")
	assert.Equal(t, 2, r.Len())
}

func TestBroadcastDuringRegistryChurn(t *testing.T) {
	const (
		broadcasts = 500
		churners   = 8
		rounds     = 200
	)
	s, _ := newTestServer(t, Config{OutboundBuffer: broadcasts + 16})

	newTestSession := func(id int) *Session {
		return newSession(s, newStallConn(), entity.NewPlayer(id, vec.Vec2Float{}, item.NewInventory(s.items, nil)))
	}

	stable := []*Session{newTestSession(1), newTestSession(2)}
	for _, ss := range stable {
		s.sessions.Add(ss)
	}

	var wg sync.WaitGroup
	for c := 0; c < churners; c++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				ss := newTestSession(base + i)
				s.sessions.Add(ss)
				s.sessions.Get(ss.ID)
				s.sessions.Remove(ss.ID)
			}
		}(1000 * (c + 1))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < broadcasts; i++ {
			s.Broadcast(protocol.PlayerLeave(i))
		}
	}()
	wg.Wait()

	assert.Equal(t, 2, s.sessions.Len())
	for _, ss := range stable {
		assert.Len(t, ss.out, broadcasts, "Постоянная сессия получила каждую рассылку")
		assert.Zero(t, ss.Dropped())
		assert.Equal(t, "PLAYER_LEAVE,0", <-ss.out, "Порядок рассылки сохраняется")
	}
}
