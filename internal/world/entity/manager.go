package entity

import (
	"sort"
	"sync"
	"sync/atomic"
)

// PlayerManager реестр подключённых игроков. Итерация идёт по снимку,
// поэтому рассылка и тик не держат блокировку во время обхода.
type PlayerManager struct {
	players map[int]*Player
	nextID  int64
	mu      sync.RWMutex
}

// NewPlayerManager создаёт пустой реестр; идентификаторы начинаются с 1
func NewPlayerManager() *PlayerManager {
	return &PlayerManager{
		players: make(map[int]*Player),
	}
}

// NextID выдаёт следующий идентификатор. Идентификаторы монотонны и не переиспользуются.
func (pm *PlayerManager) NextID() int {
	return int(atomic.AddInt64(&pm.nextID, 1))
}

// Add регистрирует игрока
func (pm *PlayerManager) Add(p *Player) {
	pm.mu.Lock()
	pm.players[p.ID] = p
	pm.mu.Unlock()
}

// Remove удаляет игрока и возвращает его, если он был
func (pm *PlayerManager) Remove(id int) (*Player, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.players[id]
	if ok {
		delete(pm.players, id)
	}
	return p, ok
}

// Get возвращает игрока по идентификатору
func (pm *PlayerManager) Get(id int) (*Player, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.players[id]
	return p, ok
}

// Len количество игроков
func (pm *PlayerManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.players)
}

// Snapshot возвращает копию списка игроков, упорядоченную по id
func (pm *PlayerManager) Snapshot() []*Player {
	pm.mu.RLock()
	out := make([]*Player, 0, len(pm.players))
	for _, p := range pm.players {
		out = append(out, p)
	}
	pm.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
