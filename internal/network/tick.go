package network

import (
	"time"

	"github.com/annel0/swagaria-server/internal/protocol"
)

// tickLoop шаг физики с фиксированным интервалом; dt измеряется по часам
func (s *GameServer) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			s.Tick(dt)
		}
	}
}

// Tick двигает всех игроков на dt секунд и рассылает PLAYER_MOVE тем, кто сдвинулся.
// Рассылка только ставит строки в очереди сессий.
func (s *GameServer) Tick(dt float64) {
	start := time.Now()

	for _, p := range s.players.Snapshot() {
		if !p.Joined() {
			continue
		}
		if pos, moved := p.Step(s.stepper, dt); moved {
			s.Broadcast(protocol.PlayerMove(p.ID, pos.X, pos.Y))
		}
	}

	s.ticks.Add(1)
	s.metrics.tickDuration.Observe(time.Since(start).Seconds())
}
