package network

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/swagaria-server/internal/eventbus"
	"github.com/annel0/swagaria-server/internal/game"
	"github.com/annel0/swagaria-server/internal/logging"
	"github.com/annel0/swagaria-server/internal/protocol"
	"github.com/annel0/swagaria-server/internal/world"
	"github.com/annel0/swagaria-server/internal/world/entity"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

// maxWriteBatch сколько строк из очереди пишется до одного Flush
const maxWriteBatch = 256

var errSessionClosed = errors.New("session closed")

// Session соединение одного игрока. Все строки после рукопожатия идут через
// очередь out, которую разбирает единственная горутина записи.
type Session struct {
	ID          int
	Player      *entity.Player
	ConnectedAt time.Time

	server *GameServer
	conn   LineConn
	logger *logging.Logger

	out        chan string
	closing    chan struct{}
	closeOnce  sync.Once
	writerDone chan struct{}
	reason     atomic.Value // string
	dropped    atomic.Uint64
}

func newSession(s *GameServer, conn LineConn, player *entity.Player) *Session {
	return &Session{
		ID:          player.ID,
		Player:      player,
		ConnectedAt: time.Now(),
		server:      s,
		conn:        conn,
		logger:      s.logger,
		out:         make(chan string, s.cfg.OutboundBuffer),
		closing:     make(chan struct{}),
		writerDone:  make(chan struct{}),
	}
}

// RemoteAddr адрес клиента
func (ss *Session) RemoteAddr() string { return ss.conn.RemoteAddr() }

// Transport имя транспорта (tcp, kcp, ws)
func (ss *Session) Transport() string { return ss.conn.Transport() }

// Dropped число строк, не поместившихся в очередь
func (ss *Session) Dropped() uint64 { return ss.dropped.Load() }

// Send ставит строку в очередь без блокировки. Переполнение очереди
// означает, что клиент не успевает читать: строка теряется, сессия закрывается.
func (ss *Session) Send(line string) bool {
	if ss.isClosing() {
		return false
	}
	select {
	case ss.out <- line:
		return true
	default:
		ss.dropped.Add(1)
		ss.server.metrics.droppedLines.Inc()
		if ss.closeWithReason("outbound buffer overflow") {
			ss.server.metrics.kicked.Inc()
			ss.logger.Warn("⚠️ Игрок %d не успевает читать (%d строк в очереди), отключаем", ss.ID, len(ss.out))
		}
		return false
	}
}

// Close закрывает сессию; очередь дописывается горутиной записи
func (ss *Session) Close() {
	ss.closeWithReason("closed")
}

func (ss *Session) closeWithReason(reason string) bool {
	first := false
	ss.closeOnce.Do(func() {
		first = true
		ss.reason.Store(reason)
		close(ss.closing)
	})
	return first
}

// Reason причина закрытия сессии
func (ss *Session) Reason() string {
	if r, ok := ss.reason.Load().(string); ok {
		return r
	}
	return "disconnect"
}

func (ss *Session) isClosing() bool {
	select {
	case <-ss.closing:
		return true
	default:
		return false
	}
}

// run обслуживает сессию до отключения
func (ss *Session) run() {
	defer ss.server.wg.Done()
	defer ss.server.removeSession(ss)

	if err := ss.handshake(); err != nil {
		ss.logger.Warn("Рукопожатие с игроком %d (%s) не удалось: %v", ss.ID, ss.RemoteAddr(), err)
		ss.closeWithReason("handshake failed")
		ss.conn.Close()
		return
	}

	go ss.writeLoop()
	ss.server.announceJoin(ss)
	ss.readLoop()

	ss.closeWithReason("disconnect")
	<-ss.writerDone
}

// handshake пишет начальное состояние напрямую в соединение, до запуска
// горутины записи. Всё, что разослано другим в это время, ждёт в очереди.
func (ss *Session) handshake() error {
	s := ss.server
	pos := ss.Player.Position()

	lines := []string{protocol.AssignID(ss.ID), s.itemSync, s.tileSync}
	for _, other := range s.players.Snapshot() {
		if other.ID == ss.ID {
			continue
		}
		if !other.Joined() {
			// ещё в рукопожатии: PLAYER_JOIN придёт через очередь
			continue
		}
		op := other.Position()
		lines = append(lines, protocol.PlayerJoin(other.ID, op.X, op.Y))
		if name := other.Name(); name != "" {
			lines = append(lines, protocol.PlayerName(other.ID, name))
		}
	}
	lines = append(lines, protocol.Spawn(ss.ID, pos.X, pos.Y), ss.Player.Inventory.Serialize())
	if err := ss.writeDirect(lines...); err != nil {
		return err
	}

	var werr error
	s.world.ForEachChunk(func(c *world.Chunk) bool {
		if ss.isClosing() {
			werr = errSessionClosed
			return false
		}
		werr = ss.writeDirect(c.Serialize())
		return werr == nil
	})
	if werr != nil {
		return werr
	}

	ss.logger.Debug("Игрок %d получил %d чанков", ss.ID, s.world.ChunksX*s.world.ChunksY)
	return nil
}

func (ss *Session) writeDirect(lines ...string) error {
	if wt := ss.server.cfg.WriteTimeout; wt > 0 {
		_ = ss.conn.SetWriteDeadline(time.Now().Add(wt))
	}
	for _, line := range lines {
		if err := ss.conn.WriteLine(line); err != nil {
			return err
		}
	}
	return ss.conn.Flush()
}

func (ss *Session) writeLoop() {
	defer close(ss.writerDone)
	defer ss.conn.Close()

	for {
		select {
		case line := <-ss.out:
			if err := ss.writeBatch(line); err != nil {
				ss.logger.Debug("Запись игроку %d прервана: %v", ss.ID, err)
				ss.closeWithReason("write error")
				return
			}
		case <-ss.closing:
			ss.drain()
			return
		}
	}
}

func (ss *Session) writeBatch(first string) error {
	if wt := ss.server.cfg.WriteTimeout; wt > 0 {
		_ = ss.conn.SetWriteDeadline(time.Now().Add(wt))
	}
	if err := ss.conn.WriteLine(first); err != nil {
		return err
	}
	for i := 0; i < maxWriteBatch; i++ {
		select {
		case line := <-ss.out:
			if err := ss.conn.WriteLine(line); err != nil {
				return err
			}
		default:
			return ss.conn.Flush()
		}
	}
	return ss.conn.Flush()
}

// drain дописывает то, что уже в очереди (например, SERVER_SHUTDOWN)
func (ss *Session) drain() {
	for {
		select {
		case line := <-ss.out:
			if err := ss.writeBatch(line); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (ss *Session) readLoop() {
	for {
		if rt := ss.server.cfg.ReadTimeout; rt > 0 {
			_ = ss.conn.SetReadDeadline(time.Now().Add(rt))
		}
		line, err := ss.conn.ReadLine()
		if err != nil {
			if errors.Is(err, ErrLineTooLong) {
				ss.server.metrics.commands.WithLabelValues("invalid", "line_too_long").Inc()
				ss.logger.Warn("Игрок %d прислал слишком длинную строку", ss.ID)
				continue
			}
			if !ss.isClosing() {
				ss.logger.Debug("Чтение от игрока %d завершено: %v", ss.ID, err)
			}
			return
		}
		ss.handleLine(line)
	}
}

func (ss *Session) handleLine(line string) {
	cmd, err := protocol.Parse(line)
	if err != nil {
		if errors.Is(err, protocol.ErrEmptyLine) {
			return
		}
		ss.server.metrics.commands.WithLabelValues("invalid", "protocol_error").Inc()
		ss.logger.Warn("Ошибка протокола от игрока %d: %v", ss.ID, err)
		return
	}

	switch cmd.Type {
	case protocol.CmdInput:
		ss.server.handleInput(ss, cmd)
	case protocol.CmdSetName:
		ss.server.handleSetName(ss, cmd)
	case protocol.CmdSetTile, protocol.CmdUseItem:
		ss.server.handleEdit(ss, cmd)
	}
}

// handleSetName меняет имя игрока сессии и рассылает его всем.
// Переименовать другого игрока нельзя.
func (s *GameServer) handleSetName(ss *Session, cmd protocol.Command) {
	if cmd.PlayerID != ss.ID {
		s.metrics.commands.WithLabelValues(string(cmd.Type), "forbidden").Inc()
		ss.logger.Warn("Игрок %d пытался переименовать игрока %d", ss.ID, cmd.PlayerID)
		return
	}
	old := ss.Player.DisplayName()
	ss.Player.SetName(cmd.Name)
	s.metrics.commands.WithLabelValues(string(cmd.Type), "accepted").Inc()
	ss.logger.Info("🏷️ Игрок %d: %s -> %s", ss.ID, old, cmd.Name)

	s.Broadcast(protocol.PlayerName(ss.ID, cmd.Name))
	s.publish(eventbus.TypePlayerNamed, 3, eventbus.PlayerNamed{PlayerID: ss.ID, Name: cmd.Name})
}

// handleInput меняет состояние клавиш указанного игрока
func (s *GameServer) handleInput(ss *Session, cmd protocol.Command) {
	p, ok := s.players.Get(cmd.PlayerID)
	if !ok {
		s.metrics.commands.WithLabelValues(string(cmd.Type), "unknown_player").Inc()
		ss.logger.Debug("INPUT для неизвестного игрока %d", cmd.PlayerID)
		return
	}
	if err := p.ApplyAction(cmd.Action); err != nil {
		s.metrics.commands.WithLabelValues(string(cmd.Type), "protocol_error").Inc()
		ss.logger.Warn("Ошибка протокола от игрока %d: %v", ss.ID, err)
		return
	}
	s.metrics.commands.WithLabelValues(string(cmd.Type), "accepted").Inc()
}

// handleEdit применяет SET_TILE и USE_ITEM от имени игрока сессии
func (s *GameServer) handleEdit(ss *Session, cmd protocol.Command) {
	y := protocol.FlipY(cmd.Y, s.world.Height)

	var res game.Result
	switch cmd.Type {
	case protocol.CmdSetTile:
		switch {
		case cmd.Layer < 0 || cmd.Layer >= int(tile.NumLayers):
			res = game.Result{Rejection: game.RejectInvalidLayer}
		case cmd.TileID < 0 || cmd.TileID > math.MaxInt32:
			res = game.Result{Rejection: game.RejectUnknownTile}
		default:
			res = s.engine.SetTile(ss.Player, cmd.X, y, tile.ID(cmd.TileID), tile.Layer(cmd.Layer))
		}
	case protocol.CmdUseItem:
		res = s.engine.UseItem(ss.Player, cmd.Slot, cmd.X, y)
	}

	s.metrics.commands.WithLabelValues(string(cmd.Type), res.Rejection.String()).Inc()

	for _, slot := range res.Slots {
		ss.Send(ss.Player.Inventory.SlotUpdateLine(ss.ID, slot))
	}

	if !res.Applied() {
		if res.Rejection != game.Accepted {
			ss.logger.Debug("Игрок %d: %s (%d,%d) отклонён: %s", ss.ID, cmd.Type, cmd.X, y, res.Rejection)
		}
		return
	}

	u := res.Update
	s.metrics.tileUpdates.WithLabelValues(u.Layer.String()).Inc()
	s.Broadcast(protocol.UpdateTile(u.X, protocol.FlipY(u.Y, s.world.Height), int(u.Tile), int(u.Layer)))
	s.publish(eventbus.TypeTileChanged, 5, eventbus.TileChanged{
		PlayerID: ss.ID,
		X:        u.X,
		Y:        u.Y,
		Layer:    int(u.Layer),
		TileID:   int(u.Tile),
		Command:  string(cmd.Type),
	})
}
