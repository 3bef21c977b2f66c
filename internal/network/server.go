package network

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/annel0/swagaria-server/internal/eventbus"
	"github.com/annel0/swagaria-server/internal/game"
	"github.com/annel0/swagaria-server/internal/logging"
	"github.com/annel0/swagaria-server/internal/physics"
	"github.com/annel0/swagaria-server/internal/protocol"
	"github.com/annel0/swagaria-server/internal/vec"
	"github.com/annel0/swagaria-server/internal/world"
	"github.com/annel0/swagaria-server/internal/world/entity"
	"github.com/annel0/swagaria-server/internal/world/item"
)

// Config параметры игрового сервера
type Config struct {
	TCPAddr        string // пусто - TCP не слушаем
	KCPAddr        string // пусто - KCP не слушаем
	PlayerLimit    int
	TickInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	OutboundBuffer int
	MaxLineBytes   int
	ReachDistance  float64
}

func (c Config) withDefaults() Config {
	if c.PlayerLimit <= 0 {
		c.PlayerLimit = 10
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 16 * time.Millisecond
	}
	if c.OutboundBuffer <= 0 {
		c.OutboundBuffer = 8192
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = 4096
	}
	if c.ReachDistance <= 0 {
		c.ReachDistance = 8000
	}
	return c
}

// Конфигурация WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameServer принимает соединения, ведёт тик физики и рассылает изменения мира
type GameServer struct {
	cfg      Config
	world    *world.World
	items    *item.Catalog
	players  *entity.PlayerManager
	sessions *sessionRegistry
	engine   *game.Engine
	stepper  *physics.Stepper
	bus      eventbus.EventBus
	metrics  *Metrics
	logger   *logging.Logger

	itemSync string
	tileSync string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	admitMu   sync.Mutex // проверка лимита и регистрация игрока атомарны
	running   bool       // под admitMu
	stopOnce  sync.Once
	listenMu  sync.Mutex
	listeners []net.Listener

	startedAt time.Time
	ticks     atomic.Uint64
}

// NewGameServer создаёт сервер над готовым миром. bus может быть nil.
func NewGameServer(cfg Config, w *world.World, items *item.Catalog, bus eventbus.EventBus, metrics *Metrics) *GameServer {
	cfg = cfg.withDefaults()
	players := entity.NewPlayerManager()
	ctx, cancel := context.WithCancel(context.Background())

	return &GameServer{
		cfg:      cfg,
		world:    w,
		items:    items,
		players:  players,
		sessions: newSessionRegistry(),
		engine: game.NewEngine(w, items, game.Options{
			ReachDistance: cfg.ReachDistance,
			Collider:      physics.PlayerCollider,
		}),
		stepper:  physics.NewStepper(physics.DefaultParams(), w),
		bus:      bus,
		metrics:  metrics,
		logger:   logging.GetNetworkLogger(),
		itemSync: items.SyncLine(),
		tileSync: w.Catalog().SyncLine(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start открывает настроенные листенеры и запускает тик
func (s *GameServer) Start() error {
	var listeners []net.Listener
	var transports []string

	if s.cfg.TCPAddr != "" {
		l, err := ListenTCP(s.cfg.TCPAddr)
		if err != nil {
			return err
		}
		listeners = append(listeners, l)
		transports = append(transports, "tcp")
	}
	if s.cfg.KCPAddr != "" {
		l, err := ListenKCP(s.cfg.KCPAddr)
		if err != nil {
			for _, prev := range listeners {
				prev.Close()
			}
			return err
		}
		listeners = append(listeners, l)
		transports = append(transports, "kcp")
	}

	s.StartTicking()
	for i, l := range listeners {
		s.Serve(l, transports[i])
	}
	return nil
}

// StartTicking переводит сервер в рабочее состояние и запускает тик без листенеров
func (s *GameServer) StartTicking() {
	s.admitMu.Lock()
	if s.running {
		s.admitMu.Unlock()
		return
	}
	s.running = true
	s.startedAt = time.Now()
	s.wg.Add(1)
	s.admitMu.Unlock()

	go s.tickLoop()
	s.logger.Info("🚀 Игровой сервер запущен: мир %dx%d, тик %v, лимит игроков %d",
		s.world.Width, s.world.Height, s.cfg.TickInterval, s.cfg.PlayerLimit)
}

// Serve принимает соединения с листенера в отдельной горутине
func (s *GameServer) Serve(l net.Listener, transport string) {
	s.listenMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenMu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(l, transport)
	s.logger.Info("📡 Слушаем %s на %s", transport, l.Addr())
}

func (s *GameServer) acceptLoop(l net.Listener, transport string) {
	defer s.wg.Done()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Ошибка принятия соединения (%s): %v", transport, err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		lc := NewStreamConn(conn, transport, s.cfg.MaxLineBytes)
		ss, ok := s.admit(lc)
		if !ok {
			lc.Close()
			continue
		}
		go ss.run()
	}
}

// HandleWebSocket переводит HTTP запрос в WebSocket сессию и обслуживает её
func (s *GameServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Ошибка апгрейда WebSocket: %v", err)
		return
	}
	s.ServeLineConn(NewWebSocketConn(conn, s.cfg.MaxLineBytes))
}

// ServeLineConn обслуживает готовое соединение в текущей горутине
func (s *GameServer) ServeLineConn(conn LineConn) {
	ss, ok := s.admit(conn)
	if !ok {
		conn.Close()
		return
	}
	ss.run()
}

// admit создаёт игрока и сессию, если сервер работает и есть место
func (s *GameServer) admit(conn LineConn) (*Session, bool) {
	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	if !s.running {
		s.metrics.rejected.Inc()
		return nil, false
	}
	if s.players.Len() >= s.cfg.PlayerLimit {
		s.metrics.rejected.Inc()
		s.logger.Warn("Отклонено соединение %s: достигнут лимит игроков (%d)", conn.RemoteAddr(), s.cfg.PlayerLimit)
		return nil, false
	}

	id := s.players.NextID()
	player := entity.NewPlayer(id, s.spawnPoint(), item.NewInventory(s.items, item.StarterKit))
	ss := newSession(s, conn, player)

	// сессия попадает в реестр до рукопожатия, чтобы не пропустить рассылки
	s.sessions.Add(ss)
	s.players.Add(player)
	s.wg.Add(1)

	s.metrics.connections.WithLabelValues(conn.Transport()).Inc()
	s.metrics.players.Set(float64(s.players.Len()))
	s.logger.Info("👤 Игрок %d подключился (%s, %s)", id, conn.Transport(), conn.RemoteAddr())
	return ss, true
}

// spawnPoint левый верхний угол тела игрока над точкой появления
func (s *GameServer) spawnPoint() vec.Vec2Float {
	p := s.world.FindSpawn()
	p.Y -= physics.PlayerCollider.Height
	if p.Y < 0 {
		p.Y = 0
	}
	return p
}

func (s *GameServer) announceJoin(ss *Session) {
	// флаг ставится до рассылки: параллельное рукопожатие либо увидит
	// игрока в снимке, либо получит PLAYER_JOIN через очередь
	ss.Player.MarkJoined()
	pos := ss.Player.Position()
	s.BroadcastExcept(protocol.PlayerJoin(ss.ID, pos.X, pos.Y), ss.ID)
	s.publish(eventbus.TypePlayerJoined, 5, eventbus.PlayerJoined{
		PlayerID:  ss.ID,
		X:         pos.X,
		Y:         pos.Y,
		Transport: ss.Transport(),
		Remote:    ss.RemoteAddr(),
	})
}

// removeSession убирает игрока и сообщает остальным
func (s *GameServer) removeSession(ss *Session) {
	if _, ok := s.sessions.Remove(ss.ID); !ok {
		return
	}
	s.players.Remove(ss.ID)
	s.metrics.players.Set(float64(s.players.Len()))

	s.Broadcast(protocol.PlayerLeave(ss.ID))
	s.publish(eventbus.TypePlayerLeft, 5, eventbus.PlayerLeft{PlayerID: ss.ID, Reason: ss.Reason()})
	s.logger.Info("👋 Игрок %d отключился (%s)", ss.ID, ss.Reason())
}

// Broadcast ставит строку в очередь каждой сессии
func (s *GameServer) Broadcast(line string) {
	for _, ss := range s.sessions.Snapshot() {
		ss.Send(line)
	}
}

// BroadcastExcept рассылает всем, кроме сессии except
func (s *GameServer) BroadcastExcept(line string, except int) {
	for _, ss := range s.sessions.Snapshot() {
		if ss.ID != except {
			ss.Send(line)
		}
	}
}

// Kick закрывает сессию игрока
func (s *GameServer) Kick(id int) bool {
	ss, ok := s.sessions.Get(id)
	if !ok {
		return false
	}
	if ss.closeWithReason("kicked") {
		s.metrics.kicked.Inc()
	}
	return true
}

func (s *GameServer) publish(eventType string, priority int, payload interface{}) {
	if s.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope("game-server", eventType, priority, payload)
	if err != nil {
		s.logger.Warn("Не удалось упаковать событие %s: %v", eventType, err)
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	if err := s.bus.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("Событие %s не опубликовано: %v", eventType, err)
	}
}

// Stop рассылает SERVER_SHUTDOWN, закрывает листенеры и ждёт завершения сессий
func (s *GameServer) Stop() {
	s.stopOnce.Do(func() {
		s.admitMu.Lock()
		s.running = false
		s.admitMu.Unlock()

		s.cancel()

		s.listenMu.Lock()
		for _, l := range s.listeners {
			l.Close()
		}
		s.listenMu.Unlock()

		for _, ss := range s.sessions.Snapshot() {
			ss.Send(protocol.ServerShutdown)
			ss.closeWithReason("server shutdown")
		}

		s.wg.Wait()
		s.logger.Info("🛑 Игровой сервер остановлен")
	})
}

// Players снимок игроков
func (s *GameServer) Players() []*entity.Player { return s.players.Snapshot() }

// Sessions снимок сессий
func (s *GameServer) Sessions() []*Session { return s.sessions.Snapshot() }

// World мир сервера
func (s *GameServer) World() *world.World { return s.world }

// Engine движок правок
func (s *GameServer) Engine() *game.Engine { return s.engine }

// Ticks число выполненных тиков
func (s *GameServer) Ticks() uint64 { return s.ticks.Load() }

// Uptime время с запуска
func (s *GameServer) Uptime() time.Duration {
	s.admitMu.Lock()
	defer s.admitMu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// Addrs адреса активных листенеров
func (s *GameServer) Addrs() []net.Addr {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	out := make([]net.Addr, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l.Addr())
	}
	return out
}
