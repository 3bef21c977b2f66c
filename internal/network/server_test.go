package network

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/swagaria-server/internal/physics"
	"github.com/annel0/swagaria-server/internal/protocol"
	"github.com/annel0/swagaria-server/internal/world"
	"github.com/annel0/swagaria-server/internal/world/item"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

const ioTimeout = 3 * time.Second

// newTestServer поднимает сервер на мире 2x2 чанка без автоматического тика.
// Поверхность опущена, чтобы игрок появлялся в воздухе.
func newTestServer(t *testing.T, cfg Config) (*GameServer, *prometheus.Registry) {
	t.Helper()
	terrain := world.DefaultTerrain()
	terrain.BaseHeight = 8
	terrain.Amplitude = 2
	terrain.SurfaceOffset = 0
	terrain.TreeChance = 0
	w, err := world.New(world.Config{Seed: 42, ChunksX: 2, ChunksY: 2, Terrain: terrain}, tile.DefaultCatalog())
	require.NoError(t, err)

	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Hour
	}
	reg := prometheus.NewRegistry()
	s := NewGameServer(cfg, w, item.DefaultCatalog(), nil, NewMetrics(reg))
	s.StartTicking()
	t.Cleanup(s.Stop)
	return s, reg
}

func serveTCP(t *testing.T, s *GameServer) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.Serve(l, "tcp")
	return l.Addr().String()
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, r: bufio.NewReaderSize(conn, 1<<20)}
}

func (c *testClient) readLine() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(ioTimeout))
	line, err := c.r.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

func (c *testClient) mustRead() string {
	c.t.Helper()
	line, err := c.readLine()
	require.NoError(c.t, err)
	return line
}

// readUntil пропускает строки, пока не встретится строка с префиксом
func (c *testClient) readUntil(prefix string) string {
	c.t.Helper()
	for {
		line := c.mustRead()
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

// handshake читает начальное состояние и возвращает его строки
func (c *testClient) handshake(chunks int) []string {
	c.t.Helper()
	var lines []string
	seen := 0
	for seen < chunks {
		line := c.mustRead()
		lines = append(lines, line)
		if strings.HasPrefix(line, "CHUNK_DATA,") {
			seen++
		}
	}
	return lines
}

// readThrough читает строки до строки с префиксом включительно
func (c *testClient) readThrough(prefix string) []string {
	c.t.Helper()
	var lines []string
	for {
		line := c.mustRead()
		lines = append(lines, line)
		if strings.HasPrefix(line, prefix) {
			return lines
		}
	}
}

// waitJoined ждёт, пока о n игроках объявлено остальным
func waitJoined(t *testing.T, s *GameServer, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		joined := 0
		for _, p := range s.Players() {
			if p.Joined() {
				joined++
			}
		}
		return joined == n
	}, ioTimeout, 5*time.Millisecond)
}

func prefixes(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.SplitN(l, ",", 2)[0]
	}
	return out
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestHandshakeOrder(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	addr := serveTCP(t, s)

	first := dial(t, addr)
	lines := first.handshake(4)
	assert.Equal(t, []string{
		"ASSIGN_ID", "ITEM_DEF_SYNC", "TILE_DEF_SYNC", "SPAWN", "INV_SYNC",
		"CHUNK_DATA", "CHUNK_DATA", "CHUNK_DATA", "CHUNK_DATA",
	}, prefixes(lines))
	assert.Equal(t, "ASSIGN_ID,1", lines[0])
	assert.True(t, strings.HasPrefix(lines[3], "SPAWN,1,"))
	assert.True(t, strings.HasPrefix(lines[5], "CHUNK_DATA,0,0,"), "Чанки идут в порядке cx, затем cy")
	waitJoined(t, s, 1)

	second := dial(t, addr)
	lines = second.handshake(4)
	assert.Equal(t, []string{
		"ASSIGN_ID", "ITEM_DEF_SYNC", "TILE_DEF_SYNC", "PLAYER_JOIN", "SPAWN", "INV_SYNC",
		"CHUNK_DATA", "CHUNK_DATA", "CHUNK_DATA", "CHUNK_DATA",
	}, prefixes(lines))
	assert.Equal(t, "ASSIGN_ID,2", lines[0])
	assert.True(t, strings.HasPrefix(lines[3], "PLAYER_JOIN,1,"), "Новичок узнаёт о тех, кто уже в игре")

	join := first.readUntil("PLAYER_JOIN,")
	assert.True(t, strings.HasPrefix(join, "PLAYER_JOIN,2,"))
	assert.Len(t, s.Players(), 2)
}

func TestLeaveIsBroadcast(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	addr := serveTCP(t, s)

	first := dial(t, addr)
	first.handshake(4)
	waitJoined(t, s, 1)
	second := dial(t, addr)
	second.handshake(4)
	first.readUntil("PLAYER_JOIN,2,")

	second.conn.Close()
	assert.Equal(t, "PLAYER_LEAVE,2", first.readUntil("PLAYER_LEAVE,"))
	require.Eventually(t, func() bool { return len(s.Players()) == 1 }, ioTimeout, 10*time.Millisecond)

	third := dial(t, addr)
	assert.Equal(t, "ASSIGN_ID,3", third.mustRead(), "Идентификаторы не переиспользуются")
}

func TestTickBroadcastsMovement(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	addr := serveTCP(t, s)

	c := dial(t, addr)
	lines := c.handshake(4)
	spawn := strings.Split(lines[3], ",")
	require.Len(t, spawn, 4)
	spawnX, err := strconv.ParseFloat(spawn[2], 64)
	require.NoError(t, err)
	waitJoined(t, s, 1)
	player := s.Players()[0]

	c.send("INPUT,1,RIGHT_DOWN")
	require.Eventually(t, func() bool { return player.Input().Right }, ioTimeout, 5*time.Millisecond)

	s.Tick(0.016)
	move := strings.Split(c.readUntil("PLAYER_MOVE,"), ",")
	require.Len(t, move, 4)
	assert.Equal(t, "1", move[1])
	x, err := strconv.ParseFloat(move[2], 64)
	require.NoError(t, err)
	assert.InDelta(t, spawnX+6*0.016, x, 0.002)

	pressed := player.Position().X
	s.Tick(0.016)
	assert.Greater(t, player.Position().X, pressed, "Пока клавиша нажата, x растёт")

	c.send("INPUT,1,RIGHT_UP")
	require.Eventually(t, func() bool { return !player.Input().Right }, ioTimeout, 5*time.Millisecond)

	released := player.Position().X
	s.Tick(0.016)
	s.Tick(0.016)
	assert.Equal(t, released, player.Position().X, "После отпускания x не меняется")
	assert.EqualValues(t, 4, s.Ticks())
}

func TestTickSkipsPlayerBeforeJoin(t *testing.T) {
	s, _ := newTestServer(t, Config{OutboundBuffer: 64})
	conn := newStallConn()
	conn.stalled.Store(true)

	done := make(chan struct{})
	go func() {
		s.ServeLineConn(conn)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(s.Players()) == 1 }, ioTimeout, 5*time.Millisecond)
	p := s.Players()[0]
	require.False(t, p.Joined(), "Рукопожатие остановлено на первой строке")
	require.NoError(t, p.ApplyAction("RIGHT_DOWN"))

	before := p.Position()
	s.Tick(0.016)
	assert.Equal(t, before, p.Position(), "Игрок в рукопожатии не двигается")

	close(conn.gate)
	waitJoined(t, s, 1)
	s.Tick(0.016)
	assert.Greater(t, p.Position().X, before.X)

	conn.Close()
	select {
	case <-done:
	case <-time.After(ioTimeout):
		t.Fatal("Сессия не завершилась")
	}
}

func TestSetTileBroadcastsFlippedY(t *testing.T) {
	s, reg := newTestServer(t, Config{})
	w := s.World()
	// пустая клетка с опорой снизу
	require.True(t, w.SetTile(3, 20, tile.Foreground, tile.Air))
	require.True(t, w.SetTile(3, 20, tile.Background, tile.Air))
	require.True(t, w.SetTile(3, 21, tile.Foreground, tile.Stone))

	addr := serveTCP(t, s)
	first := dial(t, addr)
	first.handshake(4)
	waitJoined(t, s, 1)
	second := dial(t, addr)
	second.handshake(4)

	clientY := protocol.FlipY(20, w.Height)
	first.send("SET_TILE,3," + strconv.Itoa(clientY) + ",3,0")

	want := "UPDATE_TILE,3," + strconv.Itoa(clientY) + ",3,0"
	assert.Equal(t, want, first.readUntil("UPDATE_TILE,"))
	assert.Equal(t, want, second.readUntil("UPDATE_TILE,"))
	assert.Equal(t, tile.Stone, w.TileID(3, 20, tile.Foreground))

	// повтор в занятую клетку отклоняется молча
	first.send("SET_TILE,3," + strconv.Itoa(clientY) + ",3,0")
	first.send("BOGUS")
	require.Eventually(t, func() bool {
		return counterValue(t, reg, "game_commands_total") >= 3
	}, ioTimeout, 10*time.Millisecond)
	assert.EqualValues(t, 1, counterValue(t, reg, "game_tile_updates_total"))
}

func TestPlaceStoneInsideOwnBody(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	w := s.World()
	const clientY = 5
	y := protocol.FlipY(clientY, w.Height)
	for _, cell := range [][2]int{{10, y}, {10, y + 1}, {11, y}} {
		require.True(t, w.SetTile(cell[0], cell[1], tile.Foreground, tile.Air))
		require.True(t, w.SetTile(cell[0], cell[1], tile.Background, tile.Air))
	}
	require.True(t, w.SetTile(9, y, tile.Foreground, tile.Stone))

	addr := serveTCP(t, s)
	c := dial(t, addr)
	c.handshake(4)
	waitJoined(t, s, 1)
	s.Players()[0].SetBody(physics.Body{X: 10, Y: float64(y)})

	stoneID := strconv.Itoa(int(tile.Stone))
	c.send("SET_TILE,10,5," + stoneID + ",0")
	assert.Equal(t, "UPDATE_TILE,10,5,"+stoneID+",0", c.readUntil("UPDATE_TILE,"))
	assert.True(t, w.IsSolid(10, y))

	// повтор без разрушения отклоняется; SETNAME служит меткой конца обработки
	c.send("SET_TILE,10,5," + stoneID + ",0")
	c.send("SETNAME,1,Marker")
	for _, line := range c.readThrough("PLAYER_NAME,") {
		assert.False(t, strings.HasPrefix(line, "UPDATE_TILE,"), "Второй рассылки нет: %s", line)
	}
}

func TestSetNameBroadcast(t *testing.T) {
	s, reg := newTestServer(t, Config{})
	addr := serveTCP(t, s)

	first := dial(t, addr)
	first.handshake(4)
	waitJoined(t, s, 1)
	second := dial(t, addr)
	second.handshake(4)
	waitJoined(t, s, 2)

	first.send("SETNAME,1,  Steve, the Miner ")
	assert.Equal(t, "PLAYER_NAME,1,Steve, the Miner", first.readUntil("PLAYER_NAME,"))
	assert.Equal(t, "PLAYER_NAME,1,Steve, the Miner", second.readUntil("PLAYER_NAME,"))
	assert.Equal(t, "Steve, the Miner", s.Players()[0].Name())

	// чужое имя не меняется, пустое имя - ошибка протокола
	first.send("SETNAME,2,Impostor")
	first.send("SETNAME,1,   ")
	require.Eventually(t, func() bool {
		return counterValue(t, reg, "game_commands_total") >= 3
	}, ioTimeout, 5*time.Millisecond)
	assert.Equal(t, "Player2", s.Players()[1].DisplayName())

	third := dial(t, addr)
	lines := third.handshake(4)
	assert.Equal(t, []string{
		"ASSIGN_ID", "ITEM_DEF_SYNC", "TILE_DEF_SYNC", "PLAYER_JOIN", "PLAYER_NAME", "PLAYER_JOIN", "SPAWN", "INV_SYNC",
		"CHUNK_DATA", "CHUNK_DATA", "CHUNK_DATA", "CHUNK_DATA",
	}, prefixes(lines))
	assert.Equal(t, "PLAYER_NAME,1,Steve, the Miner", lines[4], "Новичок узнаёт выбранные имена")
}

func TestPlayerLimit(t *testing.T) {
	s, reg := newTestServer(t, Config{PlayerLimit: 1})
	addr := serveTCP(t, s)

	first := dial(t, addr)
	first.handshake(4)

	second := dial(t, addr)
	_, err := second.readLine()
	assert.Error(t, err, "Сверх лимита соединение закрывается")
	assert.Len(t, s.Players(), 1)
	assert.EqualValues(t, 1, counterValue(t, reg, "game_connections_rejected_total"))
}

// stallConn фейковое соединение, запись в которое можно приостановить
type stallConn struct {
	mu      sync.Mutex
	lines   []string
	stalled atomic.Bool
	gate    chan struct{}
	closed  chan struct{}
	once    sync.Once
}

func newStallConn() *stallConn {
	return &stallConn{gate: make(chan struct{}), closed: make(chan struct{})}
}

func (c *stallConn) ReadLine() (string, error) {
	<-c.closed
	return "", net.ErrClosed
}

func (c *stallConn) WriteLine(line string) error {
	if c.stalled.Load() {
		<-c.gate
	}
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
	return nil
}

func (c *stallConn) count(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func (c *stallConn) Flush() error                     { return nil }
func (c *stallConn) SetReadDeadline(time.Time) error  { return nil }
func (c *stallConn) SetWriteDeadline(time.Time) error { return nil }
func (c *stallConn) RemoteAddr() string               { return "stall" }
func (c *stallConn) Transport() string                { return "test" }
func (c *stallConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func TestOutboundOverflowClosesSession(t *testing.T) {
	s, reg := newTestServer(t, Config{OutboundBuffer: 4})
	conn := newStallConn()

	done := make(chan struct{})
	go func() {
		s.ServeLineConn(conn)
		close(done)
	}()
	require.Eventually(t, func() bool { return conn.count("CHUNK_DATA,") == 4 }, ioTimeout, 5*time.Millisecond)

	sessions := s.Sessions()
	require.Len(t, sessions, 1)
	ss := sessions[0]

	conn.stalled.Store(true)
	for i := 0; i < 20; i++ {
		s.Broadcast(protocol.PlayerLeave(100 + i))
	}
	assert.Equal(t, "outbound buffer overflow", ss.Reason())
	assert.GreaterOrEqual(t, ss.Dropped(), uint64(1))

	close(conn.gate)
	select {
	case <-done:
	case <-time.After(ioTimeout):
		t.Fatal("Сессия не завершилась после переполнения")
	}
	assert.Empty(t, s.Sessions())
	assert.Empty(t, s.Players())
	assert.GreaterOrEqual(t, counterValue(t, reg, "game_outbound_dropped_total"), 1.0)
	assert.EqualValues(t, 1, counterValue(t, reg, "game_sessions_kicked_total"))
}

func TestKickAndShutdown(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	addr := serveTCP(t, s)

	first := dial(t, addr)
	first.handshake(4)
	waitJoined(t, s, 1)
	second := dial(t, addr)
	second.handshake(4)

	assert.False(t, s.Kick(99))
	assert.True(t, s.Kick(2))
	assert.Equal(t, "PLAYER_LEAVE,2", first.readUntil("PLAYER_LEAVE,"))

	s.Stop()
	assert.Equal(t, protocol.ServerShutdown, first.readUntil(protocol.ServerShutdown))
	for {
		if _, err := first.readLine(); err != nil {
			break
		}
	}
	assert.Empty(t, s.Sessions())
}

func TestWebSocketSession(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	httpSrv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	_ = ws.SetReadDeadline(time.Now().Add(ioTimeout))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ASSIGN_ID,1", string(msg))

	require.Eventually(t, func() bool { return len(s.Sessions()) == 1 }, ioTimeout, 5*time.Millisecond)
	assert.Equal(t, "ws", s.Sessions()[0].Transport())

	// несколько команд в одном сообщении
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("INPUT,1,LEFT_DOWN\nINPUT,1,UP_DOWN")))
	require.Eventually(t, func() bool {
		in := s.Players()[0].Input()
		return in.Left && in.Up
	}, ioTimeout, 5*time.Millisecond)
}
