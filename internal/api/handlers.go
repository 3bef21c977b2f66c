package api

import (
	"bufio"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/swagaria-server/internal/world"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse представляет ответ на вход
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// PlayerInfo состояние подключённого игрока
type PlayerInfo struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
	OnGround  bool    `json:"on_ground"`
	Transport string  `json:"transport"`
	Remote    string  `json:"remote"`
	Online    string  `json:"online"`
	Dropped   uint64  `json:"dropped_lines"`
}

// TileInfo описание типа тайла
type TileInfo struct {
	ID       int32  `json:"id"`
	Name     string `json:"name"`
	Layer    string `json:"layer"`
	Solid    bool   `json:"solid"`
	Platform bool   `json:"platform"`
}

// WorldInfo параметры мира
type WorldInfo struct {
	Seed    int64      `json:"seed"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	ChunksX int        `json:"chunks_x"`
	ChunksY int        `json:"chunks_y"`
	Age     string     `json:"age"`
	Tiles   []TileInfo `json:"tiles"`
}

// ChunkInfo содержимое чанка; строки снизу вверх, как в CHUNK_DATA
type ChunkInfo struct {
	CX         int                                       `json:"cx"`
	CY         int                                       `json:"cy"`
	Changes    int                                       `json:"changes"`
	Foreground [world.ChunkSize][world.ChunkSize]tile.ID `json:"foreground"`
	Background [world.ChunkSize][world.ChunkSize]tile.ID `json:"background"`
}

// handleLogin выдаёт JWT администратору
func (rs *RestServer) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LoginResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}

	if !rs.admin.Authenticate(req.Username, req.Password) {
		rs.logger.Warn("Неудачная попытка входа пользователя %q с %s", req.Username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, LoginResponse{
			Success: false,
			Message: "Неверное имя пользователя или пароль",
		})
		return
	}

	token, err := rs.tokens.Generate(req.Username, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, LoginResponse{
			Success: false,
			Message: "Ошибка генерации токена",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		Message: "Успешная авторизация",
	})
}

// handleStats статистика сервера и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := make(map[string]interface{})

	stats["game"] = map[string]interface{}{
		"players": len(rs.game.Sessions()),
		"ticks":   rs.game.Ticks(),
		"uptime":  FormatUptime(rs.game.Uptime()),
	}

	rssMB, _ := rs.metrics.GetRSSMegabytes()
	cpuPercent, _ := rs.metrics.GetCPUUsage()
	systemMem, _ := rs.metrics.GetSystemMemoryPercent()

	stats["server"] = map[string]interface{}{
		"rss_mb":         fmt.Sprintf("%.2f", rssMB),
		"cpu_percent":    fmt.Sprintf("%.2f", cpuPercent),
		"system_mem_pct": fmt.Sprintf("%.2f", systemMem),
		"server_time":    time.Now().Unix(),
	}
	stats["memory_details"] = rs.metrics.GetDetailedMemoryStats()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

func (rs *RestServer) handlePlayers(c *gin.Context) {
	sessions := rs.game.Sessions()
	out := make([]PlayerInfo, 0, len(sessions))
	for _, ss := range sessions {
		b := ss.Player.Body()
		out = append(out, PlayerInfo{
			ID:        ss.ID,
			Name:      ss.Player.DisplayName(),
			X:         b.X,
			Y:         b.Y,
			VX:        b.VX,
			VY:        b.VY,
			OnGround:  b.OnGround,
			Transport: ss.Transport(),
			Remote:    ss.RemoteAddr(),
			Online:    FormatUptime(time.Since(ss.ConnectedAt)),
			Dropped:   ss.Dropped(),
		})
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Игроки", Data: out})
}

func (rs *RestServer) handleWorld(c *gin.Context) {
	w := rs.game.World()
	defs := w.Catalog().Definitions()
	tiles := make([]TileInfo, 0, len(defs))
	for _, def := range defs {
		tiles = append(tiles, TileInfo{
			ID:       int32(def.ID),
			Name:     def.Name,
			Layer:    def.Layer.String(),
			Solid:    tile.HasCollision(def),
			Platform: def.Platform,
		})
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Мир", Data: WorldInfo{
		Seed:    w.Seed(),
		Width:   w.Width,
		Height:  w.Height,
		ChunksX: w.ChunksX,
		ChunksY: w.ChunksY,
		Age:     FormatUptime(w.Age()),
		Tiles:   tiles,
	}})
}

func (rs *RestServer) handleChunk(c *gin.Context) {
	cx, errX := strconv.Atoi(c.Param("cx"))
	cy, errY := strconv.Atoi(c.Param("cy"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Координаты чанка должны быть целыми"})
		return
	}

	chunk := rs.game.World().Chunk(cx, cy)
	if chunk == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Чанк вне мира"})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанк", Data: ChunkInfo{
		CX:         cx,
		CY:         cy,
		Changes:    chunk.Changes(),
		Foreground: chunk.LayerIDs(tile.Foreground),
		Background: chunk.LayerIDs(tile.Background),
	}})
}

// handleSnapshot отдаёт все чанки строками CHUNK_DATA, сжатыми zstd
func (rs *RestServer) handleSnapshot(c *gin.Context) {
	w := rs.game.World()

	c.Header("Content-Type", "application/zstd")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=world-%d.zst", w.Seed()))
	c.Status(http.StatusOK)

	enc, err := zstd.NewWriter(c.Writer, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		rs.logger.Error("Не удалось создать zstd encoder: %v", err)
		return
	}
	buf := bufio.NewWriter(enc)

	var werr error
	w.ForEachChunk(func(ch *world.Chunk) bool {
		if _, werr = buf.WriteString(ch.Serialize()); werr != nil {
			return false
		}
		werr = buf.WriteByte('\n')
		return werr == nil
	})
	if werr == nil {
		werr = buf.Flush()
	}
	if cerr := enc.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		rs.logger.Warn("Снимок мира прерван: %v", werr)
	}
}

func (rs *RestServer) handleShutdown(c *gin.Context) {
	if rs.shutdown == nil {
		c.JSON(http.StatusNotImplemented, GenericResponse{Success: false, Message: "Остановка недоступна"})
		return
	}
	rs.logger.Warn("🛑 Остановка запрошена администратором %s", adminName(c))
	c.JSON(http.StatusAccepted, GenericResponse{Success: true, Message: "Сервер останавливается"})
	go rs.shutdown()
}

func (rs *RestServer) handleKick(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный id игрока"})
		return
	}
	if !rs.game.Kick(id) {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Игрок не найден"})
		return
	}
	rs.logger.Info("Игрок %d отключён администратором %s", id, adminName(c))
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Игрок отключён"})
}
