package world

import (
	"fmt"
	"time"

	"github.com/annel0/swagaria-server/internal/logging"
	"github.com/annel0/swagaria-server/internal/vec"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

// World сетка чанков фиксированного размера.
//
// Публичные методы принимают координаты сервера: y растёт вниз, строка 0 -
// верх мира. Внутри чанков строки хранятся снизу вверх, поэтому каждое
// обращение переводит y в строку хранения как Height-1-y.
type World struct {
	ChunksX int
	ChunksY int
	Width   int
	Height  int

	seed    int64
	tiles   *tile.Catalog
	gen     *Generator
	chunks  [][]*Chunk // [cx][cy]
	created time.Time
}

// New создаёт мир, генерирует все чанки и выполняет проход декораций
func New(cfg Config, tiles *tile.Catalog) (*World, error) {
	if cfg.ChunksX <= 0 || cfg.ChunksY <= 0 {
		return nil, fmt.Errorf("invalid world size %dx%d chunks", cfg.ChunksX, cfg.ChunksY)
	}
	if tiles == nil {
		return nil, fmt.Errorf("tile catalog is required")
	}

	w := &World{
		ChunksX: cfg.ChunksX,
		ChunksY: cfg.ChunksY,
		Width:   cfg.ChunksX * ChunkSize,
		Height:  cfg.ChunksY * ChunkSize,
		seed:    cfg.Seed,
		tiles:   tiles,
		gen:     NewGenerator(cfg.Seed, cfg.Terrain),
		created: time.Now(),
	}

	start := time.Now()
	w.chunks = make([][]*Chunk, w.ChunksX)
	for cx := 0; cx < w.ChunksX; cx++ {
		w.chunks[cx] = make([]*Chunk, w.ChunksY)
		for cy := 0; cy < w.ChunksY; cy++ {
			w.chunks[cx][cy] = w.gen.GenerateChunk(vec.Vec2{X: cx, Y: cy})
		}
	}

	for cx := 0; cx < w.ChunksX; cx++ {
		for cy := 0; cy < w.ChunksY; cy++ {
			w.decorateChunk(cx, cy)
		}
	}

	// счётчики изменений отсчитываются от готового мира
	w.ForEachChunk(func(c *Chunk) bool {
		c.Mu.Lock()
		c.ChangeCounter = 0
		c.Mu.Unlock()
		return true
	})

	logging.GetWorldLogger().Info("🌍 Мир %dx%d тайлов (сид %d) сгенерирован за %v",
		w.Width, w.Height, w.seed, time.Since(start))
	return w, nil
}

// Seed возвращает сид мира
func (w *World) Seed() int64 {
	return w.seed
}

// Catalog возвращает справочник тайлов мира
func (w *World) Catalog() *tile.Catalog {
	return w.tiles
}

// Bounds возвращает ширину и высоту мира в тайлах
func (w *World) Bounds() (int, int) {
	return w.Width, w.Height
}

// InBounds проверяет, лежит ли клетка внутри мира
func (w *World) InBounds(x, y int) bool {
	return x >= 0 && x < w.Width && y >= 0 && y < w.Height
}

// StorageRow переводит y сервера в строку хранения (снизу вверх)
func (w *World) StorageRow(y int) int {
	return w.Height - 1 - y
}

// Address раскладывает координаты сервера на чанк и локальную клетку.
// Координаты вне мира отклоняются, а не заворачиваются.
func (w *World) Address(x, y int) (chunk, local vec.Vec2, ok bool) {
	if !w.InBounds(x, y) {
		return vec.Vec2{}, vec.Vec2{}, false
	}
	storage := vec.Vec2{X: x, Y: w.StorageRow(y)}
	return storage.ToChunkCoords(), storage.LocalInChunk(), true
}

// GlobalFromAddress собирает координаты сервера из адреса чанка
func (w *World) GlobalFromAddress(chunk, local vec.Vec2) vec.Vec2 {
	storage := vec.FromChunkLocal(chunk, local)
	return vec.Vec2{X: storage.X, Y: w.StorageRow(storage.Y)}
}

// Chunk возвращает чанк по его координатам или nil
func (w *World) Chunk(cx, cy int) *Chunk {
	if cx < 0 || cx >= w.ChunksX || cy < 0 || cy >= w.ChunksY {
		return nil
	}
	return w.chunks[cx][cy]
}

// ForEachChunk обходит чанки по столбцам; fn возвращает false для остановки
func (w *World) ForEachChunk(fn func(c *Chunk) bool) {
	for cx := 0; cx < w.ChunksX; cx++ {
		for cy := 0; cy < w.ChunksY; cy++ {
			if !fn(w.chunks[cx][cy]) {
				return
			}
		}
	}
}

// SerializeChunk возвращает строку CHUNK_DATA для чанка
func (w *World) SerializeChunk(cx, cy int) (string, bool) {
	c := w.Chunk(cx, cy)
	if c == nil {
		return "", false
	}
	return c.Serialize(), true
}

func (w *World) cell(x, y int) (*Chunk, vec.Vec2, bool) {
	chunk, local, ok := w.Address(x, y)
	if !ok {
		return nil, vec.Vec2{}, false
	}
	return w.chunks[chunk.X][chunk.Y], local, true
}

// GetTile возвращает клетку; вне мира - false
func (w *World) GetTile(x, y int, layer tile.Layer) (Tile, bool) {
	if !layer.Valid() {
		return Tile{}, false
	}
	c, local, ok := w.cell(x, y)
	if !ok {
		return Tile{}, false
	}
	return c.Get(layer, local), true
}

// TileID возвращает тип клетки; вне мира - воздух
func (w *World) TileID(x, y int, layer tile.Layer) tile.ID {
	t, _ := w.GetTile(x, y, layer)
	return t.ID
}

// SetTile ставит тип в клетку и сбрасывает прогресс разрушения.
// Неизвестный тип или координаты вне мира - false без изменений.
func (w *World) SetTile(x, y int, layer tile.Layer, id tile.ID) bool {
	if !layer.Valid() || !w.tiles.IsValid(id) {
		return false
	}
	c, local, ok := w.cell(x, y)
	if !ok {
		return false
	}
	c.Set(layer, local, id)
	return true
}

// SwapTile меняет тип клетки, только если сейчас в ней expect.
// Проверка и запись выполняются под блокировкой чанка.
func (w *World) SwapTile(x, y int, layer tile.Layer, expect, next tile.ID) bool {
	if !layer.Valid() || !w.tiles.IsValid(next) {
		return false
	}
	c, local, ok := w.cell(x, y)
	if !ok {
		return false
	}

	c.Mu.Lock()
	defer c.Mu.Unlock()

	if c.Tiles[layer][local.X][local.Y].ID != expect {
		return false
	}
	c.setLocked(layer, local, next)
	return true
}

// DamageOutcome результат удара по клетке
type DamageOutcome int

const (
	DamageRejected DamageOutcome = iota // клетка изменилась или неразрушима
	DamageProgress                      // прогресс вырос, клетка цела
	DamageBroken                        // клетка разрушена и стала воздухом
)

// DamageTile добавляет прогресс разрушения клетке типа expect.
// Когда прогресс достигает прочности, клетка становится воздухом.
func (w *World) DamageTile(x, y int, layer tile.Layer, expect tile.ID, amount float32) DamageOutcome {
	if !layer.Valid() || amount <= 0 {
		return DamageRejected
	}
	def := w.tiles.Lookup(expect)
	if !def.Breakable() {
		return DamageRejected
	}
	c, local, ok := w.cell(x, y)
	if !ok {
		return DamageRejected
	}

	c.Mu.Lock()
	defer c.Mu.Unlock()

	t := &c.Tiles[layer][local.X][local.Y]
	if t.ID != expect {
		return DamageRejected
	}
	t.BreakProgress += amount
	if t.BreakProgress >= float32(def.Durability.Hits) {
		c.setLocked(layer, local, tile.Air)
		return DamageBroken
	}
	return DamageProgress
}

// IsSolid true, если тайл переднего плана блокирует движение.
// Платформа никогда не считается твёрдой.
func (w *World) IsSolid(x, y int) bool {
	t, ok := w.GetTile(x, y, tile.Foreground)
	if !ok || w.tiles.IsPlatform(t.ID) {
		return false
	}
	return tile.HasCollision(w.tiles.Lookup(t.ID))
}

// IsPlatform true, если на переднем плане односторонняя платформа
func (w *World) IsPlatform(x, y int) bool {
	t, ok := w.GetTile(x, y, tile.Foreground)
	return ok && w.tiles.IsPlatform(t.ID)
}

// SurfaceHeight строка поверхности (снизу вверх) по шуму высот
func (w *World) SurfaceHeight(worldX int) int {
	return w.gen.SurfaceHeight(worldX)
}

// FindSpawn возвращает точку в координатах сервера над поверхностью в середине мира
func (w *World) FindSpawn() vec.Vec2Float {
	mid := w.Width / 2
	row := w.SurfaceHeight(mid) + w.gen.Terrain.SpawnClearance
	if row > w.Height-1 {
		row = w.Height - 1
	}
	if row < 1 {
		row = 1
	}
	return vec.Vec2Float{X: float64(mid), Y: float64(w.StorageRow(row))}
}

// Age время жизни мира
func (w *World) Age() time.Duration {
	return time.Since(w.created)
}

// getStorage и setStorage работают в строках хранения и нужны генерации
func (w *World) getStorage(x, row int, layer tile.Layer) (tile.ID, bool) {
	if x < 0 || x >= w.Width || row < 0 || row >= w.Height {
		return tile.Air, false
	}
	return w.TileID(x, w.StorageRow(row), layer), true
}

func (w *World) setStorage(x, row int, layer tile.Layer, id tile.ID) bool {
	if row < 0 || row >= w.Height {
		return false
	}
	return w.SetTile(x, w.StorageRow(row), layer, id)
}
