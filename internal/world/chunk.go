package world

import (
	"strconv"
	"strings"
	"sync"

	"github.com/annel0/swagaria-server/internal/vec"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

// ChunkSize сторона чанка в тайлах
const ChunkSize = 1 << vec.ChunkShift

// Tile состояние одной клетки слоя
type Tile struct {
	ID            tile.ID
	BreakProgress float32
}

// Chunk представляет участок мира размером 16x16 клеток в двух слоях.
// Строки хранятся снизу вверх (строка 0 - нижняя), как их видит клиент.
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире

	// Tiles[layer][x][row]
	Tiles [tile.NumLayers][ChunkSize][ChunkSize]Tile

	ChangeCounter int          // Счетчик изменений после генерации
	Mu            sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт пустой (заполненный воздухом) чанк с указанными координатами
func NewChunk(coords vec.Vec2) *Chunk {
	return &Chunk{Coords: coords}
}

// Get возвращает клетку по локальным координатам
func (c *Chunk) Get(layer tile.Layer, local vec.Vec2) Tile {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.Tiles[layer][local.X][local.Y]
}

// Set меняет тип клетки и сбрасывает прогресс разрушения
func (c *Chunk) Set(layer tile.Layer, local vec.Vec2, id tile.ID) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.setLocked(layer, local, id)
}

func (c *Chunk) setLocked(layer tile.Layer, local vec.Vec2, id tile.ID) {
	c.Tiles[layer][local.X][local.Y] = Tile{ID: id}
	c.ChangeCounter++
}

// Changes возвращает число изменений после генерации
func (c *Chunk) Changes() int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.ChangeCounter
}

// LayerIDs возвращает копию типов слоя в порядке [row][x]
func (c *Chunk) LayerIDs(layer tile.Layer) [ChunkSize][ChunkSize]tile.ID {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	var out [ChunkSize][ChunkSize]tile.ID
	for row := 0; row < ChunkSize; row++ {
		for x := 0; x < ChunkSize; x++ {
			out[row][x] = c.Tiles[layer][x][row].ID
		}
	}
	return out
}

// Serialize строит строку CHUNK_DATA,cx,cy,<слой 0>,<слой 1>;
// внутри слоя строки идут от 0 до 15, в строке - столбцы от 0 до 15.
func (c *Chunk) Serialize() string {
	var sb strings.Builder
	sb.Grow(16 + int(tile.NumLayers)*ChunkSize*ChunkSize*3)
	c.AppendSerialized(&sb)
	return sb.String()
}

// AppendSerialized дописывает строку CHUNK_DATA в sb
func (c *Chunk) AppendSerialized(sb *strings.Builder) {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	sb.WriteString("CHUNK_DATA,")
	sb.WriteString(strconv.Itoa(c.Coords.X))
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(c.Coords.Y))
	for layer := tile.Layer(0); layer < tile.NumLayers; layer++ {
		for row := 0; row < ChunkSize; row++ {
			for x := 0; x < ChunkSize; x++ {
				sb.WriteByte(',')
				sb.WriteString(strconv.Itoa(int(c.Tiles[layer][x][row].ID)))
			}
		}
	}
}
