package world

import (
	"math"

	"github.com/annel0/swagaria-server/internal/util"
	"github.com/annel0/swagaria-server/internal/vec"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

// Generator заполняет чанки рельефом. Результат - чистая функция
// (сид мира, координаты чанка), поэтому повторная генерация даёт те же клетки.
type Generator struct {
	Seed    int64
	Terrain TerrainConfig

	height *util.NoiseField
	caves  *util.NoiseField
}

// NewGenerator создаёт генератор с двумя независимыми полями шума
func NewGenerator(seed int64, terrain TerrainConfig) *Generator {
	return &Generator{
		Seed:    seed,
		Terrain: terrain,
		height:  util.NewNoiseField(seed),
		caves:   util.NewNoiseField(seed + terrain.CaveSeedOffset),
	}
}

// SurfaceHeight возвращает строку поверхности (снизу вверх) для столбца
func (g *Generator) SurfaceHeight(worldX int) int {
	t := g.Terrain
	n := g.height.Eval(float64(worldX)*t.Frequency, 0)
	return int(math.Floor(t.BaseHeight + n*t.Amplitude + t.SurfaceOffset))
}

// IsCave сообщает, вырезан ли в клетке воздух шумом пещер
func (g *Generator) IsCave(worldX, worldY int) bool {
	t := g.Terrain
	return g.caves.Eval(float64(worldX)*t.CaveFrequency, float64(worldY)*t.CaveFrequency) > t.CaveThreshold
}

// Classify возвращает пару (передний план, стена) для клетки
func (g *Generator) Classify(worldX, worldY, surfaceY int) (fg, bg tile.ID) {
	t := g.Terrain
	switch {
	case worldY == 0:
		return tile.Bedrock, tile.SlateWall
	case worldY > surfaceY:
		return tile.Air, tile.Air
	case worldY == surfaceY:
		return tile.Grass, tile.DirtWall
	case worldY > surfaceY-t.DirtDepth:
		return tile.Dirt, tile.DirtWall
	}

	fg, bg = tile.Stone, tile.StoneWall
	if worldY < surfaceY-t.SlateDepth {
		fg, bg = tile.Slate, tile.SlateWall
	}
	if worldY < surfaceY-t.DirtDepth && g.IsCave(worldX, worldY) {
		fg = tile.Air
	}
	return fg, bg
}

// Fill заполняет чанк базовым рельефом без декораций
func (g *Generator) Fill(c *Chunk) {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	origin := vec.FromChunkLocal(c.Coords, vec.Vec2{})
	for x := 0; x < ChunkSize; x++ {
		worldX := origin.X + x
		surfaceY := g.SurfaceHeight(worldX)
		for row := 0; row < ChunkSize; row++ {
			fg, bg := g.Classify(worldX, origin.Y+row, surfaceY)
			c.Tiles[tile.Foreground][x][row] = Tile{ID: fg}
			c.Tiles[tile.Background][x][row] = Tile{ID: bg}
		}
	}
}

// GenerateChunk создаёт и заполняет чанк по его координатам
func (g *Generator) GenerateChunk(coords vec.Vec2) *Chunk {
	c := NewChunk(coords)
	g.Fill(c)
	return c
}
