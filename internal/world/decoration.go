package world

import (
	"math/rand"

	"github.com/annel0/swagaria-server/internal/util"
	"github.com/annel0/swagaria-server/internal/vec"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

// canopyOffsets смещения листвы относительно верхнего бревна (вверх - +y)
var canopyOffsets = []vec.Vec2{
	{X: -2, Y: 0}, {X: -1, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0},
	{X: -2, Y: 1}, {X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1},
	{X: -1, Y: 2}, {X: 0, Y: 2}, {X: 1, Y: 2},
	{X: 0, Y: 3},
}

// decorateChunk сажает деревья и флору в чанке. Запись идёт через мир,
// потому что крона может выходить за границы чанка.
func (w *World) decorateChunk(cx, cy int) {
	rng := rand.New(rand.NewSource(util.ChunkSeed(w.seed, cx, cy)))
	t := w.gen.Terrain
	origin := vec.FromChunkLocal(vec.Vec2{X: cx, Y: cy}, vec.Vec2{})

	for x := 0; x < ChunkSize; x++ {
		worldX := origin.X + x
		row, ok := w.findGrass(worldX, origin.Y)
		if !ok {
			continue
		}
		if rng.Float64() < t.TreeChance && w.canGrowTree(worldX, row) {
			w.growTree(rng, worldX, row)
		}
	}

	for x := 0; x < ChunkSize; x++ {
		worldX := origin.X + x
		row, ok := w.findGrass(worldX, origin.Y)
		if !ok || !w.isOpenAbove(worldX, row) {
			continue
		}
		if rng.Float64() >= t.FloraChance {
			continue
		}
		flora := tile.TallGrass
		if rng.Float64() < t.FlowerChance {
			flora = tile.Flower
		}
		w.setStorage(worldX, row+1, w.tiles.Lookup(flora).Layer, flora)
	}
}

// findGrass ищет сверху вниз траву с воздухом над ней в строках чанка
func (w *World) findGrass(worldX, baseRow int) (int, bool) {
	for row := baseRow + ChunkSize - 1; row >= baseRow; row-- {
		id, ok := w.getStorage(worldX, row, tile.Foreground)
		if !ok || id != tile.Grass {
			continue
		}
		above, inside := w.getStorage(worldX, row+1, tile.Foreground)
		if !inside || above == tile.Air {
			return row, true
		}
	}
	return 0, false
}

// isOpenAbove true, если клетка над травой пуста в обоих слоях
func (w *World) isOpenAbove(worldX, row int) bool {
	fg, ok := w.getStorage(worldX, row+1, tile.Foreground)
	if !ok {
		return false
	}
	bg, _ := w.getStorage(worldX, row+1, tile.Background)
	return fg == tile.Air && bg == tile.Air
}

// canGrowTree проверяет свободное место и расстояние до соседних стволов.
// Основания соседних деревьев могут лежать на другой высоте, поэтому
// каждый столбец просматривается на всю возможную высоту ствола.
func (w *World) canGrowTree(worldX, row int) bool {
	if !w.isOpenAbove(worldX, row) {
		return false
	}
	t := w.gen.Terrain
	logLayer := w.tiles.Lookup(tile.WoodLog).Layer
	for dx := -t.TreeSpacing; dx <= t.TreeSpacing; dx++ {
		for r := row - t.TreeMaxHeight; r <= row+t.TreeMaxHeight; r++ {
			if id, ok := w.getStorage(worldX+dx, r, logLayer); ok && id == tile.WoodLog {
				return false
			}
		}
	}
	return true
}

func (w *World) growTree(rng *rand.Rand, worldX, row int) {
	t := w.gen.Terrain
	height := t.TreeMinHeight
	if t.TreeMaxHeight > t.TreeMinHeight {
		height += rng.Intn(t.TreeMaxHeight - t.TreeMinHeight + 1)
	}

	logLayer := w.tiles.Lookup(tile.WoodLog).Layer
	for i := 1; i <= height; i++ {
		w.setStorage(worldX, row+i, logLayer, tile.WoodLog)
	}

	top := row + height
	leafLayer := w.tiles.Lookup(tile.Leaves).Layer
	for _, off := range canopyOffsets {
		x, r := worldX+off.X, top+off.Y
		if id, ok := w.getStorage(x, r, leafLayer); ok && id == tile.Air {
			w.setStorage(x, r, leafLayer, tile.Leaves)
		}
	}
}
