package game

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/swagaria-server/internal/physics"
	"github.com/annel0/swagaria-server/internal/vec"
	"github.com/annel0/swagaria-server/internal/world"
	"github.com/annel0/swagaria-server/internal/world/entity"
	"github.com/annel0/swagaria-server/internal/world/item"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

const floorY = 12

type fixture struct {
	world   *world.World
	items   *item.Catalog
	engine  *Engine
	player  *entity.Player
}

// newFixture строит пустой мир 16x16 с каменным полом на строке floorY
// и игроком, стоящим на полу в x=4
func newFixture(t *testing.T, reach float64) *fixture {
	t.Helper()
	w, err := world.New(world.Config{Seed: 7, ChunksX: 1, ChunksY: 1, Terrain: world.DefaultTerrain()}, tile.DefaultCatalog())
	require.NoError(t, err)

	for x := 0; x < w.Width; x++ {
		for y := 0; y < w.Height; y++ {
			require.True(t, w.SetTile(x, y, tile.Foreground, tile.Air))
			require.True(t, w.SetTile(x, y, tile.Background, tile.Air))
		}
		require.True(t, w.SetTile(x, floorY, tile.Foreground, tile.Stone))
	}

	items := item.DefaultCatalog()
	p := entity.NewPlayer(1, vec.Vec2Float{X: 4, Y: floorY - 2}, item.NewInventory(items, item.StarterKit))

	return &fixture{
		world:  w,
		items:  items,
		engine: NewEngine(w, items, Options{ReachDistance: reach, Collider: physics.PlayerCollider}),
		player: p,
	}
}

func TestPlaceTileNextToFloor(t *testing.T) {
	f := newFixture(t, 8000)

	res := f.engine.SetTile(f.player, 8, floorY-1, tile.Stone, tile.Foreground)
	require.True(t, res.Applied(), res.Rejection.String())
	assert.Equal(t, &TileUpdate{X: 8, Y: floorY - 1, Layer: tile.Foreground, Tile: tile.Stone}, res.Update)
	assert.Empty(t, res.Slots, "Камня в инвентаре нет, расходовать нечего")
	assert.Equal(t, tile.Stone, f.world.TileID(8, floorY-1, tile.Foreground))

	res = f.engine.SetTile(f.player, 8, floorY-1, tile.Dirt, tile.Foreground)
	assert.Equal(t, RejectOccupied, res.Rejection)
	assert.Nil(t, res.Update)
}

func TestPlaceConsumesHeldItem(t *testing.T) {
	f := newFixture(t, 8000)
	grassSlot, ok := f.player.Inventory.FindItem(item.ID(tile.Grass))
	require.True(t, ok)
	before := f.player.Inventory.Slot(grassSlot).Quantity

	res := f.engine.SetTile(f.player, 9, floorY-1, tile.Grass, tile.Foreground)
	require.True(t, res.Applied())
	assert.Equal(t, []int{grassSlot}, res.Slots)
	assert.Equal(t, before-1, f.player.Inventory.Slot(grassSlot).Quantity)
}

func TestPlaceRequiresSupport(t *testing.T) {
	f := newFixture(t, 8000)

	res := f.engine.SetTile(f.player, 8, 4, tile.Stone, tile.Foreground)
	assert.Equal(t, RejectAdjacency, res.Rejection, "Блок в воздухе без соседей")

	// факел держится за стену позади
	require.True(t, f.world.SetTile(8, 4, tile.Background, tile.StoneWall))
	res = f.engine.SetTile(f.player, 8, 4, tile.Torch, tile.Foreground)
	assert.True(t, res.Applied(), res.Rejection.String())

	// поставленный факел служит опорой соседу
	res = f.engine.SetTile(f.player, 9, 4, tile.Glass, tile.Foreground)
	assert.True(t, res.Applied(), res.Rejection.String())
}

func TestPlaceRespectsReach(t *testing.T) {
	f := newFixture(t, 5)

	res := f.engine.SetTile(f.player, 15, floorY-1, tile.Stone, tile.Foreground)
	assert.Equal(t, RejectReach, res.Rejection)

	res = f.engine.SetTile(f.player, 7, floorY-1, tile.Stone, tile.Foreground)
	assert.True(t, res.Applied())
}

func TestPlaceInsidePlayerBody(t *testing.T) {
	f := newFixture(t, 8000)
	f.player.SetBody(physics.Body{X: 10, Y: 5})
	require.True(t, f.world.SetTile(9, 5, tile.Foreground, tile.Stone))

	res := f.engine.SetTile(f.player, 10, 5, tile.Stone, tile.Foreground)
	require.True(t, res.Applied(), res.Rejection.String())
	assert.Equal(t, &TileUpdate{X: 10, Y: 5, Layer: tile.Foreground, Tile: tile.Stone}, res.Update)
	assert.True(t, f.world.IsSolid(10, 5))

	res = f.engine.SetTile(f.player, 10, 6, tile.WoodPlatform, tile.Foreground)
	assert.True(t, res.Applied(), "Платформа ставится в тело игрока")

	res = f.engine.SetTile(f.player, 11, 5, tile.DirtWall, tile.Background)
	assert.True(t, res.Applied(), res.Rejection.String())
}

func TestConcurrentPlacementHasOneWinner(t *testing.T) {
	f := newFixture(t, 8000)

	const workers = 64
	var (
		wg      sync.WaitGroup
		applied atomic.Int32
		lost    atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		p := entity.NewPlayer(i+2, vec.Vec2Float{X: 4, Y: floorY - 2}, item.NewInventory(f.items, nil))
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res := f.engine.SetTile(p, 8, floorY-1, tile.Dirt, tile.Foreground)
			switch {
			case res.Applied():
				applied.Add(1)
			case res.Rejection == RejectOccupied || res.Rejection == RejectConflict:
				lost.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, applied.Load(), "Клетку занимает ровно одна правка")
	assert.EqualValues(t, workers-1, lost.Load())
	assert.Equal(t, tile.Dirt, f.world.TileID(8, floorY-1, tile.Foreground))
}

func TestSetTileValidation(t *testing.T) {
	f := newFixture(t, 8000)

	assert.Equal(t, RejectOutOfBounds, f.engine.SetTile(f.player, -1, 3, tile.Stone, tile.Foreground).Rejection)
	assert.Equal(t, RejectOutOfBounds, f.engine.SetTile(f.player, 3, 16, tile.Stone, tile.Foreground).Rejection)
	assert.Equal(t, RejectInvalidLayer, f.engine.SetTile(f.player, 3, 3, tile.Stone, tile.Layer(5)).Rejection)
	assert.Equal(t, RejectUnknownTile, f.engine.SetTile(f.player, 3, 3, tile.ID(999), tile.Foreground).Rejection)
	assert.Equal(t, RejectEmpty, f.engine.SetTile(f.player, 3, 3, tile.Air, tile.Foreground).Rejection)
}

func TestBreakWithAirDropsItem(t *testing.T) {
	f := newFixture(t, 8000)

	res := f.engine.SetTile(f.player, 8, floorY, tile.Air, tile.Foreground)
	require.True(t, res.Applied(), res.Rejection.String())
	assert.Equal(t, tile.Air, res.Update.Tile)
	assert.Equal(t, tile.Air, f.world.TileID(8, floorY, tile.Foreground))

	slot, ok := f.player.Inventory.FindItem(item.ID(tile.Stone))
	require.True(t, ok, "Камень попал в инвентарь")
	assert.Equal(t, []int{slot}, res.Slots)
	assert.Equal(t, 1, f.player.Inventory.Slot(slot).Quantity)
}

func TestBreakWithAirNeedsMatchingTool(t *testing.T) {
	f := newFixture(t, 8000)
	empty := entity.NewPlayer(2, vec.Vec2Float{X: 4, Y: floorY - 2}, item.NewInventory(f.items, nil))

	res := f.engine.SetTile(empty, 8, floorY, tile.Air, tile.Foreground)
	assert.Equal(t, RejectWrongTool, res.Rejection, "Без кирки камень не ломается")
	assert.Equal(t, tile.Stone, f.world.TileID(8, floorY, tile.Foreground))

	axeOnly := entity.NewPlayer(3, vec.Vec2Float{X: 4, Y: floorY - 2}, item.NewInventory(f.items, []item.Slot{{Item: item.CopperAxe, Quantity: 1}}))
	res = f.engine.SetTile(axeOnly, 8, floorY, tile.Air, tile.Foreground)
	assert.Equal(t, RejectWrongTool, res.Rejection)

	res = f.engine.SetTile(f.player, 8, floorY, tile.Air, tile.Foreground)
	assert.True(t, res.Applied(), "Стартовая кирка подходит")
}

func TestBedrockIsIndestructible(t *testing.T) {
	f := newFixture(t, 8000)
	require.True(t, f.world.SetTile(2, 15, tile.Foreground, tile.Bedrock))

	res := f.engine.SetTile(f.player, 2, 15, tile.Air, tile.Foreground)
	assert.Equal(t, RejectIndestructible, res.Rejection)
	assert.Equal(t, tile.Bedrock, f.world.TileID(2, 15, tile.Foreground))
}

func TestToolHitsAccumulate(t *testing.T) {
	f := newFixture(t, 8000)
	pickaxe, ok := f.player.Inventory.FindItem(item.CopperPickaxe)
	require.True(t, ok)

	// камень выдерживает 4 единицы, кирка бьёт на 3
	res := f.engine.UseItem(f.player, pickaxe, 9, floorY)
	assert.Equal(t, Accepted, res.Rejection)
	assert.True(t, res.Damaged)
	assert.Nil(t, res.Update)
	assert.Equal(t, tile.Stone, f.world.TileID(9, floorY, tile.Foreground))

	res = f.engine.UseItem(f.player, pickaxe, 9, floorY)
	require.True(t, res.Applied())
	assert.Equal(t, tile.Air, f.world.TileID(9, floorY, tile.Foreground))
	assert.NotEmpty(t, res.Slots)
}

func TestWrongToolRejected(t *testing.T) {
	f := newFixture(t, 8000)
	require.True(t, f.world.SetTile(10, floorY-1, tile.Background, tile.StoneWall))

	axe, ok := f.player.Inventory.FindItem(item.CopperAxe)
	require.True(t, ok)
	res := f.engine.UseItem(f.player, axe, 10, floorY-1)
	assert.Equal(t, RejectWrongTool, res.Rejection)

	hammer, ok := f.player.Inventory.FindItem(item.CopperHammer)
	require.True(t, ok)
	for i := 0; i < 2; i++ {
		res = f.engine.UseItem(f.player, hammer, 10, floorY-1)
		assert.True(t, res.Damaged)
	}
	res = f.engine.UseItem(f.player, hammer, 10, floorY-1)
	assert.True(t, res.Applied(), "Третий удар молотом разрушает каменную стену")
}

func TestUseTileItemConsumesSlot(t *testing.T) {
	f := newFixture(t, 8000)
	planks, ok := f.player.Inventory.FindItem(item.ID(tile.WoodPlank))
	require.True(t, ok)
	before := f.player.Inventory.Slot(planks).Quantity

	res := f.engine.UseItem(f.player, planks, 8, floorY-1)
	require.True(t, res.Applied(), res.Rejection.String())
	assert.Equal(t, tile.WoodPlank, res.Update.Tile)
	assert.Equal(t, []int{planks}, res.Slots)
	assert.Equal(t, before-1, f.player.Inventory.Slot(planks).Quantity)

	assert.Equal(t, RejectEmptySlot, f.engine.UseItem(f.player, 30, 8, floorY-2).Rejection)
	assert.Equal(t, RejectEmptySlot, f.engine.UseItem(f.player, -1, 8, floorY-2).Rejection)
}

func TestRejectionNames(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "wrong_tool", RejectWrongTool.String())
	assert.Equal(t, "unknown", Rejection(99).String())
}
