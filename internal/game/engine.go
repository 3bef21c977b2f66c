package game

import (
	"github.com/annel0/swagaria-server/internal/physics"
	"github.com/annel0/swagaria-server/internal/vec"
	"github.com/annel0/swagaria-server/internal/world"
	"github.com/annel0/swagaria-server/internal/world/entity"
	"github.com/annel0/swagaria-server/internal/world/item"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

// Options параметры проверки правок
type Options struct {
	ReachDistance float64
	Collider      physics.BoxCollider
}

// Engine проверяет и применяет правки мира от игроков.
// Все координаты - координаты сервера.
type Engine struct {
	world *world.World
	tiles *tile.Catalog
	items *item.Catalog
	opts  Options
}

// NewEngine создаёт движок правок
func NewEngine(w *world.World, items *item.Catalog, opts Options) *Engine {
	if opts.Collider.Width == 0 || opts.Collider.Height == 0 {
		opts.Collider = physics.PlayerCollider
	}
	return &Engine{
		world: w,
		tiles: w.Catalog(),
		items: items,
		opts:  opts,
	}
}

// WithinReach проверяет квадрат расстояния от центра тела до центра клетки
func (e *Engine) WithinReach(p *entity.Player, x, y int) bool {
	center := e.opts.Collider.Center(p.Position())
	target := vec.Vec2{X: x, Y: y}.Center()
	return center.DistanceSqTo(target) <= e.opts.ReachDistance*e.opts.ReachDistance
}

// SetTile ставит тип id в слой клетки; id == AIR ломает клетку сразу,
// если у игрока есть подходящий инструмент
func (e *Engine) SetTile(p *entity.Player, x, y int, id tile.ID, layer tile.Layer) Result {
	if !layer.Valid() {
		return reject(RejectInvalidLayer)
	}
	if id == tile.Air {
		def := e.tiles.Lookup(e.world.TileID(x, y, layer))
		hits := 1
		if def.Durability != nil {
			hits = def.Durability.Hits
		}
		return e.breakTile(p, x, y, layer, nil, float32(hits))
	}
	if !e.tiles.IsValid(id) {
		return reject(RejectUnknownTile)
	}

	res := e.placeTile(p, x, y, layer, e.tiles.Lookup(id))
	if res.Applied() {
		if itemID, ok := e.items.ForTile(id); ok {
			if slot, found := p.Inventory.FindItem(itemID); found && p.Inventory.DecreaseQuantity(slot, 1) {
				res.Slots = append(res.Slots, slot)
			}
		}
	}
	return res
}

// UseItem применяет предмет из слота к клетке
func (e *Engine) UseItem(p *entity.Player, slot, x, y int) Result {
	s := p.Inventory.Slot(slot)
	if s.Empty() {
		return reject(RejectEmptySlot)
	}
	def, ok := e.items.Get(s.Item)
	if !ok {
		return reject(RejectUnknownItem)
	}

	switch def.Kind {
	case item.KindTile:
		if !e.tiles.IsValid(def.Tile) || def.Tile == tile.Air {
			return reject(RejectUnknownTile)
		}
		tileDef := e.tiles.Lookup(def.Tile)
		res := e.placeTile(p, x, y, tileDef.Layer, tileDef)
		if res.Applied() && p.Inventory.DecreaseQuantity(slot, 1) {
			res.Slots = append(res.Slots, slot)
		}
		return res
	case item.KindTool:
		kind := def.Tool
		return e.breakTile(p, x, y, def.BreakLayer, &kind, float32(def.Damage))
	default:
		return reject(RejectUnknownItem)
	}
}

func (e *Engine) placeTile(p *entity.Player, x, y int, layer tile.Layer, def *tile.Definition) Result {
	if !e.world.InBounds(x, y) {
		return reject(RejectOutOfBounds)
	}
	if !e.WithinReach(p, x, y) {
		return reject(RejectReach)
	}
	if e.world.TileID(x, y, layer) != tile.Air {
		return reject(RejectOccupied)
	}
	if !e.HasSupport(x, y, def) {
		return reject(RejectAdjacency)
	}
	if !e.world.SwapTile(x, y, layer, tile.Air, def.ID) {
		return reject(RejectConflict)
	}
	return Result{Update: &TileUpdate{X: x, Y: y, Layer: layer, Tile: def.ID}}
}

// HasSupport проверяет правило примыкания: хотя бы один из четырёх соседей
// не пуст в любом слое. Источники света держатся ещё и за стену позади
// или за твёрдый пол снизу.
func (e *Engine) HasSupport(x, y int, def *tile.Definition) bool {
	for _, n := range (vec.Vec2{X: x, Y: y}).Neighbors4() {
		if e.world.TileID(n.X, n.Y, tile.Foreground) != tile.Air ||
			e.world.TileID(n.X, n.Y, tile.Background) != tile.Air {
			return true
		}
	}
	if def.IsLightSource() {
		if e.world.TileID(x, y, tile.Background) != tile.Air {
			return true
		}
		if e.world.IsSolid(x, y+1) {
			return true
		}
	}
	return false
}

func (e *Engine) breakTile(p *entity.Player, x, y int, layer tile.Layer, tool *tile.ToolKind, amount float32) Result {
	if !e.world.InBounds(x, y) {
		return reject(RejectOutOfBounds)
	}
	if !e.WithinReach(p, x, y) {
		return reject(RejectReach)
	}

	current := e.world.TileID(x, y, layer)
	if current == tile.Air {
		return reject(RejectEmpty)
	}
	def := e.tiles.Lookup(current)
	if !def.Breakable() {
		return reject(RejectIndestructible)
	}
	if tool != nil {
		if !def.AcceptsTool(*tool) {
			return reject(RejectWrongTool)
		}
	} else if !e.holdsToolFor(p.Inventory, def) {
		return reject(RejectWrongTool)
	}

	switch e.world.DamageTile(x, y, layer, current, amount) {
	case world.DamageProgress:
		return Result{Damaged: true}
	case world.DamageBroken:
		res := Result{Update: &TileUpdate{X: x, Y: y, Layer: layer, Tile: tile.Air}}
		if itemID, ok := e.items.ForTile(def.Durability.Drop); ok {
			changed, _ := p.Inventory.AddItem(itemID, 1)
			res.Slots = append(res.Slots, changed...)
		}
		return res
	default:
		return reject(RejectConflict)
	}
}

// holdsToolFor ищет в инвентаре инструмент, которым можно разрушить def
func (e *Engine) holdsToolFor(inv *item.Inventory, def *tile.Definition) bool {
	if def.RequiredTool == nil || def.RequiredTool.Kind == tile.ToolAny {
		return true
	}
	for _, slot := range inv.Slots() {
		if slot.Empty() {
			continue
		}
		if it, ok := e.items.Get(slot.Item); ok && it.Kind == item.KindTool && def.AcceptsTool(it.Tool) {
			return true
		}
	}
	return false
}
