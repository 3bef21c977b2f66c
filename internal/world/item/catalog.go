package item

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/annel0/swagaria-server/internal/world/tile"
)

// ID идентификатор предмета. Предметы-тайлы совпадают по id с тайлом (1..99),
// инструменты занимают 100..199.
type ID int32

// None пустой слот
const None ID = 0

// Идентификаторы инструментов
const (
	CopperPickaxe ID = 100
	CopperAxe     ID = 101
	CopperHammer  ID = 102
)

// Kind вид предмета
type Kind uint8

const (
	KindTile Kind = iota
	KindTool
)

// Definition описание предмета
type Definition struct {
	ID       ID
	Name     string
	MaxStack int
	Kind     Kind

	// KindTile
	Tile tile.ID

	// KindTool
	Tool       tile.ToolKind
	Damage     int
	BreakLayer tile.Layer
}

// Catalog неизменяемый справочник предметов
type Catalog struct {
	defs    map[ID]*Definition
	ordered []*Definition
	byTile  map[tile.ID]ID
}

// NewCatalog строит каталог из списка определений
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:   make(map[ID]*Definition, len(defs)),
		byTile: make(map[tile.ID]ID),
	}
	for i := range defs {
		def := defs[i]
		if def.ID <= None {
			return nil, fmt.Errorf("item %q: invalid id %d", def.Name, def.ID)
		}
		if def.MaxStack <= 0 {
			return nil, fmt.Errorf("item %q: max stack must be positive", def.Name)
		}
		if _, dup := c.defs[def.ID]; dup {
			return nil, fmt.Errorf("item %q: duplicate id %d", def.Name, def.ID)
		}
		c.defs[def.ID] = &def
		c.ordered = append(c.ordered, &def)
		if def.Kind == KindTile {
			c.byTile[def.Tile] = def.ID
		}
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].ID < c.ordered[j].ID })
	return c, nil
}

// TileItem описание предмета-тайла со стандартным размером стопки
func TileItem(t tile.ID, name string) Definition {
	return Definition{ID: ID(t), Name: name, MaxStack: 999, Kind: KindTile, Tile: t}
}

// ToolItem описание инструмента
func ToolItem(id ID, name string, kind tile.ToolKind, damage int, layer tile.Layer) Definition {
	return Definition{ID: id, Name: name, MaxStack: 1, Kind: KindTool, Tool: kind, Damage: damage, BreakLayer: layer}
}

// DefaultCatalog стандартный набор предметов
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		TileItem(tile.Grass, "Grass"),
		TileItem(tile.Dirt, "Dirt"),
		TileItem(tile.Stone, "Stone"),
		TileItem(tile.WoodLog, "Wood Log"),
		TileItem(tile.Torch, "Torch"),
		TileItem(tile.WoodPlank, "Wood Plank"),
		TileItem(tile.WoodPlankWall, "Wood Plank Wall"),
		TileItem(tile.StoneWall, "Stone Wall"),
		TileItem(tile.DirtWall, "Dirt Wall"),
		TileItem(tile.Leaves, "Leaves"),
		TileItem(tile.TallGrass, "Tall Grass"),
		TileItem(tile.Flower, "Flowers"),
		TileItem(tile.Slate, "Slate"),
		TileItem(tile.SlateWall, "Slate Wall"),
		TileItem(tile.WoodPlatform, "Wood Platform"),
		TileItem(tile.Glass, "Glass"),
		ToolItem(CopperPickaxe, "Copper Pickaxe", tile.ToolPickaxe, 3, tile.Foreground),
		ToolItem(CopperAxe, "Copper Axe", tile.ToolAxe, 2, tile.Background),
		ToolItem(CopperHammer, "Copper Hammer", tile.ToolHammer, 1, tile.Background),
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Get возвращает определение предмета
func (c *Catalog) Get(id ID) (*Definition, bool) {
	def, ok := c.defs[id]
	return def, ok
}

// ForTile возвращает предмет, который ставит данный тайл
func (c *Catalog) ForTile(t tile.ID) (ID, bool) {
	id, ok := c.byTile[t]
	return id, ok
}

// SyncLine строит строку ITEM_DEF_SYNC:
// |id:name:max:T:tileId для тайлов, |id:name:max:R:TOOL:damage для инструментов
func (c *Catalog) SyncLine() string {
	var sb strings.Builder
	sb.WriteString("ITEM_DEF_SYNC")
	for _, def := range c.ordered {
		sb.WriteByte('|')
		sb.WriteString(strconv.Itoa(int(def.ID)))
		sb.WriteByte(':')
		sb.WriteString(def.Name)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(def.MaxStack))
		switch def.Kind {
		case KindTile:
			sb.WriteString(":T:")
			sb.WriteString(strconv.Itoa(int(def.Tile)))
		case KindTool:
			sb.WriteString(":R:")
			sb.WriteString(def.Tool.String())
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(def.Damage))
		}
	}
	return sb.String()
}
