package tile

// Идентификаторы стандартных тайлов
const (
	Air           ID = 0
	Grass         ID = 1
	Dirt          ID = 2
	Stone         ID = 3
	WoodLog       ID = 4
	Torch         ID = 5
	WoodPlank     ID = 6
	WoodPlankWall ID = 7
	StoneWall     ID = 8
	DirtWall      ID = 9
	Leaves        ID = 10
	TallGrass     ID = 11
	Flower        ID = 12
	Slate         ID = 13
	SlateWall     ID = 14
	WoodPlatform  ID = 15
	Glass         ID = 16
	Bedrock       ID = 17
)

// DefaultCatalog строит стандартный набор тайлов мира
func DefaultCatalog() *Catalog {
	b := NewBuilder().
		Define(Grass, "Grass Block", Foreground, WithCollision(true), WithDurability(2, Grass), WithTool(ToolPickaxe)).
		Define(Dirt, "Dirt Block", Foreground, WithCollision(true), WithDurability(2, Dirt), WithTool(ToolPickaxe)).
		Define(Stone, "Stone Block", Foreground, WithCollision(true), WithDurability(4, Stone), WithTool(ToolPickaxe)).
		Define(Slate, "Slate Block", Foreground, WithCollision(true), WithDurability(6, Slate), WithTool(ToolPickaxe)).
		Define(WoodLog, "Wood Log", Background, WithDurability(3, WoodLog), WithTool(ToolAxe)).
		Define(Leaves, "Leaves", Foreground, WithCollision(false), WithDurability(1, Leaves), WithTool(ToolAxe)).
		Define(TallGrass, "Tall Grass", Foreground, WithCollision(false), WithDurability(1, TallGrass), WithTool(ToolAny)).
		Define(Flower, "Flower", Foreground, WithCollision(false), WithDurability(1, Flower), WithTool(ToolAny)).
		Define(Torch, "Torch", Foreground, WithLight(15), WithDurability(1, Torch), WithTool(ToolAny)).
		Define(WoodPlank, "Wood Plank", Foreground, WithCollision(true), WithDurability(2, WoodPlank), WithTool(ToolPickaxe)).
		Define(Glass, "Glass", Foreground, WithCollision(true), WithDurability(1, Glass), WithTool(ToolPickaxe)).
		Define(WoodPlankWall, "Wood Plank Wall", Background, WithDurability(2, WoodPlankWall), WithTool(ToolHammer)).
		Define(StoneWall, "Stone Wall", Background, WithDurability(3, StoneWall), WithTool(ToolHammer)).
		Define(DirtWall, "Dirt Wall", Background, WithDurability(2, DirtWall), WithTool(ToolHammer)).
		Define(SlateWall, "Slate Wall", Background, WithDurability(4, SlateWall), WithTool(ToolHammer)).
		Define(Bedrock, "Bedrock", Foreground, WithCollision(true)).
		DefinePlatform(WoodPlatform, "Wood Platform", WithCollision(true), WithDurability(1, WoodPlatform), WithTool(ToolPickaxe))

	c, err := b.Build()
	if err != nil {
		// стандартный набор статичен: ошибка здесь - ошибка программиста
		panic(err)
	}
	return c
}
