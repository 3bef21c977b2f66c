package tile

// ID идентификатор типа тайла
type ID int32

// ToolKind вид инструмента, которым ломается тайл
type ToolKind uint8

const (
	ToolAny ToolKind = iota
	ToolPickaxe
	ToolAxe
	ToolHammer
)

func (k ToolKind) String() string {
	switch k {
	case ToolPickaxe:
		return "PICKAXE"
	case ToolAxe:
		return "AXE"
	case ToolHammer:
		return "HAMMER"
	default:
		return "ANY"
	}
}

// Capability вид опционального свойства определения тайла
type Capability uint8

const (
	CapCollision Capability = iota
	CapDurability
	CapRequiredTool
	CapLightSource

	numCapabilities
)

func (c Capability) String() string {
	switch c {
	case CapCollision:
		return "Collision"
	case CapDurability:
		return "Durability"
	case CapRequiredTool:
		return "RequiredTool"
	case CapLightSource:
		return "LightSource"
	default:
		return "Unknown"
	}
}

// Collision определяет, мешает ли тайл движению
type Collision struct {
	BlocksMovement bool
}

// Durability число ударов до разрушения и выпадающий тип
type Durability struct {
	Hits int
	Drop ID
}

// RequiredTool инструмент, необходимый для разрушения
type RequiredTool struct {
	Kind ToolKind
}

// LightSource уровень свечения 0..15
type LightSource struct {
	Level uint8
}

// Definition неизменяемое описание типа тайла. Свойства хранятся
// как набор опциональных полей: nil означает отсутствие свойства.
type Definition struct {
	ID       ID
	Name     string
	Layer    Layer // слой, в который тайл ставится
	Platform bool  // односторонняя платформа

	Collision    *Collision
	Durability   *Durability
	RequiredTool *RequiredTool
	Light        *LightSource
}

// Has сообщает, есть ли у определения свойство данного вида
func (d *Definition) Has(c Capability) bool {
	switch c {
	case CapCollision:
		return d.Collision != nil
	case CapDurability:
		return d.Durability != nil
	case CapRequiredTool:
		return d.RequiredTool != nil
	case CapLightSource:
		return d.Light != nil
	default:
		return false
	}
}

// Breakable сообщает, можно ли разрушить тайл
func (d *Definition) Breakable() bool {
	return d.Durability != nil && d.ID != Air
}

// IsLightSource сообщает, светится ли тайл
func (d *Definition) IsLightSource() bool {
	return d.Light != nil && d.Light.Level > 0
}

// AcceptsTool проверяет, подходит ли инструмент для разрушения тайла
func (d *Definition) AcceptsTool(kind ToolKind) bool {
	if d.RequiredTool == nil || d.RequiredTool.Kind == ToolAny {
		return true
	}
	return d.RequiredTool.Kind == kind
}

// Option задаёт одно свойство определения
type Option struct {
	kind  Capability
	apply func(*Definition)
}

// WithCollision добавляет свойство Collision
func WithCollision(blocksMovement bool) Option {
	return Option{kind: CapCollision, apply: func(d *Definition) {
		d.Collision = &Collision{BlocksMovement: blocksMovement}
	}}
}

// WithDurability добавляет свойство Durability
func WithDurability(hits int, drop ID) Option {
	return Option{kind: CapDurability, apply: func(d *Definition) {
		d.Durability = &Durability{Hits: hits, Drop: drop}
	}}
}

// WithTool добавляет свойство RequiredTool
func WithTool(kind ToolKind) Option {
	return Option{kind: CapRequiredTool, apply: func(d *Definition) {
		d.RequiredTool = &RequiredTool{Kind: kind}
	}}
}

// WithLight добавляет свойство LightSource
func WithLight(level uint8) Option {
	if level > 15 {
		level = 15
	}
	return Option{kind: CapLightSource, apply: func(d *Definition) {
		d.Light = &LightSource{Level: level}
	}}
}
