package tile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// airDefinition возвращается для неизвестных идентификаторов
var airDefinition = Definition{ID: Air, Name: "Air", Layer: Foreground}

// Catalog неизменяемый справочник определений тайлов.
// Создаётся через Builder и после Build не меняется.
type Catalog struct {
	defs     map[ID]*Definition
	ordered  []*Definition
	platform map[ID]bool
}

// Builder собирает Catalog при старте процесса
type Builder struct {
	defs map[ID]*Definition
	errs []error
}

// NewBuilder создаёт пустой сборщик с определением AIR
func NewBuilder() *Builder {
	air := airDefinition
	return &Builder{defs: map[ID]*Definition{Air: &air}}
}

// Define добавляет определение; повторный вызов с тем же id заменяет его.
// Повтор одного вида свойства в opts - ошибка, которую вернёт Build.
func (b *Builder) Define(id ID, name string, layer Layer, opts ...Option) *Builder {
	if id < 0 {
		b.errs = append(b.errs, fmt.Errorf("tile %q: negative id %d", name, id))
		return b
	}
	if !layer.Valid() {
		b.errs = append(b.errs, fmt.Errorf("tile %q: invalid layer %d", name, layer))
		return b
	}

	def := &Definition{ID: id, Name: name, Layer: layer}
	var seen [numCapabilities]bool
	for _, opt := range opts {
		if seen[opt.kind] {
			b.errs = append(b.errs, fmt.Errorf("tile %q: duplicate capability %s", name, opt.kind))
			return b
		}
		seen[opt.kind] = true
		opt.apply(def)
	}

	b.defs[id] = def
	return b
}

// DefinePlatform добавляет одностороннюю платформу
func (b *Builder) DefinePlatform(id ID, name string, opts ...Option) *Builder {
	before := len(b.errs)
	b.Define(id, name, Foreground, opts...)
	if len(b.errs) == before {
		b.defs[id].Platform = true
	}
	return b
}

// Build возвращает готовый каталог или первую накопленную ошибку
func (b *Builder) Build() (*Catalog, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	c := &Catalog{
		defs:     make(map[ID]*Definition, len(b.defs)),
		platform: make(map[ID]bool),
	}
	for id, def := range b.defs {
		cp := *def
		c.defs[id] = &cp
		c.ordered = append(c.ordered, &cp)
		if cp.Platform {
			c.platform[id] = true
		}
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].ID < c.ordered[j].ID })
	return c, nil
}

// Lookup возвращает определение; для неизвестных и отрицательных id - AIR
func (c *Catalog) Lookup(id ID) *Definition {
	if def, ok := c.defs[id]; ok {
		return def
	}
	return c.defs[Air]
}

// IsValid сообщает, определён ли id
func (c *Catalog) IsValid(id ID) bool {
	_, ok := c.defs[id]
	return ok
}

// HasCollision true только при наличии Collision с BlocksMovement
func HasCollision(def *Definition) bool {
	return def != nil && def.Collision != nil && def.Collision.BlocksMovement
}

// IsPlatform сообщает, является ли тип односторонней платформой
func (c *Catalog) IsPlatform(id ID) bool {
	return c.platform[id]
}

// Definitions возвращает определения в порядке возрастания id
func (c *Catalog) Definitions() []*Definition {
	out := make([]*Definition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len количество определений
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// SyncLine строит строку TILE_DEF_SYNC:
// |id:name:layer:solid:light[:P]
func (c *Catalog) SyncLine() string {
	var sb strings.Builder
	sb.WriteString("TILE_DEF_SYNC")
	for _, def := range c.ordered {
		sb.WriteByte('|')
		sb.WriteString(strconv.Itoa(int(def.ID)))
		sb.WriteByte(':')
		sb.WriteString(def.Name)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(int(def.Layer)))
		sb.WriteByte(':')
		if HasCollision(def) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
		sb.WriteByte(':')
		light := 0
		if def.Light != nil {
			light = int(def.Light.Level)
		}
		sb.WriteString(strconv.Itoa(light))
		if def.Platform {
			sb.WriteString(":P")
		}
	}
	return sb.String()
}
