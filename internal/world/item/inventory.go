package item

import (
	"strconv"
	"strings"
	"sync"

	"github.com/annel0/swagaria-server/internal/world/tile"
)

// NumSlots размер инвентаря: 10 слотов хотбара и 30 хранилища
const NumSlots = 40

// Slot содержимое ячейки инвентаря
type Slot struct {
	Item     ID
	Quantity int
}

// Empty сообщает, пуст ли слот
func (s Slot) Empty() bool {
	return s.Item == None || s.Quantity <= 0
}

// StarterKit стартовый набор нового игрока по слотам
var StarterKit = []Slot{
	{Item: CopperPickaxe, Quantity: 1},
	{Item: CopperAxe, Quantity: 1},
	{Item: CopperHammer, Quantity: 1},
	{Item: ID(tile.Grass), Quantity: 99},
	{Item: ID(tile.WoodPlank), Quantity: 130},
	{Item: ID(tile.WoodPlankWall), Quantity: 99},
	{Item: ID(tile.Torch), Quantity: 54},
}

// Inventory инвентарь игрока. Методы изменения возвращают номера
// изменённых слотов, чтобы владелец мог разослать INV_UPDATE.
type Inventory struct {
	mu      sync.Mutex
	catalog *Catalog
	slots   [NumSlots]Slot
}

// NewInventory создаёт инвентарь с начальным содержимым
func NewInventory(catalog *Catalog, kit []Slot) *Inventory {
	inv := &Inventory{catalog: catalog}
	for i, s := range kit {
		if i >= NumSlots {
			break
		}
		if _, ok := catalog.Get(s.Item); ok && s.Quantity > 0 {
			inv.slots[i] = s
		}
	}
	return inv
}

// Slot возвращает копию слота; вне диапазона - пустой слот
func (inv *Inventory) Slot(index int) Slot {
	if index < 0 || index >= NumSlots {
		return Slot{}
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.slots[index]
}

// Slots возвращает копию всех слотов
func (inv *Inventory) Slots() [NumSlots]Slot {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.slots
}

// AddItem докладывает предмет в существующие стопки, затем в пустые слоты.
// Возвращает изменённые слоты и количество, которое не поместилось.
func (inv *Inventory) AddItem(id ID, quantity int) (changed []int, leftover int) {
	if id == None || quantity <= 0 {
		return nil, 0
	}
	def, ok := inv.catalog.Get(id)
	if !ok {
		return nil, quantity
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	remaining := quantity
	for i := 0; i < NumSlots && remaining > 0; i++ {
		s := &inv.slots[i]
		if s.Empty() || s.Item != id || s.Quantity >= def.MaxStack {
			continue
		}
		transfer := min(remaining, def.MaxStack-s.Quantity)
		s.Quantity += transfer
		remaining -= transfer
		changed = append(changed, i)
	}

	for i := 0; i < NumSlots && remaining > 0; i++ {
		if !inv.slots[i].Empty() {
			continue
		}
		transfer := min(remaining, def.MaxStack)
		inv.slots[i] = Slot{Item: id, Quantity: transfer}
		remaining -= transfer
		changed = append(changed, i)
	}

	return changed, remaining
}

// DecreaseQuantity уменьшает количество в слоте; опустевший слот очищается.
// Возвращает false для пустого слота или неверного индекса.
func (inv *Inventory) DecreaseQuantity(index, amount int) bool {
	if index < 0 || index >= NumSlots || amount <= 0 {
		return false
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	s := &inv.slots[index]
	if s.Empty() {
		return false
	}
	s.Quantity -= amount
	if s.Quantity <= 0 {
		*s = Slot{}
	}
	return true
}

// FindItem возвращает первый непустой слот с предметом
func (inv *Inventory) FindItem(id ID) (int, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for i, s := range inv.slots {
		if !s.Empty() && s.Item == id {
			return i, true
		}
	}
	return -1, false
}

// Serialize строит строку INV_SYNC,,id,qty,... по всем слотам
func (inv *Inventory) Serialize() string {
	slots := inv.Slots()

	var sb strings.Builder
	sb.WriteString("INV_SYNC,")
	for _, s := range slots {
		sb.WriteByte(',')
		writeSlot(&sb, s)
	}
	return sb.String()
}

// SlotUpdateLine строит строку INV_UPDATE,pid,slot,id,qty
func (inv *Inventory) SlotUpdateLine(playerID, index int) string {
	var sb strings.Builder
	sb.WriteString("INV_UPDATE,")
	sb.WriteString(strconv.Itoa(playerID))
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(index))
	sb.WriteByte(',')
	writeSlot(&sb, inv.Slot(index))
	return sb.String()
}

func writeSlot(sb *strings.Builder, s Slot) {
	if s.Empty() {
		sb.WriteString("0,0")
		return
	}
	sb.WriteString(strconv.Itoa(int(s.Item)))
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(s.Quantity))
}
