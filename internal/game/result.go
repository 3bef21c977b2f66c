package game

import "github.com/annel0/swagaria-server/internal/world/tile"

// Rejection причина отказа в правке мира
type Rejection int

const (
	Accepted Rejection = iota
	RejectOutOfBounds
	RejectReach
	RejectOccupied
	RejectEmpty
	RejectAdjacency
	RejectUnknownTile
	RejectUnknownItem
	RejectEmptySlot
	RejectWrongTool
	RejectIndestructible
	RejectInvalidLayer
	RejectConflict // клетка изменилась между проверкой и записью
)

func (r Rejection) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectOutOfBounds:
		return "out_of_bounds"
	case RejectReach:
		return "reach"
	case RejectOccupied:
		return "occupied"
	case RejectEmpty:
		return "empty"
	case RejectAdjacency:
		return "adjacency"
	case RejectUnknownTile:
		return "unknown_tile"
	case RejectUnknownItem:
		return "unknown_item"
	case RejectEmptySlot:
		return "empty_slot"
	case RejectWrongTool:
		return "wrong_tool"
	case RejectIndestructible:
		return "indestructible"
	case RejectInvalidLayer:
		return "invalid_layer"
	case RejectConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// TileUpdate изменение клетки в координатах сервера
type TileUpdate struct {
	X, Y  int
	Layer tile.Layer
	Tile  tile.ID
}

// Result итог команды правки
type Result struct {
	Rejection Rejection
	Update    *TileUpdate // nil, если клетка не изменилась
	Damaged   bool        // удар засчитан, но клетка ещё цела
	Slots     []int       // изменённые слоты инвентаря
}

// Applied сообщает, изменилась ли клетка
func (r Result) Applied() bool {
	return r.Rejection == Accepted && r.Update != nil
}

func reject(r Rejection) Result {
	return Result{Rejection: r}
}
