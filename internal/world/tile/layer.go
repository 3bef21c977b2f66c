package tile

import "fmt"

// Layer плоскость тайлов внутри клетки.
//
// 0 – Foreground: твёрдые блоки, ломаются инструментами;
// 1 – Background: стены позади игрока.
type Layer uint8

const (
	Foreground Layer = iota
	Background

	NumLayers // всегда последний: количество слоёв
)

// Valid сообщает, существует ли слой
func (l Layer) Valid() bool {
	return l < NumLayers
}

func (l Layer) String() string {
	switch l {
	case Foreground:
		return "FOREGROUND"
	case Background:
		return "BACKGROUND"
	default:
		return fmt.Sprintf("LAYER(%d)", uint8(l))
	}
}
