package physics

import (
	"github.com/annel0/swagaria-server/internal/vec"
)

// BoxCollider прямоугольное тело в тайловых единицах. Позиция тела -
// левый верхний угол в координатах сервера (y растёт вниз).
type BoxCollider struct {
	Width  float64
	Height float64
}

// PlayerCollider тело игрока: 1 тайл в ширину, 2 в высоту
var PlayerCollider = BoxCollider{Width: 1, Height: 2}

// Center возвращает центр тела
func (bc BoxCollider) Center(pos vec.Vec2Float) vec.Vec2Float {
	return vec.Vec2Float{X: pos.X + bc.Width/2, Y: pos.Y + bc.Height/2}
}
